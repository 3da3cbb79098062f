// Command locatemap opens a map window that finds and follows the user.
package main

import (
	"fmt"
	"os"

	"gioui.org/app"
	"github.com/olablt/gio-locate/config"
	"github.com/olablt/gio-locate/logging"
	"github.com/spf13/cobra"
)

var Version = "dev"

var (
	cfgPath      string
	logLevel     string
	providerKind string
	tileSource   string
)

var rootCmd = &cobra.Command{
	Use:   "locatemap",
	Short: "map that locates and follows you",
	Long: `
locatemap shows a slippy map. "Locate" centers it on your position once,
"Follow" keeps it there while you move. Positions come from a simulated
route or from the Google Geolocation API.
`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Version = Version
	f := rootCmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "JSON config file")
	f.StringVar(&logLevel, "log-level", "", "trace, debug, info, warn or error")
	f.StringVar(&providerKind, "provider", "", "position provider: simulated or google")
	f.StringVar(&tileSource, "tiles", "", "tile source: osm or local")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider.Kind = providerKind
	}
	if cmd.Flags().Changed("tiles") {
		cfg.Tiles.Source = tileSource
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.LogLevel, os.Stderr)
	log.Info().Str("version", Version).Str("provider", cfg.Provider.Kind).Str("tiles", cfg.Tiles.Source).Msg("starting")

	provider, closeProvider, err := newPositionProvider(cfg, log)
	if err != nil {
		return err
	}
	defer closeProvider()

	tm := newTileManager(cfg, log)
	defer tm.Close()

	u, err := newUI(cfg, provider, tm, log)
	if err != nil {
		return err
	}
	return u.run()
}

func main() {
	go func() {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}()
	app.Main()
}
