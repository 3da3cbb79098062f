package main

import (
	"context"
	"fmt"
	"image/color"
	"strconv"

	"gioui.org/app"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/olablt/gio-locate/config"
	"github.com/olablt/gio-locate/geolocation"
	"github.com/olablt/gio-locate/mapview"
	"github.com/olablt/gio-locate/mapwidget"
	"github.com/olablt/gio-locate/markers"
	"github.com/olablt/gio-locate/querystring"
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/tiles"
	"github.com/olablt/gio-locate/toggle"
	"github.com/rs/zerolog"
)

type ui struct {
	win    *app.Window
	theme  *material.Theme
	widget *mapwidget.Widget
	view   *mapview.MapView
	follow *toggle.Toggle
	queue  *uiQueue
	log    zerolog.Logger

	locateBtn widget.Clickable
	stopBtn   widget.Clickable
	followBox widget.Bool
	status    string

	refresh chan struct{}
	done    chan struct{}
}

func newUI(cfg *config.Config, provider geolocation.Provider, tm *tiles.TileManager, log zerolog.Logger) (*ui, error) {
	u := &ui{
		win:     new(app.Window),
		theme:   material.NewTheme(),
		log:     log.With().Str("component", "ui").Logger(),
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
		status:  "press Locate to find yourself",
	}
	u.win.Option(app.Title("locatemap"), app.Size(unit.Dp(1024), unit.Dp(768)))
	u.queue = &uiQueue{wake: u.win.Invalidate}

	opts := cfg.WidgetOptions()
	opts.Dispatch = u.queue.Dispatch
	opts.Logger = log
	opts.OnRequestMade = func() { u.status = "waiting for location permission..." }
	opts.OnPermissionTimeout = func(hasCached bool) {
		if hasCached {
			u.status = "still waiting for permission, showing your last position"
			return
		}
		u.status = "please allow location access"
	}
	opts.OnSuccess = func(pos tiles.LatLng) { u.status = "you are at " + pos.String() }
	opts.OnError = func(msg string) { u.status = "location failed: " + msg }
	opts.OnMarkerClick = func(pm *markers.PointMarker) {
		u.status = fmt.Sprintf("marker %s at %s", pm.ID, pm.Marker.Position())
	}

	u.widget = mapwidget.New(provider, opts)
	if err := u.widget.InitializeMap(mapview.Constructor(tm, u.refresh, log), cfg.MapOptions()); err != nil {
		return nil, err
	}
	u.view = u.widget.Surface().(*mapview.MapView)

	u.widget.AddMarker(surface.MarkerOptions{
		Position: cfg.Provider.Start.LatLng(),
		Title:    "Start",
		Color:    color.NRGBA{R: 0x34, G: 0xa8, B: 0x53, A: 0xff},
	})

	u.follow = toggle.New(toggle.SubmitterFunc(func(ctx context.Context, on bool) error {
		if on {
			u.widget.StartPositionUpdateListener()
		} else {
			u.widget.StopPositionUpdateListener()
		}
		return nil
	}), false, log)
	u.follow.OnChange(func(on bool) { u.followBox.Value = on })

	return u, nil
}

func (u *ui) run() error {
	defer close(u.done)
	defer u.widget.Close()
	go func() {
		for {
			select {
			case <-u.refresh:
				u.win.Invalidate()
			case <-u.done:
				return
			}
		}
	}()

	var ops op.Ops
	for {
		switch e := u.win.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			u.queue.Drain()
			gtx := app.NewContext(&ops, e)
			u.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (u *ui) layout(gtx layout.Context) layout.Dimensions {
	if u.locateBtn.Clicked(gtx) {
		u.widget.RequestPosition()
	}
	if u.stopBtn.Clicked(gtx) {
		// turning follow off stops one-shot requests too
		if err := u.follow.Select(context.Background(), false); err != nil {
			u.log.Debug().Err(err).Msg("stop")
		}
		u.status = "stopped"
	}
	if u.followBox.Update(gtx) {
		if err := u.follow.Select(context.Background(), u.followBox.Value); err != nil {
			u.log.Debug().Err(err).Msg("follow toggle")
		}
	}

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(u.toolbar),
		layout.Flexed(1, u.view.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(unit.Dp(4)).Layout(gtx,
				material.Caption(u.theme, u.permalink()).Layout)
		}),
	)
}

func (u *ui) toolbar(gtx layout.Context) layout.Dimensions {
	inset := layout.UniformInset(unit.Dp(6))
	return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return inset.Layout(gtx, material.Button(u.theme, &u.locateBtn, "Locate").Layout)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return inset.Layout(gtx, material.CheckBox(u.theme, &u.followBox, "Follow").Layout)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return inset.Layout(gtx, material.Button(u.theme, &u.stopBtn, "Stop").Layout)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return inset.Layout(gtx, material.Body1(u.theme, u.status).Layout)
		}),
	)
}

// permalink describes the current camera as a query string.
func (u *ui) permalink() string {
	center := u.view.Center()
	b := &querystring.Builder{}
	b.Set("lat", strconv.FormatFloat(center.Lat, 'f', 5, 64)).
		Set("lng", strconv.FormatFloat(center.Lng, 'f', 5, 64)).
		Set("zoom", strconv.Itoa(u.view.Zoom()))
	return b.Build()
}
