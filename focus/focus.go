// Package focus decides when the map camera should jump to a new user
// position.
package focus

import (
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/tiles"
)

const (
	DefaultFocusedZoom    = 15
	DefaultMinFocusedZoom = 5
)

type Kind int

const (
	NoOp Kind = iota
	RecenterAndZoom
)

func (k Kind) String() string {
	if k == RecenterAndZoom {
		return "recenter-and-zoom"
	}
	return "no-op"
}

// Action is the outcome of Decide. Target and Zoom are set only for
// RecenterAndZoom.
type Action struct {
	Kind   Kind
	Target tiles.LatLng
	Zoom   int
}

// Policy leaves the camera alone once the user is already looking at their
// position closely enough, and focuses it otherwise.
type Policy struct {
	FocusedZoom    int
	MinFocusedZoom int
}

// DefaultPolicy returns the policy with zoom 15 on focus, and refocusing
// whenever the zoom is below 5.
func DefaultPolicy() Policy {
	return Policy{FocusedZoom: DefaultFocusedZoom, MinFocusedZoom: DefaultMinFocusedZoom}
}

// Decide returns RecenterAndZoom when the view bounds are unknown, when
// candidate is off screen, or when the view is zoomed out past
// MinFocusedZoom.
func (p Policy) Decide(view surface.ViewState, candidate tiles.LatLng) Action {
	if !view.BoundsKnown || !view.Bounds.Contains(candidate) || view.Zoom < p.MinFocusedZoom {
		return Action{Kind: RecenterAndZoom, Target: candidate, Zoom: p.FocusedZoom}
	}
	return Action{Kind: NoOp}
}

// Apply performs a on s.
func Apply(s surface.Surface, a Action) {
	if a.Kind != RecenterAndZoom {
		return
	}
	s.SetZoom(a.Zoom)
	s.PanTo(a.Target)
}
