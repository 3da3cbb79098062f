// Package toggle is an on/off control that shows a change immediately and
// rolls it back if the server rejects it.
package toggle

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrInFlight is returned by Select while an earlier submission is
// outstanding.
var ErrInFlight = errors.New("toggle: submission in flight")

// Submitter persists a new state.
type Submitter interface {
	Submit(ctx context.Context, value bool) error
}

type SubmitterFunc func(ctx context.Context, value bool) error

func (f SubmitterFunc) Submit(ctx context.Context, value bool) error { return f(ctx, value) }

type Toggle struct {
	submitter Submitter
	log       zerolog.Logger

	mu        sync.Mutex
	value     bool
	confirmed bool
	inFlight  bool
	onChange  func(bool)
}

// New returns a toggle whose server-confirmed state is initial.
func New(s Submitter, initial bool, log zerolog.Logger) *Toggle {
	return &Toggle{
		submitter: s,
		log:       log.With().Str("component", "toggle").Logger(),
		value:     initial,
		confirmed: initial,
	}
}

// OnChange registers fn to be called with the displayed value whenever it
// changes, including on rollback.
func (t *Toggle) OnChange(fn func(bool)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Value is the displayed state.
func (t *Toggle) Value() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Confirmed is the last state the server accepted.
func (t *Toggle) Confirmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confirmed
}

func (t *Toggle) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

// Select shows value at once and submits it. It blocks until the submitter
// answers. On failure the displayed state reverts to the confirmed one and
// the submitter's error is returned.
func (t *Toggle) Select(ctx context.Context, value bool) error {
	t.mu.Lock()
	if t.inFlight {
		t.mu.Unlock()
		t.log.Debug().Bool("value", value).Msg("dropped, submission in flight")
		return ErrInFlight
	}
	t.inFlight = true
	notify := t.set(value)
	t.mu.Unlock()
	notify()

	err := t.submitter.Submit(ctx, value)

	t.mu.Lock()
	t.inFlight = false
	if err == nil {
		t.confirmed = value
		t.mu.Unlock()
		return nil
	}
	t.log.Warn().Err(err).Bool("value", value).Bool("rollback", t.confirmed).Msg("submit failed")
	notify = t.set(t.confirmed)
	t.mu.Unlock()
	notify()
	return err
}

// set must be called with mu held. The returned func reports the change
// and must be called after mu is released.
func (t *Toggle) set(v bool) func() {
	if t.value == v || t.onChange == nil {
		t.value = v
		return func() {}
	}
	t.value = v
	fn := t.onChange
	return func() { fn(v) }
}
