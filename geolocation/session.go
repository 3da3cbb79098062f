package geolocation

import (
	"slices"
	"sync"
	"time"

	"github.com/olablt/gio-locate/tiles"
	"github.com/rs/zerolog"
)

// DefaultTimeout is how long a session waits for the first answer before
// reporting the permission prompt as unanswered.
const DefaultTimeout = 3000 * time.Millisecond

type State int

const (
	Idle State = iota
	AwaitingPermission
	Tracking
)

func (s State) String() string {
	switch s {
	case AwaitingPermission:
		return "awaiting-permission"
	case Tracking:
		return "tracking"
	default:
		return "idle"
	}
}

type Mode int

const (
	OneShot Mode = iota
	Continuous
)

func (m Mode) String() string {
	if m == Continuous {
		return "continuous"
	}
	return "one-shot"
}

type EventKind int

const (
	// EventRequestStarted is emitted before the provider is asked.
	EventRequestStarted EventKind = iota
	EventSuccess
	EventError
	EventPermissionTimeout
)

func (k EventKind) String() string {
	switch k {
	case EventRequestStarted:
		return "request-started"
	case EventSuccess:
		return "success"
	case EventError:
		return "error"
	case EventPermissionTimeout:
		return "permission-timeout"
	default:
		return "unknown"
	}
}

// Event is a session notification. Position is set for EventSuccess, Err for
// EventError and EventPermissionTimeout.
type Event struct {
	Kind     EventKind
	Mode     Mode
	Position Position
	Err      error
	// HasCachedPosition reports, on EventPermissionTimeout, whether an
	// earlier request already produced a position.
	HasCachedPosition bool
}

type SessionOptions struct {
	// Timeout before EventPermissionTimeout. Zero means DefaultTimeout.
	Timeout time.Duration
	// Clock defaults to SystemClock.
	Clock Clock
	// Dispatch moves provider callbacks and timer firings onto the host's
	// UI goroutine. Nil runs them on the goroutine that delivered them.
	Dispatch func(func())
	Logger   zerolog.Logger
}

// Session is one logical "where am I" interaction: a single request or a
// continuous watch, guarded by a permission timeout.
//
// A Session never retries. Failures and timeouts are delivered to
// listeners and the host decides what to do next.
type Session struct {
	provider Provider
	timeout  time.Duration
	clock    Clock
	dispatch func(func())
	log      zerolog.Logger

	mu    sync.Mutex
	state State
	mode  Mode
	// gen identifies the current request; callbacks carrying an older
	// generation are dropped.
	gen         uint64
	outstanding bool
	timer       Timer
	cancelWatch func()
	last        tiles.LatLng
	hasLast     bool

	listenersMu sync.Mutex
	listeners   map[int]func(Event)
	nextID      int
}

func NewSession(p Provider, opts SessionOptions) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { fn() }
	}
	return &Session{
		provider:  p,
		timeout:   opts.Timeout,
		clock:     opts.Clock,
		dispatch:  opts.Dispatch,
		log:       opts.Logger.With().Str("component", "geolocation").Logger(),
		listeners: make(map[int]func(Event)),
	}
}

// Listen subscribes fn to session events. Events are delivered
// synchronously, in order, without holding any session lock.
func (s *Session) Listen(fn func(Event)) (unsubscribe func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// LastAccepted returns the most recent successful coordinate.
func (s *Session) LastAccepted() (tiles.LatLng, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// RequestOnce asks the provider for a single position. It does nothing
// while another request is still waiting for its answer or a watch is
// running.
func (s *Session) RequestOnce() {
	s.begin(OneShot)
}

// StartContinuous subscribes to repeated position updates under the same
// preconditions as RequestOnce.
func (s *Session) StartContinuous() {
	s.begin(Continuous)
}

// Stop cancels the watch and the timer and returns to Idle. Callbacks still
// in flight are ignored when they arrive.
func (s *Session) Stop() {
	s.mu.Lock()
	s.gen++
	s.disarmLocked()
	cancel := s.cancelWatch
	s.cancelWatch = nil
	s.outstanding = false
	prev := s.state
	s.state = Idle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if prev != Idle {
		s.log.Debug().Stringer("from", prev).Msg("session stopped")
	}
}

func (s *Session) begin(mode Mode) {
	s.mu.Lock()
	if s.busyLocked() {
		state := s.state
		s.mu.Unlock()
		s.log.Debug().Stringer("mode", mode).Stringer("state", state).Msg("request ignored, session busy")
		return
	}
	s.gen++
	gen := s.gen
	s.state = AwaitingPermission
	s.mode = mode
	s.outstanding = true
	s.armLocked(gen)
	s.mu.Unlock()

	s.log.Debug().Stringer("mode", mode).Uint64("request", gen).Msg("requesting position")

	// Stale visuals are cleared by listeners before the provider can answer.
	s.emit(Event{Kind: EventRequestStarted, Mode: mode})
	if !s.current(gen) {
		return
	}

	onSuccess := func(p Position) {
		s.dispatch(func() { s.handleSuccess(gen, p) })
	}
	onError := func(err error) {
		s.dispatch(func() { s.handleError(gen, err) })
	}

	if mode == OneShot {
		s.provider.GetCurrentPosition(onSuccess, onError)
		return
	}

	cancel := s.provider.WatchPosition(onSuccess, onError)
	s.mu.Lock()
	if s.gen == gen && s.state != Idle {
		s.cancelWatch = cancel
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	// stopped from inside a synchronous callback
	if cancel != nil {
		cancel()
	}
}

func (s *Session) busyLocked() bool {
	if s.state == Idle {
		return false
	}
	return s.outstanding || s.mode == Continuous
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.state != Idle
}

func (s *Session) armLocked(gen uint64) {
	s.disarmLocked()
	s.timer = s.clock.AfterFunc(s.timeout, func() {
		s.dispatch(func() { s.handleTimeout(gen) })
	})
}

func (s *Session) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) handleSuccess(gen uint64, p Position) {
	s.mu.Lock()
	if s.gen != gen || s.state == Idle {
		s.mu.Unlock()
		s.log.Debug().Uint64("request", gen).Msg("dropping stale position")
		return
	}
	s.disarmLocked()
	s.state = Tracking
	if s.mode == OneShot {
		s.outstanding = false
	}
	s.last = p.Coordinate
	s.hasLast = true
	mode := s.mode
	s.mu.Unlock()

	s.log.Debug().Stringer("position", p.Coordinate).Float64("accuracy", p.Accuracy).Msg("position accepted")
	s.emit(Event{Kind: EventSuccess, Mode: mode, Position: p})
}

func (s *Session) handleError(gen uint64, err error) {
	if err == nil {
		err = NewPositionError(CodeUnknown, "")
	}
	s.mu.Lock()
	if s.gen != gen || s.state == Idle {
		s.mu.Unlock()
		s.log.Debug().Uint64("request", gen).Err(err).Msg("dropping stale error")
		return
	}
	s.disarmLocked()
	if s.mode == OneShot {
		s.outstanding = false
	}
	mode := s.mode
	s.mu.Unlock()

	s.log.Warn().Err(err).Stringer("mode", mode).Msg("position error")
	s.emit(Event{Kind: EventError, Mode: mode, Err: err})
}

func (s *Session) handleTimeout(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.state != AwaitingPermission || s.timer == nil {
		s.mu.Unlock()
		return
	}
	// fires once per request; a late answer is still accepted
	s.timer = nil
	mode := s.mode
	cached := s.hasLast
	s.mu.Unlock()

	s.log.Info().Dur("timeout", s.timeout).Bool("cached", cached).Msg("permission prompt unanswered")
	s.emit(Event{Kind: EventPermissionTimeout, Mode: mode, Err: ErrPermissionTimeout, HasCachedPosition: cached})
}

func (s *Session) emit(ev Event) {
	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
