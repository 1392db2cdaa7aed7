package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/franckalain/eatsmarty/internal/decoder"
	"github.com/franckalain/eatsmarty/internal/models"
)

// JournalSource is the scan log source of session rows
const JournalSource = "session"

// Journal keeps one scan log row per run: saved pending when the run starts,
// updated when the camera is released.
type Journal interface {
	SaveScan(ctx context.Context, scan *models.ScanRecord) error
	UpdateScanStatus(ctx context.Context, id, barcode string, status models.ScanStatus, errMsg string) error
}

// State is a session lifecycle state
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateDecoding
	StateSucceeded
	StateFailed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateDecoding:
		return "decoding"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Active reports whether a session in state s still holds, or may acquire, the camera.
func (s State) Active() bool {
	return s != StateIdle && s != StateReleased
}

// Option configures a Session
type Option func(*Session)

// WithStateObserver registers fn to be called on every state transition.
// fn runs on the session goroutine and must not block.
func WithStateObserver(fn func(sessionID string, state State)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// WithJournal records every run in j
func WithJournal(j Journal) Option {
	return func(s *Session) {
		s.journal = j
	}
}

// run is one Start..Released cycle
type run struct {
	id        string
	cancel    context.CancelFunc
	done      chan struct{}
	abandoned bool
}

// Session turns "user asked to scan" into one decoded barcode or one failure.
// Only one run may be active at a time; a released Session can be started again.
type Session struct {
	camera   Camera
	decoder  decoder.Decoder
	logger   *zap.Logger
	observer func(string, State)
	journal  Journal

	mu      sync.Mutex
	state   State
	current *run
}

// NewSession creates an idle session
func NewSession(camera Camera, dec decoder.Decoder, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		camera:  camera,
		decoder: dec,
		logger:  logger,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the id of the current or last run, or "" before the first Start.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a session. Exactly one of onResult or onError is called when the
// session ends on its own; neither is called if the session is abandoned with
// Close or by cancelling ctx. Callbacks run after the camera has been released.
func (s *Session) Start(ctx context.Context, onResult func(string), onError func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active() {
		return ErrSessionActive
	}

	sctx, cancel := context.WithCancel(ctx)
	r := &run{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.current = r
	s.setStateLocked(r, StateRequesting)

	go s.loop(sctx, r, onResult, onError)
	return nil
}

// Close abandons the active session, if any, and waits until the camera is
// released. It is safe to call at any time and more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	r := s.current
	if r == nil {
		s.mu.Unlock()
		return nil
	}
	r.abandoned = true
	r.cancel()
	s.mu.Unlock()

	<-r.done
	return nil
}

// Done returns a channel closed once the current run has released the camera.
// Before the first Start it returns a closed channel.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.current.done
}

func (s *Session) setStateLocked(r *run, st State) {
	s.state = st
	if s.observer != nil {
		s.observer(r.id, st)
	}
}

func (s *Session) setState(r *run, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateLocked(r, st)
}

// outcome of a run; abandoned runs have neither value nor err.
type outcome struct {
	value string
	err   error
}

func (s *Session) loop(ctx context.Context, r *run, onResult func(string), onError func(error)) {
	log := s.logger.With(zap.String("session_id", r.id))
	s.journalBegin(ctx, r, log)

	var stream Stream
	out := s.acquireAndDecode(ctx, r, log, &stream)

	if stream != nil {
		if err := stream.Close(); err != nil {
			log.Warn("failed to close camera stream", zap.Error(err))
		}
	}

	s.mu.Lock()
	deliver := !r.abandoned && (out.value != "" || out.err != nil)
	s.setStateLocked(r, StateReleased)
	s.mu.Unlock()
	r.cancel()
	s.journalEnd(ctx, r, log, out, deliver)
	close(r.done)
	log.Debug("scan session released", zap.Bool("abandoned", !deliver))

	if !deliver {
		return
	}
	if out.err != nil {
		if onError != nil {
			onError(out.err)
		}
		return
	}
	if onResult != nil {
		onResult(out.value)
	}
}

func (s *Session) acquireAndDecode(ctx context.Context, r *run, log *zap.Logger, stream *Stream) outcome {
	devices, err := s.camera.ListVideoInputDevices(ctx)
	if ctx.Err() != nil {
		return outcome{}
	}
	if err != nil {
		return s.fail(r, log, &Error{Kind: KindStreamFailure, Err: err})
	}
	if len(devices) == 0 {
		return s.fail(r, log, &Error{Kind: KindNoCameraDevice})
	}

	device := pickDevice(devices)
	st, err := s.camera.Open(ctx, Constraints{DeviceID: device.ID, Facing: FacingEnvironment})
	if st != nil {
		*stream = st
	}
	if ctx.Err() != nil {
		return outcome{}
	}
	if err != nil {
		return s.fail(r, log, &Error{Kind: KindStreamFailure, Err: err})
	}

	s.setState(r, StateDecoding)
	log.Info("scan session decoding", zap.String("device_id", device.ID), zap.String("device", device.Label))

	for a := range Attempts(ctx, st, s.decoder) {
		switch {
		case a.Fatal:
			return s.fail(r, log, &Error{Kind: KindStreamFailure, Err: a.Err})
		case a.Succeeded():
			s.setState(r, StateSucceeded)
			log.Info("barcode decoded", zap.String("barcode", a.Value), zap.Uint64("frame", a.Seq))
			return outcome{value: a.Value}
		case decoder.IsNoise(a.Err):
			log.Debug("no readable barcode in frame", zap.Uint64("frame", a.Seq), zap.Error(a.Err))
		default:
			log.Warn("barcode scanning error", zap.Uint64("frame", a.Seq), zap.Error(a.Err))
		}
	}

	// Attempts only ends without a terminal attempt when ctx is done.
	return outcome{}
}

func (s *Session) fail(r *run, log *zap.Logger, err *Error) outcome {
	s.setState(r, StateFailed)
	log.Warn("scan session failed", zap.String("kind", string(err.Kind)), zap.Error(err))
	return outcome{err: err}
}

func (s *Session) journalBegin(ctx context.Context, r *run, log *zap.Logger) {
	if s.journal == nil {
		return
	}
	rec := &models.ScanRecord{
		ID:     r.id,
		Source: JournalSource,
		Status: models.ScanPending,
	}
	if err := s.journal.SaveScan(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("failed to record scan session", zap.Error(err))
	}
}

func (s *Session) journalEnd(ctx context.Context, r *run, log *zap.Logger, out outcome, delivered bool) {
	if s.journal == nil {
		return
	}
	status, msg := models.ScanAbandoned, ""
	switch {
	case !delivered:
	case out.err != nil:
		status = models.ScanFailed
		msg = fmt.Sprintf("%s: %v", KindOf(out.err), out.err)
	default:
		status = models.ScanSucceeded
	}
	if err := s.journal.UpdateScanStatus(context.WithoutCancel(ctx), r.id, out.value, status, msg); err != nil {
		log.Warn("failed to update scan session record", zap.Error(err))
	}
}

// Scan runs one session to completion and returns its result. Cancelling ctx
// abandons the session and returns ctx.Err().
func Scan(ctx context.Context, camera Camera, dec decoder.Decoder, logger *zap.Logger, opts ...Option) (string, error) {
	type result struct {
		value string
		err   error
	}
	ch := make(chan result, 1)

	s := NewSession(camera, dec, logger, opts...)
	err := s.Start(ctx,
		func(v string) { ch <- result{value: v} },
		func(err error) { ch <- result{err: err} },
	)
	if err != nil {
		return "", err
	}
	defer s.Close()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		s.Close()
		// the session may have finished just before cancellation
		select {
		case res := <-ch:
			return res.value, res.err
		default:
		}
		return "", ctx.Err()
	}
}
