package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/franckalain/eatsmarty/internal/decoder"
	"github.com/franckalain/eatsmarty/internal/models"
)

// fakeDecoder reads frames of the form "code:<value>", "noise", "blurry" and anything else as an error.
type fakeDecoder struct{}

func (fakeDecoder) Decode(_ context.Context, f decoder.Frame) (string, error) {
	s := string(f.Data)
	switch {
	case strings.HasPrefix(s, "code:"):
		return strings.TrimPrefix(s, "code:"), nil
	case s == "noise":
		return "", decoder.ErrNoBarcode
	case s == "blurry":
		return "", decoder.ErrUnreadable
	default:
		return "", errors.New("decoder glitch")
	}
}

type fakeStream struct {
	frames chan decoder.Frame
	errs   chan error
	closed atomic.Int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		frames: make(chan decoder.Frame, 16),
		errs:   make(chan error, 1),
	}
}

func (s *fakeStream) push(data string) {
	s.frames <- decoder.Frame{Data: []byte(data)}
}

func (s *fakeStream) Next(ctx context.Context) (decoder.Frame, error) {
	// queued frames are delivered before a queued failure
	select {
	case f := <-s.frames:
		return f, nil
	default:
	}

	select {
	case <-ctx.Done():
		return decoder.Frame{}, ctx.Err()
	case err := <-s.errs:
		return decoder.Frame{}, err
	case f := <-s.frames:
		return f, nil
	}
}

func (s *fakeStream) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeCamera struct {
	devices []Device
	listErr error
	openErr error
	stream  *fakeStream

	mu          sync.Mutex
	opened      int
	constraints Constraints
}

func (c *fakeCamera) ListVideoInputDevices(context.Context) ([]Device, error) {
	return c.devices, c.listErr
}

func (c *fakeCamera) Open(_ context.Context, cons Constraints) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened++
	c.constraints = cons
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

func (c *fakeCamera) openCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

var rearCamera = Device{ID: "rear", Label: "Back Camera", Facing: FacingEnvironment}

// recorder captures callbacks and state transitions.
type recorder struct {
	mu      sync.Mutex
	results []string
	errs    []error
	states  []State
	fired   chan struct{}
	reached map[State]chan struct{}
}

func newRecorder() *recorder {
	r := &recorder{
		fired:   make(chan struct{}, 4),
		reached: map[State]chan struct{}{},
	}
	for _, st := range []State{StateRequesting, StateDecoding, StateSucceeded, StateFailed, StateReleased} {
		r.reached[st] = make(chan struct{})
	}
	return r
}

func (r *recorder) onResult(v string) {
	r.mu.Lock()
	r.results = append(r.results, v)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recorder) observe(_ string, st State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
	if ch, ok := r.reached[st]; ok {
		select {
		case <-ch:
		default:
			close(ch)
		}
	}
}

func (r *recorder) waitState(t *testing.T, st State) {
	t.Helper()
	select {
	case <-r.reached[st]:
	case <-time.After(2 * time.Second):
		t.Fatalf("state %s not reached", st)
	}
}

func (r *recorder) waitCallback(t *testing.T) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("no callback fired")
	}
}

func (r *recorder) snapshot() ([]string, []error, []State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...), append([]error(nil), r.errs...), append([]State(nil), r.states...)
}

func newTestSession(cam Camera, rec *recorder) *Session {
	return NewSession(cam, fakeDecoder{}, zap.NewNop(), WithStateObserver(rec.observe))
}

func TestSessionSucceedsAfterNoise(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	stream.push("noise")
	stream.push("garbage")
	stream.push("code:3017620422003")
	stream.push("code:ignored")

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitCallback(t)
	<-s.Done()

	results, errs, states := rec.snapshot()
	assert.Equal(t, []string{"3017620422003"}, results)
	assert.Empty(t, errs)
	assert.Equal(t, []State{StateRequesting, StateDecoding, StateSucceeded, StateReleased}, states)
	assert.Equal(t, int32(1), stream.closed.Load())
	assert.Equal(t, StateReleased, s.State())
}

func TestSessionNoCameraDevice(t *testing.T) {
	cam := &fakeCamera{}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitCallback(t)

	results, errs, states := rec.snapshot()
	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.Equal(t, KindNoCameraDevice, KindOf(errs[0]))
	assert.Equal(t, "No camera devices found", errs[0].Error())
	assert.Equal(t, 0, cam.openCount())
	assert.Equal(t, []State{StateRequesting, StateFailed, StateReleased}, states)
}

func TestSessionEnumerationFailure(t *testing.T) {
	cam := &fakeCamera{listErr: errors.New("permission denied")}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitCallback(t)

	_, errs, _ := rec.snapshot()
	require.Len(t, errs, 1)
	assert.Equal(t, KindStreamFailure, KindOf(errs[0]))
	assert.Equal(t, 0, cam.openCount())
}

func TestSessionOpenFailure(t *testing.T) {
	cam := &fakeCamera{devices: []Device{rearCamera}, openErr: errors.New("NotAllowedError")}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitCallback(t)

	_, errs, _ := rec.snapshot()
	require.Len(t, errs, 1)
	assert.Equal(t, KindStreamFailure, KindOf(errs[0]))
	assert.ErrorContains(t, errs[0], "NotAllowedError")
}

func TestSessionStreamFailureMidSession(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitState(t, StateDecoding)
	stream.push("noise")
	stream.errs <- errors.New("device disconnected")
	rec.waitCallback(t)
	<-s.Done()

	results, errs, _ := rec.snapshot()
	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.Equal(t, KindStreamFailure, KindOf(errs[0]))
	assert.Equal(t, int32(1), stream.closed.Load())
}

func TestSessionAbandonReleasesWithoutCallbacks(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitState(t, StateDecoding)

	require.NoError(t, s.Close())

	assert.Equal(t, int32(1), stream.closed.Load())
	assert.Equal(t, StateReleased, s.State())

	select {
	case <-rec.fired:
		t.Fatal("callback fired after abandonment")
	case <-time.After(50 * time.Millisecond):
	}
	results, errs, _ := rec.snapshot()
	assert.Empty(t, results)
	assert.Empty(t, errs)
}

func TestSessionAbandonViaContext(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, rec.onResult, rec.onError))
	rec.waitState(t, StateDecoding)
	cancel()
	<-s.Done()

	assert.Equal(t, int32(1), stream.closed.Load())
	results, errs, _ := rec.snapshot()
	assert.Empty(t, results)
	assert.Empty(t, errs)
}

func TestSessionRejectsConcurrentStart(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	firstID := s.ID()
	assert.ErrorIs(t, s.Start(context.Background(), rec.onResult, rec.onError), ErrSessionActive)

	stream.push("code:1")
	rec.waitCallback(t)
	<-s.Done()

	// a released session can scan again
	stream.push("code:2")
	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitCallback(t)
	assert.NotEqual(t, firstID, s.ID())

	results, _, _ := rec.snapshot()
	assert.Equal(t, []string{"1", "2"}, results)
}

func TestSessionPrefersEnvironmentCamera(t *testing.T) {
	stream := newFakeStream()
	front := Device{ID: "front", Label: "Front Camera", Facing: FacingUser}
	cam := &fakeCamera{devices: []Device{front, rearCamera}, stream: stream}
	rec := newRecorder()
	s := newTestSession(cam, rec)

	stream.push("code:42")
	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitCallback(t)

	assert.Equal(t, "rear", cam.constraints.DeviceID)
	assert.Equal(t, FacingEnvironment, cam.constraints.Facing)
}

func TestSessionFallsBackToFirstDevice(t *testing.T) {
	assert.Equal(t, "a", pickDevice([]Device{{ID: "a"}, {ID: "b", Facing: FacingUser}}).ID)
}

func TestSessionCloseBeforeStart(t *testing.T) {
	s := NewSession(&fakeCamera{}, fakeDecoder{}, nil)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, "", s.ID())
	<-s.Done()
}

func TestCallbackMayRestartSession(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	s := NewSession(cam, fakeDecoder{}, zap.NewNop())

	restarted := make(chan error, 1)
	stream.push("code:1")
	require.NoError(t, s.Start(context.Background(), func(string) {
		restarted <- s.Start(context.Background(), nil, nil)
	}, nil))

	select {
	case err := <-restarted:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not run")
	}
	require.NoError(t, s.Close())
}

func TestScanHelper(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	stream.push("noise")
	stream.push("code:5449000000996")

	got, err := Scan(context.Background(), cam, fakeDecoder{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "5449000000996", got)
	assert.Equal(t, int32(1), stream.closed.Load())
}

func TestScanHelperCancelled(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := Scan(ctx, cam, fakeDecoder{}, zap.NewNop())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), stream.closed.Load())
}

func TestSessionLogsUnreadableFramesAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	s := NewSession(cam, fakeDecoder{}, zap.New(core))

	stream.push("blurry")
	stream.push("noise")
	stream.push("garbage")
	stream.push("code:1")

	rec := newRecorder()
	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitCallback(t)
	<-s.Done()

	assert.Equal(t, 2, logs.FilterMessage("no readable barcode in frame").FilterLevelExact(zapcore.DebugLevel).Len())
	warns := logs.FilterMessage("barcode scanning error").All()
	require.Len(t, warns, 1)
	assert.Equal(t, zapcore.WarnLevel, warns[0].Level)
}

// memJournal is an in-memory Journal
type memJournal struct {
	mu   sync.Mutex
	rows map[string]models.ScanRecord
}

func newMemJournal() *memJournal {
	return &memJournal{rows: map[string]models.ScanRecord{}}
}

func (j *memJournal) SaveScan(_ context.Context, scan *models.ScanRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows[scan.ID] = *scan
	return nil
}

func (j *memJournal) UpdateScanStatus(_ context.Context, id, barcode string, status models.ScanStatus, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.rows[id]
	if !ok {
		return errors.New("unknown scan")
	}
	if barcode != "" {
		rec.Barcode = barcode
	}
	rec.Status = status
	rec.Error = errMsg
	j.rows[id] = rec
	return nil
}

func (j *memJournal) get(id string) (models.ScanRecord, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.rows[id]
	return rec, ok
}

func TestSessionJournalSuccess(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	j := newMemJournal()
	rec := newRecorder()

	pending := make(chan models.ScanRecord, 1)
	s := NewSession(cam, fakeDecoder{}, zap.NewNop(), WithJournal(j), WithStateObserver(func(id string, st State) {
		if st == StateDecoding {
			r, _ := j.get(id)
			pending <- r
		}
		rec.observe(id, st)
	}))

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	first := <-pending
	assert.Equal(t, models.ScanPending, first.Status)
	assert.Equal(t, JournalSource, first.Source)

	stream.push("code:4006381333931")
	rec.waitCallback(t)
	<-s.Done()

	row, ok := j.get(s.ID())
	require.True(t, ok)
	assert.Equal(t, models.ScanSucceeded, row.Status)
	assert.Equal(t, "4006381333931", row.Barcode)
	assert.Empty(t, row.Error)
}

func TestSessionJournalFailureCarriesKind(t *testing.T) {
	j := newMemJournal()
	rec := newRecorder()
	s := NewSession(&fakeCamera{}, fakeDecoder{}, zap.NewNop(), WithJournal(j))

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitCallback(t)
	<-s.Done()

	row, ok := j.get(s.ID())
	require.True(t, ok)
	assert.Equal(t, models.ScanFailed, row.Status)
	assert.Equal(t, "no_camera_device: No camera devices found", row.Error)
}

func TestSessionJournalAbandoned(t *testing.T) {
	stream := newFakeStream()
	cam := &fakeCamera{devices: []Device{rearCamera}, stream: stream}
	j := newMemJournal()
	rec := newRecorder()
	s := NewSession(cam, fakeDecoder{}, zap.NewNop(), WithJournal(j), WithStateObserver(rec.observe))

	require.NoError(t, s.Start(context.Background(), rec.onResult, rec.onError))
	rec.waitState(t, StateDecoding)
	require.NoError(t, s.Close())

	row, ok := j.get(s.ID())
	require.True(t, ok)
	assert.Equal(t, models.ScanAbandoned, row.Status)
}
