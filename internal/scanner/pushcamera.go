package scanner

import (
	"context"
	"errors"
	"sync"

	"github.com/franckalain/eatsmarty/internal/decoder"
)

// ErrCameraBusy is returned by PushCamera.Open while a stream is already open.
var ErrCameraBusy = errors.New("camera already in use")

// PushCamera is a camera whose frames are delivered by a remote client, such
// as a browser streaming snapshots over a websocket. The client announces its
// devices up front, pushes frames with Push and reports device failures with Fail.
//
// A PushCamera serves a single stream. Frames and failures pushed before the
// stream opens are queued for it; once the stream is closed the camera is
// released and rejects further frames.
type PushCamera struct {
	mu       sync.Mutex
	devices  []Device
	frames   chan decoder.Frame
	failed   chan error
	stream   *pushStream
	released bool
}

// NewPushCamera creates a camera exposing devices. buffer bounds how many
// undecoded frames are queued; frames beyond it are dropped.
func NewPushCamera(devices []Device, buffer int) *PushCamera {
	if buffer <= 0 {
		buffer = 1
	}
	d := make([]Device, len(devices))
	copy(d, devices)
	return &PushCamera{
		devices: d,
		frames:  make(chan decoder.Frame, buffer),
		failed:  make(chan error, 1),
	}
}

// ListVideoInputDevices implements Camera
func (c *PushCamera) ListVideoInputDevices(context.Context) ([]Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Device, len(c.devices))
	copy(out, c.devices)
	return out, nil
}

// Open implements Camera
func (c *PushCamera) Open(context.Context, Constraints) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil, ErrStreamClosed
	}
	if c.stream != nil {
		return nil, ErrCameraBusy
	}
	c.stream = &pushStream{camera: c, closed: make(chan struct{})}
	return c.stream, nil
}

// Push queues a frame for the stream. It returns false once the camera is
// released or when the queue is full.
func (c *PushCamera) Push(frame decoder.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return false
	}
	select {
	case c.frames <- frame:
		return true
	default:
		return false
	}
}

// Fail reports a device-level failure to the stream.
func (c *PushCamera) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	select {
	case c.failed <- err:
	default:
	}
}

// Released reports whether the stream has been opened and closed.
func (c *PushCamera) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

type pushStream struct {
	camera    *PushCamera
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *pushStream) Next(ctx context.Context) (decoder.Frame, error) {
	select {
	case <-s.closed:
		return decoder.Frame{}, ErrStreamClosed
	default:
	}

	select {
	case <-ctx.Done():
		return decoder.Frame{}, ctx.Err()
	case <-s.closed:
		return decoder.Frame{}, ErrStreamClosed
	case err := <-s.camera.failed:
		return decoder.Frame{}, err
	case f := <-s.camera.frames:
		return f, nil
	}
}

func (s *pushStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.camera.mu.Lock()
		s.camera.stream = nil
		s.camera.released = true
		s.camera.mu.Unlock()
	})
	return nil
}
