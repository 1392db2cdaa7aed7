// Package scanner owns the lifecycle of camera based barcode acquisition.
//
// A Session enumerates video input devices, opens one stream (preferring a
// rear facing camera), decodes frames until one barcode is read or the stream
// fails, and always closes the stream when it ends, whether it ended naturally
// or because the caller abandoned it.
package scanner

import (
	"context"
	"strings"

	"github.com/franckalain/eatsmarty/internal/decoder"
)

// Facing is the direction a camera points relative to the screen
type Facing int

const (
	FacingUnknown Facing = iota
	FacingUser
	FacingEnvironment
)

func (f Facing) String() string {
	switch f {
	case FacingUser:
		return "user"
	case FacingEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// ParseFacing maps the browser's facingMode values onto Facing.
func ParseFacing(s string) Facing {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "front":
		return FacingUser
	case "environment", "back", "rear":
		return FacingEnvironment
	default:
		return FacingUnknown
	}
}

// Device is an available video input
type Device struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Facing Facing `json:"-"`
}

// Constraints select which device to open
type Constraints struct {
	DeviceID string
	Facing   Facing
}

// Camera gives access to video input devices
type Camera interface {
	ListVideoInputDevices(ctx context.Context) ([]Device, error)
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open, continuous frame source. Any error returned by Next is a
// stream-level failure (permission revoked, device removed, source exhausted).
type Stream interface {
	Next(ctx context.Context) (decoder.Frame, error)
	Close() error
}

// pickDevice prefers an environment facing camera and falls back to the first one.
func pickDevice(devices []Device) Device {
	for _, d := range devices {
		if d.Facing == FacingEnvironment {
			return d
		}
	}
	return devices[0]
}
