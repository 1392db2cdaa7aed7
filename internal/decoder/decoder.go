// Package decoder turns camera frames into barcode strings.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/franckalain/eatsmarty/internal/config"
)

// ErrNoBarcode means no barcode was visible in the frame. It is the expected
// steady state while the camera is pointed at nothing and is not reported to users.
var ErrNoBarcode = errors.New("no barcode in frame")

// ErrUnreadable means something barcode-like was seen but could not be decoded
// (bad checksum, partial symbol). Callers treat it as per-frame noise.
var ErrUnreadable = errors.New("barcode unreadable")

// Frame is a single still image captured from a video stream
type Frame struct {
	Data   []byte
	Format string // "jpeg", "png"; empty means sniff from Data
	Seq    uint64
}

// ImageFormat returns the frame's format, sniffing the bytes when unset.
func (f Frame) ImageFormat() string {
	if f.Format != "" {
		return strings.TrimPrefix(strings.ToLower(f.Format), "image/")
	}
	ct := http.DetectContentType(f.Data)
	if strings.HasPrefix(ct, "image/") {
		return strings.TrimPrefix(ct, "image/")
	}
	return ""
}

// Decoder reads a barcode from a frame
type Decoder interface {
	// Decode returns the barcode text, or an error matching ErrNoBarcode when
	// the frame holds no barcode.
	Decode(ctx context.Context, frame Frame) (string, error)
}

// DecoderFactory creates a new decoder instance based on configuration
type DecoderFactory interface {
	CreateDecoder(ctx context.Context) (Decoder, error)
}

// NewDecoder creates a new decoder instance based on the decoder type
func NewDecoder(ctx context.Context, cfg config.DecoderConfig) (Decoder, error) {
	var factory DecoderFactory

	switch cfg.Type {
	case "zxing", "":
		factory = NewZXingDecoderFactory()
	case "vertex":
		vc := VertexConfig{
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			CredentialsFile: cfg.CredentialsFile,
			Model:           cfg.Model,
		}
		vc.Load()
		if err := vc.Validate(); err != nil {
			return nil, fmt.Errorf("failed to load vertex config: %w", err)
		}
		factory = NewVertexDecoderFactory(vc)
	default:
		return nil, fmt.Errorf("unsupported decoder type: %s", cfg.Type)
	}
	return factory.CreateDecoder(ctx)
}

// IsNoise reports whether err is per-frame decode noise rather than a real failure.
func IsNoise(err error) bool {
	return errors.Is(err, ErrNoBarcode) || errors.Is(err, ErrUnreadable)
}
