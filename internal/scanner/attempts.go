package scanner

import (
	"context"
	"iter"

	"github.com/franckalain/eatsmarty/internal/decoder"
)

// Attempt is the outcome of decoding one frame
type Attempt struct {
	Seq   uint64
	Value string
	Err   error
	// Fatal marks a stream-level failure; the sequence ends after it.
	Fatal bool
}

// Succeeded reports whether the attempt produced a barcode.
func (a Attempt) Succeeded() bool {
	return a.Err == nil && a.Value != ""
}

// Attempts returns a lazy, unbounded sequence of decode attempts over stream.
// The sequence ends after a fatal stream error, when the consumer stops
// ranging, or when ctx is cancelled. It never closes the stream.
func Attempts(ctx context.Context, stream Stream, dec decoder.Decoder) iter.Seq[Attempt] {
	return func(yield func(Attempt) bool) {
		var seq uint64
		for {
			if ctx.Err() != nil {
				return
			}

			frame, err := stream.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				yield(Attempt{Seq: seq, Err: err, Fatal: true})
				return
			}

			seq++
			if frame.Seq == 0 {
				frame.Seq = seq
			}

			value, err := dec.Decode(ctx, frame)
			if ctx.Err() != nil {
				return
			}
			if err == nil && value == "" {
				err = decoder.ErrNoBarcode
			}
			if !yield(Attempt{Seq: frame.Seq, Value: value, Err: err}) {
				return
			}
		}
	}
}
