package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/eatsmarty/internal/decoder"
)

func TestAttemptsStopsWhenConsumerBreaks(t *testing.T) {
	stream := newFakeStream()
	stream.push("noise")
	stream.push("code:1")
	stream.push("code:2")

	var got []Attempt
	for a := range Attempts(context.Background(), stream, fakeDecoder{}) {
		got = append(got, a)
		if a.Succeeded() {
			break
		}
	}

	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0].Err, decoder.ErrNoBarcode)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, "1", got[1].Value)
	assert.Len(t, stream.frames, 1)
	assert.Equal(t, int32(0), stream.closed.Load())
}

func TestAttemptsEndsOnFatalError(t *testing.T) {
	stream := newFakeStream()
	stream.push("garbage")
	stream.errs <- errors.New("gone")

	var got []Attempt
	for a := range Attempts(context.Background(), stream, fakeDecoder{}) {
		got = append(got, a)
	}

	require.Len(t, got, 2)
	assert.False(t, got[0].Fatal)
	assert.Error(t, got[0].Err)
	assert.True(t, got[1].Fatal)
	assert.EqualError(t, got[1].Err, "gone")
}

func TestAttemptsEndsOnCancel(t *testing.T) {
	stream := newFakeStream()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := 0
	for range Attempts(ctx, stream, fakeDecoder{}) {
		n++
	}
	assert.Zero(t, n)
}

type emptyDecoder struct{}

func (emptyDecoder) Decode(context.Context, decoder.Frame) (string, error) { return "", nil }

func TestAttemptsTreatsEmptyValueAsNoBarcode(t *testing.T) {
	stream := newFakeStream()
	stream.push("x")
	for a := range Attempts(context.Background(), stream, emptyDecoder{}) {
		assert.False(t, a.Succeeded())
		assert.ErrorIs(t, a.Err, decoder.ErrNoBarcode)
		break
	}
}
