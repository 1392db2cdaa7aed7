package decoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

// ZXingDecoder decodes retail 1D barcodes locally
type ZXingDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// ZXingDecoderFactory implements DecoderFactory for the zxing decoder
type ZXingDecoderFactory struct{}

// NewZXingDecoderFactory creates a new zxing decoder factory
func NewZXingDecoderFactory() *ZXingDecoderFactory {
	return &ZXingDecoderFactory{}
}

// CreateDecoder creates a new zxing decoder instance
func (f *ZXingDecoderFactory) CreateDecoder(context.Context) (Decoder, error) {
	return NewZXingDecoder(), nil
}

// NewZXingDecoder returns a decoder for EAN-13, EAN-8, UPC-A, UPC-E and Code-128.
func NewZXingDecoder() *ZXingDecoder {
	return &ZXingDecoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// readers are not safe for concurrent use, so each Decode builds its own.
func newReaders() []gozxing.Reader {
	return []gozxing.Reader{
		oned.NewMultiFormatUPCEANReader(nil),
		oned.NewCode128Reader(),
	}
}

// Decode implements Decoder
func (d *ZXingDecoder) Decode(ctx context.Context, frame Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return "", fmt.Errorf("failed to decode frame %d: %w", frame.Seq, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to binarize frame %d: %w", frame.Seq, err)
	}

	unreadable := false
	for _, r := range newReaders() {
		result, err := r.Decode(bmp, d.hints)
		if err == nil {
			return result.GetText(), nil
		}
		switch err.(type) {
		case gozxing.NotFoundException:
		case gozxing.ChecksumException, gozxing.FormatException:
			unreadable = true
		default:
			return "", fmt.Errorf("zxing: %w", err)
		}
	}

	if unreadable {
		return "", ErrUnreadable
	}
	return "", ErrNoBarcode
}
