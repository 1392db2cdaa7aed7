package decoder

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

const vertexPrompt = `This image comes from a phone camera pointed at a food product.
If a retail barcode (EAN-13, EAN-8, UPC-A, UPC-E or Code-128) is visible and fully readable,
reply with the barcode digits only, no spaces and no other text.
If no barcode is visible, reply with exactly NONE.
If a barcode is visible but cannot be read completely, reply with exactly UNREADABLE.`

// VertexDecoder asks a Gemini model on Vertex AI to read the barcode
type VertexDecoder struct {
	config VertexConfig
	client *genai.Client
	model  *genai.GenerativeModel
}

// VertexDecoderFactory implements DecoderFactory for the Vertex AI decoder
type VertexDecoderFactory struct {
	config VertexConfig
}

// NewVertexDecoderFactory creates a new Vertex AI decoder factory
func NewVertexDecoderFactory(config VertexConfig) *VertexDecoderFactory {
	return &VertexDecoderFactory{config: config}
}

// CreateDecoder connects to Vertex AI and returns a ready decoder
func (f *VertexDecoderFactory) CreateDecoder(ctx context.Context) (Decoder, error) {
	d := &VertexDecoder{config: f.config}
	if err := d.Load(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Load initializes the Vertex AI client
func (d *VertexDecoder) Load(ctx context.Context) error {
	opts := []option.ClientOption{}
	if d.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(d.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, d.config.ProjectID, d.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	d.client = client
	d.model = client.GenerativeModel(d.config.Model)
	d.model.SetTemperature(0)
	return nil
}

// Close releases the Vertex AI client
func (d *VertexDecoder) Close() error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Decode implements Decoder
func (d *VertexDecoder) Decode(ctx context.Context, frame Frame) (string, error) {
	if d.model == nil {
		return "", fmt.Errorf("model not loaded")
	}

	format := frame.ImageFormat()
	if format == "" {
		format = "jpeg"
	}

	resp, err := d.model.GenerateContent(ctx, genai.Text(vertexPrompt), genai.ImageData(format, frame.Data))
	if err != nil {
		return "", fmt.Errorf("failed to call model: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			reply.WriteString(string(txt))
		}
	}
	return parseBarcodeReply(reply.String())
}

// parseBarcodeReply interprets the model's answer.
func parseBarcodeReply(reply string) (string, error) {
	s := strings.TrimSpace(reply)
	s = strings.Trim(s, "`\"'")
	s = strings.TrimSpace(s)

	switch strings.ToUpper(s) {
	case "", "NONE":
		return "", ErrNoBarcode
	case "UNREADABLE":
		return "", ErrUnreadable
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, s)
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return "", fmt.Errorf("%w: unexpected model reply %q", ErrUnreadable, reply)
		}
	}
	if len(digits) < 6 {
		return "", fmt.Errorf("%w: reply too short %q", ErrUnreadable, reply)
	}
	return digits, nil
}
