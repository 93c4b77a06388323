package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	_ "image/jpeg"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/draw"

	"labsight/internal/config"
	"labsight/internal/ocr"
	"labsight/internal/port"
)

// maxDimension caps scan resolution before OCR. Larger images are downscaled;
// phone scans routinely exceed this without gaining accuracy.
const maxDimension = 3000

func init() {
	ocr.RegisterProvider("tesseract", func(cfg *config.ExtractionConfig) (port.TextExtractor, error) {
		return NewExtractor(cfg), nil
	})
}

// Extractor implements port.TextExtractor using a local Tesseract install via
// the gosseract client. Image inputs only.
type Extractor struct {
	langs         []string
	clientFactory func() *gosseract.Client
}

// NewExtractor creates a Tesseract-backed extractor from the extraction config.
func NewExtractor(cfg *config.ExtractionConfig) *Extractor {
	langs := cfg.TesseractLangs
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Extractor{
		langs:         langs,
		clientFactory: gosseract.NewClient,
	}
}

func (e *Extractor) Name() string {
	return "tesseract"
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	if input.ContentType == "application/pdf" {
		return nil, fmt.Errorf("tesseract supports only image input, got %s", input.ContentType)
	}
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("no file data provided")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data := normalizeImage(input.Data)

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}
	if err := c.SetLanguage(e.langs...); err != nil {
		return nil, fmt.Errorf("setting languages: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	return &port.ExtractOutput{
		Text:      strings.TrimSpace(text),
		PageCount: 1,
	}, nil
}

// normalizeImage downscales oversized images and re-encodes them as PNG.
// Undecodable input is passed through untouched so Tesseract can report the
// real failure.
func normalizeImage(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDimension && h <= maxDimension {
		return data
	}

	scale := float64(maxDimension) / float64(w)
	if h > w {
		scale = float64(maxDimension) / float64(h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return data
	}
	return buf.Bytes()
}
