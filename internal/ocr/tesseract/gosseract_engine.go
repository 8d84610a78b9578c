//go:build gosseract

package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/extract"
)

type libraryEngine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

func newLibraryEngine(cfg Config) engine {
	return &libraryEngine{cfg: cfg, clientFactory: gosseract.NewClient}
}

func (e *libraryEngine) available() error {
	c := e.clientFactory()
	defer c.Close()
	if v := c.Version(); v == "" {
		return errLibraryUnavailable
	}
	return nil
}

func (e *libraryEngine) recognize(ctx context.Context, img extract.Image) (string, float32, error) {
	b, err := extract.ReadImage(constants.ProviderTesseract, img)
	if err != nil {
		return "", 0, err
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	c := e.clientFactory()
	defer c.Close()

	if e.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			return "", 0, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(e.cfg.Lang); err != nil {
		return "", 0, fmt.Errorf("set language: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return "", 0, fmt.Errorf("set psm: %w", err)
		}
	}
	// keep leading indentation, it matters for code
	if err := c.SetVariable("preserve_interword_spaces", "1"); err != nil {
		return "", 0, fmt.Errorf("set variable: %w", err)
	}
	if err := c.SetImageFromBytes(b); err != nil {
		return "", 0, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", 0, fmt.Errorf("recognize text: %w", err)
	}
	return text, meanWordConfidence(c), nil
}

func meanWordConfidence(c *gosseract.Client) float32 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return float32(sum / float64(len(boxes)) / 100.0)
}
