//go:build !gosseract

package tesseract

import (
	"context"

	"github.com/joseph-ayodele/codesnap/internal/extract"
)

type libraryEngine struct{}

func newLibraryEngine(Config) engine { return libraryEngine{} }

func (libraryEngine) available() error { return errLibraryUnavailable }

func (libraryEngine) recognize(context.Context, extract.Image) (string, float32, error) {
	return "", 0, errLibraryUnavailable
}
