package extract

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/codesnap/constants"
)

// Image is an opaque, read-only handle to the bytes of one picture.
// It is owned by the caller; providers read it and never retain it.
type Image interface {
	Name() string
	Bytes() ([]byte, error)
	Size() (int64, error)
}

// Pather is implemented by images that already live on disk, so local
// engines can skip writing a temporary copy.
type Pather interface {
	Path() string
}

// ErrImageTooLarge is returned when an image exceeds constants.MaxImageBytes.
var ErrImageTooLarge = errors.New("image too large")

// FileImage reads an image from disk on demand.
type FileImage struct {
	path   string
	source string
}

func NewFileImage(path string) FileImage { return FileImage{path: path} }

// WithSource marks f as a converted copy of the photo at source. Name and
// Size then describe the original; Bytes still reads the copy.
func (f FileImage) WithSource(source string) FileImage {
	f.source = source
	return f
}

func (f FileImage) Name() string {
	if f.source != "" {
		return filepath.Base(f.source)
	}
	return filepath.Base(f.path)
}
func (f FileImage) Path() string { return f.path }

func (f FileImage) Size() (int64, error) {
	if f.source != "" {
		if st, err := os.Stat(f.source); err == nil && !st.IsDir() {
			return st.Size(), nil
		}
	}
	st, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	if st.IsDir() {
		return 0, fmt.Errorf("%s is a directory", f.path)
	}
	return st.Size(), nil
}

func (f FileImage) Bytes() ([]byte, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	b, err := io.ReadAll(io.LimitReader(fh, constants.MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > constants.MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	return b, nil
}

// MemoryImage wraps bytes received over the network.
type MemoryImage struct {
	name string
	data []byte
}

func NewMemoryImage(name string, data []byte) MemoryImage {
	if name == "" {
		name = "upload"
	}
	return MemoryImage{name: name, data: data}
}

func (m MemoryImage) Name() string { return m.name }

func (m MemoryImage) Size() (int64, error) { return int64(len(m.data)), nil }

func (m MemoryImage) Bytes() ([]byte, error) {
	if len(m.data) > constants.MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	return m.data, nil
}

// ContentType sniffs the MIME type of b, falling back to the file extension of
// name when the content is not recognized as an image.
func ContentType(name string, b []byte) string {
	if ct := http.DetectContentType(b); len(ct) > 6 && ct[:6] == "image/" {
		return ct
	}
	return constants.MimeForExt(filepath.Ext(name))
}

// ReadImage loads the bytes of img, classifying failures as KindImage.
func ReadImage(provider string, img Image) ([]byte, error) {
	b, err := img.Bytes()
	if err != nil {
		return nil, NewProviderError(provider, KindImage, err)
	}
	if len(b) == 0 {
		return nil, NewProviderError(provider, KindImage, errors.New("empty image"))
	}
	return b, nil
}
