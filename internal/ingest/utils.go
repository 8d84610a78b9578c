package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/codesnap/constants"
)

// AllowedExt checks if a file extension is in the allowed set (defaults to the image types).
func AllowedExt(ext string, exts map[string]struct{}) bool {
	if exts == nil {
		exts = constants.ImageExtensions
	}
	_, ok := exts[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// HashFile returns the hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParseExts turns "png, .JPG" style lists into a lookup set; empty input yields nil.
func ParseExts(list []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, e := range list {
		for _, part := range strings.Split(e, ",") {
			if part = constants.NormalizeExt(strings.TrimSpace(part)); part != "" {
				out[part] = struct{}{}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
