package constants

import "strings"

// ImageExtensions holds the file extensions accepted by the inbox watcher and the CLI.
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"bmp":  {},
	"gif":  {},
	"heic": {},
	"heif": {},
}

// IsHEICExt reports phone-camera HEIC/HEIF photos, which are converted to PNG before extraction.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

// MaxImageBytes caps what we read into memory for a single scan (20 MB).
const MaxImageBytes = 20 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether ext (with or without the dot) is an accepted image type.
func IsImageExt(ext string) bool {
	_, ok := ImageExtensions[NormalizeExt(ext)]
	return ok
}

// MimeForExt maps an image extension to the MIME type we send to providers.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
