package upload

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/dunamismax/blendflow/internal/id"
)

const (
	maxStemLen   = 40
	defaultExt   = ".png"
	fallbackStem = "img"
)

var acceptedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// AcceptedExt reports whether ext (including the leading dot) is a
// recognized image extension. The check is case-insensitive.
func AcceptedExt(ext string) bool {
	return acceptedExts[strings.ToLower(ext)]
}

// Sanitize derives a safe storage name from an untrusted client filename.
// Directory components are stripped, the extension is forced into the
// accepted set, the stem is reduced to alphanumerics, hyphens and
// underscores and capped at 40 characters, and an 8-hex-digit random token
// keeps concurrent uploads in the same workspace from colliding.
// It never fails and always returns a bare relative filename.
func Sanitize(name string) string {
	// Clients may send either separator regardless of their platform.
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}

	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if !acceptedExts[ext] {
		ext = defaultExt
	}

	var b strings.Builder
	b.Grow(len(stem))
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	safe := b.String()
	if len(safe) > maxStemLen {
		safe = safe[:maxStemLen]
	}
	if safe == "" {
		safe = fallbackStem
	}

	return safe + "_" + id.Token(4) + ext
}
