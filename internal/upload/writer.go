package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrPayloadTooLarge marks an upload whose stream exceeded the per-file
// byte ceiling. Wrapped errors name the offending upload.
var ErrPayloadTooLarge = errors.New("payload too large")

const chunkSize = 1 << 20

// SaveLimited streams r to dst in 1 MiB chunks while enforcing the byte
// ceiling. The read is abandoned as soon as the cumulative size passes the
// limit; nothing beyond the offending chunk is consumed and the partial
// file is removed. On success the full content is returned in memory so
// callers can hand raw bytes to a plugin without re-reading disk.
// Parent directories of dst are created as needed.
func SaveLimited(dst string, r io.Reader, limit int64, name string) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create upload file %s: %w", dst, err)
	}

	var (
		buf   bytes.Buffer
		total int64
		chunk = make([]byte, chunkSize)
	)
	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > limit {
				out.Close()
				os.Remove(dst)
				return nil, fmt.Errorf("%w: file %q exceeds %d MB limit", ErrPayloadTooLarge, name, limit>>20)
			}
			if _, err := out.Write(chunk[:n]); err != nil {
				out.Close()
				os.Remove(dst)
				return nil, fmt.Errorf("write upload file %s: %w", dst, err)
			}
			buf.Write(chunk[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(dst)
			return nil, fmt.Errorf("read upload %q: %w", name, readErr)
		}
	}

	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close upload file %s: %w", dst, err)
	}
	return buf.Bytes(), nil
}
