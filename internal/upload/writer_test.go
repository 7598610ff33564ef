package upload

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLimitedPersistsAndReturnsBytes(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "dir", "photo.png")
	content := bytes.Repeat([]byte{0xAB}, 2<<20)

	got, err := SaveLimited(dst, bytes.NewReader(content), 4<<20, "photo.png")
	if err != nil {
		t.Fatalf("save returned error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("expected %d returned bytes, got %d", len(content), len(got))
	}

	onDisk, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(onDisk, content) {
		t.Fatal("expected stored file to match the stream")
	}
}

func TestSaveLimitedAbortsOnOverflow(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "big.png")
	content := bytes.Repeat([]byte{0x01}, (4<<20)+1)

	_, err := SaveLimited(dst, bytes.NewReader(content), 4<<20, "big.png")
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if !strings.Contains(err.Error(), "big.png") {
		t.Fatalf("expected error to name the upload, got %q", err.Error())
	}

	if _, statErr := os.Stat(dst); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected partial file to be removed, stat returned %v", statErr)
	}
}

func TestSaveLimitedAcceptsExactLimit(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "exact.png")
	content := bytes.Repeat([]byte{0x7F}, 1<<20)

	if _, err := SaveLimited(dst, bytes.NewReader(content), 1<<20, "exact.png"); err != nil {
		t.Fatalf("expected file at exactly the limit to be accepted, got %v", err)
	}
}
