// Command batch averages every image in the configured input folder and
// writes a single blended output file. It takes no arguments and shares
// the blend engine with the API.
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dunamismax/blendflow/internal/blend"
	"github.com/dunamismax/blendflow/internal/config"
	"github.com/dunamismax/blendflow/internal/upload"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[batch] ", log.LstdFlags|log.Lmsgprefix)

	if err := blend.Startup(); err != nil {
		logger.Fatalf("blend runtime startup failed: %v", err)
	}
	defer blend.Shutdown()

	sources, err := readImages(cfg.Batch.InputDir)
	if err != nil {
		logger.Fatalf("read input folder %s: %v", cfg.Batch.InputDir, err)
	}
	if len(sources) == 0 {
		logger.Printf("no images found in %s", cfg.Batch.InputDir)
		return
	}

	engine, err := blend.NewEngine(blend.Strategy(cfg.Blend.Strategy))
	if err != nil {
		logger.Fatalf("build blend engine: %v", err)
	}

	result, err := engine.Blend(context.Background(), sources)
	if err != nil {
		logger.Fatalf("blend %d images: %v", len(sources), err)
	}

	encoded, err := blend.EncodePNG(result)
	if err != nil {
		logger.Fatalf("encode output: %v", err)
	}
	if err := os.WriteFile(cfg.Batch.OutputFile, encoded, 0o644); err != nil {
		logger.Fatalf("write output file: %v", err)
	}

	logger.Printf("blended image saved as %s", cfg.Batch.OutputFile)
}

// readImages loads every accepted image file in dir, in lexical order so
// repeated runs blend in the same sequence.
func readImages(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !upload.AcceptedExt(strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	sources := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		sources = append(sources, data)
	}
	return sources, nil
}
