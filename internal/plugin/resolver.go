package plugin

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dunamismax/blendflow/internal/blend"
)

// Batch carries everything an external blending component might want:
// the uploads' raw byte buffers, their stored file paths, and the request
// workspace for staging process output.
type Batch struct {
	Buffers [][]byte
	Paths   []string
	WorkDir string
}

// ByteBlender is the in-memory entry point of an external component.
type ByteBlender interface {
	BlendBytes(ctx context.Context, buffers [][]byte) (blend.Result, error)
}

// PathBlender is the file-path entry point.
type PathBlender interface {
	BlendPaths(ctx context.Context, paths []string) (blend.Result, error)
}

// Strategy is one way of invoking the external component. Strategies are
// best-effort: a failure is logged by the resolver and the next strategy
// gets its turn.
type Strategy interface {
	Name() string
	Blend(ctx context.Context, batch Batch) (blend.Result, error)
}

type Resolver struct {
	logger     *log.Logger
	strategies []Strategy
}

// NewResolver builds the fixed-priority strategy chain for an external
// blending component: in-memory bytes first, stored file paths second,
// process invocation last. component may be nil and command empty, in
// which case Resolve always reports no result. The component reference is
// injected once at process start; there is no global registry.
func NewResolver(logger *log.Logger, component any, command string) *Resolver {
	r := &Resolver{logger: logger}
	if b, ok := component.(ByteBlender); ok {
		r.strategies = append(r.strategies, byteStrategy{impl: b})
	}
	if p, ok := component.(PathBlender); ok {
		r.strategies = append(r.strategies, pathStrategy{impl: p})
	}
	if command != "" {
		r.strategies = append(r.strategies, processStrategy{command: command})
	}
	return r
}

// Resolve attempts each strategy in order and returns the first result
// that decodes to an image. It never fails: when every strategy is absent
// or errors out, ok is false and the caller falls back to the built-in
// engine.
func (r *Resolver) Resolve(ctx context.Context, batch Batch) (image.Image, bool) {
	for _, s := range r.strategies {
		result, err := s.Blend(ctx, batch)
		if err != nil {
			r.logger.Printf("plugin strategy %s failed: %v", s.Name(), err)
			continue
		}
		img, err := result.Decode()
		if err != nil {
			r.logger.Printf("plugin strategy %s returned unusable result: %v", s.Name(), err)
			continue
		}
		return img, true
	}
	return nil, false
}

type byteStrategy struct {
	impl ByteBlender
}

func (byteStrategy) Name() string { return "memory" }

func (s byteStrategy) Blend(ctx context.Context, batch Batch) (blend.Result, error) {
	return s.impl.BlendBytes(ctx, batch.Buffers)
}

type pathStrategy struct {
	impl PathBlender
}

func (pathStrategy) Name() string { return "paths" }

func (s pathStrategy) Blend(ctx context.Context, batch Batch) (blend.Result, error) {
	return s.impl.BlendPaths(ctx, batch.Paths)
}

// processStrategy invokes the component as a separate executable, passing
// the stored input paths followed by -o and an output path inside the
// request workspace. A zero exit and a readable output file count as
// success.
type processStrategy struct {
	command string
}

func (processStrategy) Name() string { return "process" }

func (s processStrategy) Blend(ctx context.Context, batch Batch) (blend.Result, error) {
	outPath := filepath.Join(batch.WorkDir, "out.png")
	args := append(append([]string{}, batch.Paths...), "-o", outPath)

	cmd := exec.CommandContext(ctx, s.command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return blend.Result{}, fmt.Errorf("run %s: %v: %s", s.command, err, bytes.TrimSpace(output))
	}
	if _, err := os.Stat(outPath); err != nil {
		return blend.Result{}, fmt.Errorf("output image missing after process run: %w", err)
	}
	return blend.Result{Path: outPath}, nil
}
