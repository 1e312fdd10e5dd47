package graphics

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Rasterizer renders an HVIF vector icon source to a PNG of an exact pixel
// size. Vector sources can render at any size, which is why they are
// preferred over stored bitmaps.
type Rasterizer interface {
	RasterizeVector(ctx context.Context, hvif []byte, size int) ([]byte, error)
}

// Optimizer re-compresses PNG bytes. Rendering runs it over every
// rasterized icon before the result enters the cache.
type Optimizer interface {
	OptimizePNG(ctx context.Context, data []byte) ([]byte, error)
}

// ExecRasterizer shells out to an hvif2png-style tool reading HVIF on stdin
// and writing PNG to stdout, with the target size passed as -s.
type ExecRasterizer struct {
	ToolPath string
}

func (r *ExecRasterizer) RasterizeVector(ctx context.Context, hvif []byte, size int) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.ToolPath, "-s", strconv.Itoa(size))
	cmd.Stdin = bytes.NewReader(hvif)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rasterize hvif at %dpx: %w (%s)", size, err, errOut.String())
	}
	return out.Bytes(), nil
}

// RasterizerFunc adapts a function to the Rasterizer interface.
type RasterizerFunc func(ctx context.Context, hvif []byte, size int) ([]byte, error)

func (f RasterizerFunc) RasterizeVector(ctx context.Context, hvif []byte, size int) ([]byte, error) {
	return f(ctx, hvif, size)
}

// NopOptimizer returns PNG bytes unchanged; used when no optimizer tool is
// configured.
type NopOptimizer struct{}

func (NopOptimizer) OptimizePNG(_ context.Context, data []byte) ([]byte, error) {
	return data, nil
}
