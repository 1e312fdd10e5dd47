package graphics

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ExecOptimizer shells out to an optipng-style tool. The tool works on
// files, so the bytes take a round trip through a temp file.
type ExecOptimizer struct {
	ToolPath string
}

func (o *ExecOptimizer) OptimizePNG(ctx context.Context, data []byte) ([]byte, error) {
	f, err := os.CreateTemp("", "icon-*.png")
	if err != nil {
		return nil, fmt.Errorf("optimize png: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("optimize png: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("optimize png: %w", err)
	}

	cmd := exec.CommandContext(ctx, o.ToolPath, "-quiet", "-o2", path)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("optimize png: %w", err)
	}

	optimized, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("optimize png: %w", err)
	}
	return optimized, nil
}
