// Package batch runs attribute estimation over a folder of images and
// exports the results table.
package batch

import (
	"context"
	"fmt"
	"time"
)

// ProcessBatch discovers the images in cfg.InputDir and runs p over them.
// An empty folder is not an error; the table is simply empty.
func ProcessBatch(ctx context.Context, cfg *Config, p *Processor) (*Result, error) {
	files, err := DiscoverImages(cfg.InputDir, cfg.Recursive, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}

	start := time.Now()
	table, stats := p.Process(ctx, files)

	return &Result{
		Table:    table,
		Files:    files,
		Stats:    stats,
		Duration: time.Since(start),
	}, nil
}
