package batch

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Config holds the settings for one batch run.
type Config struct {
	InputDir        string
	OutputFile      string
	Format          string
	Recursive       bool
	ExcludePatterns []string
	Quiet           bool
}

// Result holds the outcome of a batch run.
type Result struct {
	Table    *Table
	Files    []string
	Stats    Stats
	Duration time.Duration
}

// FormatResults formats the table in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return FormatResults(r.Table, format)
}

// SaveResults writes the formatted results to outputFile, replacing any
// existing file, or to w when outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, _ = fmt.Fprint(w, output)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics unless quiet.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	r.Stats.Print(w)
}
