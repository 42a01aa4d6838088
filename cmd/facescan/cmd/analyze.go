package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/facescan/internal/annotate"
	"github.com/MeKo-Tech/facescan/internal/batch"
	"github.com/MeKo-Tech/facescan/internal/config"
	"github.com/MeKo-Tech/facescan/internal/estimator"
	"github.com/MeKo-Tech/facescan/internal/localizer"
	"github.com/MeKo-Tech/facescan/internal/metrics"
	"github.com/MeKo-Tech/facescan/internal/models"
	"github.com/MeKo-Tech/facescan/internal/onnx"
	"github.com/spf13/cobra"
)

// analyzeCmd runs attribute estimation over a folder of images.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir]",
	Short: "Estimate age, gender and race for every image in a folder",
	Long: `Estimate apparent age, gender and race for every .png, .jpg and .jpeg file
in a folder and write one row per image.

Attributes that cannot be estimated are reported as NaN (age) or Unknown
(gender, race); the image is never dropped from the output.

With --annotate, a heatmap overlay and a bounding-box image are written per
input into the annotation directory, which must already exist.

Examples:
  facescan analyze
  facescan analyze faceimages -o results.csv
  facescan analyze photos --recursive --exclude '*_thumb.*' -f json -o results.json
  facescan analyze faceimages --annotate --annotate-dir overlays
  facescan analyze faceimages --backend rekognition`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyzeCommand,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.StringP("output", "o", config.DefaultOutputFile, "output file (empty writes to stdout)")
	f.StringP("format", "f", batch.FormatCSV, "output format (csv, json, yaml)")
	f.Bool("annotate", false, "write heatmap and bounding-box images")
	f.String("annotate-dir", "", "directory for annotated images (default <dir>-heatmap, must exist)")
	f.String("backend", estimator.BackendONNX, "attribute estimator backend (onnx, rekognition)")
	f.String("localizer", localizer.BackendPigo, "face localizer backend (pigo, opencv)")
	f.Bool("enforce-detection", true, "fail attributes when no face is detected")
	f.Bool("recursive", false, "descend into subdirectories")
	f.StringSlice("exclude", nil, "glob patterns of file names to skip")
	f.BoolP("quiet", "q", false, "suppress progress and statistics")
	f.String("metrics-file", "", "write Prometheus metrics in textfile format to this path")
}

// applyAnalyzeFlags overlays explicitly set flags and the positional
// directory on top of the loaded configuration.
func applyAnalyzeFlags(cfg *config.Config, cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		cfg.Analyze.InputDir = args[0]
	}
	flags := cmd.Flags()

	if flags.Changed("output") {
		cfg.Analyze.OutputFile, _ = flags.GetString("output")
	}
	if flags.Changed("format") {
		cfg.Analyze.Format, _ = flags.GetString("format")
	}
	if flags.Changed("recursive") {
		cfg.Analyze.Recursive, _ = flags.GetBool("recursive")
	}
	if flags.Changed("exclude") {
		cfg.Analyze.ExcludePatterns, _ = flags.GetStringSlice("exclude")
	}
	if flags.Changed("quiet") {
		cfg.Analyze.Quiet, _ = flags.GetBool("quiet")
	}

	if flags.Changed("annotate") {
		cfg.Annotate.Enabled, _ = flags.GetBool("annotate")
	}
	if flags.Changed("annotate-dir") {
		cfg.Annotate.Dir, _ = flags.GetString("annotate-dir")
	}

	if flags.Changed("backend") {
		cfg.Estimator.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("enforce-detection") {
		cfg.Estimator.EnforceDetection, _ = flags.GetBool("enforce-detection")
	}
	if flags.Changed("localizer") {
		cfg.Localizer.Backend, _ = flags.GetString("localizer")
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile, _ = flags.GetString("metrics-file")
	}
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyAnalyzeFlags(&cfg, cmd, args)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	modelsDir := models.GetModelsDir(cfg.ModelsDir)

	var annotateDir string
	if cfg.Annotate.Enabled {
		annotateDir = cfg.AnnotateDir()
		if err := annotate.ValidateDir(annotateDir); err != nil {
			return err
		}
	}

	loc := newLocalizer(cfg, modelsDir)
	if loc != nil {
		defer func() { _ = loc.Close() }()
	}

	est, err := estimator.New(ctx, cfg.Estimator, modelsDir, loc)
	if err != nil {
		return fmt.Errorf("failed to create estimator: %w", err)
	}
	if cfg.Estimator.Backend == estimator.BackendONNX {
		defer func() {
			if err := onnx.DestroyRuntime(); err != nil {
				slog.Warn("failed to destroy onnx runtime", "error", err)
			}
		}()
	}
	defer func() {
		if err := est.Close(); err != nil {
			slog.Warn("failed to close estimator", "error", err)
		}
	}()

	// progress and statistics move to stderr when results go to stdout
	console := cmd.OutOrStdout()
	if cfg.Analyze.OutputFile == "" {
		console = cmd.ErrOrStderr()
	}

	processor := &batch.Processor{
		Estimator: est,
		Progress:  progressFor(console, cfg.Analyze.Quiet),
	}
	if cfg.Annotate.Enabled {
		processor.Annotator = annotate.New(cfg.Annotate, annotateDir, loc)
	}
	if cfg.Metrics.Textfile != "" {
		processor.Metrics = metrics.New()
	}

	batchCfg := cfg.ToBatchConfig()
	result, err := batch.ProcessBatch(ctx, &batchCfg, processor)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), batchCfg.Format, batchCfg.OutputFile, batchCfg.Quiet); err != nil {
		return err
	}
	result.PrintStats(console, batchCfg.Quiet)

	if err := processor.Metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		slog.Warn("failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
	}
	return nil
}

// newLocalizer returns nil when no face localizer can be loaded. The
// estimator and annotator both cope with a missing localizer.
func newLocalizer(cfg config.Config, modelsDir string) localizer.Localizer {
	loc, err := localizer.New(cfg.Localizer, modelsDir)
	if err != nil {
		if errors.Is(err, localizer.ErrNoOpenCV) {
			slog.Warn("opencv localizer requested but binary built without -tags opencv")
		} else {
			slog.Warn("face localizer unavailable", "backend", cfg.Localizer.Backend, "error", err)
		}
		return nil
	}
	return loc
}

func progressFor(w io.Writer, quiet bool) batch.ProgressCallback {
	logCb := batch.NewLogProgressCallback(slog.Default())
	if quiet {
		return logCb
	}
	return batch.NewMultiProgressCallback(batch.NewConsoleProgressCallback(w), logCb)
}
