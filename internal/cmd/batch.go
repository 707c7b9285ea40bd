package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/imageadjust/internal/imageio"
	"github.com/MeKo-Tech/imageadjust/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// batchBytesPerImage is the memory budget assumed per in-flight image when
// the worker count is derived automatically.
const batchBytesPerImage = 256 << 20

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Apply one adjustment to every image in a directory",
	Long: `Apply brightness/contrast, statistics matching, grayscale conversion or a
stored preset to all images matching --pattern in --input-dir, writing the
results to --output-dir. Images are processed in parallel.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("input-dir", ".", "Directory containing the input images")
	batchCmd.Flags().String("output-dir", "./adjusted", "Directory for the results")
	batchCmd.Flags().String("pattern", "*", "Glob pattern selecting input files")
	batchCmd.Flags().String("format", "", "Output format (png, jpeg, tiff, bmp); default keeps the input format")
	batchCmd.Flags().Int("quality", imageio.DefaultQuality, "JPEG quality (1-100)")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: CPUs, limited by memory)")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some images fail")

	batchCmd.Flags().IntP("brightness", "b", 0, "Brightness offset")
	batchCmd.Flags().Float64P("contrast", "c", 1, "Contrast factor")
	batchCmd.Flags().Float64("contrast-amount", 0, "Contrast amount in (-255,255]")
	batchCmd.Flags().Int("contrast-step", 0, "Contrast slider step")
	batchCmd.Flags().String("targets", "", "Match targets as mean:std[,mean:std,mean:std]")
	batchCmd.Flags().Bool("linked", false, "Use the red target for all channels")
	batchCmd.Flags().Bool("grayscale", false, "Convert to gray")
	batchCmd.Flags().Bool("collapse", false, "With --grayscale, write single-channel images")
	batchCmd.Flags().String("preset", "", "Apply a stored preset")

	bindFlags(batchCmd, map[string]string{
		"batch.input_dir":       "input-dir",
		"batch.output_dir":      "output-dir",
		"batch.pattern":         "pattern",
		"batch.format":          "format",
		"batch.quality":         "quality",
		"batch.workers":         "workers",
		"batch.progress":        "progress",
		"batch.allow_failures":  "allow-failures",
		"batch.brightness":      "brightness",
		"batch.contrast":        "contrast",
		"batch.contrast_amount": "contrast-amount",
		"batch.contrast_step":   "contrast-step",
		"batch.targets":         "targets",
		"batch.linked":          "linked",
		"batch.grayscale":       "grayscale",
		"batch.collapse":        "collapse",
		"batch.preset":          "preset",
	})
}

func runBatch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	inputDir := viper.GetString("batch.input_dir")
	outputDir := viper.GetString("batch.output_dir")
	pattern := viper.GetString("batch.pattern")
	format := viper.GetString("batch.format")
	quality := viper.GetInt("batch.quality")
	workers := viper.GetInt("batch.workers")
	showProgress := viper.GetBool("batch.progress")
	allowFailures := viper.GetBool("batch.allow_failures")

	op, label, err := operationOptions{
		Preset:     viper.GetString("batch.preset"),
		PresetsDB:  viper.GetString("presets_db"),
		Targets:    viper.GetString("batch.targets"),
		Linked:     viper.GetBool("batch.linked"),
		Grayscale:  viper.GetBool("batch.grayscale"),
		Collapse:   viper.GetBool("batch.collapse"),
		Brightness: viper.GetInt("batch.brightness"),
		Contrast: contrastOptions{
			Factor: viper.GetFloat64("batch.contrast"),
			Amount: optionalFloat("batch.contrast_amount"),
			Step:   optionalInt("batch.contrast_step"),
		},
	}.build()
	if err != nil {
		return err
	}

	if format != "" {
		if format, err = imageio.NormalizeFormat(format); err != nil {
			return err
		}
	}

	tasks, err := planBatch(inputDir, pattern, outputDir, format)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no images match %q in %s", pattern, inputDir)
	}

	if workers <= 0 {
		workers = worker.DefaultWorkers(batchBytesPerImage)
	}

	logger.Info("Starting batch",
		"operation", label,
		"images", len(tasks),
		"workers", workers,
		"input_dir", inputDir,
		"output_dir", outputDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Processor:  batchProcessor(op, format, quality),
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Image failed", "input", r.Task.Input, "error", r.Err)
			continue
		}
		logger.Debug("Image written", "input", r.Task.Input, "output", r.Output, "elapsed", r.Elapsed)
	}

	logger.Info(progress.Summary())

	if failedCount > 0 {
		if allowFailures {
			fmt.Fprintln(cmd.ErrOrStderr(), warningColor(fmt.Sprintf("%d of %d images failed", failedCount, len(tasks))))
			return nil
		}
		return fmt.Errorf("%s", errorColor(fmt.Sprintf("%d of %d images failed", failedCount, len(tasks))))
	}
	return nil
}

func batchProcessor(op operation, format string, quality int) worker.Processor {
	return worker.ProcessorFunc(func(ctx context.Context, task worker.Task) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return processFile(op, task.Input, task.Output, format, quality)
	})
}

// planBatch lists the regular files in dir matching pattern and pairs each
// with its output path. An empty format keeps each input's extension.
// Inputs that would be written to the same output path are rejected.
func planBatch(dir, pattern, outputDir, format string) ([]worker.Task, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	tasks := make([]worker.Task, 0, len(matches))
	owners := make(map[string]string, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		base := filepath.Base(path)
		ext := filepath.Ext(base)
		name := strings.TrimSuffix(base, ext)

		outExt := ext
		if format != "" {
			outExt = "." + format
		} else if _, err := imageio.FormatFromPath(path); err != nil {
			// inputs we cannot write back, such as webp, become png
			outExt = ".png"
		}

		output := filepath.Join(outputDir, name+outExt)
		if prev, ok := owners[output]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s; narrow --pattern or rename one", prev, path, output)
		}
		owners[output] = path

		tasks = append(tasks, worker.Task{
			Input:  path,
			Output: output,
		})
	}
	return tasks, nil
}
