package cmd

import (
	"fmt"
	"time"

	"github.com/MeKo-Tech/imageadjust/internal/imageio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// addIOFlags registers the input/output flags shared by the single-image commands.
func addIOFlags(cmd *cobra.Command, prefix string) {
	cmd.Flags().StringP("input", "i", "", "Input image (png, jpeg, tiff, bmp, webp)")
	cmd.Flags().StringP("output", "o", "", "Output image")
	cmd.Flags().String("format", "", "Output format (png, jpeg, tiff, bmp); default from the output extension")
	cmd.Flags().Int("quality", imageio.DefaultQuality, "JPEG quality (1-100)")

	bindFlags(cmd, map[string]string{
		prefix + ".input":   "input",
		prefix + ".output":  "output",
		prefix + ".format":  "format",
		prefix + ".quality": "quality",
	})
}

// runSingle applies op to the image named by the <prefix>.input key.
func runSingle(prefix, label string, op operation) error {
	if logger == nil {
		initLogging()
	}

	input := viper.GetString(prefix + ".input")
	output := viper.GetString(prefix + ".output")
	if input == "" || output == "" {
		return fmt.Errorf("--input and --output are required")
	}

	start := time.Now()
	path, err := processFile(op, input, output, viper.GetString(prefix+".format"), viper.GetInt(prefix+".quality"))
	if err != nil {
		return err
	}

	logger.Info("Image written",
		"operation", label,
		"input", input,
		"output", path,
		"elapsed", time.Since(start),
	)
	return nil
}

// optionalFloat returns a pointer to the value of key when it was set explicitly.
func optionalFloat(key string) *float64 {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetFloat64(key)
	return &v
}

func optionalInt(key string) *int {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetInt(key)
	return &v
}
