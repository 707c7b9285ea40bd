package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Apply brightness and contrast to an image",
	Long: `Apply a brightness offset and a contrast factor around mid-gray to every
channel: out = clamp(round((in-128)*contrast + 128 + brightness)).

Contrast can be given as a factor (--contrast), as an amount in (-255,255]
(--contrast-amount) or as a slider step in tenths (--contrast-step).`,
	RunE: runAdjust,
}

func init() {
	rootCmd.AddCommand(adjustCmd)

	addIOFlags(adjustCmd, "adjust")
	adjustCmd.Flags().IntP("brightness", "b", 0, "Brightness offset")
	adjustCmd.Flags().Float64P("contrast", "c", 1, "Contrast factor (1 leaves contrast unchanged)")
	adjustCmd.Flags().Float64("contrast-amount", 0, "Contrast amount in (-255,255], converted to a factor")
	adjustCmd.Flags().Int("contrast-step", 0, "Contrast slider step; factor = step/10 + 0.05")
	adjustCmd.Flags().String("preset", "", "Apply a stored preset instead of the flags above")

	bindFlags(adjustCmd, map[string]string{
		"adjust.brightness":      "brightness",
		"adjust.contrast":        "contrast",
		"adjust.contrast_amount": "contrast-amount",
		"adjust.contrast_step":   "contrast-step",
		"adjust.preset":          "preset",
	})
}

func runAdjust(cmd *cobra.Command, args []string) error {
	op, label, err := operationOptions{
		Preset:     viper.GetString("adjust.preset"),
		PresetsDB:  viper.GetString("presets_db"),
		Brightness: viper.GetInt("adjust.brightness"),
		Contrast: contrastOptions{
			Factor: viper.GetFloat64("adjust.contrast"),
			Amount: optionalFloat("adjust.contrast_amount"),
			Step:   optionalInt("adjust.contrast_step"),
		},
	}.build()
	if err != nil {
		return err
	}
	return runSingle("adjust", label, op)
}
