package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/imageadjust/internal/preset"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage named adjustment presets",
}

var presetSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Store a brightness/contrast or matching preset",
	Example: `  imageadjust preset save punchy --brightness 10 --contrast 1.3
  imageadjust preset save dusk --targets 90:30,95:30,120:40`,
	Args: cobra.ExactArgs(1),
	RunE: runPresetSave,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored presets",
	Args:  cobra.NoArgs,
	RunE:  runPresetList,
}

var presetShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a preset as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetShow,
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetDelete,
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetSaveCmd, presetListCmd, presetShowCmd, presetDeleteCmd)

	presetSaveCmd.Flags().IntP("brightness", "b", 0, "Brightness offset")
	presetSaveCmd.Flags().Float64P("contrast", "c", 1, "Contrast factor")
	presetSaveCmd.Flags().Float64("contrast-amount", 0, "Contrast amount in (-255,255]")
	presetSaveCmd.Flags().Int("contrast-step", 0, "Contrast slider step")
	presetSaveCmd.Flags().String("targets", "", "Match targets; makes this a matching preset")
	presetSaveCmd.Flags().Bool("linked", false, "Use the red target for all channels")

	bindFlags(presetSaveCmd, map[string]string{
		"preset.brightness":      "brightness",
		"preset.contrast":        "contrast",
		"preset.contrast_amount": "contrast-amount",
		"preset.contrast_step":   "contrast-step",
		"preset.targets":         "targets",
		"preset.linked":          "linked",
	})
}

func openPresets() (*preset.Store, error) {
	return preset.Open(viper.GetString("presets_db"))
}

// presetFromConfig builds the preset described by the preset.* keys.
func presetFromConfig(name string) (preset.Preset, error) {
	if s := viper.GetString("preset.targets"); s != "" {
		targets, err := parseTargets(s)
		if err != nil {
			return preset.Preset{}, err
		}
		return preset.Preset{
			Name:    name,
			Kind:    preset.KindMatch,
			Targets: targets,
			Linked:  viper.GetBool("preset.linked"),
		}, nil
	}

	contrast, err := contrastOptions{
		Factor: viper.GetFloat64("preset.contrast"),
		Amount: optionalFloat("preset.contrast_amount"),
		Step:   optionalInt("preset.contrast_step"),
	}.resolve()
	if err != nil {
		return preset.Preset{}, err
	}
	return preset.Preset{
		Name:       name,
		Kind:       preset.KindUniform,
		Brightness: viper.GetInt("preset.brightness"),
		Contrast:   contrast,
	}, nil
}

func runPresetSave(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	p, err := presetFromConfig(args[0])
	if err != nil {
		return err
	}

	store, err := openPresets()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(p); err != nil {
		return err
	}
	logger.Info("Preset saved", "name", p.Name, "kind", p.Kind)
	return nil
}

func runPresetList(cmd *cobra.Command, args []string) error {
	store, err := openPresets()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, warningColor("no presets"))
		return nil
	}
	fmt.Fprintln(out, headerColor(fmt.Sprintf("%-20s %-8s %s", "name", "kind", "settings")))
	for _, p := range list {
		fmt.Fprintf(out, "%-20s %-8s %s\n", p.Name, p.Kind, describePreset(p))
	}
	return nil
}

func describePreset(p preset.Preset) string {
	if p.Kind == preset.KindMatch {
		s := ""
		for i, t := range p.Targets {
			if i > 0 {
				s += ","
			}
			s += fmt.Sprintf("%g:%g", t.Mean, t.StdDev)
		}
		if p.Linked {
			s += " linked"
		}
		return s
	}
	return fmt.Sprintf("brightness=%d contrast=%.4g", p.Brightness, p.Contrast)
}

func runPresetShow(cmd *cobra.Command, args []string) error {
	store, err := openPresets()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.Get(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func runPresetDelete(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	store, err := openPresets()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return err
	}
	logger.Info("Preset deleted", "name", args[0])
	return nil
}
