package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/imageadjust/internal/imageio"
	"github.com/MeKo-Tech/imageadjust/internal/luma"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats FILE...",
	Short: "Print per-channel statistics",
	Long:  "Print mean, population standard deviation, range and histogram peak of every channel, plus estimated brightness and lightness.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStats,
}

var brightnessCmd = &cobra.Command{
	Use:   "brightness FILE...",
	Short: "Print the estimated brightness (luma) of images",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBrightness,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(brightnessCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for i, path := range args {
		buf, _, err := imageio.Open(path)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := printStats(out, path, buf); err != nil {
			return err
		}
	}
	return nil
}

func runBrightness(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, path := range args {
		buf, _, err := imageio.Open(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%.2f\n", path, luma.EstimateBrightness(buf))
	}
	return nil
}
