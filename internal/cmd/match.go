package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/imageadjust/internal/imageio"
	"github.com/MeKo-Tech/imageadjust/internal/match"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match channel mean and standard deviation to targets",
	Long: `Rewrite each channel linearly so its mean and standard deviation approach the
given targets. Targets are "mean:std" pairs: one pair applies to every channel,
three pairs apply to red, green and blue.

With --linked the red target is used for all channels. --dry-run prints the
solved transforms without writing an image.`,
	Example: `  imageadjust match -i in.png -o out.png --targets 110:40
  imageadjust match -i in.png -o out.png --targets 100:30,105:32,120:45`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	addIOFlags(matchCmd, "match")
	matchCmd.Flags().String("targets", "", "Targets as mean:std[,mean:std,mean:std]")
	matchCmd.Flags().Bool("linked", false, "Use the red target for all channels")
	matchCmd.Flags().Bool("dry-run", false, "Print the solved transforms only")

	bindFlags(matchCmd, map[string]string{
		"match.targets": "targets",
		"match.linked":  "linked",
		"match.dry_run": "dry-run",
	})
}

func runMatch(cmd *cobra.Command, args []string) error {
	opts := operationOptions{
		Targets: viper.GetString("match.targets"),
		Linked:  viper.GetBool("match.linked"),
	}
	if opts.Targets == "" {
		return fmt.Errorf("--targets is required")
	}

	if viper.GetBool("match.dry_run") {
		input := viper.GetString("match.input")
		if input == "" {
			return fmt.Errorf("--input is required")
		}
		targets, err := parseTargets(opts.Targets)
		if err != nil {
			return err
		}
		buf, _, err := imageio.Open(input)
		if err != nil {
			return err
		}
		plan, err := match.Solve(buf, targets, opts.Linked)
		if err != nil {
			return err
		}
		printPlan(cmd.OutOrStdout(), plan)
		return nil
	}

	op, label, err := opts.build()
	if err != nil {
		return err
	}
	return runSingle("match", label, op)
}
