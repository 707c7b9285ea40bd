package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var grayscaleCmd = &cobra.Command{
	Use:   "grayscale",
	Short: "Convert an image to gray",
	Long: `Replace every pixel with 0.222*R + 0.707*G + 0.071*B. The result keeps three
identical channels unless --collapse is given.`,
	RunE: runGrayscale,
}

func init() {
	rootCmd.AddCommand(grayscaleCmd)

	addIOFlags(grayscaleCmd, "grayscale")
	grayscaleCmd.Flags().Bool("collapse", false, "Write a single-channel image")

	bindFlags(grayscaleCmd, map[string]string{
		"grayscale.collapse": "collapse",
	})
}

func runGrayscale(cmd *cobra.Command, args []string) error {
	op, label, err := operationOptions{
		Grayscale: true,
		Collapse:  viper.GetBool("grayscale.collapse"),
	}.build()
	if err != nil {
		return err
	}
	return runSingle("grayscale", label, op)
}
