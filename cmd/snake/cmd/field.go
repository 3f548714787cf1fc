package cmd

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/snake/internal/energy"
	"github.com/MeKo-Tech/snake/internal/utils"
	"github.com/spf13/cobra"
)

// fieldCmd writes the energy field an image is relaxed against.
var fieldCmd = &cobra.Command{
	Use:   "field <image>",
	Short: "Render the edge energy field of an image",
	Long: `Render the edge energy field that "snake run" relaxes contours against.

Bright pixels attract the contour. Use this to tune the preprocessing flags
before running a relaxation.

Examples:
  snake field shape.png -o field.png
  snake field shape.png -o field.png --blur-sigma 0 --threshold=false`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			return errors.New("--output is required")
		}

		opts := GetConfig().ToPrepareOptions()
		if cmd.Flags().Changed("invert") {
			opts.Invert, _ = cmd.Flags().GetBool("invert")
		}
		if cmd.Flags().Changed("blur-sigma") {
			opts.BlurSigma, _ = cmd.Flags().GetFloat64("blur-sigma")
		}
		if cmd.Flags().Changed("threshold") {
			opts.Threshold, _ = cmd.Flags().GetBool("threshold")
		}
		if opts.BlurSigma < 0 {
			return fmt.Errorf("invalid blur sigma: %.2f (must be >= 0)", opts.BlurSigma)
		}

		img, _, err := utils.LoadImage(args[0])
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", args[0], err)
		}
		field, err := energy.Prepare(img, opts)
		if err != nil {
			return fmt.Errorf("failed to prepare field: %w", err)
		}
		if err := utils.SaveImage(out, field.Image()); err != nil {
			return fmt.Errorf("failed to save field: %w", err)
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Field %dx%d written to %s\n", field.Width(), field.Height(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(fieldCmd)
	defaults := energy.DefaultPrepareOptions()
	fieldCmd.Flags().StringP("output", "o", "", "output image path")
	fieldCmd.Flags().Bool("invert", defaults.Invert, "invert the edge field")
	fieldCmd.Flags().Float64("blur-sigma", defaults.BlurSigma, "Gaussian blur sigma (0 disables)")
	fieldCmd.Flags().Bool("threshold", defaults.Threshold, "binarise with Otsu's method")
}
