package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/patient-face-id/internal/patient"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Identify a patient from a face image",
	Long: `Search the collection for the face in an image and print the matching patient record.

Examples:
  # Identify with the configured MATCH_THRESHOLD
  patient-face-id identify photo.jpg

  # Accept weaker matches
  patient-face-id identify photo.jpg --threshold 80`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Float64("threshold", 0, "Minimum similarity 0-100 (0 = use MATCH_THRESHOLD)")
	identifyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	threshold := mustGetFloat64(cmd, "threshold")
	asJSON := mustGetBool(cmd, "json")

	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("--threshold must be between 0 and 100, got %g", threshold)
	}

	body, err := imageBody(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if threshold > 0 {
		cfg.Recognition.MatchThreshold = threshold
	}

	ctx := context.Background()
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}()

	resp := newService(cfg, b).Identify(ctx, patient.Request{Body: body})
	if !asJSON && resp.StatusCode < 300 {
		fmt.Println("Matched patient:")
	}
	return printResponse(resp, asJSON)
}
