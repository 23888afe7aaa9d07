package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kozaktomas/patient-face-id/internal/patient"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <image>",
	Short: "Register a patient's face",
	Long: `Index the face found in an image and store the patient record.

Examples:
  # Register a patient
  patient-face-id register face.jpg --patient-id P-001

  # With identifying attributes
  patient-face-id register face.jpg --patient-id P-001 --attr name="Jane Doe" --attr dob=1980-04-01

  # Print the raw response
  patient-face-id register face.jpg --patient-id P-001 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("patient-id", "", "Patient ID to register")
	registerCmd.Flags().StringSlice("attr", nil, "Patient attribute as key=value (repeatable)")
	registerCmd.Flags().Bool("json", false, "Output as JSON")
	_ = registerCmd.MarkFlagRequired("patient-id")
}

// parseAttributes turns key=value pairs into an attributes object.
func parseAttributes(pairs []string) (map[string]any, error) {
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected key=value", pair)
		}
		attrs[key] = value
	}
	return attrs, nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	patientID := mustGetString(cmd, "patient-id")
	asJSON := mustGetBool(cmd, "json")

	attrs, err := parseAttributes(mustGetStringSlice(cmd, "attr"))
	if err != nil {
		return err
	}

	body, err := imageBody(args[0])
	if err != nil {
		return err
	}
	body["patient_id"] = patientID
	if len(attrs) > 0 {
		body["attributes"] = attrs
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
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

	resp := newService(cfg, b).Register(ctx, patient.Request{Body: body})
	if !asJSON && resp.StatusCode < 300 {
		fmt.Println("Registered patient:")
	}
	return printResponse(resp, asJSON)
}
