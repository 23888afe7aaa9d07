package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/kozaktomas/patient-face-id/internal/constants"
	"github.com/kozaktomas/patient-face-id/internal/gateway"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run one handler inside the AWS Lambda runtime",
	Long: `Run the register or identify handler as an AWS Lambda function.

Each function is deployed with the same binary and selects its handler with
--handler or PATIENT_HANDLER. Events are API Gateway HTTP API (payload v2) requests or direct
invocations with a {"body": ...} payload.`,
	RunE: runLambda,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)

	lambdaCmd.Flags().String("handler", "", "Handler to run: register or identify (env PATIENT_HANDLER)")
}

func runLambda(cmd *cobra.Command, args []string) error {
	name := stringFlagOrEnv(cmd, "handler", "PATIENT_HANDLER")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	b, err := openBackends(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}

	svc := newService(cfg, b)

	var h gateway.HandlerFunc
	switch name {
	case "register":
		h = svc.Register
	case "identify":
		h = svc.Identify
	default:
		_ = b.Close()
		return fmt.Errorf("unknown handler %q (expected register or identify)", name)
	}

	lambda.StartWithOptions(gateway.Handler(h), lambda.WithEnableSIGTERM(func() {
		if err := b.Close(); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}))
	return nil
}
