package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "patient-face-id",
	Short: "Register and identify patients by face",
	Long: `Patient Face ID registers a patient's face together with identifying
attributes and later identifies the patient from a new photo.

Face indexing and search are delegated to a recognizer (Amazon Rekognition or
a self-hosted embedding server) and patient records are kept in a record store
(DynamoDB, PostgreSQL, MariaDB or memory). The same handlers are served over
HTTP, as AWS Lambda functions and from the command line.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
