// Package awsutil loads the shared AWS SDK configuration.
package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/kozaktomas/patient-face-id/internal/config"
)

// LoadConfig resolves credentials and region through the default SDK chain.
// An explicit region in cfg overrides the chain.
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return awsCfg, nil
}

// Endpoint returns the custom endpoint to set as a client's BaseEndpoint, or nil for the default.
func Endpoint(cfg config.AWSConfig) *string {
	if cfg.EndpointURL == "" {
		return nil
	}
	return aws.String(cfg.EndpointURL)
}
