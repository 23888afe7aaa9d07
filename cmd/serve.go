package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/patient-face-id/internal/constants"
	"github.com/kozaktomas/patient-face-id/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the patient registration and identification HTTP API.

Endpoints:
  POST /api/v1/patients/register   {"image_base64", "patient_id", "attributes"}
  POST /api/v1/patients/identify   {"image_base64"}
  GET  /api/v1/health`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, error) {
	port, err := intFlagOrEnv(cmd, "port", "WEB_PORT")
	if err != nil {
		return 0, "", err
	}
	return port, stringFlagOrEnv(cmd, "host", "WEB_HOST"), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	port, host, err := resolveServeHostPort(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	b, err := openBackends(startCtx, cfg)
	startCancel()
	if err != nil {
		return err
	}

	server := web.NewServer(newService(cfg, b), port, host, os.Getenv("WEB_ALLOWED_ORIGINS"))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("Starting Patient Face ID API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	return serveUntilSignal(server, sigChan, func() error {
		if err := b.Close(); err != nil {
			return err
		}
		if b.local != nil {
			fmt.Println("Face index saved")
		}
		return nil
	})
}

// httpServer is the part of *web.Server that serveUntilSignal drives.
type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs server until a signal arrives, then runs cleanup once Shutdown has
// drained in-flight requests. Start returns as soon as Shutdown begins, so cleanup waits
// for Shutdown itself.
func serveUntilSignal(server httpServer, sigChan <-chan os.Signal, cleanup func() error) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := <-sigChan; !ok {
			return
		}
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	startErr := server.Start()
	if startErr == nil {
		<-done
	}

	if err := cleanup(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	if startErr != nil {
		return fmt.Errorf("starting server: %w", startErr)
	}
	return nil
}
