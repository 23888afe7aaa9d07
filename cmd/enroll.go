package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kozaktomas/patient-face-id/internal/constants"
	"github.com/kozaktomas/patient-face-id/internal/patient"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <directory>",
	Short: "Register every patient image in a directory",
	Long: `Register patients in bulk from a directory of face images.

The file name without extension is the patient ID. An optional JSON file with
the same name holds the patient's attributes:

  P-001.jpg
  P-001.json   {"name": "Jane Doe", "dob": "1980-04-01"}

Registering a patient again replaces the stored record.

Examples:
  # Enroll with 4 concurrent workers
  patient-face-id enroll ./faces

  # Use different concurrency
  patient-face-id enroll ./faces --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("concurrency", constants.DefaultEnrollWorkers, "Number of parallel workers")
	enrollCmd.Flags().Int("limit", 0, "Limit number of images to enroll (0 = no limit)")
}

var enrollImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// enrollItem is one patient image found in the directory.
type enrollItem struct {
	PatientID string
	ImagePath string
	AttrPath  string // empty when there is no sidecar
}

// collectEnrollItems lists patient images in dir ordered by patient ID.
func collectEnrollItems(dir string) ([]enrollItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var items []enrollItem
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !enrollImageExts[strings.ToLower(ext)] {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ext)
		item := enrollItem{
			PatientID: stem,
			ImagePath: filepath.Join(dir, e.Name()),
		}
		sidecar := filepath.Join(dir, stem+constants.SidecarExt)
		if _, err := os.Stat(sidecar); err == nil {
			item.AttrPath = sidecar
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].PatientID < items[j].PatientID })
	return items, nil
}

// requestBody builds the registration body for an item.
func (it enrollItem) requestBody() (map[string]any, error) {
	body, err := imageBody(it.ImagePath)
	if err != nil {
		return nil, err
	}
	body["patient_id"] = it.PatientID

	if it.AttrPath == "" {
		return body, nil
	}
	data, err := os.ReadFile(it.AttrPath)
	if err != nil {
		return nil, fmt.Errorf("reading attributes: %w", err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(it.AttrPath), err)
	}
	body["attributes"] = attrs
	return body, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	limit := mustGetInt(cmd, "limit")
	if concurrency < 1 {
		return errors.New("--concurrency must be at least 1")
	}

	items, err := collectEnrollItems(args[0])
	if err != nil {
		return err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if len(items) == 0 {
		fmt.Println("No images to enroll")
		return nil
	}
	fmt.Printf("Found %d patient images\n", len(items))

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
	svc := newService(cfg, b)

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("Enrolling patients"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("patients"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var successCount, noFaceCount, errorCount int
	var failures []string
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, item := range items {
		wg.Add(1)
		go func(it enrollItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			body, err := it.requestBody()
			if err != nil {
				mu.Lock()
				errorCount++
				failures = append(failures, fmt.Sprintf("%s: %v", it.PatientID, err))
				mu.Unlock()
				return
			}

			resp := svc.Register(ctx, patient.Request{Body: body})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case resp.StatusCode < 300:
				successCount++
			case resp.StatusCode == http.StatusUnprocessableEntity:
				noFaceCount++
				failures = append(failures, fmt.Sprintf("%s: %s", it.PatientID, patient.MessageNoFace))
			default:
				errorCount++
				failures = append(failures, fmt.Sprintf("%s: %s", it.PatientID, resp.Body))
			}
		}(item)
	}

	wg.Wait()
	fmt.Println()

	sort.Strings(failures)
	for _, f := range failures {
		fmt.Printf("  %s\n", f)
	}
	fmt.Printf("\nCompleted: %d registered, %d without a usable face, %d errors\n", successCount, noFaceCount, errorCount)

	if errorCount > 0 {
		return fmt.Errorf("%d registrations failed", errorCount)
	}
	return nil
}
