package cmd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/kozaktomas/patient-face-id/internal/patient"
)

// imageBody reads an image file into a request body with the image base64 encoded.
func imageBody(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is a CLI argument
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return map[string]any{
		"image_base64": base64.StdEncoding.EncodeToString(data),
	}, nil
}

// printResponse writes a handler response to stdout and turns non-2xx statuses into errors.
func printResponse(resp patient.Response, asJSON bool) error {
	if asJSON {
		fmt.Println(resp.Body)
		if resp.StatusCode >= 300 {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(resp.Body), &fields); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode >= 300 {
		msg, _ := fields["message"].(string)
		if msg == "" {
			msg, _ = fields["error"].(string)
		}
		return fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-12s %v\n", k+":", fields[k])
	}
	return nil
}
