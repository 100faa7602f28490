// Package catalogparser builds the drug reference catalog from a delimited dataset.
package catalogparser

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/giygas/prescriptions-api/logging"
	"golang.org/x/text/encoding/charmap"
)

var downloadClient = &http.Client{
	Timeout: 5 * time.Minute,
}

// downloadDataset fetches url and stores it at path as UTF-8.
// The file is replaced atomically so a failed download never truncates the
// copy a previous run left behind.
func downloadDataset(url string, path string) error {
	cleanPath := filepath.Clean(path)

	response, err := downloadClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if err = response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: unexpected status %s", url, response.Status)
	}

	// Some publishers serve iso-8859-1, read everything first to find out
	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if !utf8.Valid(bodyBytes) {
		decoded, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(bodyBytes)))
		if err != nil {
			return fmt.Errorf("failed to decode %s as iso-8859-1: %w", url, err)
		}
		bodyBytes = decoded
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", cleanPath, err)
	}

	tmpPath := cleanPath + ".tmp"
	if err := os.WriteFile(tmpPath, bodyBytes, 0640); err != nil {
		return fmt.Errorf("failed to write file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, cleanPath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", cleanPath, err)
	}

	logging.Debug(fmt.Sprintf("%s downloaded without errors", cleanPath), "bytes", len(bodyBytes))
	return nil
}
