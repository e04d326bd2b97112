package fileutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file next to filePath and renames it
// into place, so readers never observe a partially written file.
func WriteFileAtomic(filePath string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		closeErr := tmp.Close()
		removeErr := os.Remove(tmpName)
		if os.IsNotExist(removeErr) {
			removeErr = nil
		}
		return errors.Join(cause, closeErr, removeErr)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filePath, err)
	}

	return nil
}

// MarshalJSON renders data as two-space indented JSON without HTML escaping,
// terminated by a newline. The output is stable for a given value.
func MarshalJSON(data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSONFile writes data as JSON to a file, replacing any existing content atomically.
func WriteJSONFile(data any, filePath string) error {
	jsonData, err := MarshalJSON(data)
	if err != nil {
		return err
	}

	slog.Debug("Writing JSON file", "filename", filePath, "bytes", len(jsonData))
	if err := WriteFileAtomic(filePath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}
