package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LoadJSONFile decodes path into T. A missing file yields the zero value.
func LoadJSONFile[T any](path string) (T, error) {
	var zero T
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, nil
		}
		return zero, err
	}
	if err := json.Unmarshal(b, &zero); err != nil {
		return zero, fmt.Errorf("decode %s: %w", path, err)
	}
	return zero, nil
}

func SaveJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, append(b, '\n'), 0o600)
}

func writeAtomic(path string, b []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, perm); err != nil {
		return err
	}

	_ = os.Remove(path) // Windows rename doesn't overwrite.
	return os.Rename(tmp, path)
}
