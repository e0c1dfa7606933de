package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/models"
)

// writeJSONAtomic writes v as 2-space-indented UTF-8 JSON via a temp file
// in the same directory followed by rename, so readers never observe a
// partial record.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// readJSONValidated reads a derived record and schema-validates it. Callers
// get a typed record or an error, never a raw map. A schema-invalid
// existing file is a store integrity failure for that artifact.
func readJSONValidated(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.StoreIntegrityErrorf(err, "malformed derived file %s", filepath.Base(path))
	}
	if err := models.Validate(out); err != nil {
		return errors.StoreIntegrityErrorf(err, "schema-invalid derived file %s", filepath.Base(path))
	}
	return nil
}
