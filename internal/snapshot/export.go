// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/google/renameio/v2"
)

// Marshal renders the export document as indented JSON.
func Marshal(doc ExportDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export document: %w", err)
	}
	return data, nil
}

// WriteFile persists the export document atomically. renameio handles the
// temp file, fsync and rename, so a crash never leaves a torn export behind.
func WriteFile(path string, doc ExportDocument) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}
