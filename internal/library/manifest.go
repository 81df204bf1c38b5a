/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package library

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"refdock/internal/version"
)

//go:embed schema/library.schema.json
var manifestSchema []byte

// Manifest is the human-readable library descriptor written next to the
// database. It mostly serves external tooling; the database is
// authoritative for folder/image content.
type Manifest struct {
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	SchemaVersion int       `json:"schemaVersion"`
}

// ManifestPath returns the manifest file path for a library root.
func ManifestPath(root string) string { return filepath.Join(root, ManifestFileName) }

// ensureManifest writes a fresh manifest when none exists yet.
func (s *Store) ensureManifest() error {
	path := ManifestPath(s.Root)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	m := Manifest{
		Name:          filepath.Base(s.Root),
		CreatedAt:     time.Now().UTC(),
		CreatedBy:     "refdock " + version.Version,
		SchemaVersion: schemaVersion,
	}
	return s.WriteManifest(m)
}

// ReadManifest loads and validates the manifest.
func (s *Store) ReadManifest() (Manifest, error) {
	data, err := os.ReadFile(ManifestPath(s.Root))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	if err := ValidateManifest(data); err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// WriteManifest writes the manifest transactionally (temp file + rename)
// with a timestamped backup of the previous manifest, if any.
func (s *Store) WriteManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := ValidateManifest(data); err != nil {
		return err
	}

	path := ManifestPath(s.Root)
	if prev, err := os.ReadFile(path); err == nil {
		bdir := filepath.Join(s.Root, BackupsDirName)
		if err := os.MkdirAll(bdir, 0o755); err != nil {
			return fmt.Errorf("create backups dir: %w", err)
		}
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("library-%s.json", stamp))
		if err := os.WriteFile(bpath, prev, 0o644); err != nil {
			return fmt.Errorf("write manifest backup: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// ValidateManifest checks manifest bytes against the embedded JSON schema.
func ValidateManifest(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(manifestSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("manifest does not conform to schema: %s", errs[0])
		}
		return fmt.Errorf("manifest does not conform to schema")
	}
	return nil
}
