// Package schema loads the master column layout every report row is projected onto.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultPath is where the registry file lives relative to the working directory.
const DefaultPath = "registry/vendor_schemas.json"

const registrySchema = `{
	"type": "object",
	"properties": {
		"MASTER_SCHEMA": {
			"type": "array",
			"items": {"type": "string", "minLength": 1},
			"uniqueItems": true
		}
	}
}`

var compiled = jsonschema.MustCompileString("registry.json", registrySchema)

type registry struct {
	MasterSchema []string `json:"MASTER_SCHEMA"`
}

// Load returns the master column list from path. A missing or invalid registry yields
// an empty schema and a warning; callers then fall back to the natural column union.
func Load(path string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	cols, err := Read(path)
	switch {
	case err == nil:
		logger.Debug("schema.loaded", "path", path, "columns", len(cols))
		return cols
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("schema.missing", "path", path)
	default:
		logger.Warn("schema.invalid", "path", path, "error", err)
	}
	return nil
}

// Read parses and validates a registry file.
func Read(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) ([]string, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return nil, fmt.Errorf("registry does not match schema: %w", err)
	}
	var reg registry
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	cols := make([]string, 0, len(reg.MasterSchema))
	for _, c := range reg.MasterSchema {
		// header cells are compared trimmed on read-back, so whitespace-only names are meaningless
		if strings.TrimSpace(c) != "" {
			cols = append(cols, c)
		}
	}
	return cols, nil
}
