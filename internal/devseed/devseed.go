// Package devseed loads fixture records for the mock resource.
package devseed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRecords reads a list of records from a JSON or YAML file. The list may
// be the document itself or sit under a top-level "records" key.
func LoadRecords(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON seed document.
func ParseJSON(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var wrapped struct {
			Records []map[string]any `json:"records"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("devseed: decode json: %w", err)
		}
		return wrapped.Records, nil
	}
	var records []map[string]any
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("devseed: decode json: %w", err)
	}
	return records, nil
}

// ParseYAML decodes a YAML seed document.
func ParseYAML(data []byte) ([]map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("devseed: decode yaml: %w", err)
	}
	if m, ok := doc.(map[string]any); ok {
		doc = m["records"]
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("devseed: yaml seed must be a list of records")
	}
	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("devseed: yaml record %d is not a mapping", i)
		}
		records = append(records, m)
	}
	return records, nil
}
