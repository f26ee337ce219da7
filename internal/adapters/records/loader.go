// Package records reads dictionary source files. A source is either YAML
// (a list of records, or a mapping with a "records" list) or JSON Lines
// (one record object per line).
package records

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corey/tagger/internal/ports"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for a file extension with no reader.
var ErrUnknownFormat = errors.New("unknown record file format")

// yamlFile is the mapping form of a YAML source.
type yamlFile struct {
	Records []ports.Record `yaml:"records"`
}

// LoadFile reads every record in path. The format follows the extension:
// .yaml, .yml or .jsonl.
func LoadFile(path string) ([]ports.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".jsonl", ".ndjson":
		return loadJSONL(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// LoadFiles reads and concatenates several sources in order.
func LoadFiles(paths []string) ([]ports.Record, error) {
	var all []ports.Record
	for _, p := range paths {
		recs, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}

func loadYAML(path string) ([]ports.Record, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var recs []ports.Record
		if err := root.Decode(&recs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return recs, nil
	case yaml.MappingNode:
		var f yamlFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return f.Records, nil
	}
	return nil, fmt.Errorf("parse %s: expected a list of records", path)
}

func loadJSONL(path string) ([]ports.Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer f.Close()

	var recs []ports.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var r ports.Record
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		recs = append(recs, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}
