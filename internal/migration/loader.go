package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nethalo/dbshift/internal/history"
)

// LoadDir reads every .yaml/.yml file in dir. The version of a file is its
// name without the extension; definitions are returned in lexical version
// order.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	defs := make(map[string]*Definition)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		version := strings.TrimSuffix(e.Name(), ext)
		if prev, ok := defs[version]; ok {
			return nil, fmt.Errorf("%w: version %s defined by both %s and %s", ErrInvalidDefinition, version, filepath.Base(prev.Path), e.Name())
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		d, err := Parse(version, data)
		if err != nil {
			return nil, err
		}
		d.Path = path
		defs[version] = d
	}

	out := make([]*Definition, 0, len(defs))
	for _, v := range sortedVersions(defs) {
		out = append(out, defs[v])
	}
	return out, nil
}

// Load builds a history from the definitions in dir.
func Load(dir string, params map[string]any) (*history.History, []*Definition, error) {
	defs, err := LoadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	h := history.New(params)
	for _, d := range defs {
		h.Add(d.Version, d)
	}
	return h, defs, nil
}
