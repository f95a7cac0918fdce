package repository

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

type queryFile struct {
	Queries []domain.StoredQuery `yaml:"queries"`
}

// LoadQueries reads query definitions from a YAML file, or from every .yaml
// and .yml file of a directory. A file holds either a single query or a
// "queries" list.
func LoadQueries(fs afero.Fs, path string) ([]domain.StoredQuery, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files = nil
		entries, err := afero.ReadDir(fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	}

	var out []domain.StoredQuery
	seen := map[string]string{}
	for _, f := range files {
		queries, err := loadFile(fs, f)
		if err != nil {
			return nil, err
		}
		for _, q := range queries {
			if q.Name == "" {
				return nil, fmt.Errorf("%s: query without a name", f)
			}
			if prev, ok := seen[q.Name]; ok {
				return nil, fmt.Errorf("%s: query %s is already defined in %s", f, q.Name, prev)
			}
			seen[q.Name] = f
			if q.Filters == nil && !q.IsNative {
				q.Filters = domain.DefaultFilters()
			}
			out = append(out, q)
		}
	}
	return out, nil
}

func loadFile(fs afero.Fs, path string) ([]domain.StoredQuery, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if _, ok := doc["queries"]; ok {
		var qf queryFile
		if err := dec.Decode(&qf); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return qf.Queries, nil
	}

	var q domain.StoredQuery
	if err := dec.Decode(&q); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return []domain.StoredQuery{q}, nil
}
