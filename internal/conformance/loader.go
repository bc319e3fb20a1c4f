package conformance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	SourceFile = "source.json"
	MetaFile   = "meta.yaml"
)

// Case is one test case directory.
type Case struct {
	Name string
	Dir  string
	Meta Meta
}

func (c Case) SourcePath() string { return filepath.Join(c.Dir, SourceFile) }

// LoadCases loads every direct subdirectory of root that holds both a
// source.json and a meta.yaml, sorted by name ignoring case. Other
// directories are not test cases and are left out.
func LoadCases(root string) ([]Case, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var cases []Case
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		c, ok, err := loadCase(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		if ok {
			cases = append(cases, c)
		}
	}

	sort.Slice(cases, func(i, j int) bool {
		return strings.ToLower(cases[i].Name) < strings.ToLower(cases[j].Name)
	})
	return cases, nil
}

func loadCase(dir string) (Case, bool, error) {
	if _, err := os.Stat(filepath.Join(dir, SourceFile)); err != nil {
		return Case{}, false, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Case{}, false, nil
		}
		return Case{}, false, err
	}
	meta, err := ParseMeta(data)
	if err != nil {
		return Case{}, false, fmt.Errorf("%s: %w", filepath.Join(dir, MetaFile), err)
	}
	return Case{Name: filepath.Base(dir), Dir: dir, Meta: meta}, true, nil
}

// FindRoot looks for a directory called name in dir and its parents.
func FindRoot(dir, name string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		target := filepath.Join(dir, name)
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			return target, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("tests directory %q not found", name)
		}
		dir = parent
	}
}
