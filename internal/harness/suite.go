package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when no scenario file has the
// requested name.
type ScenarioNotFoundError struct {
	Name string
	Dir  string
}

func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q not found in %s", e.Name, e.Dir)
}

// Golden comparison outcomes.
const (
	GoldenMatch    = "match"
	GoldenMismatch = "mismatch"
	GoldenMissing  = "missing"
	GoldenUpdated  = "updated"
)

// Outcome is the result of one scenario in a suite run.
type Outcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// Filter keeps only scenario files whose base name contains it.
	Filter string
	// GoldenDir holds <name>.golden trace files. Empty skips golden checks.
	GoldenDir string
	// Update rewrites golden files instead of comparing.
	Update bool
}

// FindScenarios returns the .yaml/.yml files under dir in lexical order.
// Directories named "golden" are skipped.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" && !strings.Contains(filepath.Base(path), filter) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find scenarios in %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// FindScenario locates the scenario whose name field equals name.
func FindScenario(dir, name string) (string, error) {
	files, err := FindScenarios(dir, "")
	if err != nil {
		return "", err
	}
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			continue
		}
		if s.Name == name {
			return f, nil
		}
	}
	return "", &ScenarioNotFoundError{Name: name, Dir: dir}
}

// RunSuite loads and runs every scenario found under dir. A scenario that
// fails to load or execute is a failed outcome, not an error.
func RunSuite(dir string, opts SuiteOptions) ([]Outcome, error) {
	files, err := FindScenarios(dir, opts.Filter)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(files))
	for _, path := range files {
		outcomes = append(outcomes, runOne(path, opts))
	}
	return outcomes, nil
}

func runOne(path string, opts SuiteOptions) Outcome {
	out := Outcome{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		out.Errors = []string{err.Error()}
		return out
	}
	out.Name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		out.Errors = []string{err.Error()}
		return out
	}
	out.Pass = result.Pass
	out.Errors = result.Errors

	if opts.GoldenDir != "" {
		status, err := CheckGolden(opts.GoldenDir, scenario.Name, result, opts.Update)
		if err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, err.Error())
		}
		out.Golden = status
		if status == GoldenMismatch || status == GoldenMissing {
			out.Pass = false
		}
	}
	return out
}

// CheckGolden compares a result's canonical trace with
// goldenDir/<name>.golden, or rewrites the file when update is set.
func CheckGolden(goldenDir, name string, result *Result, update bool) (string, error) {
	data, err := MarshalTrace(name, result)
	if err != nil {
		return "", err
	}
	path := filepath.Join(goldenDir, name+".golden")

	if update {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", err
		}
		return GoldenUpdated, nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return GoldenMissing, nil
	}
	if err != nil {
		return "", err
	}
	if !bytes.Equal(bytes.TrimSpace(want), data) {
		return GoldenMismatch, nil
	}
	return GoldenMatch, nil
}
