package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// NoScenariosError is returned when a suite directory holds no scenarios.
type NoScenariosError struct {
	Dir string
}

// Error implements the error interface.
func (e *NoScenariosError) Error() string {
	return fmt.Sprintf("no scenario files (*.yaml, *.yml) in %s", e.Dir)
}

// LoadSuite loads every scenario file in dir in file name order.
// Scenario names must be unique within the suite.
func LoadSuite(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("failed to read suite: %w", err)
		}
		return nil, &NoScenariosError{Dir: dir}
	}
	slices.Sort(paths)

	seen := make(map[string]string)
	suite := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", filepath.Base(path), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(path)
		suite = append(suite, s)
	}
	return suite, nil
}

// SuiteResult pairs a scenario with its outcome.
type SuiteResult struct {
	Scenario *Scenario
	Result   *Result
	Err      error
}

// RunSuite runs each scenario in order. A scenario that cannot be executed
// is reported through Err and does not stop the suite.
func RunSuite(suite []*Scenario) []SuiteResult {
	out := make([]SuiteResult, len(suite))
	for i, s := range suite {
		r, err := Run(s)
		out[i] = SuiteResult{Scenario: s, Result: r, Err: err}
	}
	return out
}
