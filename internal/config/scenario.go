package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one sentence to evaluate with its arguments and the verdict
// it is expected to reach.
type Scenario struct {
	Name     string        `yaml:"name"`
	Sentence string        `yaml:"sentence"`
	Args     []interface{} `yaml:"args"`
	// Expect defaults to true when omitted.
	Expect *bool `yaml:"expect,omitempty"`
}

// Expected returns the verdict the scenario should produce.
func (s Scenario) Expected() bool {
	return s.Expect == nil || *s.Expect
}

type ScenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadScenarios reads a scenario file. Unnamed scenarios are named after
// their position.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	return ParseScenarios(data)
}

func ParseScenarios(data []byte) ([]Scenario, error) {
	var file ScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}

	seen := make(map[string]bool, len(file.Scenarios))
	for i := range file.Scenarios {
		s := &file.Scenarios[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("scenario_%d", i+1)
		}
		if s.Sentence == "" {
			return nil, fmt.Errorf("scenario %q: sentence is required", s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("scenario %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
	}
	if len(file.Scenarios) == 0 {
		return nil, errors.New("no scenarios defined")
	}
	return file.Scenarios, nil
}

// DecodeArg reads a command-line argument as a YAML scalar, so 41 is an int,
// 4.5 a float64, true a bool and anything else a string.
func DecodeArg(s string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case int, float64, bool, string:
		return v
	default:
		// Lists, maps and null stay as the literal text.
		return s
	}
}
