package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a replication scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Language is the path to the CUE language definition.
	Language string `yaml:"language"`

	// Partition is the root of the replicated partition.
	Partition PartitionSpec `yaml:"partition"`

	// CausePrefix prefixes the deterministic causal ids of the origin.
	// Default: "cause".
	CausePrefix string `yaml:"cause_prefix,omitempty"`

	// Setup builds the initial tree. It runs before replication starts.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are the replicated edits.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the mirror.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// PartitionSpec names the partition root.
type PartitionSpec struct {
	ID         string `yaml:"id"`
	Classifier string `yaml:"classifier"`
}

// Step is one operation on the origin partition. Which fields apply depends
// on Op; node and feature fields name nodes by id and features by name.
type Step struct {
	Op string `yaml:"op"`

	// new
	ID         string         `yaml:"id,omitempty"`
	Classifier string         `yaml:"classifier,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`

	Node    string `yaml:"node,omitempty"`
	Feature string `yaml:"feature,omitempty"`
	Index   *int   `yaml:"index,omitempty"`

	// Nodes are the children or annotations to insert or remove.
	Nodes []string `yaml:"nodes,omitempty"`

	// Targets are reference entries by node id.
	Targets []string `yaml:"targets,omitempty"`

	// Value is the property value for set.
	Value any `yaml:"value,omitempty"`

	// With is the node id for set on a link and for replace.
	With string `yaml:"with,omitempty"`

	ResolveInfo string `yaml:"resolve_info,omitempty"`

	// To is the destination of move_reference.
	To *Destination `yaml:"to,omitempty"`

	// Replace makes move_reference replace the destination entry.
	Replace bool `yaml:"replace,omitempty"`

	// ExpectError is the error code the step must fail with. The step
	// must succeed when empty.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Destination addresses a reference slot.
type Destination struct {
	Node    string `yaml:"node"`
	Feature string `yaml:"feature"`
	Index   int    `yaml:"index"`
}

// Step operations.
const (
	OpNew           = "new"
	OpSet           = "set"
	OpInsert        = "insert"
	OpRemove        = "remove"
	OpReplace       = "replace"
	OpAnnotate      = "annotate"
	OpReference     = "reference"
	OpResolveInfo   = "resolve_info"
	OpMoveReference = "move_reference"
	OpBegin         = "begin"
	OpEnd           = "end"
)

// Assertion validates the trace or the mirror.
type Assertion struct {
	Type string `yaml:"type"`

	// Kinds is the expected wire kind sequence (trace_kinds).
	Kinds []string `yaml:"kinds,omitempty"`

	// Kind is the atomic kind to count (trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number (trace_count, suppressed).
	Count int `yaml:"count,omitempty"`

	Node    string `yaml:"node,omitempty"`
	Feature string `yaml:"feature,omitempty"`

	// Value is the expected property value; absent means unset.
	Value any `yaml:"value,omitempty"`

	// Nodes are expected child or annotation ids, or the ids that must be
	// absent.
	Nodes []string `yaml:"nodes,omitempty"`

	// Targets are expected reference target ids.
	Targets []string `yaml:"targets,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceKinds  = "trace_kinds"
	AssertTraceCount  = "trace_count"
	AssertProperty    = "property"
	AssertChildren    = "children"
	AssertAnnotations = "annotations"
	AssertReferences  = "references"
	AssertAbsent      = "absent"
	AssertSuppressed  = "suppressed"
)

// LoadScenario reads and parses a scenario YAML file. The language path is
// resolved relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Language != "" && !filepath.IsAbs(scenario.Language) {
		scenario.Language = filepath.Join(filepath.Dir(path), scenario.Language)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// causePrefix returns the origin's causal id prefix.
func (s *Scenario) causePrefix() string {
	if s.CausePrefix == "" {
		return "cause"
	}
	return s.CausePrefix
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Language == "" {
		return fmt.Errorf("language is required")
	}
	if _, err := os.Stat(s.Language); os.IsNotExist(err) {
		return fmt.Errorf("language file not found: %s", s.Language)
	}
	if s.Partition.ID == "" || s.Partition.Classifier == "" {
		return fmt.Errorf("partition id and classifier are required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		switch {
		case step.Op == OpBegin || step.Op == OpEnd:
			return fmt.Errorf("setup[%d]: %s is only allowed in steps", i, step.Op)
		case step.ExpectError != "":
			return fmt.Errorf("setup[%d]: expect_error is only allowed in steps", i)
		}
	}
	depth := 0
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		switch step.Op {
		case OpBegin:
			depth++
		case OpEnd:
			if depth == 0 {
				return fmt.Errorf("steps[%d]: end without begin", i)
			}
			depth--
		}
	}
	if depth != 0 {
		return fmt.Errorf("%d transaction(s) left open", depth)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks the fields each operation requires.
func validateStep(s Step) error {
	switch s.Op {
	case OpNew:
		if s.ID == "" || s.Classifier == "" {
			return fmt.Errorf("new: id and classifier are required")
		}
		return nil
	case OpBegin, OpEnd:
		return nil
	case OpSet, OpInsert, OpReference, OpRemove:
		if s.Node == "" {
			return fmt.Errorf("%s: node is required", s.Op)
		}
		if s.Feature == "" && s.Op != OpRemove {
			return fmt.Errorf("%s: feature is required", s.Op)
		}
		return nil
	case OpAnnotate:
		if s.Node == "" || len(s.Nodes) == 0 {
			return fmt.Errorf("annotate: node and nodes are required")
		}
		return nil
	case OpReplace:
		if s.Node == "" || s.Index == nil || s.With == "" {
			return fmt.Errorf("replace: node, index and with are required")
		}
		return nil
	case OpResolveInfo:
		if s.Node == "" || s.Feature == "" || s.Index == nil {
			return fmt.Errorf("resolve_info: node, feature and index are required")
		}
		return nil
	case OpMoveReference:
		if s.Node == "" || s.Feature == "" || s.Index == nil || s.To == nil {
			return fmt.Errorf("move_reference: node, feature, index and to are required")
		}
		return nil
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceKinds:
		if a.Kinds == nil {
			return fmt.Errorf("assertions[%d]: kinds is required for trace_kinds", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertProperty, AssertChildren, AssertReferences:
		if a.Node == "" || a.Feature == "" {
			return fmt.Errorf("assertions[%d]: node and feature are required for %s", index, a.Type)
		}
	case AssertAnnotations:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for annotations", index)
		}
	case AssertAbsent:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes is required for absent", index)
		}
	case AssertSuppressed:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for suppressed", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
