package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/model"
	"github.com/roach88/modelsync/internal/replicator"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		cause, _ := event.Body.GetString("cause")
		fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Kind, cause)
	}
	return buf.String()
}

// EvaluateAssertions runs all assertions against the trace and the mirror
// and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, mirror *replicator.Replicator) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, mirror); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, mirror *replicator.Replicator) error {
	switch a.Type {
	case AssertTraceKinds:
		return assertTraceKinds(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertSuppressed:
		if result.Suppressed != a.Count {
			return &AssertionError{
				Type:     AssertSuppressed,
				Expected: fmt.Sprintf("%d suppressed", a.Count),
				Actual:   fmt.Sprintf("%d suppressed", result.Suppressed),
				Trace:    result.Trace,
			}
		}
		return nil
	case AssertAbsent:
		return assertAbsent(result.Trace, a, mirror)
	}

	n, err := mirror.Registry().Lookup(a.Node)
	if err != nil {
		return err
	}
	switch a.Type {
	case AssertProperty:
		return assertProperty(result.Trace, a, n)
	case AssertChildren:
		f := n.Classifier().FeatureNamed(a.Feature)
		kids, err := n.Children(f)
		if err != nil {
			return err
		}
		return compareIDs(result.Trace, a.Type, a.Nodes, nodeIDs(kids))
	case AssertAnnotations:
		return compareIDs(result.Trace, a.Type, a.Nodes, nodeIDs(n.Annotations()))
	case AssertReferences:
		f := n.Classifier().FeatureNamed(a.Feature)
		refs, err := n.References(f)
		if err != nil {
			return err
		}
		ids := make([]string, len(refs))
		for i, r := range refs {
			ids[i] = r.ID()
		}
		return compareIDs(result.Trace, a.Type, a.Targets, ids)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertTraceKinds checks the exact sequence of wire kinds.
func assertTraceKinds(trace []TraceEvent, a Assertion) error {
	got := make([]string, len(trace))
	for i, e := range trace {
		got[i] = e.Kind
	}
	if slices.Equal(got, a.Kinds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceKinds,
		Expected: fmt.Sprintf("%v", a.Kinds),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

// assertTraceCount counts atomic notifications of a kind, looking inside
// composites.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	if model.ParseKind(a.Kind) == model.KindUnknown {
		return fmt.Errorf("unknown notification kind %q", a.Kind)
	}
	count := 0
	for _, e := range trace {
		for _, k := range e.Parts {
			if k == a.Kind {
				count++
			}
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s appears %d times", a.Kind, a.Count),
		Actual:   fmt.Sprintf("%s appears %d times", a.Kind, count),
		Trace:    trace,
	}
}

func assertProperty(trace []TraceEvent, a Assertion, n *model.Node) error {
	f := n.Classifier().FeatureNamed(a.Feature)
	if a.Value == nil {
		if f != nil && !n.IsSet(f) {
			return nil
		}
		return &AssertionError{
			Type:     AssertProperty,
			Expected: fmt.Sprintf("%s.%s unset", a.Node, a.Feature),
			Actual:   "set",
			Trace:    trace,
		}
	}
	want, err := ir.FromGo(a.Value)
	if err != nil {
		return err
	}
	got, err := n.Property(f)
	if err != nil {
		return err
	}
	if ir.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertProperty,
		Expected: fmt.Sprintf("%s.%s = %v", a.Node, a.Feature, want),
		Actual:   fmt.Sprintf("%s.%s = %v", a.Node, a.Feature, got),
		Trace:    trace,
	}
}

func assertAbsent(trace []TraceEvent, a Assertion, mirror *replicator.Replicator) error {
	var present []string
	for _, id := range a.Nodes {
		if mirror.Registry().LookupOptional(id) != nil {
			present = append(present, id)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertAbsent,
		Expected: fmt.Sprintf("%v unknown to the mirror", a.Nodes),
		Actual:   fmt.Sprintf("%v still registered", present),
		Trace:    trace,
	}
}

func compareIDs(trace []TraceEvent, typ string, want, got []string) error {
	if slices.Equal(want, got) || len(want) == 0 && len(got) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

func nodeIDs(nodes []*model.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}
