package language

import (
	"fmt"

	"github.com/roach88/modelsync/internal/ir"
)

// ClassifierKind distinguishes concepts, interfaces and annotations.
type ClassifierKind int

const (
	KindConcept ClassifierKind = iota + 1
	KindInterface
	KindAnnotation
)

func (k ClassifierKind) String() string {
	switch k {
	case KindConcept:
		return "concept"
	case KindInterface:
		return "interface"
	case KindAnnotation:
		return "annotation"
	default:
		return fmt.Sprintf("ClassifierKind(%d)", int(k))
	}
}

// FeatureKind is the closed set of feature variants.
type FeatureKind int

const (
	Property FeatureKind = iota + 1
	Containment
	Reference
)

func (k FeatureKind) String() string {
	switch k {
	case Property:
		return "property"
	case Containment:
		return "containment"
	case Reference:
		return "reference"
	default:
		return fmt.Sprintf("FeatureKind(%d)", int(k))
	}
}

// DatatypeKind identifies how property values are validated.
type DatatypeKind int

const (
	KindString DatatypeKind = iota + 1
	KindInteger
	KindBoolean
	KindJSON
	KindEnumeration
)

// Datatype describes the values a property accepts.
type Datatype struct {
	Key      string
	Name     string
	Kind     DatatypeKind
	Literals []string // enumeration literals, in declaration order
}

// Built-in datatypes available to every language.
var (
	String  = &Datatype{Key: "builtin-String", Name: "String", Kind: KindString}
	Integer = &Datatype{Key: "builtin-Integer", Name: "Integer", Kind: KindInteger}
	Boolean = &Datatype{Key: "builtin-Boolean", Name: "Boolean", Kind: KindBoolean}
	JSON    = &Datatype{Key: "builtin-JSON", Name: "JSON", Kind: KindJSON}
)

var builtins = []*Datatype{String, Integer, Boolean, JSON}

// Accepts reports whether v is a valid value of the datatype.
func (d *Datatype) Accepts(v ir.Value) bool {
	switch d.Kind {
	case KindString:
		_, ok := v.(ir.String)
		return ok
	case KindInteger:
		_, ok := v.(ir.Int)
		return ok
	case KindBoolean:
		_, ok := v.(ir.Bool)
		return ok
	case KindJSON:
		return v != nil
	case KindEnumeration:
		s, ok := v.(ir.String)
		if !ok {
			return false
		}
		for _, lit := range d.Literals {
			if lit == string(s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Feature is a property, containment or reference slot declared by a classifier.
type Feature struct {
	Key      string
	Name     string
	Kind     FeatureKind
	Optional bool
	Multiple bool

	// Datatype is set for properties, Target for containments and references.
	Datatype *Datatype
	Target   *Classifier

	Owner *Classifier
}

// IsLink reports whether the feature is a containment or a reference.
func (f *Feature) IsLink() bool {
	return f.Kind == Containment || f.Kind == Reference
}

func (f *Feature) String() string {
	if f.Owner != nil {
		return f.Owner.Name + "." + f.Name
	}
	return f.Name
}

// Classifier is the schema type of a node.
type Classifier struct {
	Key        string
	Name       string
	Kind       ClassifierKind
	Partition  bool
	Abstract   bool
	Extends    *Classifier
	Implements []*Classifier
	Annotates  *Classifier // annotations only; nil accepts any classifier
	Features   []*Feature  // own features, in declaration order

	Language *Language
}

func (c *Classifier) String() string {
	return c.Name
}

// supers returns the direct supertypes: extends first, then implements.
func (c *Classifier) supers() []*Classifier {
	out := make([]*Classifier, 0, 1+len(c.Implements))
	if c.Extends != nil {
		out = append(out, c.Extends)
	}
	return append(out, c.Implements...)
}

// AllFeatures returns own and inherited features. Own features come first;
// when a key is reachable twice the first declaration wins.
func (c *Classifier) AllFeatures() []*Feature {
	var out []*Feature
	seenFeature := make(map[string]bool)
	seenClassifier := make(map[*Classifier]bool)

	var walk func(*Classifier)
	walk = func(k *Classifier) {
		if k == nil || seenClassifier[k] {
			return
		}
		seenClassifier[k] = true
		for _, f := range k.Features {
			if !seenFeature[f.Key] {
				seenFeature[f.Key] = true
				out = append(out, f)
			}
		}
		for _, s := range k.supers() {
			walk(s)
		}
	}
	walk(c)
	return out
}

// Declares reports whether f belongs to the classifier lineage.
func (c *Classifier) Declares(f *Feature) bool {
	if f == nil || f.Owner == nil {
		return false
	}
	return c.IsA(f.Owner)
}

// FeatureByKey finds a feature by key within the lineage.
func (c *Classifier) FeatureByKey(key string) *Feature {
	for _, f := range c.AllFeatures() {
		if f.Key == key {
			return f
		}
	}
	return nil
}

// FeatureNamed finds a feature by name within the lineage.
func (c *Classifier) FeatureNamed(name string) *Feature {
	for _, f := range c.AllFeatures() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsA reports whether c equals super or inherits from it.
func (c *Classifier) IsA(super *Classifier) bool {
	if c == nil || super == nil {
		return false
	}
	if c == super {
		return true
	}
	for _, s := range c.supers() {
		if s.IsA(super) {
			return true
		}
	}
	return false
}

// AnnotationAccepts reports whether an annotation of classifier c may be
// attached to a node of classifier target. The annotated classifier is
// inherited through extends.
func (c *Classifier) AnnotationAccepts(target *Classifier) bool {
	if c.Kind != KindAnnotation {
		return false
	}
	for a := c; a != nil; a = a.Extends {
		if a.Annotates != nil {
			return target.IsA(a.Annotates)
		}
	}
	return true
}

// Language is an immutable collection of classifiers and datatypes.
type Language struct {
	Key         string
	Version     string
	Classifiers []*Classifier
	Datatypes   []*Datatype

	classifiers map[string]*Classifier
	datatypes   map[string]*Datatype
	features    map[string]*Feature
}

// Classifier returns the classifier with the given key, or nil.
func (l *Language) Classifier(key string) *Classifier {
	return l.classifiers[key]
}

// ClassifierNamed returns the classifier with the given name, or nil.
func (l *Language) ClassifierNamed(name string) *Classifier {
	for _, c := range l.Classifiers {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Datatype returns the datatype with the given key (built-ins included), or nil.
func (l *Language) Datatype(key string) *Datatype {
	if d, ok := l.datatypes[key]; ok {
		return d
	}
	for _, b := range builtins {
		if b.Key == key {
			return b
		}
	}
	return nil
}

// Feature returns the feature with the given key, or nil.
func (l *Language) Feature(key string) *Feature {
	return l.features[key]
}
