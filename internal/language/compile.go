package language

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// classifierSections lists the CUE sections that declare classifiers.
var classifierSections = []struct {
	name string
	kind ClassifierKind
}{
	{"concept", KindConcept},
	{"interface", KindInterface},
	{"annotation", KindAnnotation},
}

// featureSections lists the CUE sections that declare features.
var featureSections = []struct {
	name string
	kind FeatureKind
}{
	{"property", Property},
	{"containment", Containment},
	{"reference", Reference},
}

// LoadFile compiles the single language declared in a .cue file.
func LoadFile(path string) (*Language, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load language: %w", err)
	}
	return CompileString(string(data), path)
}

// CompileString compiles the single language declared under the top-level
// "language" struct of src.
func CompileString(src, filename string) (*Language, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	langs := v.LookupPath(cue.ParsePath("language"))
	if !langs.Exists() {
		return nil, &CompileError{Field: "language", Message: "language is required", Pos: v.Pos()}
	}
	iter, err := langs.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var found []cue.Value
	for iter.Next() {
		found = append(found, iter.Value())
	}
	if len(found) != 1 {
		return nil, &CompileError{
			Field:   "language",
			Message: fmt.Sprintf("exactly one language must be declared, found %d", len(found)),
			Pos:     langs.Pos(),
		}
	}
	return Compile(found[0])
}

// Compile builds a Language from a CUE value holding one language struct.
// The language key is the struct label unless an explicit key is given.
//
// Classifiers are created in a first pass so features and supertypes may
// refer to classifiers declared later in the file.
func Compile(v cue.Value) (*Language, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	key := ""
	if sels := v.Path().Selectors(); len(sels) > 0 {
		key = sels[len(sels)-1].String()
	}
	if k, ok, err := optString(v, "key"); err != nil {
		return nil, err
	} else if ok {
		key = k
	}
	if key == "" {
		return nil, &CompileError{Field: "key", Message: "language key is required", Pos: v.Pos()}
	}
	version, _, err := optString(v, "version")
	if err != nil {
		return nil, err
	}

	l := NewLanguage(key, version)

	if err := compileEnumerations(l, v); err != nil {
		return nil, err
	}

	decls := make(map[*Classifier]cue.Value)
	for _, section := range classifierSections {
		sv := v.LookupPath(cue.ParsePath(section.name))
		if !sv.Exists() {
			continue
		}
		iter, err := sv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name := iter.Label()
			if l.classifiers[name] != nil {
				return nil, &CompileError{
					Field:   section.name + "." + name,
					Message: "duplicate classifier name",
					Pos:     iter.Value().Pos(),
				}
			}
			c := l.addClassifier(name, section.kind)
			decls[c] = iter.Value()
		}
	}

	for _, c := range l.Classifiers {
		if err := compileClassifier(l, c, decls[c]); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func compileEnumerations(l *Language, v cue.Value) error {
	ev := v.LookupPath(cue.ParsePath("enumeration"))
	if !ev.Exists() {
		return nil
	}
	iter, err := ev.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		list, err := iter.Value().List()
		if err != nil {
			return formatCUEError(err)
		}
		var literals []string
		for list.Next() {
			lit, err := list.Value().String()
			if err != nil {
				return formatCUEError(err)
			}
			literals = append(literals, lit)
		}
		if len(literals) == 0 {
			return &CompileError{Field: "enumeration." + name, Message: "at least one literal is required", Pos: iter.Value().Pos()}
		}
		if l.datatypes[name] != nil {
			return &CompileError{Field: "enumeration." + name, Message: "duplicate enumeration", Pos: iter.Value().Pos()}
		}
		l.Enumeration(name, literals...)
	}
	return nil
}

func compileClassifier(l *Language, c *Classifier, v cue.Value) error {
	field := c.Kind.String() + "." + c.Name

	partition, err := optBool(v, "partition")
	if err != nil {
		return err
	}
	if partition && c.Kind != KindConcept {
		return &CompileError{Field: field, Message: "only concepts can be partitions", Pos: v.Pos()}
	}
	c.Partition = partition

	if c.Abstract, err = optBool(v, "abstract"); err != nil {
		return err
	}

	if name, ok, err := optString(v, "extends"); err != nil {
		return err
	} else if ok {
		super := l.classifiers[name]
		if super == nil {
			return &CompileError{Field: field + ".extends", Message: fmt.Sprintf("unknown classifier %q", name), Pos: v.Pos()}
		}
		if super.Kind != c.Kind || c.Kind == KindInterface {
			return &CompileError{Field: field + ".extends", Message: fmt.Sprintf("%s cannot extend %s %s", c.Kind, super.Kind, name), Pos: v.Pos()}
		}
		if super.IsA(c) {
			return &CompileError{Field: field + ".extends", Message: "inheritance cycle", Pos: v.Pos()}
		}
		c.Extends = super
	}

	implements, err := optStrings(v, "implements")
	if err != nil {
		return err
	}
	for _, name := range implements {
		iface := l.classifiers[name]
		if iface == nil || iface.Kind != KindInterface {
			return &CompileError{Field: field + ".implements", Message: fmt.Sprintf("unknown interface %q", name), Pos: v.Pos()}
		}
		if iface.IsA(c) {
			return &CompileError{Field: field + ".implements", Message: "inheritance cycle", Pos: v.Pos()}
		}
		c.Implements = append(c.Implements, iface)
	}

	if name, ok, err := optString(v, "annotates"); err != nil {
		return err
	} else if ok {
		if c.Kind != KindAnnotation {
			return &CompileError{Field: field + ".annotates", Message: "only annotations declare annotates", Pos: v.Pos()}
		}
		target := l.classifiers[name]
		if target == nil {
			return &CompileError{Field: field + ".annotates", Message: fmt.Sprintf("unknown classifier %q", name), Pos: v.Pos()}
		}
		c.Annotates = target
	}

	for _, section := range featureSections {
		sv := v.LookupPath(cue.ParsePath(section.name))
		if !sv.Exists() {
			continue
		}
		iter, err := sv.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			if err := compileFeature(l, c, section.kind, iter.Label(), iter.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

func compileFeature(l *Language, c *Classifier, kind FeatureKind, name string, v cue.Value) error {
	field := c.Name + "." + kind.String() + "." + name

	typeName, ok, err := optString(v, "type")
	if err != nil {
		return err
	}
	if !ok {
		return &CompileError{Field: field, Message: "type is required", Pos: v.Pos()}
	}

	var opts []FeatureOption
	if optional, err := optBool(v, "optional"); err != nil {
		return err
	} else if optional {
		opts = append(opts, Optional())
	}
	multiple, err := optBool(v, "multiple")
	if err != nil {
		return err
	}
	if multiple {
		if kind == Property {
			return &CompileError{Field: field, Message: "properties cannot be multiple", Pos: v.Pos()}
		}
		opts = append(opts, Multiple())
	}
	if key, ok, err := optString(v, "key"); err != nil {
		return err
	} else if ok {
		opts = append(opts, WithKey(key))
	}

	var probe Feature
	for _, opt := range opts {
		opt(&probe)
	}
	if probe.Key == "" {
		probe.Key = c.Name + "-" + name
	}
	if l.features[probe.Key] != nil {
		return &CompileError{Field: field, Message: fmt.Sprintf("duplicate feature key %q", probe.Key), Pos: v.Pos()}
	}

	switch kind {
	case Property:
		dt := l.datatypes[typeName]
		if dt == nil {
			for _, b := range builtins {
				if b.Name == typeName {
					dt = b
				}
			}
		}
		if dt == nil {
			return &CompileError{Field: field, Message: fmt.Sprintf("unknown datatype %q", typeName), Pos: v.Pos()}
		}
		c.Property(name, dt, opts...)
	default:
		target := l.classifiers[typeName]
		if target == nil {
			return &CompileError{Field: field, Message: fmt.Sprintf("unknown classifier %q", typeName), Pos: v.Pos()}
		}
		if target.Kind == KindAnnotation {
			return &CompileError{Field: field, Message: "links cannot target annotations", Pos: v.Pos()}
		}
		if kind == Containment {
			c.Containment(name, target, opts...)
		} else {
			c.Reference(name, target, opts...)
		}
	}
	return nil
}

func optString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
