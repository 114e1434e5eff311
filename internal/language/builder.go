package language

import "fmt"

// FeatureOption configures a feature at declaration time.
type FeatureOption func(*Feature)

// Optional marks the feature as optional.
func Optional() FeatureOption {
	return func(f *Feature) { f.Optional = true }
}

// Multiple marks the feature as multi-valued.
func Multiple() FeatureOption {
	return func(f *Feature) { f.Multiple = true }
}

// WithKey overrides the derived "<Classifier>-<name>" feature key.
func WithKey(key string) FeatureOption {
	return func(f *Feature) { f.Key = key }
}

// NewLanguage creates an empty language.
func NewLanguage(key, version string) *Language {
	return &Language{
		Key:         key,
		Version:     version,
		classifiers: make(map[string]*Classifier),
		datatypes:   make(map[string]*Datatype),
		features:    make(map[string]*Feature),
	}
}

// Concept declares a concept classifier.
func (l *Language) Concept(name string) *Classifier {
	return l.addClassifier(name, KindConcept)
}

// Interface declares an interface classifier.
func (l *Language) Interface(name string) *Classifier {
	return l.addClassifier(name, KindInterface)
}

// Annotation declares an annotation classifier. A nil annotates accepts any node.
func (l *Language) Annotation(name string, annotates *Classifier) *Classifier {
	c := l.addClassifier(name, KindAnnotation)
	c.Annotates = annotates
	return c
}

// Enumeration declares an enumeration datatype.
func (l *Language) Enumeration(name string, literals ...string) *Datatype {
	if _, dup := l.datatypes[name]; dup {
		panic(fmt.Sprintf("language %s: duplicate datatype %q", l.Key, name))
	}
	d := &Datatype{Key: name, Name: name, Kind: KindEnumeration, Literals: literals}
	l.datatypes[name] = d
	l.Datatypes = append(l.Datatypes, d)
	return d
}

func (l *Language) addClassifier(name string, kind ClassifierKind) *Classifier {
	if _, dup := l.classifiers[name]; dup {
		panic(fmt.Sprintf("language %s: duplicate classifier %q", l.Key, name))
	}
	c := &Classifier{Key: name, Name: name, Kind: kind, Language: l}
	l.classifiers[name] = c
	l.Classifiers = append(l.Classifiers, c)
	return c
}

// Property declares a property feature on c.
func (c *Classifier) Property(name string, dt *Datatype, opts ...FeatureOption) *Feature {
	f := c.addFeature(name, Property, opts)
	f.Datatype = dt
	return f
}

// Containment declares a containment feature on c.
func (c *Classifier) Containment(name string, target *Classifier, opts ...FeatureOption) *Feature {
	f := c.addFeature(name, Containment, opts)
	f.Target = target
	return f
}

// Reference declares a reference feature on c.
func (c *Classifier) Reference(name string, target *Classifier, opts ...FeatureOption) *Feature {
	f := c.addFeature(name, Reference, opts)
	f.Target = target
	return f
}

func (c *Classifier) addFeature(name string, kind FeatureKind, opts []FeatureOption) *Feature {
	f := &Feature{Key: c.Name + "-" + name, Name: name, Kind: kind, Owner: c}
	for _, opt := range opts {
		opt(f)
	}
	if l := c.Language; l != nil {
		if _, dup := l.features[f.Key]; dup {
			panic(fmt.Sprintf("language %s: duplicate feature key %q", l.Key, f.Key))
		}
		l.features[f.Key] = f
	}
	c.Features = append(c.Features, f)
	return f
}
