package codec

import (
	"fmt"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
)

// Decoder rebuilds notifications against a language. Nodes that an
// encoded notification names by {id, classifier} come back as detached
// stand-ins carrying only id and classifier; embedded subtrees come back as
// detached trees. A replicator maps both to its own nodes by id.
type Decoder struct {
	Language *language.Language
}

// Unmarshal parses canonical JSON produced by Marshal.
func (d Decoder) Unmarshal(data []byte) (model.Notification, error) {
	v, err := ir.Unmarshal(data)
	if err != nil {
		return nil, &CodecError{Code: ErrCodeMalformed, Message: err.Error()}
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, &CodecError{Code: ErrCodeMalformed, Message: fmt.Sprintf("expected object, got %T", v)}
	}
	return d.Decode(obj)
}

// Decode converts a wire object back into a notification.
func (d Decoder) Decode(obj ir.Object) (model.Notification, error) {
	if d.Language == nil {
		return nil, fmt.Errorf("decode: decoder has no language")
	}
	dec := &decoder{lang: d.Language, refs: make(map[string]*model.Node)}
	return dec.decode(obj)
}

// decoder reads one wire object and keeps the first error. Stand-ins are
// shared across the parts of a composite.
type decoder struct {
	lang *language.Language
	refs map[string]*model.Node

	kind string
	obj  ir.Object
	err  error
}

func (d *decoder) decode(obj ir.Object) (model.Notification, error) {
	name, err := obj.GetString("kind")
	if err != nil {
		return nil, &CodecError{Code: ErrCodeMalformed, Field: "kind", Message: err.Error()}
	}
	kind := model.ParseKind(name)
	if kind == model.KindUnknown {
		return nil, &CodecError{Code: ErrCodeUnknownKind, Kind: name, Message: "kind is not in the catalog"}
	}

	if kind == model.KindComposite {
		arr, err := obj.GetArray("parts")
		if err != nil {
			return nil, &CodecError{Code: ErrCodeMalformed, Kind: name, Field: "parts", Message: err.Error()}
		}
		parts := make([]model.Notification, 0, len(arr))
		for i, v := range arr {
			po, ok := v.(ir.Object)
			if !ok {
				return nil, &CodecError{Code: ErrCodeMalformed, Kind: name, Field: fmt.Sprintf("parts[%d]", i), Message: "expected object"}
			}
			p, err := d.decode(po)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		return model.NewComposite(parts...), nil
	}

	d.kind, d.obj, d.err = name, obj, nil
	n := d.build(kind, model.Header{ID: model.CausalID(d.str("cause")), Context: d.str("context")})
	if d.err != nil {
		return nil, d.err
	}
	return n, nil
}

func (d *decoder) build(kind model.Kind, h model.Header) model.Notification {
	switch kind {
	case model.KindPropertyAdded:
		return &model.PropertyAdded{Header: h, Node: d.node("node"), Property: d.feature("property"), New: d.value("new")}
	case model.KindPropertyDeleted:
		return &model.PropertyDeleted{Header: h, Node: d.node("node"), Property: d.feature("property"), Old: d.value("old")}
	case model.KindPropertyChanged:
		return &model.PropertyChanged{Header: h, Node: d.node("node"), Property: d.feature("property"),
			Old: d.value("old"), New: d.value("new")}

	case model.KindChildAdded:
		return &model.ChildAdded{Header: h, Parent: d.node("parent"), Containment: d.feature("containment"),
			Index: d.index("index"), NewChild: d.tree("newChild")}
	case model.KindChildDeleted:
		return &model.ChildDeleted{Header: h, Parent: d.node("parent"), Containment: d.feature("containment"),
			Index: d.index("index"), DeletedChild: d.node("deletedChild")}
	case model.KindChildReplaced:
		return &model.ChildReplaced{Header: h, Parent: d.node("parent"), Containment: d.feature("containment"),
			Index: d.index("index"), NewChild: d.tree("newChild"), ReplacedChild: d.node("replacedChild")}
	case model.KindChildMovedFromOtherContainment:
		return &model.ChildMovedFromOtherContainment{Header: h,
			OldParent: d.node("oldParent"), OldContainment: d.feature("oldContainment"), OldIndex: d.index("oldIndex"),
			NewParent: d.node("newParent"), NewContainment: d.feature("newContainment"), NewIndex: d.index("newIndex"),
			MovedChild: d.node("movedChild")}
	case model.KindChildMovedFromOtherContainmentInSameParent:
		return &model.ChildMovedFromOtherContainmentInSameParent{Header: h, Parent: d.node("parent"),
			OldContainment: d.feature("oldContainment"), OldIndex: d.index("oldIndex"),
			NewContainment: d.feature("newContainment"), NewIndex: d.index("newIndex"),
			MovedChild: d.node("movedChild")}
	case model.KindChildMovedInSameContainment:
		return &model.ChildMovedInSameContainment{Header: h, Parent: d.node("parent"), Containment: d.feature("containment"),
			OldIndex: d.index("oldIndex"), NewIndex: d.index("newIndex"), MovedChild: d.node("movedChild")}
	case model.KindChildMovedAndReplacedFromOtherContainment:
		return &model.ChildMovedAndReplacedFromOtherContainment{Header: h,
			OldParent: d.node("oldParent"), OldContainment: d.feature("oldContainment"), OldIndex: d.index("oldIndex"),
			NewParent: d.node("newParent"), NewContainment: d.feature("newContainment"), NewIndex: d.index("newIndex"),
			MovedChild: d.node("movedChild"), ReplacedChild: d.node("replacedChild")}
	case model.KindChildMovedAndReplacedFromOtherContainmentInSameParent:
		return &model.ChildMovedAndReplacedFromOtherContainmentInSameParent{Header: h, Parent: d.node("parent"),
			OldContainment: d.feature("oldContainment"), OldIndex: d.index("oldIndex"),
			NewContainment: d.feature("newContainment"), NewIndex: d.index("newIndex"),
			MovedChild: d.node("movedChild"), ReplacedChild: d.node("replacedChild")}
	case model.KindChildMovedAndReplacedInSameContainment:
		return &model.ChildMovedAndReplacedInSameContainment{Header: h, Parent: d.node("parent"),
			Containment: d.feature("containment"), OldIndex: d.index("oldIndex"), NewIndex: d.index("newIndex"),
			MovedChild: d.node("movedChild"), ReplacedChild: d.node("replacedChild")}

	case model.KindAnnotationAdded:
		return &model.AnnotationAdded{Header: h, Parent: d.node("parent"), Index: d.index("index"),
			NewAnnotation: d.tree("newAnnotation")}
	case model.KindAnnotationDeleted:
		return &model.AnnotationDeleted{Header: h, Parent: d.node("parent"), Index: d.index("index"),
			DeletedAnnotation: d.node("deletedAnnotation")}
	case model.KindAnnotationReplaced:
		return &model.AnnotationReplaced{Header: h, Parent: d.node("parent"), Index: d.index("index"),
			NewAnnotation: d.tree("newAnnotation"), ReplacedAnnotation: d.node("replacedAnnotation")}
	case model.KindAnnotationMovedFromOtherParent:
		return &model.AnnotationMovedFromOtherParent{Header: h,
			OldParent: d.node("oldParent"), OldIndex: d.index("oldIndex"),
			NewParent: d.node("newParent"), NewIndex: d.index("newIndex"),
			MovedAnnotation: d.node("movedAnnotation")}
	case model.KindAnnotationMovedInSameParent:
		return &model.AnnotationMovedInSameParent{Header: h, Parent: d.node("parent"),
			OldIndex: d.index("oldIndex"), NewIndex: d.index("newIndex"), MovedAnnotation: d.node("movedAnnotation")}
	case model.KindAnnotationMovedAndReplacedFromOtherParent:
		return &model.AnnotationMovedAndReplacedFromOtherParent{Header: h,
			OldParent: d.node("oldParent"), OldIndex: d.index("oldIndex"),
			NewParent: d.node("newParent"), NewIndex: d.index("newIndex"),
			MovedAnnotation: d.node("movedAnnotation"), ReplacedAnnotation: d.node("replacedAnnotation")}
	case model.KindAnnotationMovedAndReplacedInSameParent:
		return &model.AnnotationMovedAndReplacedInSameParent{Header: h, Parent: d.node("parent"),
			OldIndex: d.index("oldIndex"), NewIndex: d.index("newIndex"),
			MovedAnnotation: d.node("movedAnnotation"), ReplacedAnnotation: d.node("replacedAnnotation")}

	case model.KindReferenceAdded:
		return &model.ReferenceAdded{Header: h, Parent: d.node("parent"), Reference: d.feature("reference"),
			Index: d.index("index"), NewTarget: d.target("newTarget")}
	case model.KindReferenceDeleted:
		return &model.ReferenceDeleted{Header: h, Parent: d.node("parent"), Reference: d.feature("reference"),
			Index: d.index("index"), DeletedTarget: d.target("deletedTarget")}
	case model.KindReferenceChanged:
		return &model.ReferenceChanged{Header: h, Parent: d.node("parent"), Reference: d.feature("reference"),
			Index: d.index("index"), NewTarget: d.target("newTarget"), OldTarget: d.target("oldTarget")}
	case model.KindEntryMovedFromOtherReference:
		return &model.EntryMovedFromOtherReference{Header: h,
			OldParent: d.node("oldParent"), OldReference: d.feature("oldReference"), OldIndex: d.index("oldIndex"),
			NewParent: d.node("newParent"), NewReference: d.feature("newReference"), NewIndex: d.index("newIndex"),
			Target: d.target("target")}
	case model.KindEntryMovedFromOtherReferenceInSameParent:
		return &model.EntryMovedFromOtherReferenceInSameParent{Header: h, Parent: d.node("parent"),
			OldReference: d.feature("oldReference"), OldIndex: d.index("oldIndex"),
			NewReference: d.feature("newReference"), NewIndex: d.index("newIndex"),
			Target: d.target("target")}
	case model.KindEntryMovedInSameReference:
		return &model.EntryMovedInSameReference{Header: h, Parent: d.node("parent"), Reference: d.feature("reference"),
			OldIndex: d.index("oldIndex"), NewIndex: d.index("newIndex"), Target: d.target("target")}
	case model.KindEntryMovedAndReplacedFromOtherReference:
		return &model.EntryMovedAndReplacedFromOtherReference{Header: h,
			OldParent: d.node("oldParent"), OldReference: d.feature("oldReference"), OldIndex: d.index("oldIndex"),
			NewParent: d.node("newParent"), NewReference: d.feature("newReference"), NewIndex: d.index("newIndex"),
			Target: d.target("target"), ReplacedTarget: d.target("replacedTarget")}
	case model.KindEntryMovedAndReplacedFromOtherReferenceInSameParent:
		return &model.EntryMovedAndReplacedFromOtherReferenceInSameParent{Header: h, Parent: d.node("parent"),
			OldReference: d.feature("oldReference"), OldIndex: d.index("oldIndex"),
			NewReference: d.feature("newReference"), NewIndex: d.index("newIndex"),
			Target: d.target("target"), ReplacedTarget: d.target("replacedTarget")}
	case model.KindEntryMovedAndReplacedInSameReference:
		return &model.EntryMovedAndReplacedInSameReference{Header: h, Parent: d.node("parent"),
			Reference: d.feature("reference"), OldIndex: d.index("oldIndex"), NewIndex: d.index("newIndex"),
			Target: d.target("target"), ReplacedTarget: d.target("replacedTarget")}
	case model.KindReferenceResolveInfoAdded:
		return &model.ReferenceResolveInfoAdded{Header: h, Parent: d.node("parent"), Reference: d.feature("reference"),
			Index: d.index("index"), Target: d.target("target"), NewResolveInfo: d.str("newResolveInfo")}
	case model.KindReferenceResolveInfoDeleted:
		return &model.ReferenceResolveInfoDeleted{Header: h, Parent: d.node("parent"), Reference: d.feature("reference"),
			Index: d.index("index"), Target: d.target("target"), DeletedResolveInfo: d.str("deletedResolveInfo")}
	case model.KindReferenceResolveInfoChanged:
		return &model.ReferenceResolveInfoChanged{Header: h, Parent: d.node("parent"), Reference: d.feature("reference"),
			Index: d.index("index"), Target: d.target("target"),
			NewResolveInfo: d.str("newResolveInfo"), OldResolveInfo: d.str("oldResolveInfo")}
	}

	d.fail(ErrCodeUnknownKind, "", "kind is not decodable")
	return nil
}

func (d *decoder) fail(code ErrorCode, field, msg string) {
	if d.err == nil {
		d.err = &CodecError{Code: code, Kind: d.kind, Field: field, Message: msg}
	}
}

func (d *decoder) str(key string) string {
	s, err := d.obj.GetString(key)
	if err != nil {
		d.fail(ErrCodeMalformed, key, err.Error())
	}
	return s
}

func (d *decoder) index(key string) int {
	i, err := d.obj.GetInt(key)
	if err != nil {
		d.fail(ErrCodeMalformed, key, err.Error())
	}
	return i
}

func (d *decoder) value(key string) ir.Value {
	v, ok := d.obj[key]
	if !ok {
		d.fail(ErrCodeMalformed, key, "missing value")
	}
	return v
}

func (d *decoder) feature(key string) *language.Feature {
	k, err := d.obj.GetString(key)
	if err != nil {
		d.fail(ErrCodeMalformed, key, err.Error())
		return nil
	}
	f := d.lang.Feature(k)
	if f == nil {
		d.fail(ErrCodeUnknownFeature, key, fmt.Sprintf("feature %s is not part of language %s", k, d.lang.Key))
	}
	return f
}

func (d *decoder) classifier(field string, obj ir.Object) *language.Classifier {
	k, err := obj.GetString("classifier")
	if err != nil {
		d.fail(ErrCodeMalformed, field, err.Error())
		return nil
	}
	c := d.lang.Classifier(k)
	if c == nil {
		d.fail(ErrCodeUnknownClassifier, field, fmt.Sprintf("classifier %s is not part of language %s", k, d.lang.Key))
	}
	return c
}

// node returns the stand-in for an existing node.
func (d *decoder) node(key string) *model.Node {
	obj, err := d.obj.GetObject(key)
	if err != nil {
		d.fail(ErrCodeMalformed, key, err.Error())
		return nil
	}
	id, err := obj.GetString("id")
	if err != nil {
		d.fail(ErrCodeMalformed, key, err.Error())
		return nil
	}
	if n, ok := d.refs[id]; ok {
		return n
	}
	c := d.classifier(key, obj)
	if c == nil {
		return nil
	}
	n := model.NewNode(id, c)
	d.refs[id] = n
	return n
}

func (d *decoder) target(key string) model.ReferenceTarget {
	obj, err := d.obj.GetObject(key)
	if err != nil {
		d.fail(ErrCodeMalformed, key, err.Error())
		return model.ReferenceTarget{}
	}
	return decodeTarget(obj)
}

func decodeTarget(obj ir.Object) model.ReferenceTarget {
	id, _ := obj.GetString("id")
	info, _ := obj.GetString("resolveInfo")
	return model.RefInfo(id, info)
}

// tree rebuilds an embedded subtree. References between members of the
// subtree point at the rebuilt nodes; the others keep only id and resolve
// info.
func (d *decoder) tree(key string) *model.Node {
	obj, err := d.obj.GetObject(key)
	if err != nil {
		d.fail(ErrCodeMalformed, key, err.Error())
		return nil
	}
	t := &treeBuilder{d: d, field: key, built: make(map[string]*model.Node)}
	root := t.build(obj)
	if d.err != nil {
		return nil
	}
	t.link()
	if d.err != nil {
		return nil
	}
	return root
}

type pendingRefs struct {
	node    *model.Node
	feature *language.Feature
	entries ir.Array
}

type treeBuilder struct {
	d       *decoder
	field   string
	built   map[string]*model.Node
	pending []pendingRefs
}

func (t *treeBuilder) malformed(err error) {
	t.d.fail(ErrCodeMalformed, t.field, err.Error())
}

func (t *treeBuilder) build(obj ir.Object) *model.Node {
	id, err := obj.GetString("id")
	if err != nil {
		t.malformed(err)
		return nil
	}
	c := t.d.classifier(t.field, obj)
	if c == nil {
		return nil
	}
	n := model.NewNode(id, c)
	t.built[id] = n

	if props, ok := obj["properties"].(ir.Object); ok {
		for _, k := range props.SortedKeys() {
			f := t.featureOf(k)
			if f == nil {
				return nil
			}
			if err := n.SetProperty(f, props[k]); err != nil {
				t.malformed(err)
				return nil
			}
		}
	}
	if kids, ok := obj["containments"].(ir.Object); ok {
		for _, k := range kids.SortedKeys() {
			f := t.featureOf(k)
			if f == nil {
				return nil
			}
			arr, err := kids.GetArray(k)
			if err != nil {
				t.malformed(err)
				return nil
			}
			children := make([]*model.Node, 0, len(arr))
			for _, v := range arr {
				co, ok := v.(ir.Object)
				if !ok {
					t.malformed(fmt.Errorf("containment %s: expected object, got %T", k, v))
					return nil
				}
				child := t.build(co)
				if child == nil {
					return nil
				}
				children = append(children, child)
			}
			if err := n.AddChildren(f, children); err != nil {
				t.malformed(err)
				return nil
			}
		}
	}
	if refs, ok := obj["references"].(ir.Object); ok {
		for _, k := range refs.SortedKeys() {
			f := t.featureOf(k)
			if f == nil {
				return nil
			}
			arr, err := refs.GetArray(k)
			if err != nil {
				t.malformed(err)
				return nil
			}
			t.pending = append(t.pending, pendingRefs{node: n, feature: f, entries: arr})
		}
	}
	if anns, err := obj.GetArray("annotations"); err != nil {
		t.malformed(err)
		return nil
	} else if len(anns) > 0 {
		list := make([]*model.Node, 0, len(anns))
		for _, v := range anns {
			ao, ok := v.(ir.Object)
			if !ok {
				t.malformed(fmt.Errorf("annotations: expected object, got %T", v))
				return nil
			}
			a := t.build(ao)
			if a == nil {
				return nil
			}
			list = append(list, a)
		}
		if err := n.AddAnnotations(list); err != nil {
			t.malformed(err)
			return nil
		}
	}
	return n
}

func (t *treeBuilder) featureOf(key string) *language.Feature {
	f := t.d.lang.Feature(key)
	if f == nil {
		t.d.fail(ErrCodeUnknownFeature, t.field, fmt.Sprintf("feature %s is not part of language %s", key, t.d.lang.Key))
	}
	return f
}

func (t *treeBuilder) link() {
	for _, p := range t.pending {
		entries := make([]model.ReferenceTarget, 0, len(p.entries))
		for _, v := range p.entries {
			eo, ok := v.(ir.Object)
			if !ok {
				t.malformed(fmt.Errorf("reference %s: expected object, got %T", p.feature.Key, v))
				return
			}
			e := decodeTarget(eo)
			if n, ok := t.built[e.TargetID]; ok {
				e.Target = n
			}
			entries = append(entries, e)
		}
		if err := p.node.AddReferences(p.feature, entries); err != nil {
			t.malformed(err)
			return
		}
	}
}

// DecodeTree rebuilds a detached subtree encoded with Tree.
func (d Decoder) DecodeTree(obj ir.Object) (*model.Node, error) {
	if d.Language == nil {
		return nil, fmt.Errorf("decode: decoder has no language")
	}
	dec := &decoder{lang: d.Language, refs: make(map[string]*model.Node), obj: ir.Object{"tree": obj}}
	n := dec.tree("tree")
	if dec.err != nil {
		return nil, dec.err
	}
	return n, nil
}
