package codec

import (
	"fmt"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
)

// Marshal encodes n as canonical JSON.
func Marshal(n model.Notification) ([]byte, error) {
	obj, err := Encode(n)
	if err != nil {
		return nil, err
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", n.Kind(), err)
	}
	return data, nil
}

// Encode converts n to its wire object.
func Encode(n model.Notification) (ir.Object, error) {
	if n == nil {
		return nil, &CodecError{Code: ErrCodeMalformed, Message: "nil notification"}
	}
	e := &encoder{kind: n.Kind().String(), obj: ir.Object{
		"kind":    ir.String(n.Kind().String()),
		"cause":   ir.String(string(n.Cause())),
		"context": ir.String(n.ContextNodeID()),
	}}
	affected := n.AffectedNodes()
	ids := make([]string, 0, len(affected))
	for _, a := range affected {
		if a != nil {
			ids = append(ids, a.ID())
		}
	}
	e.obj["affected"] = ir.Strings(ids)

	switch v := n.(type) {
	case *model.PropertyAdded:
		e.node("node", v.Node)
		e.feature("property", v.Property)
		e.value("new", v.New)
	case *model.PropertyDeleted:
		e.node("node", v.Node)
		e.feature("property", v.Property)
		e.value("old", v.Old)
	case *model.PropertyChanged:
		e.node("node", v.Node)
		e.feature("property", v.Property)
		e.value("old", v.Old)
		e.value("new", v.New)

	case *model.ChildAdded:
		e.node("parent", v.Parent)
		e.feature("containment", v.Containment)
		e.index("index", v.Index)
		e.tree("newChild", v.NewChild)
	case *model.ChildDeleted:
		e.node("parent", v.Parent)
		e.feature("containment", v.Containment)
		e.index("index", v.Index)
		e.node("deletedChild", v.DeletedChild)
	case *model.ChildReplaced:
		e.node("parent", v.Parent)
		e.feature("containment", v.Containment)
		e.index("index", v.Index)
		e.tree("newChild", v.NewChild)
		e.node("replacedChild", v.ReplacedChild)
	case *model.ChildMovedFromOtherContainment:
		e.crossParent(v.OldParent, v.OldContainment, v.OldIndex, v.NewParent, v.NewContainment, v.NewIndex)
		e.node("movedChild", v.MovedChild)
	case *model.ChildMovedFromOtherContainmentInSameParent:
		e.sameParent(v.Parent, v.OldContainment, v.OldIndex, v.NewContainment, v.NewIndex)
		e.node("movedChild", v.MovedChild)
	case *model.ChildMovedInSameContainment:
		e.node("parent", v.Parent)
		e.feature("containment", v.Containment)
		e.index("oldIndex", v.OldIndex)
		e.index("newIndex", v.NewIndex)
		e.node("movedChild", v.MovedChild)
	case *model.ChildMovedAndReplacedFromOtherContainment:
		e.crossParent(v.OldParent, v.OldContainment, v.OldIndex, v.NewParent, v.NewContainment, v.NewIndex)
		e.node("movedChild", v.MovedChild)
		e.node("replacedChild", v.ReplacedChild)
	case *model.ChildMovedAndReplacedFromOtherContainmentInSameParent:
		e.sameParent(v.Parent, v.OldContainment, v.OldIndex, v.NewContainment, v.NewIndex)
		e.node("movedChild", v.MovedChild)
		e.node("replacedChild", v.ReplacedChild)
	case *model.ChildMovedAndReplacedInSameContainment:
		e.node("parent", v.Parent)
		e.feature("containment", v.Containment)
		e.index("oldIndex", v.OldIndex)
		e.index("newIndex", v.NewIndex)
		e.node("movedChild", v.MovedChild)
		e.node("replacedChild", v.ReplacedChild)

	case *model.AnnotationAdded:
		e.node("parent", v.Parent)
		e.index("index", v.Index)
		e.tree("newAnnotation", v.NewAnnotation)
	case *model.AnnotationDeleted:
		e.node("parent", v.Parent)
		e.index("index", v.Index)
		e.node("deletedAnnotation", v.DeletedAnnotation)
	case *model.AnnotationReplaced:
		e.node("parent", v.Parent)
		e.index("index", v.Index)
		e.tree("newAnnotation", v.NewAnnotation)
		e.node("replacedAnnotation", v.ReplacedAnnotation)
	case *model.AnnotationMovedFromOtherParent:
		e.node("oldParent", v.OldParent)
		e.index("oldIndex", v.OldIndex)
		e.node("newParent", v.NewParent)
		e.index("newIndex", v.NewIndex)
		e.node("movedAnnotation", v.MovedAnnotation)
	case *model.AnnotationMovedInSameParent:
		e.node("parent", v.Parent)
		e.index("oldIndex", v.OldIndex)
		e.index("newIndex", v.NewIndex)
		e.node("movedAnnotation", v.MovedAnnotation)
	case *model.AnnotationMovedAndReplacedFromOtherParent:
		e.node("oldParent", v.OldParent)
		e.index("oldIndex", v.OldIndex)
		e.node("newParent", v.NewParent)
		e.index("newIndex", v.NewIndex)
		e.node("movedAnnotation", v.MovedAnnotation)
		e.node("replacedAnnotation", v.ReplacedAnnotation)
	case *model.AnnotationMovedAndReplacedInSameParent:
		e.node("parent", v.Parent)
		e.index("oldIndex", v.OldIndex)
		e.index("newIndex", v.NewIndex)
		e.node("movedAnnotation", v.MovedAnnotation)
		e.node("replacedAnnotation", v.ReplacedAnnotation)

	case *model.ReferenceAdded:
		e.entry(v.Parent, v.Reference, v.Index)
		e.target("newTarget", v.NewTarget)
	case *model.ReferenceDeleted:
		e.entry(v.Parent, v.Reference, v.Index)
		e.target("deletedTarget", v.DeletedTarget)
	case *model.ReferenceChanged:
		e.entry(v.Parent, v.Reference, v.Index)
		e.target("newTarget", v.NewTarget)
		e.target("oldTarget", v.OldTarget)
	case *model.EntryMovedFromOtherReference:
		e.crossParent(v.OldParent, v.OldReference, v.OldIndex, v.NewParent, v.NewReference, v.NewIndex)
		e.target("target", v.Target)
	case *model.EntryMovedFromOtherReferenceInSameParent:
		e.sameParent(v.Parent, v.OldReference, v.OldIndex, v.NewReference, v.NewIndex)
		e.target("target", v.Target)
	case *model.EntryMovedInSameReference:
		e.node("parent", v.Parent)
		e.feature("reference", v.Reference)
		e.index("oldIndex", v.OldIndex)
		e.index("newIndex", v.NewIndex)
		e.target("target", v.Target)
	case *model.EntryMovedAndReplacedFromOtherReference:
		e.crossParent(v.OldParent, v.OldReference, v.OldIndex, v.NewParent, v.NewReference, v.NewIndex)
		e.target("target", v.Target)
		e.target("replacedTarget", v.ReplacedTarget)
	case *model.EntryMovedAndReplacedFromOtherReferenceInSameParent:
		e.sameParent(v.Parent, v.OldReference, v.OldIndex, v.NewReference, v.NewIndex)
		e.target("target", v.Target)
		e.target("replacedTarget", v.ReplacedTarget)
	case *model.EntryMovedAndReplacedInSameReference:
		e.node("parent", v.Parent)
		e.feature("reference", v.Reference)
		e.index("oldIndex", v.OldIndex)
		e.index("newIndex", v.NewIndex)
		e.target("target", v.Target)
		e.target("replacedTarget", v.ReplacedTarget)
	case *model.ReferenceResolveInfoAdded:
		e.entry(v.Parent, v.Reference, v.Index)
		e.target("target", v.Target)
		e.str("newResolveInfo", v.NewResolveInfo)
	case *model.ReferenceResolveInfoDeleted:
		e.entry(v.Parent, v.Reference, v.Index)
		e.target("target", v.Target)
		e.str("deletedResolveInfo", v.DeletedResolveInfo)
	case *model.ReferenceResolveInfoChanged:
		e.entry(v.Parent, v.Reference, v.Index)
		e.target("target", v.Target)
		e.str("newResolveInfo", v.NewResolveInfo)
		e.str("oldResolveInfo", v.OldResolveInfo)

	case *model.Composite:
		parts := make(ir.Array, 0, len(v.Parts))
		for _, p := range v.Parts {
			obj, err := Encode(p)
			if err != nil {
				return nil, err
			}
			parts = append(parts, obj)
		}
		e.obj["parts"] = parts

	default:
		return nil, &CodecError{Code: ErrCodeUnknownKind, Kind: e.kind, Message: fmt.Sprintf("cannot encode %T", n)}
	}

	if e.err != nil {
		return nil, e.err
	}
	return e.obj, nil
}

// encoder fills one wire object and keeps the first error.
type encoder struct {
	kind string
	obj  ir.Object
	err  error
}

func (e *encoder) fail(field, msg string) {
	if e.err == nil {
		e.err = &CodecError{Code: ErrCodeMalformed, Kind: e.kind, Field: field, Message: msg}
	}
}

func (e *encoder) node(key string, n *model.Node) {
	if n == nil {
		e.fail(key, "nil node")
		return
	}
	e.obj[key] = NodeRef(n)
}

func (e *encoder) tree(key string, n *model.Node) {
	if n == nil {
		e.fail(key, "nil node")
		return
	}
	e.obj[key] = Tree(n)
}

func (e *encoder) feature(key string, f *language.Feature) {
	if f == nil {
		e.fail(key, "nil feature")
		return
	}
	e.obj[key] = ir.String(f.Key)
}

func (e *encoder) index(key string, i int) { e.obj[key] = ir.Int(i) }

func (e *encoder) str(key, s string) { e.obj[key] = ir.String(s) }

func (e *encoder) value(key string, v ir.Value) {
	if v == nil {
		e.fail(key, "nil value")
		return
	}
	e.obj[key] = v
}

func (e *encoder) target(key string, t model.ReferenceTarget) { e.obj[key] = Target(t) }

func (e *encoder) entry(parent *model.Node, f *language.Feature, index int) {
	e.node("parent", parent)
	e.feature("reference", f)
	e.index("index", index)
}

func (e *encoder) crossParent(oldParent *model.Node, oldF *language.Feature, oldIndex int, newParent *model.Node, newF *language.Feature, newIndex int) {
	e.node("oldParent", oldParent)
	e.feature(oldFeatureKey(oldF), oldF)
	e.index("oldIndex", oldIndex)
	e.node("newParent", newParent)
	e.feature(newFeatureKey(newF), newF)
	e.index("newIndex", newIndex)
}

func (e *encoder) sameParent(parent *model.Node, oldF *language.Feature, oldIndex int, newF *language.Feature, newIndex int) {
	e.node("parent", parent)
	e.feature(oldFeatureKey(oldF), oldF)
	e.index("oldIndex", oldIndex)
	e.feature(newFeatureKey(newF), newF)
	e.index("newIndex", newIndex)
}

func oldFeatureKey(f *language.Feature) string {
	if f != nil && f.Kind == language.Reference {
		return "oldReference"
	}
	return "oldContainment"
}

func newFeatureKey(f *language.Feature) string {
	if f != nil && f.Kind == language.Reference {
		return "newReference"
	}
	return "newContainment"
}

// NodeRef encodes a node as {id, classifier}.
func NodeRef(n *model.Node) ir.Object {
	return ir.Object{
		"id":         ir.String(n.ID()),
		"classifier": ir.String(n.Classifier().Key),
	}
}

// Target encodes a reference entry as {id, resolveInfo}. Empty fields are
// omitted.
func Target(t model.ReferenceTarget) ir.Object {
	obj := ir.Object{}
	if id := t.ID(); id != "" {
		obj["id"] = ir.String(id)
	}
	if t.ResolveInfo != "" {
		obj["resolveInfo"] = ir.String(t.ResolveInfo)
	}
	return obj
}

// Tree encodes n and everything it owns. Features are keyed by feature key
// and only set features appear.
func Tree(n *model.Node) ir.Object {
	obj := NodeRef(n)
	props := ir.Object{}
	kids := ir.Object{}
	refs := ir.Object{}
	for _, f := range n.SetFeatures() {
		switch f.Kind {
		case language.Property:
			v, err := n.Property(f)
			if err == nil && v != nil {
				props[f.Key] = v
			}
		case language.Containment:
			children, _ := n.Children(f)
			arr := make(ir.Array, len(children))
			for i, c := range children {
				arr[i] = Tree(c)
			}
			kids[f.Key] = arr
		case language.Reference:
			entries, _ := n.References(f)
			arr := make(ir.Array, len(entries))
			for i, t := range entries {
				arr[i] = Target(t)
			}
			refs[f.Key] = arr
		}
	}
	if len(props) > 0 {
		obj["properties"] = props
	}
	if len(kids) > 0 {
		obj["containments"] = kids
	}
	if len(refs) > 0 {
		obj["references"] = refs
	}
	if anns := n.Annotations(); len(anns) > 0 {
		arr := make(ir.Array, len(anns))
		for i, a := range anns {
			arr[i] = Tree(a)
		}
		obj["annotations"] = arr
	}
	return obj
}
