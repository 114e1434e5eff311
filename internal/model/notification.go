package model

import (
	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
)

// Notification describes one committed mutation. Notifications are
// immutable once created.
type Notification interface {
	Kind() Kind
	// Cause is the causal id of the call that produced the notification.
	Cause() CausalID
	// ContextNodeID is the root id of the partition the notification was
	// emitted to. Replicators route on it.
	ContextNodeID() string
	// AffectedNodes lists the owners whose features changed.
	AffectedNodes() []*Node

	sealed()
}

// Header carries the fields shared by every notification.
type Header struct {
	ID      CausalID
	Context string
}

// NewHeader returns a header for a notification caused by id within the
// partition rooted at root.
func NewHeader(id CausalID, root *Node) Header {
	h := Header{ID: id}
	if root != nil {
		h.Context = root.id
	}
	return h
}

func (h Header) Cause() CausalID       { return h.ID }
func (h Header) ContextNodeID() string { return h.Context }
func (Header) sealed()                 {}

// --- property ---

type PropertyAdded struct {
	Header
	Node     *Node
	Property *language.Feature
	New      ir.Value
}

type PropertyDeleted struct {
	Header
	Node     *Node
	Property *language.Feature
	Old      ir.Value
}

type PropertyChanged struct {
	Header
	Node     *Node
	Property *language.Feature
	Old      ir.Value
	New      ir.Value
}

func (*PropertyAdded) Kind() Kind   { return KindPropertyAdded }
func (*PropertyDeleted) Kind() Kind { return KindPropertyDeleted }
func (*PropertyChanged) Kind() Kind { return KindPropertyChanged }

func (n *PropertyAdded) AffectedNodes() []*Node   { return []*Node{n.Node} }
func (n *PropertyDeleted) AffectedNodes() []*Node { return []*Node{n.Node} }
func (n *PropertyChanged) AffectedNodes() []*Node { return []*Node{n.Node} }

// --- containment ---

type ChildAdded struct {
	Header
	Parent      *Node
	Containment *language.Feature
	Index       int
	NewChild    *Node
}

type ChildDeleted struct {
	Header
	Parent       *Node
	Containment  *language.Feature
	Index        int
	DeletedChild *Node
}

type ChildReplaced struct {
	Header
	Parent        *Node
	Containment   *language.Feature
	Index         int
	NewChild      *Node
	ReplacedChild *Node
}

// ChildMovedFromOtherContainment is a move between two parents of the same partition.
type ChildMovedFromOtherContainment struct {
	Header
	OldParent      *Node
	OldContainment *language.Feature
	OldIndex       int
	NewParent      *Node
	NewContainment *language.Feature
	NewIndex       int
	MovedChild     *Node
}

type ChildMovedFromOtherContainmentInSameParent struct {
	Header
	Parent         *Node
	OldContainment *language.Feature
	OldIndex       int
	NewContainment *language.Feature
	NewIndex       int
	MovedChild     *Node
}

// ChildMovedInSameContainment reports NewIndex as the final position of
// the moved child.
type ChildMovedInSameContainment struct {
	Header
	Parent      *Node
	Containment *language.Feature
	OldIndex    int
	NewIndex    int
	MovedChild  *Node
}

type ChildMovedAndReplacedFromOtherContainment struct {
	Header
	OldParent      *Node
	OldContainment *language.Feature
	OldIndex       int
	NewParent      *Node
	NewContainment *language.Feature
	NewIndex       int
	MovedChild     *Node
	ReplacedChild  *Node
}

type ChildMovedAndReplacedFromOtherContainmentInSameParent struct {
	Header
	Parent         *Node
	OldContainment *language.Feature
	OldIndex       int
	NewContainment *language.Feature
	NewIndex       int
	MovedChild     *Node
	ReplacedChild  *Node
}

type ChildMovedAndReplacedInSameContainment struct {
	Header
	Parent        *Node
	Containment   *language.Feature
	OldIndex      int
	NewIndex      int
	MovedChild    *Node
	ReplacedChild *Node
}

func (*ChildAdded) Kind() Kind    { return KindChildAdded }
func (*ChildDeleted) Kind() Kind  { return KindChildDeleted }
func (*ChildReplaced) Kind() Kind { return KindChildReplaced }
func (*ChildMovedFromOtherContainment) Kind() Kind {
	return KindChildMovedFromOtherContainment
}
func (*ChildMovedFromOtherContainmentInSameParent) Kind() Kind {
	return KindChildMovedFromOtherContainmentInSameParent
}
func (*ChildMovedInSameContainment) Kind() Kind { return KindChildMovedInSameContainment }
func (*ChildMovedAndReplacedFromOtherContainment) Kind() Kind {
	return KindChildMovedAndReplacedFromOtherContainment
}
func (*ChildMovedAndReplacedFromOtherContainmentInSameParent) Kind() Kind {
	return KindChildMovedAndReplacedFromOtherContainmentInSameParent
}
func (*ChildMovedAndReplacedInSameContainment) Kind() Kind {
	return KindChildMovedAndReplacedInSameContainment
}

func (n *ChildAdded) AffectedNodes() []*Node    { return []*Node{n.Parent} }
func (n *ChildDeleted) AffectedNodes() []*Node  { return []*Node{n.Parent} }
func (n *ChildReplaced) AffectedNodes() []*Node { return []*Node{n.Parent} }
func (n *ChildMovedFromOtherContainment) AffectedNodes() []*Node {
	return []*Node{n.NewParent, n.OldParent}
}
func (n *ChildMovedFromOtherContainmentInSameParent) AffectedNodes() []*Node {
	return []*Node{n.Parent}
}
func (n *ChildMovedInSameContainment) AffectedNodes() []*Node { return []*Node{n.Parent} }
func (n *ChildMovedAndReplacedFromOtherContainment) AffectedNodes() []*Node {
	return []*Node{n.NewParent, n.OldParent}
}
func (n *ChildMovedAndReplacedFromOtherContainmentInSameParent) AffectedNodes() []*Node {
	return []*Node{n.Parent}
}
func (n *ChildMovedAndReplacedInSameContainment) AffectedNodes() []*Node {
	return []*Node{n.Parent}
}

// --- annotation ---

type AnnotationAdded struct {
	Header
	Parent        *Node
	Index         int
	NewAnnotation *Node
}

type AnnotationDeleted struct {
	Header
	Parent            *Node
	Index             int
	DeletedAnnotation *Node
}

type AnnotationReplaced struct {
	Header
	Parent             *Node
	Index              int
	NewAnnotation      *Node
	ReplacedAnnotation *Node
}

type AnnotationMovedFromOtherParent struct {
	Header
	OldParent       *Node
	OldIndex        int
	NewParent       *Node
	NewIndex        int
	MovedAnnotation *Node
}

type AnnotationMovedInSameParent struct {
	Header
	Parent          *Node
	OldIndex        int
	NewIndex        int
	MovedAnnotation *Node
}

type AnnotationMovedAndReplacedFromOtherParent struct {
	Header
	OldParent          *Node
	OldIndex           int
	NewParent          *Node
	NewIndex           int
	MovedAnnotation    *Node
	ReplacedAnnotation *Node
}

type AnnotationMovedAndReplacedInSameParent struct {
	Header
	Parent             *Node
	OldIndex           int
	NewIndex           int
	MovedAnnotation    *Node
	ReplacedAnnotation *Node
}

func (*AnnotationAdded) Kind() Kind                { return KindAnnotationAdded }
func (*AnnotationDeleted) Kind() Kind              { return KindAnnotationDeleted }
func (*AnnotationReplaced) Kind() Kind             { return KindAnnotationReplaced }
func (*AnnotationMovedFromOtherParent) Kind() Kind { return KindAnnotationMovedFromOtherParent }
func (*AnnotationMovedInSameParent) Kind() Kind    { return KindAnnotationMovedInSameParent }
func (*AnnotationMovedAndReplacedFromOtherParent) Kind() Kind {
	return KindAnnotationMovedAndReplacedFromOtherParent
}
func (*AnnotationMovedAndReplacedInSameParent) Kind() Kind {
	return KindAnnotationMovedAndReplacedInSameParent
}

func (n *AnnotationAdded) AffectedNodes() []*Node    { return []*Node{n.Parent} }
func (n *AnnotationDeleted) AffectedNodes() []*Node  { return []*Node{n.Parent} }
func (n *AnnotationReplaced) AffectedNodes() []*Node { return []*Node{n.Parent} }
func (n *AnnotationMovedFromOtherParent) AffectedNodes() []*Node {
	return []*Node{n.NewParent, n.OldParent}
}
func (n *AnnotationMovedInSameParent) AffectedNodes() []*Node { return []*Node{n.Parent} }
func (n *AnnotationMovedAndReplacedFromOtherParent) AffectedNodes() []*Node {
	return []*Node{n.NewParent, n.OldParent}
}
func (n *AnnotationMovedAndReplacedInSameParent) AffectedNodes() []*Node {
	return []*Node{n.Parent}
}

// --- reference ---

type ReferenceAdded struct {
	Header
	Parent    *Node
	Reference *language.Feature
	Index     int
	NewTarget ReferenceTarget
}

type ReferenceDeleted struct {
	Header
	Parent        *Node
	Reference     *language.Feature
	Index         int
	DeletedTarget ReferenceTarget
}

type ReferenceChanged struct {
	Header
	Parent    *Node
	Reference *language.Feature
	Index     int
	NewTarget ReferenceTarget
	OldTarget ReferenceTarget
}

type EntryMovedFromOtherReference struct {
	Header
	OldParent    *Node
	OldReference *language.Feature
	OldIndex     int
	NewParent    *Node
	NewReference *language.Feature
	NewIndex     int
	Target       ReferenceTarget
}

type EntryMovedFromOtherReferenceInSameParent struct {
	Header
	Parent       *Node
	OldReference *language.Feature
	OldIndex     int
	NewReference *language.Feature
	NewIndex     int
	Target       ReferenceTarget
}

type EntryMovedInSameReference struct {
	Header
	Parent    *Node
	Reference *language.Feature
	OldIndex  int
	NewIndex  int
	Target    ReferenceTarget
}

type EntryMovedAndReplacedFromOtherReference struct {
	Header
	OldParent      *Node
	OldReference   *language.Feature
	OldIndex       int
	NewParent      *Node
	NewReference   *language.Feature
	NewIndex       int
	Target         ReferenceTarget
	ReplacedTarget ReferenceTarget
}

type EntryMovedAndReplacedFromOtherReferenceInSameParent struct {
	Header
	Parent         *Node
	OldReference   *language.Feature
	OldIndex       int
	NewReference   *language.Feature
	NewIndex       int
	Target         ReferenceTarget
	ReplacedTarget ReferenceTarget
}

type EntryMovedAndReplacedInSameReference struct {
	Header
	Parent         *Node
	Reference      *language.Feature
	OldIndex       int
	NewIndex       int
	Target         ReferenceTarget
	ReplacedTarget ReferenceTarget
}

// ReferenceResolveInfoAdded reports resolve info set on an entry that had none.
// Target is the entry after the change.
type ReferenceResolveInfoAdded struct {
	Header
	Parent         *Node
	Reference      *language.Feature
	Index          int
	Target         ReferenceTarget
	NewResolveInfo string
}

type ReferenceResolveInfoDeleted struct {
	Header
	Parent             *Node
	Reference          *language.Feature
	Index              int
	Target             ReferenceTarget
	DeletedResolveInfo string
}

type ReferenceResolveInfoChanged struct {
	Header
	Parent         *Node
	Reference      *language.Feature
	Index          int
	Target         ReferenceTarget
	NewResolveInfo string
	OldResolveInfo string
}

func (*ReferenceAdded) Kind() Kind   { return KindReferenceAdded }
func (*ReferenceDeleted) Kind() Kind { return KindReferenceDeleted }
func (*ReferenceChanged) Kind() Kind { return KindReferenceChanged }
func (*EntryMovedFromOtherReference) Kind() Kind {
	return KindEntryMovedFromOtherReference
}
func (*EntryMovedFromOtherReferenceInSameParent) Kind() Kind {
	return KindEntryMovedFromOtherReferenceInSameParent
}
func (*EntryMovedInSameReference) Kind() Kind { return KindEntryMovedInSameReference }
func (*EntryMovedAndReplacedFromOtherReference) Kind() Kind {
	return KindEntryMovedAndReplacedFromOtherReference
}
func (*EntryMovedAndReplacedFromOtherReferenceInSameParent) Kind() Kind {
	return KindEntryMovedAndReplacedFromOtherReferenceInSameParent
}
func (*EntryMovedAndReplacedInSameReference) Kind() Kind {
	return KindEntryMovedAndReplacedInSameReference
}
func (*ReferenceResolveInfoAdded) Kind() Kind   { return KindReferenceResolveInfoAdded }
func (*ReferenceResolveInfoDeleted) Kind() Kind { return KindReferenceResolveInfoDeleted }
func (*ReferenceResolveInfoChanged) Kind() Kind { return KindReferenceResolveInfoChanged }

func (n *ReferenceAdded) AffectedNodes() []*Node   { return []*Node{n.Parent} }
func (n *ReferenceDeleted) AffectedNodes() []*Node { return []*Node{n.Parent} }
func (n *ReferenceChanged) AffectedNodes() []*Node { return []*Node{n.Parent} }
func (n *EntryMovedFromOtherReference) AffectedNodes() []*Node {
	return []*Node{n.NewParent, n.OldParent}
}
func (n *EntryMovedFromOtherReferenceInSameParent) AffectedNodes() []*Node {
	return []*Node{n.Parent}
}
func (n *EntryMovedInSameReference) AffectedNodes() []*Node { return []*Node{n.Parent} }
func (n *EntryMovedAndReplacedFromOtherReference) AffectedNodes() []*Node {
	return []*Node{n.NewParent, n.OldParent}
}
func (n *EntryMovedAndReplacedFromOtherReferenceInSameParent) AffectedNodes() []*Node {
	return []*Node{n.Parent}
}
func (n *EntryMovedAndReplacedInSameReference) AffectedNodes() []*Node {
	return []*Node{n.Parent}
}
func (n *ReferenceResolveInfoAdded) AffectedNodes() []*Node   { return []*Node{n.Parent} }
func (n *ReferenceResolveInfoDeleted) AffectedNodes() []*Node { return []*Node{n.Parent} }
func (n *ReferenceResolveInfoChanged) AffectedNodes() []*Node { return []*Node{n.Parent} }

// --- composite ---

// Composite groups the notifications of one logical transaction. Its causal
// id and context are those of its first part.
type Composite struct {
	Parts []Notification
}

// NewComposite returns a composite over parts. Nested composites are flattened.
func NewComposite(parts ...Notification) *Composite {
	c := &Composite{}
	for _, p := range parts {
		if inner, ok := p.(*Composite); ok {
			c.Parts = append(c.Parts, inner.Parts...)
			continue
		}
		c.Parts = append(c.Parts, p)
	}
	return c
}

func (*Composite) Kind() Kind { return KindComposite }
func (*Composite) sealed()    {}

func (c *Composite) Cause() CausalID {
	if len(c.Parts) == 0 {
		return ""
	}
	return c.Parts[0].Cause()
}

func (c *Composite) ContextNodeID() string {
	if len(c.Parts) == 0 {
		return ""
	}
	return c.Parts[0].ContextNodeID()
}

// AffectedNodes returns the union of the parts' affected nodes in first-seen order.
func (c *Composite) AffectedNodes() []*Node {
	seen := make(map[*Node]bool)
	var out []*Node
	for _, p := range c.Parts {
		for _, n := range p.AffectedNodes() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Unwrap returns the atomic notifications of n: the parts of a composite,
// or n itself.
func Unwrap(n Notification) []Notification {
	if c, ok := n.(*Composite); ok {
		return c.Parts
	}
	return []Notification{n}
}
