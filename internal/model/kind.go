package model

import "fmt"

// Kind identifies the shape of a notification. The catalog is closed: a
// replica receiving a kind it does not know has a protocol version mismatch.
type Kind int

const (
	KindUnknown Kind = iota

	KindPropertyAdded
	KindPropertyDeleted
	KindPropertyChanged

	KindChildAdded
	KindChildDeleted
	KindChildReplaced
	KindChildMovedFromOtherContainment
	KindChildMovedFromOtherContainmentInSameParent
	KindChildMovedInSameContainment
	KindChildMovedAndReplacedFromOtherContainment
	KindChildMovedAndReplacedFromOtherContainmentInSameParent
	KindChildMovedAndReplacedInSameContainment

	KindAnnotationAdded
	KindAnnotationDeleted
	KindAnnotationReplaced
	KindAnnotationMovedFromOtherParent
	KindAnnotationMovedInSameParent
	KindAnnotationMovedAndReplacedFromOtherParent
	KindAnnotationMovedAndReplacedInSameParent

	KindReferenceAdded
	KindReferenceDeleted
	KindReferenceChanged
	KindEntryMovedFromOtherReference
	KindEntryMovedFromOtherReferenceInSameParent
	KindEntryMovedInSameReference
	KindEntryMovedAndReplacedFromOtherReference
	KindEntryMovedAndReplacedFromOtherReferenceInSameParent
	KindEntryMovedAndReplacedInSameReference
	KindReferenceResolveInfoAdded
	KindReferenceResolveInfoDeleted
	KindReferenceResolveInfoChanged

	KindComposite

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown: "Unknown",

	KindPropertyAdded:   "PropertyAdded",
	KindPropertyDeleted: "PropertyDeleted",
	KindPropertyChanged: "PropertyChanged",

	KindChildAdded:    "ChildAdded",
	KindChildDeleted:  "ChildDeleted",
	KindChildReplaced: "ChildReplaced",
	KindChildMovedFromOtherContainment:                        "ChildMovedFromOtherContainment",
	KindChildMovedFromOtherContainmentInSameParent:            "ChildMovedFromOtherContainmentInSameParent",
	KindChildMovedInSameContainment:                           "ChildMovedInSameContainment",
	KindChildMovedAndReplacedFromOtherContainment:             "ChildMovedAndReplacedFromOtherContainment",
	KindChildMovedAndReplacedFromOtherContainmentInSameParent: "ChildMovedAndReplacedFromOtherContainmentInSameParent",
	KindChildMovedAndReplacedInSameContainment:                "ChildMovedAndReplacedInSameContainment",

	KindAnnotationAdded:                           "AnnotationAdded",
	KindAnnotationDeleted:                         "AnnotationDeleted",
	KindAnnotationReplaced:                        "AnnotationReplaced",
	KindAnnotationMovedFromOtherParent:            "AnnotationMovedFromOtherParent",
	KindAnnotationMovedInSameParent:               "AnnotationMovedInSameParent",
	KindAnnotationMovedAndReplacedFromOtherParent: "AnnotationMovedAndReplacedFromOtherParent",
	KindAnnotationMovedAndReplacedInSameParent:    "AnnotationMovedAndReplacedInSameParent",

	KindReferenceAdded:   "ReferenceAdded",
	KindReferenceDeleted: "ReferenceDeleted",
	KindReferenceChanged: "ReferenceChanged",
	KindEntryMovedFromOtherReference:                        "EntryMovedFromOtherReference",
	KindEntryMovedFromOtherReferenceInSameParent:            "EntryMovedFromOtherReferenceInSameParent",
	KindEntryMovedInSameReference:                           "EntryMovedInSameReference",
	KindEntryMovedAndReplacedFromOtherReference:             "EntryMovedAndReplacedFromOtherReference",
	KindEntryMovedAndReplacedFromOtherReferenceInSameParent: "EntryMovedAndReplacedFromOtherReferenceInSameParent",
	KindEntryMovedAndReplacedInSameReference:                "EntryMovedAndReplacedInSameReference",
	KindReferenceResolveInfoAdded:                           "ReferenceResolveInfoAdded",
	KindReferenceResolveInfoDeleted:                         "ReferenceResolveInfoDeleted",
	KindReferenceResolveInfoChanged:                         "ReferenceResolveInfoChanged",

	KindComposite: "Composite",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind returns the kind named s, or KindUnknown.
func ParseKind(s string) Kind {
	for k := KindUnknown + 1; k < kindCount; k++ {
		if kindNames[k] == s {
			return k
		}
	}
	return KindUnknown
}

// Kinds returns every concrete kind in catalog order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Group is the edge kind a notification describes.
type Group int

const (
	GroupNone Group = iota
	GroupProperty
	GroupContainment
	GroupAnnotation
	GroupReference
	GroupComposite
)

func (g Group) String() string {
	switch g {
	case GroupProperty:
		return "Property"
	case GroupContainment:
		return "Containment"
	case GroupAnnotation:
		return "Annotation"
	case GroupReference:
		return "Reference"
	case GroupComposite:
		return "Composite"
	default:
		return "None"
	}
}

// Group returns the edge kind k belongs to.
func (k Kind) Group() Group {
	switch {
	case k >= KindPropertyAdded && k <= KindPropertyChanged:
		return GroupProperty
	case k >= KindChildAdded && k <= KindChildMovedAndReplacedInSameContainment:
		return GroupContainment
	case k >= KindAnnotationAdded && k <= KindAnnotationMovedAndReplacedInSameParent:
		return GroupAnnotation
	case k >= KindReferenceAdded && k <= KindReferenceResolveInfoChanged:
		return GroupReference
	case k == KindComposite:
		return GroupComposite
	default:
		return GroupNone
	}
}
