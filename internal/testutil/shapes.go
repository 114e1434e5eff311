package testutil

import "github.com/roach88/modelsync/internal/language"

// Shapes is the test language shared by the package tests. It exercises every
// feature variant: single and multiple containments, single and multiple
// references, required and optional properties, enumerations, interfaces and
// annotations.
type Shapes struct {
	Language *language.Language

	Color *language.Datatype

	Named             *language.Classifier
	Geometry          *language.Classifier
	Shape             *language.Classifier
	Circle            *language.Classifier
	Line              *language.Classifier
	Coord             *language.Classifier
	CompositeShape    *language.Classifier
	OffsetDuplicate   *language.Classifier
	ReferenceGeometry *language.Classifier
	Documentation     *language.Classifier
	BillOfMaterials   *language.Classifier

	Name           *language.Feature
	UUID           *language.Feature
	ShapeColor     *language.Feature
	GeometryShapes *language.Feature
	CircleR        *language.Feature
	CircleCenter   *language.Feature
	LineStart      *language.Feature
	LineEnd        *language.Feature
	CoordX         *language.Feature
	CoordY         *language.Feature
	Parts          *language.Feature
	DisabledParts  *language.Feature
	Source         *language.Feature
	AltSource      *language.Feature
	RefShapes      *language.Feature
	RefFavorites   *language.Feature
	DocText        *language.Feature
	Materials      *language.Feature
}

// NewShapes builds the shapes language with the Go builder API.
// ShapesCUE declares the same language in CUE.
func NewShapes() *Shapes {
	l := language.NewLanguage("shapes", "1")
	s := &Shapes{Language: l}

	s.Color = l.Enumeration("Color", "red", "green", "blue")

	s.Named = l.Interface("Named")
	s.Name = s.Named.Property("name", language.String)

	s.Geometry = l.Concept("Geometry")
	s.Geometry.Partition = true

	s.Shape = l.Concept("Shape")
	s.Shape.Abstract = true
	s.Shape.Implements = []*language.Classifier{s.Named}

	s.Coord = l.Concept("Coord")
	s.CoordX = s.Coord.Property("x", language.Integer)
	s.CoordY = s.Coord.Property("y", language.Integer)

	s.Circle = l.Concept("Circle")
	s.Circle.Extends = s.Shape

	s.Line = l.Concept("Line")
	s.Line.Extends = s.Shape

	s.CompositeShape = l.Concept("CompositeShape")
	s.CompositeShape.Extends = s.Shape

	s.OffsetDuplicate = l.Concept("OffsetDuplicate")
	s.OffsetDuplicate.Extends = s.Shape

	s.ReferenceGeometry = l.Concept("ReferenceGeometry")
	s.ReferenceGeometry.Partition = true

	s.Documentation = l.Annotation("Documentation", s.Shape)
	s.BillOfMaterials = l.Annotation("BillOfMaterials", nil)

	s.GeometryShapes = s.Geometry.Containment("shapes", s.Shape, language.Optional(), language.Multiple())
	s.UUID = s.Shape.Property("uuid", language.String, language.Optional())
	s.ShapeColor = s.Shape.Property("color", s.Color, language.Optional())
	s.CircleR = s.Circle.Property("r", language.Integer)
	s.CircleCenter = s.Circle.Containment("center", s.Coord, language.Optional())
	s.LineStart = s.Line.Containment("start", s.Coord)
	s.LineEnd = s.Line.Containment("end", s.Coord, language.Optional())
	s.Parts = s.CompositeShape.Containment("parts", s.Shape, language.Multiple())
	s.DisabledParts = s.CompositeShape.Containment("disabledParts", s.Shape, language.Optional(), language.Multiple())
	s.Source = s.OffsetDuplicate.Reference("source", s.Shape)
	s.AltSource = s.OffsetDuplicate.Reference("altSource", s.Shape, language.Optional())
	s.RefShapes = s.ReferenceGeometry.Reference("shapes", s.Shape, language.Optional(), language.Multiple())
	s.RefFavorites = s.ReferenceGeometry.Reference("favorites", s.Shape, language.Optional(), language.Multiple())
	s.DocText = s.Documentation.Property("text", language.String, language.Optional())
	s.Materials = s.BillOfMaterials.Reference("materials", s.Shape, language.Optional(), language.Multiple())

	return s
}

// ShapesCUE declares the shapes language in CUE.
const ShapesCUE = `
language: shapes: {
	version: "1"

	enumeration: Color: ["red", "green", "blue"]

	interface: Named: property: name: {type: "String"}

	concept: Geometry: {
		partition: true
		containment: shapes: {type: "Shape", optional: true, multiple: true}
	}

	concept: Shape: {
		abstract:   true
		implements: ["Named"]
		property: uuid: {type: "String", optional: true}
		property: color: {type: "Color", optional: true}
	}

	concept: Coord: {
		property: x: {type: "Integer"}
		property: y: {type: "Integer"}
	}

	concept: Circle: {
		extends: "Shape"
		property: r: {type: "Integer"}
		containment: center: {type: "Coord", optional: true}
	}

	concept: Line: {
		extends: "Shape"
		containment: start: {type: "Coord"}
		containment: end: {type: "Coord", optional: true}
	}

	concept: CompositeShape: {
		extends: "Shape"
		containment: parts: {type: "Shape", multiple: true}
		containment: disabledParts: {type: "Shape", optional: true, multiple: true}
	}

	concept: OffsetDuplicate: {
		extends: "Shape"
		reference: source: {type: "Shape"}
		reference: altSource: {type: "Shape", optional: true}
	}

	concept: ReferenceGeometry: {
		partition: true
		reference: shapes: {type: "Shape", optional: true, multiple: true}
		reference: favorites: {type: "Shape", optional: true, multiple: true}
	}

	annotation: Documentation: {
		annotates: "Shape"
		property: text: {type: "String", optional: true}
	}

	annotation: BillOfMaterials: {
		reference: materials: {type: "Shape", optional: true, multiple: true}
	}
}
`
