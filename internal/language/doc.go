// Package language is the read-only schema oracle consulted by the node store,
// the codec and the replicator.
//
// A Language declares classifiers (concepts, interfaces, annotations) and
// datatypes. Classifiers own features; a feature is a property, a containment
// or a reference and carries its optionality and multiplicity.
//
// Languages are built once, either programmatically (NewLanguage, Concept,
// Property, ...) or by compiling a CUE declaration (Compile, LoadFile), and
// are never mutated afterwards. Every consumer receives its *Language
// explicitly; there is no package-level registry of active languages.
//
// CUE layout accepted by Compile:
//
//	language: shapes: {
//		version: "1"
//		enumeration: Color: ["red", "green"]
//		concept: Geometry: {
//			partition: true
//			containment: shapes: {type: "Shape", multiple: true, optional: true}
//		}
//		concept: Circle: {
//			extends: "Shape"
//			property: r: {type: "Integer"}
//		}
//		interface: Named: property: name: {type: "String"}
//		annotation: Doc: {annotates: "Shape", property: text: {type: "String"}}
//	}
package language
