// Package schema describes entity metadata consumed by the entry transformer
// and the output sanitizer.
//
// A Schema lists the attributes of a content type or component and how each
// attribute is shaped: scalar, relation to another content type, nested
// component, dynamic zone (heterogeneous component list) or media reference.
// Schemas are owned by an external source of truth; this package only models
// them and provides an in-memory Registry implementation for composing and
// testing.
package schema
