// Package entry converts internal records into their public wire
// representation.
//
// A raw record is a map with an "id" key and a flat set of properties. The
// transformer reshapes it into {id, attributes} recursively, following the
// record's schema: relations and media are wrapped as {data: ...}, components
// and dynamic zone items are flattened to {id, ...fields}, scalars pass
// through unchanged.
//
// Transformation is a pure function of the record and its schema. The only
// lookup it performs is resolving related schemas through the registry, so
// transforming the same record twice yields identical output.
package entry
