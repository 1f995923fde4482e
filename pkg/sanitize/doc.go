// Package sanitize filters records down to what a given identity may see.
//
// Sanitization runs before transformation on every broadcast, with the same
// auth context shape the synchronous query API uses: the identity's ability,
// the owning strategy's verify function and an opaque credentials tag. Fields
// marked private in the schema are always removed; relation fields are
// removed unless the identity can read the related type. The guarantee is
// that a realtime push never shows a field the equivalent HTTP read would
// have hidden.
package sanitize
