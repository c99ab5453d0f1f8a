// Package source models the external source-fragment contract that
// prototype loaders are written against (spec §6 "Source abstraction").
// The concrete reader — YAML, JSON, a binary format, whatever a given
// deployment picks — is deliberately out of scope for the core; only the
// capability set a loader can rely on lives here.
package source

// Source is a polymorphic handle onto one fragment of prototype data: a
// scalar, a mapping, or a sequence. A registered component loader is
// handed a Source positioned at its own property mapping and reads out of
// it; it never knows which concrete format produced the Source.
type Source interface {
	// IsNull reports whether this fragment is absent (a missing key, an
	// out-of-range index). Loaders fall back to component-type defaults
	// when a property Source IsNull, except for resource-handle
	// properties, which fail the load (spec §6).
	IsNull() bool

	// ErrorLog returns accumulated parse/read diagnostics for this
	// fragment, for inclusion in a load-failure warning.
	ErrorLog() string

	// ReadTo decodes this fragment into dst, reporting success. dst is
	// always a pointer to a scalar or fixed-size field the loader already
	// knows the shape of.
	ReadTo(dst any) bool

	// GetSequenceValue positions out at the element of this fragment (a
	// sequence) at index, reporting whether it exists.
	GetSequenceValue(index int, out *Source) bool

	// GetMappingValue positions out at the value of this fragment (a
	// mapping) keyed by key, reporting whether it exists.
	GetMappingValue(key string, out *Source) bool
}

// Loader constructs a Source from a named resource, e.g. a file path or a
// registry key. logErrors controls whether parse diagnostics are recorded
// on the resulting Source's ErrorLog.
type Loader interface {
	LoadSource(name string, logErrors bool) Source
}
