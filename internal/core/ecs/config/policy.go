// Package config holds the core's compile-time policy surface (spec §6),
// modeled as a plain, validated configuration value rather than the
// source's enum-of-knobs struct — see Design Note §9 ("Compile-time
// 'policy' struct full of enum knobs").
package config

import "github.com/go-playground/validator/v10"

// Policy is the per-engine-instance configuration surface enumerated in
// spec §6. ComponentCountType is not a field here — per Design Note §9 it
// is a compile-time type parameter on store.Store instead, since Go's
// generics make that cheap to monomorphize.
type Policy struct {
	// MaxUserComponentTypes is the configured bound on user-space component
	// ids. registry.Registry does not read it and accepts any id in the
	// user range.
	MaxUserComponentTypes uint16 `validate:"gte=0"`

	// MaxProcesses is the configured bound on registered processes.
	// process.Registry does not read it and accepts any number of
	// processes.
	MaxProcesses int `validate:"gte=1"`

	// MaxNewEntitiesPerFrame is the birth queue's capacity.
	MaxNewEntitiesPerFrame int `validate:"gte=0"`

	// MinComponentPrealloc is the absolute preallocation floor applied to
	// every column regardless of entity count.
	MinComponentPrealloc uint32 `validate:"gte=0"`

	// MinComponentPerEntityPrealloc is the relative preallocation floor,
	// multiplied by the current entity count.
	MinComponentPerEntityPrealloc uint32 `validate:"gte=0"`

	// ReallocationMultiplier is the growth factor applied on emergency
	// reallocation; must exceed 1 so growth actually makes progress.
	ReallocationMultiplier float64 `validate:"gt=1"`

	// PreallocMultiplier scales the whole per-frame preallocation target
	// computed from MinComponentPrealloc/MinComponentPerEntityPrealloc
	// (spec §4.2 prealloc formula's leading alloc_mult).
	PreallocMultiplier float64 `validate:"gt=0"`

	// Workers bounds how many OS-thread-backed workers the frame engine
	// schedules processes onto (spec §5 "each process is assigned to
	// exactly one thread"). Zero means "use GOMAXPROCS".
	Workers int `validate:"gte=0"`
}

// Default returns a conservative policy suitable for small simulations and
// tests.
func Default() Policy {
	return Policy{
		MaxUserComponentTypes:         1 << 12,
		MaxProcesses:                  256,
		MaxNewEntitiesPerFrame:        4096,
		MinComponentPrealloc:          16,
		MinComponentPerEntityPrealloc: 0,
		ReallocationMultiplier:        1.5,
		PreallocMultiplier:            1.0,
		Workers:                      0,
	}
}

// Validate checks Policy's struct tags, returning a *ecs.ProgrammerError
// (via the caller) equivalent message on failure. Kept as a plain error so
// config stays independent of the ecs package.
func (p Policy) Validate() error {
	return validator.New().Struct(p)
}
