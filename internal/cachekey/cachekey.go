package cachekey

import (
	"fmt"
	"reflect"
	"strings"
)

// Options configures key construction.
type Options struct {
	// Namespace prefixes the key, e.g. "insights".
	Namespace string
	// Input is the value the key identifies. Any JSON-like value works:
	// maps, slices, structs, primitives, time.Time.
	Input any
	// Version, when non-empty, is embedded as a v<version> segment so a
	// schema bump invalidates old keys.
	Version string
	// NormalizeArrayOrder sorts array elements by their canonical form at
	// every level, so inputs differing only in array order share a key.
	NormalizeArrayOrder bool
}

// Build produces a key of the form
//
//	namespace[:v<version>]:c<arrays>:i<items>:o<objects>:k<keys>:p<primitives>:<hash>
//
// The structural count segments make key collisions across differently
// shaped inputs impossible even before the hash is compared, and give
// operators a quick read on what a key covers.
func Build(opts Options) string {
	s := serializer{
		normalizeArrays: opts.NormalizeArrayOrder,
		seen:            map[uintptr]bool{},
	}
	var sb strings.Builder
	s.write(&sb, reflect.ValueOf(opts.Input))
	hash := HashString(sb.String())

	parts := make([]string, 0, 8)
	parts = append(parts, opts.Namespace)
	if opts.Version != "" {
		parts = append(parts, "v"+opts.Version)
	}
	parts = append(parts,
		fmt.Sprintf("c%d", s.arrays),
		fmt.Sprintf("i%d", s.arrayItems),
		fmt.Sprintf("o%d", s.objects),
		fmt.Sprintf("k%d", s.keys),
		fmt.Sprintf("p%d", s.primitives),
		hash,
	)
	return strings.Join(parts, ":")
}
