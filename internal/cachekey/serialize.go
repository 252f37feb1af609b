// Package cachekey builds deterministic cache keys from arbitrary JSON-like
// values. The canonical serialization is type-prefixed and key-sorted so the
// same logical value always produces the same text, and therefore the same
// hash, across processes and restarts.
package cachekey

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// circularMarker replaces any value that references itself, directly or
// through intermediate containers.
const circularMarker = "[Circular]"

// CanonicalSerialize renders v into its canonical text form. Object keys are
// sorted at every level; array order is preserved. Non-finite numbers render
// as n:NaN, n:Infinity and n:-Infinity, and negative zero renders as n:0.
func CanonicalSerialize(v any) string {
	var sb strings.Builder
	s := serializer{seen: map[uintptr]bool{}}
	s.write(&sb, reflect.ValueOf(v))
	return sb.String()
}

type serializer struct {
	normalizeArrays bool
	seen            map[uintptr]bool

	// walk counters, used by the key builder
	arrays     int
	arrayItems int
	objects    int
	keys       int
	primitives int
}

func (s *serializer) write(sb *strings.Builder, v reflect.Value) {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			s.primitives++
			sb.WriteString("l:null")
			return
		}
		v = v.Elem()
	}

	if !v.IsValid() {
		s.primitives++
		sb.WriteString("l:null")
		return
	}

	if v.Type() == reflect.TypeOf(time.Time{}) {
		s.primitives++
		t := v.Interface().(time.Time)
		sb.WriteString("d:")
		sb.WriteString(t.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
		return
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			s.primitives++
			sb.WriteString("l:null")
			return
		}
		ptr := v.Pointer()
		if s.seen[ptr] {
			s.primitives++
			s.writeString(sb, circularMarker)
			return
		}
		s.seen[ptr] = true
		s.write(sb, v.Elem())
		delete(s.seen, ptr)

	case reflect.Bool:
		s.primitives++
		sb.WriteString("b:")
		sb.WriteString(strconv.FormatBool(v.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s.primitives++
		sb.WriteString("n:")
		sb.WriteString(strconv.FormatInt(v.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s.primitives++
		sb.WriteString("n:")
		sb.WriteString(strconv.FormatUint(v.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		s.primitives++
		sb.WriteString("n:")
		sb.WriteString(formatNumber(v.Float()))

	case reflect.String:
		s.primitives++
		s.writeString(sb, v.String())

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice {
			if v.IsNil() {
				s.primitives++
				sb.WriteString("l:null")
				return
			}
			ptr := v.Pointer()
			if s.seen[ptr] {
				s.primitives++
				s.writeString(sb, circularMarker)
				return
			}
			s.seen[ptr] = true
			defer delete(s.seen, ptr)
		}
		s.arrays++
		s.arrayItems += v.Len()
		parts := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			var part strings.Builder
			s.write(&part, v.Index(i))
			parts[i] = part.String()
		}
		if s.normalizeArrays {
			sort.Strings(parts)
		}
		sb.WriteString("a:[")
		sb.WriteString(strings.Join(parts, ","))
		sb.WriteString("]")

	case reflect.Map:
		if v.IsNil() {
			s.primitives++
			sb.WriteString("l:null")
			return
		}
		ptr := v.Pointer()
		if s.seen[ptr] {
			s.primitives++
			s.writeString(sb, circularMarker)
			return
		}
		s.seen[ptr] = true
		defer delete(s.seen, ptr)

		s.objects++
		mapKeys := v.MapKeys()
		names := make([]string, len(mapKeys))
		byName := make(map[string]reflect.Value, len(mapKeys))
		for i, k := range mapKeys {
			name := fmt.Sprint(k.Interface())
			names[i] = name
			byName[name] = v.MapIndex(k)
		}
		sort.Strings(names)
		s.keys += len(names)
		sb.WriteString("o:{")
		for i, name := range names {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(strconv.Quote(name))
			sb.WriteString(":")
			s.write(sb, byName[name])
		}
		sb.WriteString("}")

	case reflect.Struct:
		s.objects++
		fields := structFields(v)
		s.keys += len(fields)
		sb.WriteString("o:{")
		for i, f := range fields {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(strconv.Quote(f.name))
			sb.WriteString(":")
			s.write(sb, f.value)
		}
		sb.WriteString("}")

	default:
		s.primitives++
		sb.WriteString("l:null")
	}
}

func (s *serializer) writeString(sb *strings.Builder, str string) {
	sb.WriteString("s:")
	sb.WriteString(strconv.Quote(str))
}

type structField struct {
	name  string
	value reflect.Value
}

// structFields lists exported fields sorted by their effective name,
// honoring json tags the way encoding/json would.
func structFields(v reflect.Value) []structField {
	t := v.Type()
	fields := make([]structField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields = append(fields, structField{name: name, value: v.Field(i)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })
	return fields
}

// formatNumber renders floats without an exponent style change for whole
// values and maps negative zero to 0 so logically equal numbers serialize
// identically.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
