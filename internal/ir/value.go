package ir

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// IRValue is a sealed interface representing a literal operand in a query.
// Only IRNull, IRString, IRInt, IRBool and IRParam implement this.
// NO IRFloat - none of the dialects can express one and floats break
// deterministic binding.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents a null literal.
// Using an explicit type ensures all IRValues satisfy the sealed interface.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string literal.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer literal.
// Always int64, never float64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean literal.
type IRBool bool

func (IRBool) irValue() {}

// IRParam is a named placeholder (`$name` in query text) whose value is
// supplied by the caller at execution time, not at compile time.
type IRParam string

func (IRParam) irValue() {}

// NewIRString creates an NFC-normalized IRString value.
func NewIRString(s string) IRString {
	return IRString(NormalizeString(s))
}

// NewIRInt creates an IRInt value.
func NewIRInt(n int64) IRInt {
	return IRInt(n)
}

// NewIRBool creates an IRBool value.
func NewIRBool(b bool) IRBool {
	return IRBool(b)
}

// NewIRParam creates an IRParam value. A leading '$' is stripped.
func NewIRParam(name string) IRParam {
	return IRParam(strings.TrimPrefix(name, "$"))
}

// NormalizeString applies Unicode NFC normalization.
// Note titles typed on different platforms can differ only in composition;
// normalizing at the parser boundary makes them bind identically.
func NormalizeString(s string) string {
	return norm.NFC.String(s)
}

// ValueKind identifies an IRValue variant.
type ValueKind uint8

const (
	KindNull ValueKind = 1 << iota
	KindString
	KindInt
	KindBool
	KindParam
)

// String returns the lowercase name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindParam:
		return "param"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// KindOf returns the kind of v. A nil value reports KindNull.
func KindOf(v IRValue) ValueKind {
	switch v.(type) {
	case IRString:
		return KindString
	case IRInt:
		return KindInt
	case IRBool:
		return KindBool
	case IRParam:
		return KindParam
	default:
		return KindNull
	}
}

// KindSet is a set of value kinds. Dialects declare the literal kinds they
// can produce as a KindSet.
type KindSet uint8

// Kinds builds a KindSet from individual kinds.
func Kinds(kinds ...ValueKind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= KindSet(k)
	}
	return s
}

// Has reports whether k is in the set.
func (s KindSet) Has(k ValueKind) bool {
	return s&KindSet(k) != 0
}

// Add returns the set with k included.
func (s KindSet) Add(k ValueKind) KindSet {
	return s | KindSet(k)
}

// Minus returns the kinds in s that are not in other.
func (s KindSet) Minus(other KindSet) KindSet {
	return s &^ other
}

// List returns the kinds in the set in declaration order.
func (s KindSet) List() []ValueKind {
	var out []ValueKind
	for _, k := range []ValueKind{KindNull, KindString, KindInt, KindBool, KindParam} {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// String renders the set as "string|int".
func (s KindSet) String() string {
	kinds := s.List()
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = k.String()
	}
	return strings.Join(parts, "|")
}

// ToNative converts a literal to the Go value handed to a database driver.
// IRParam has no compile-time value and is rejected.
func ToNative(v IRValue) (any, error) {
	switch val := v.(type) {
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRBool:
		return bool(val), nil
	case IRNull, nil:
		return nil, nil
	case IRParam:
		return nil, fmt.Errorf("parameter $%s has no compile-time value", string(val))
	default:
		return nil, fmt.Errorf("unsupported IRValue type: %T", v)
	}
}

// FormatValue renders a literal the way it would be written in query text.
// Used in error messages and debug output, never in rendered queries.
func FormatValue(v IRValue) string {
	switch val := v.(type) {
	case IRString:
		return fmt.Sprintf("%q", string(val))
	case IRInt:
		return fmt.Sprintf("%d", int64(val))
	case IRBool:
		return fmt.Sprintf("%t", bool(val))
	case IRParam:
		return "$" + string(val)
	default:
		return "null"
	}
}

// SortedKeys returns map keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
