package entry

import "slices"

// ValueKind discriminates which variant a Value carries.
type ValueKind int

const (
	// ValueInvalid is the zero ValueKind; persisted entries never carry it.
	ValueInvalid ValueKind = iota

	// ValueBool marks boolean values (toggles).
	ValueBool

	// ValueString marks string values (preferences, sortable items).
	ValueString

	// ValueStringSet marks string-set values (favorites).
	ValueStringSet
)

const (
	valueKindBool      = "bool"
	valueKindString    = "string"
	valueKindStringSet = "string_set"
)

// String returns the wire name of the kind.
func (k ValueKind) String() string {
	switch k {
	case ValueBool:
		return valueKindBool
	case ValueString:
		return valueKindString
	case ValueStringSet:
		return valueKindStringSet
	default:
		return "invalid"
	}
}

// ParseValueKind maps a wire name back to a ValueKind. Unrecognized names
// return ValueInvalid.
func ParseValueKind(s string) ValueKind {
	switch s {
	case valueKindBool:
		return ValueBool
	case valueKindString:
		return ValueString
	case valueKindStringSet:
		return ValueStringSet
	default:
		return ValueInvalid
	}
}

// Value is a tagged union over the three storable value types. Exactly one
// variant is populated; the zero Value is invalid. The variant fields are
// unexported and the accessors copy, so Values are immutable and safe to
// share across goroutines.
type Value struct {
	kind ValueKind
	b    bool
	s    string
	set  []string
}

// BoolValue returns a boolean Value.
func BoolValue(v bool) Value { return Value{kind: ValueBool, b: v} }

// StringValue returns a string Value.
func StringValue(v string) Value { return Value{kind: ValueString, s: v} }

// SetValue returns a string-set Value. Members are sorted and
// deduplicated, and empty members are dropped; an empty set is
// representable.
func SetValue(members ...string) Value {
	return Value{kind: ValueStringSet, set: normalizeSet(members)}
}

// Kind reports which variant is populated.
func (v Value) Kind() ValueKind { return v.kind }

// Bool returns the boolean variant. ok is false when the value holds a
// different kind.
func (v Value) Bool() (value, ok bool) {
	return v.b, v.kind == ValueBool
}

// String returns the string variant. ok is false when the value holds a
// different kind.
func (v Value) String() (value string, ok bool) {
	return v.s, v.kind == ValueString
}

// StringSet returns a copy of the string-set variant. ok is false when the
// value holds a different kind; an empty set returns ok with length zero.
func (v Value) StringSet() (members []string, ok bool) {
	if v.kind != ValueStringSet {
		return nil, false
	}
	return slices.Clone(v.set), true
}

func normalizeSet(members []string) []string {
	if len(members) == 0 {
		return nil
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == "" {
			continue
		}
		out = append(out, m)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
