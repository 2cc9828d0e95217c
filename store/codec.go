package store

import (
	"fmt"
	"time"

	"github.com/jacentio/lattice/entry"
	"github.com/jacentio/lattice/internal/recordkey"
)

// record is the persisted shape of an entry. The value variants are
// pointers (or an omitted set) so that exactly one survives marshaling;
// DynamoDB rejects empty string sets, so an empty set stores no set_value
// attribute at all and value_kind alone carries the type.
type record struct {
	PK          string    `dynamodbav:"pk"`
	SK          string    `dynamodbav:"sk"`
	Category    string    `dynamodbav:"category"`
	Position    int64     `dynamodbav:"position"`
	Key         string    `dynamodbav:"key"`
	ValueKind   string    `dynamodbav:"value_kind"`
	BoolValue   *bool     `dynamodbav:"bool_value,omitempty"`
	StringValue *string   `dynamodbav:"string_value,omitempty"`
	SetValue    []string  `dynamodbav:"set_value,stringset,omitempty"`
	Version     int64     `dynamodbav:"version"`
	CreatedAt   time.Time `dynamodbav:"created_at,unixtime"`
	UpdatedAt   time.Time `dynamodbav:"updated_at,unixtime"`
}

// newRecord converts an entry for persistence, carrying version and
// timestamps as they stand on the entry.
func newRecord(e entry.Entry) (record, error) {
	rec := record{
		PK:        e.OwnerID,
		SK:        recordkey.SK(e.Category, e.Position, e.Key),
		Category:  e.Category.String(),
		Position:  e.Position,
		Key:       e.Key,
		ValueKind: e.Value.Kind().String(),
		Version:   e.Version,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}

	switch e.Value.Kind() {
	case entry.ValueBool:
		v, _ := e.Value.Bool()
		rec.BoolValue = &v
	case entry.ValueString:
		v, _ := e.Value.String()
		rec.StringValue = &v
	case entry.ValueStringSet:
		members, _ := e.Value.StringSet()
		rec.SetValue = members
	default:
		return record{}, fmt.Errorf("%w: no value populated", entry.ErrInvalidValueKind)
	}

	return rec, nil
}

// toEntry converts a persisted record back to an entry. Records whose
// value_kind disagrees with the stored attributes are malformed and
// surface as errors rather than silently dropping data.
func (r record) toEntry() (entry.Entry, error) {
	e := entry.Entry{
		OwnerID:   r.PK,
		Category:  entry.ParseCategory(r.Category),
		Position:  r.Position,
		Key:       r.Key,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	switch entry.ParseValueKind(r.ValueKind) {
	case entry.ValueBool:
		if r.BoolValue == nil {
			return entry.Entry{}, fmt.Errorf("lattice: record %q has kind bool without bool_value", r.SK)
		}
		e.Value = entry.BoolValue(*r.BoolValue)
	case entry.ValueString:
		if r.StringValue == nil {
			return entry.Entry{}, fmt.Errorf("lattice: record %q has kind string without string_value", r.SK)
		}
		e.Value = entry.StringValue(*r.StringValue)
	case entry.ValueStringSet:
		e.Value = entry.SetValue(r.SetValue...)
	default:
		return entry.Entry{}, fmt.Errorf("lattice: record %q has unrecognized value kind %q", r.SK, r.ValueKind)
	}

	return e, nil
}
