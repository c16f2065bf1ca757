package handoff

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindRecord
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindString: "string",
	KindNumber: "number",
	KindBool:   "bool",
	KindRecord: "record",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func parseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindNull, fmt.Errorf("unknown value kind %q", s)
}

// Value is a tagged union carried in a task context and produced as agent
// output. The zero Value is null. Values are immutable: Record copies its
// input and AsRecord returns a copy.
type Value struct {
	kind Kind
	str  string
	num  float64
	flag bool
	rec  map[string]Value
}

// String creates a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number creates a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// Record creates a structured value. A nil map yields an empty record.
func Record(fields map[string]Value) Value {
	rec := make(map[string]Value, len(fields))
	for k, v := range fields {
		rec[k] = v
	}
	return Value{kind: KindRecord, rec: rec}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the zero Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// AsRecord returns a copy of the record fields.
func (v Value) AsRecord() (map[string]Value, bool) {
	if v.kind != KindRecord {
		return nil, false
	}
	out := make(map[string]Value, len(v.rec))
	for k, f := range v.rec {
		out[k] = f
	}
	return out, true
}

// Field returns a single field of a record value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindRecord {
		return Value{}, false
	}
	f, ok := v.rec[name]
	return f, ok
}

// Equal reports deep equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num || (math.IsNaN(v.num) && math.IsNaN(other.num))
	case KindBool:
		return v.flag == other.flag
	case KindRecord:
		if len(v.rec) != len(other.rec) {
			return false
		}
		for k, f := range v.rec {
			o, ok := other.rec[k]
			if !ok || !f.Equal(o) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders v for humans. Strings render verbatim; records render
// with sorted keys.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindRecord:
		keys := make([]string, 0, len(v.rec))
		for k := range v.rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(v.rec[k].String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		return "null"
	}
}

type valueJSON struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes v as {"kind": ..., "value": ...}.
func (v Value) MarshalJSON() ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	switch v.kind {
	case KindString:
		payload, err = json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			// JSON has no NaN/Inf literal; "NaN", "+Inf" and "-Inf" travel as strings.
			payload, err = json.Marshal(strconv.FormatFloat(v.num, 'g', -1, 64))
		} else {
			payload, err = json.Marshal(v.num)
		}
	case KindBool:
		payload, err = json.Marshal(v.flag)
	case KindRecord:
		payload, err = json.Marshal(v.rec)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Kind: v.kind.String(), Value: payload})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw valueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := parseKind(raw.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case KindString:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return err
		}
		*v = String(s)
	case KindNumber:
		f, err := decodeNumber(raw.Value)
		if err != nil {
			return err
		}
		*v = Number(f)
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case KindRecord:
		var m map[string]Value
		if len(raw.Value) > 0 {
			if err := json.Unmarshal(raw.Value, &m); err != nil {
				return err
			}
		}
		*v = Record(m)
	default:
		*v = Value{}
	}
	return nil
}

func decodeNumber(data []byte) (float64, error) {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, fmt.Errorf("number value: %w", err)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !(math.IsNaN(f) || math.IsInf(f, 0)) {
		return 0, fmt.Errorf("number value: unexpected string %q", s)
	}
	return f, nil
}
