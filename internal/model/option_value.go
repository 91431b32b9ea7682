package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OptionKind is the value type of an option: a yes/no add-on or a quantity.
type OptionKind string

const (
	OptionKindBoolean OptionKind = "boolean"
	OptionKindInteger OptionKind = "integer"
)

func (k OptionKind) Valid() bool {
	return k == OptionKindBoolean || k == OptionKindInteger
}

// OptionValue holds either a boolean or an integer. It is used for binding
// defaults and for user selections, and encodes as a bare JSON bool or number.
type OptionValue struct {
	Kind OptionKind
	Bool bool
	Int  int64
}

func BoolValue(b bool) OptionValue { return OptionValue{Kind: OptionKindBoolean, Bool: b} }

func IntValue(n int64) OptionValue { return OptionValue{Kind: OptionKindInteger, Int: n} }

// IsZero reports whether the value was never set (absent in the document).
func (v OptionValue) IsZero() bool { return v.Kind == "" }

func (v OptionValue) String() string {
	switch v.Kind {
	case OptionKindBoolean:
		return strconv.FormatBool(v.Bool)
	case OptionKindInteger:
		return strconv.FormatInt(v.Int, 10)
	default:
		return "<unset>"
	}
}

func (v OptionValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case OptionKindBoolean:
		return []byte(strconv.FormatBool(v.Bool)), nil
	case OptionKindInteger:
		return []byte(strconv.FormatInt(v.Int, 10)), nil
	default:
		return []byte("null"), nil
	}
}

func (v *OptionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = OptionValue{}
	case bytes.Equal(data, []byte("true")):
		*v = BoolValue(true)
	case bytes.Equal(data, []byte("false")):
		*v = BoolValue(false)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("option value must be a boolean or an integer: %s", data)
		}
		i, err := parseWholeNumber(n)
		if err != nil {
			return err
		}
		*v = IntValue(i)
	}
	return nil
}

// parseWholeNumber accepts integral JSON numbers, including ones written with
// a trailing ".0" by form widgets that produce floats.
func parseWholeNumber(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("expected an integer, got %s", n)
	}
	return int64(f), nil
}

// wholeNumber is an int64 document field decoded with parseWholeNumber.
type wholeNumber int64

func (w *wholeNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) == 0 || data[0] == '"' {
		return fmt.Errorf("expected an integer, got %s", data)
	}
	i, err := parseWholeNumber(json.Number(data))
	if err != nil {
		return err
	}
	*w = wholeNumber(i)
	return nil
}

func (w *wholeNumber) ptr() *int64 {
	if w == nil {
		return nil
	}
	return Int64(int64(*w))
}
