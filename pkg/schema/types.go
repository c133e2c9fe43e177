package schema

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type defines the contract for parameter validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// Coercer is implemented by types that normalize a valid value.
type Coercer interface {
	Coerce(value any) any
}

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, uint8, uint16:
		return nil
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return fmt.Errorf("expected int, got %d (out of range)", v)
		}
		return nil
	case uint, uint32, uint64:
		if reflect.ValueOf(v).Uint() > math.MaxInt {
			return fmt.Errorf("expected int, got %d (out of range)", v)
		}
		return nil
	case float64:
		// JSON numbers decode as float64.
		if v != math.Trunc(v) {
			return fmt.Errorf("expected int, got float (not a whole number)")
		}
		if v < math.MinInt || v >= -math.MinInt {
			return fmt.Errorf("expected int, got %g (out of range)", v)
		}
		return nil
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

// Coerce converts every accepted integer representation to int.
func (t *IntType) Coerce(value any) any {
	if _, ok := value.(int); ok {
		return value
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.CanInt():
		return int(rv.Int())
	case rv.CanUint():
		return int(rv.Uint())
	case rv.Kind() == reflect.Float64:
		return int(rv.Float())
	}
	return value
}

// FloatType validates numeric values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

// Coerce converts any accepted number to float64.
func (t *FloatType) Coerce(value any) any {
	rv := reflect.ValueOf(value)
	switch {
	case rv.CanFloat():
		return rv.Float()
	case rv.CanInt():
		return float64(rv.Int())
	case rv.CanUint():
		return float64(rv.Uint())
	}
	return value
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// AnyType accepts every non-nil value.
type AnyType struct{}

func (t *AnyType) Name() string { return "any" }

func (t *AnyType) Validate(value any) error {
	if value == nil {
		return fmt.Errorf("expected a value, got nil")
	}
	return nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// Coerce returns the slice as []any with every element coerced.
func (t *SliceType) Coerce(value any) any {
	rv := reflect.ValueOf(value)
	out := make([]any, rv.Len())
	c, _ := t.elemType.(Coercer)
	for i := range out {
		elem := rv.Index(i).Interface()
		if c != nil {
			elem = c.Coerce(elem)
		}
		out[i] = elem
	}
	return out
}

// MapType validates string-keyed maps.
type MapType struct{}

func (t *MapType) Name() string { return "map" }

func (t *MapType) Validate(value any) error {
	switch value.(type) {
	case map[string]any:
		return nil
	case map[any]any:
		return nil
	}
	return fmt.Errorf("expected map, got %T", value)
}

// Coerce normalizes map[any]any into map[string]any.
func (t *MapType) Coerce(value any) any {
	m, ok := value.(map[any]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}

// EnumType accepts one string out of a fixed set.
type EnumType struct {
	values []string
}

func (t *EnumType) Name() string { return "enum(" + strings.Join(t.values, "|") + ")" }

func (t *EnumType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	for _, v := range t.values {
		if v == s {
			return nil
		}
	}
	return fmt.Errorf("expected one of %s, got %q", strings.Join(t.values, ", "), s)
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Any creates a validator accepting any non-nil value.
func Any() Type { return &AnyType{} }

// Map creates a map type validator.
func Map() Type { return &MapType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Enum creates a validator accepting only the given strings.
func Enum(values ...string) Type {
	return &EnumType{values: values}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}
