package schema

import "sort"

// Field declares one parameter of a block type.
type Field struct {
	Type     Type
	Required bool
	Default  any
	Doc      string
}

// Required declares a mandatory parameter.
func Required(t Type) Field { return Field{Type: t, Required: true} }

// Optional declares a parameter filled with def when absent.
// A nil default leaves the parameter unset.
func Optional(t Type, def any) Field { return Field{Type: t, Default: def} }

// Describe returns a copy of f with documentation attached.
func (f Field) Describe(doc string) Field {
	f.Doc = doc
	return f
}

// Schema is a map of parameter names to their declarations.
type Schema map[string]Field

// Names returns the declared parameter names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply validates params and returns a normalized copy with defaults filled
// and values coerced. It never mutates params.
// Every failure is collected into an *AggregateError.
func (s Schema) Apply(params map[string]any) (map[string]any, error) {
	var errs []error

	unknown := make([]string, 0)
	for name := range params {
		if _, declared := s[name]; !declared {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = append(errs, &ValidationError{Key: name, Reason: "unknown parameter"})
	}

	out := make(map[string]any, len(s))
	for _, name := range s.Names() {
		field := s[name]
		value, present := params[name]
		if !present || value == nil {
			if field.Required {
				errs = append(errs, &ValidationError{Key: name, Reason: "required"})
				continue
			}
			if field.Default == nil {
				continue
			}
			value = field.Default
		}

		if err := field.Type.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: name, Reason: err.Error(), Value: value})
			continue
		}
		if c, ok := field.Type.(Coercer); ok {
			value = c.Coerce(value)
		}
		out[name] = value
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return out, nil
}

// Validate checks params against the schema without normalizing them.
func (s Schema) Validate(params map[string]any) error {
	_, err := s.Apply(params)
	return err
}
