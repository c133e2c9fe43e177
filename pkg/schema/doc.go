// Package schema declares and enforces block parameter schemas.
//
// Every block type publishes a Schema: a map of parameter names to Fields, each
// carrying a Type, a required flag and an optional default. Apply validates a
// parameter bag once, at registration, and returns a normalized copy:
//
//	s := schema.Schema{
//	    "text":  schema.Required(schema.String()),
//	    "times": schema.Optional(schema.Int(), 1),
//	    "to":    schema.Optional(schema.Enum("actor", "target"), "actor"),
//	}
//
//	params, err := s.Apply(map[string]any{"text": "hi", "times": float64(3)})
//	// params["times"] == 3 (int); params["to"] == "actor"
//
// Unknown parameter names, missing required parameters and mistyped values are
// all reported together in an *AggregateError. Types implementing Coercer
// normalize values after validation, e.g. JSON whole-number floats become ints.
package schema
