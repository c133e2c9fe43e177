/*
Package dsl provides a fluent Go builder for Tessera scripts.

It constructs block trees in code instead of YAML or JSON documents, which is
convenient for tests, generated scripts and IDE autocompletion.

Example usage:

	script := dsl.New("welcome").
		Named("Welcome new players").
		On("join").
		Then(
			dsl.If("is_op", dsl.P{"value": false}).Then(
				dsl.Do("send_message", dsl.P{"text": "Welcome {player}"}),
			),
			dsl.Repeat(3).Then(
				dsl.Do("broadcast", dsl.P{"text": "tick {index}"}),
			),
		).
		Build()

The result is an ordinary *domain.Script; it is validated when registered.
*/
package dsl
