// Package attest evaluates assertion sentences: short, human-readable
// claims about runtime values such as
//
//	{x} not equals {y}
//	{low} less than {mid} less than {high}
//	{name} `starts with` {prefix}
//
// # Quick Start
//
//	ok, err := attest.Attest("{x} not equals {y}", 41, 42)
//
// Braced text names an operand. Operands bind to arguments by position: the
// first operand reads the first argument, the second the second, and so on.
// The names inside the braces are labels for traces and error messages only.
//
// # Operators
//
// Builtin comparisons, with their symbolic spellings:
//
//   - equals, ==
//   - not equals, !=
//   - greater than, >
//   - greater than or equal to, >=
//   - less than, <
//   - less than or equal to, <=
//
// Any other backquoted text is a user operator, resolved through the
// engine's operator registry (see Engine.RegisterOperator). The standard set
// adds contains, starts with, ends with and divides.
//
// Operators chain: each compares the operand to its left with the operand to
// its right, and the sentence passes only when every comparison holds.
// A sentence with no operators passes.
//
// # Engine
//
// An Engine caches compiled sentences, keeps named assertions, records
// evaluation statistics and emits a trace event for every comparison:
//
//	engine := attest.NewEngine(attest.WithConsoleTrace(os.Stdout))
//	engine.AddAssertion("ordered", "{lo} <= {hi}")
//	res, err := engine.Check(ctx, "ordered", 3, 7)
//	// Is lo <= hi true? Yes it was
//
// # Dashboard
//
// Engine.StartDashboard serves a web page and JSON API streaming evaluation
// events over WebSocket, and accepts sentences to validate or evaluate.
package attest
