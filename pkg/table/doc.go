// Package table provides the typed columnar data model consumed and produced by
// the evaluation engine.
//
// A Column carries exactly one of four kinds: Float, Int, Bool, or OptionalFloat.
// OptionalFloat pairs every value with an explicit presence flag so that
// "not applicable" is a typed absence rather than a NaN with rule-specific
// meaning.
//
// A Table is append-only. Columns can be added but never replaced, which is how
// the engine guarantees that no quantity changes after it is first computed.
//
// Take and Scatter are the explicit gather and scatter primitives used for
// household partitioning: a partition is gathered with Take, evaluated
// independently, and written back to its original row positions with Scatter.
package table
