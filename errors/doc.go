// Package errors provides structured error types for the corpus extractor.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes context: a path into the offending
// structure and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformedModule).
//		Path("code section").
//		Detail("duplicate code section").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MalformedModule("missing code section")
//	err := errors.Unsupported(errors.PhaseDebugInfo, "DW_AT_low_pc with non-address form")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
