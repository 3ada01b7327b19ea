// Package errors provides standardized error handling patterns for target-parquet.
//
// # Overview
//
// The errors package implements the pipeline's fatal error taxonomy: Parse
// (malformed input line), Protocol (record observed before its schema),
// Validation (record fails schema validation), Write (encode or filesystem
// failure during flush), and Config (invalid or missing configuration).
//
// The pipeline performs no retries; every classified error terminates the run
// with a non-zero exit status. Classification exists so the top level can map
// a failure to the right diagnostic, not so components can recover from it.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Five wrapper functions provide classification-aware wrapping:
//
//	errors.WrapParse(err, "Classifier", "Classify", "decode line")
//	errors.WrapProtocol(err, "Classifier", "Classify", "schema lookup")
//	errors.WrapValidation(err, "Registry", "Validate", "record")
//	errors.WrapWrite(err, "Writer", "WriteBatch", "encode sub-batch")
//	errors.WrapConfig(err, "Config", "Validate", "destination_path")
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Integration with errors.As/Is
//
// All error types support standard library error inspection:
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("Component: %s, Class: %s", ce.Component, ce.Class)
//	}
//
//	if errors.Is(err, errors.ErrProtocol) {
//	    // Handle record-before-schema specifically
//	}
//
// Classification is preserved through wrapping chains, so the run's top level
// can use IsParse/IsProtocol/IsValidation/IsWrite/IsConfig on any error that
// bubbles up from the pipeline stages.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
