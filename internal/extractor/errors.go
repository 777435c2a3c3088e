package extractor

import "errors"

// Failure taxonomy for the extraction pipeline. All of these are
// recovered locally and surface only as diagnostics; the caller sees an
// absent visualization, never an error.
var (
	// ErrScanIncomplete marks a trailing span whose braces never closed.
	// More text is expected for the same message.
	ErrScanIncomplete = errors.New("extractor: span incomplete, awaiting more text")

	// ErrDecodeFailed marks candidate text that no decode stage could
	// turn into a JSON object. The text stays in the transcript.
	ErrDecodeFailed = errors.New("extractor: candidate is not decodable JSON")

	// ErrClassificationUnknown marks valid JSON that matched no
	// registered visualization kind. The text stays in the transcript.
	ErrClassificationUnknown = errors.New("extractor: payload matches no known visualization")

	// ErrTransformFailed marks a recognized kind whose payload failed
	// canonicalization. The record is dropped but the span is still
	// stripped so raw structured data never reaches the transcript.
	ErrTransformFailed = errors.New("extractor: payload normalization failed")
)
