package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrWriterRequired is returned when an entry writer is not provided.
	ErrWriterRequired = errors.New("entry writer required")

	// ErrProcessorRequired is returned when a document processor is not provided.
	ErrProcessorRequired = errors.New("document processor required")

	// ErrInvalidConfig is returned for out-of-range processing parameters.
	ErrInvalidConfig = errors.New("invalid processing configuration")

	// ErrParse is returned when a source cannot be decoded into a document.
	ErrParse = errors.New("cannot parse document")

	// ErrPanic wraps a panic recovered while processing a document.
	ErrPanic = errors.New("document processing panicked")
)
