package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoInputDocuments means discovery found nothing, or every document
// failed extraction.
var ErrNoInputDocuments = errors.New("no input documents")

// ExtractionError is a per-document failure. The document is skipped.
type ExtractionError struct {
	Document string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Document, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError is a failure to load or run the embedding provider. It is
// fatal for the run.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
