package domain

import "errors"

// Failure taxonomy. Layers wrap these with fmt.Errorf("...: %w", ...) and
// callers match with errors.Is.
var (
	// ErrNotFound: missing input path, or missing index snapshot on load.
	ErrNotFound = errors.New("not found")

	// ErrEmptyInput: no documents matched for ingestion, or a blank
	// question reached the retriever.
	ErrEmptyInput = errors.New("no usable input")

	// ErrModelLoad: the embedding model or completion client could not
	// initialize. Fatal to the process.
	ErrModelLoad = errors.New("model could not be loaded")

	// ErrModelMismatch: the index snapshot was built by a different
	// embedding model than the one configured now.
	ErrModelMismatch = errors.New("index was built with a different embedding model")

	// ErrNoResults: retrieval matched nothing. Soft; the session reports
	// it as a plain message and continues.
	ErrNoResults = errors.New("no relevant information found")

	// ErrGeneration: the completion request failed. Soft; the session
	// reports it and continues.
	ErrGeneration = errors.New("answer generation failed")
)
