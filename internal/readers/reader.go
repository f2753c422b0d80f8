// Package readers fetches source documents and decodes them into generic
// records for the import engine.
//
// A Reader is built per task from a Definition registered under its code.
// Links are fetched through a Fetcher chosen by URL scheme, so every reader
// works the same way against http(s), s3 and local file sources.
package readers

import (
	"context"
	"errors"
	"fmt"
)

// ExampleDataLimit caps the number of records decoded for a preview.
const ExampleDataLimit = 100

// ErrResourceNotFound is wrapped by fetch errors for missing resources.
var ErrResourceNotFound = errors.New("resource not found")

type ReadOptions struct {
	// ExampleData stops decoding after ExampleDataLimit records.
	ExampleData bool
}

// Reader fetches one page of a source and decodes it.
type Reader interface {
	Code() string

	// DataInRoot reports whether decoded records are the document root.
	// When false the importer may locate them with a data path.
	DataInRoot() bool

	Read(ctx context.Context, link string, opts ReadOptions) (ImportedData, error)
}

// ReaderError reports an unreachable, invalid or wrongly typed source.
type ReaderError struct {
	Link string
	Msg  string
	Err  error
}

func (e *ReaderError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Link == "" {
		return msg
	}
	return fmt.Sprintf("%s (%s)", msg, e.Link)
}

func (e *ReaderError) Unwrap() error {
	return e.Err
}

func newReaderError(link, msg string, err error) *ReaderError {
	return &ReaderError{Link: link, Msg: msg, Err: err}
}
