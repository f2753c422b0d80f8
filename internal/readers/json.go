package readers

import (
	"context"
	"encoding/json"
)

const CodeJSON = "json"

type JSONReader struct {
	fetcher Fetcher
}

func NewJSONReader(fetcher Fetcher) *JSONReader {
	return &JSONReader{fetcher: fetcher}
}

func (r *JSONReader) Code() string     { return CodeJSON }
func (r *JSONReader) DataInRoot() bool { return false }

func (r *JSONReader) Read(ctx context.Context, link string, opts ReadOptions) (ImportedData, error) {
	res, err := r.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	// Numbers stay json.Number so large integer ids keep their identity.
	decoder := json.NewDecoder(res.Body)
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, newReaderError(link, "invalid JSON data", err)
	}
	if opts.ExampleData {
		doc = limitRecords(doc, ExampleDataLimit)
	}
	return NewMemoryData(doc, r.DataInRoot()), nil
}

// limitRecords truncates a root level list for previews.
func limitRecords(doc any, limit int) any {
	if list, ok := doc.([]any); ok && len(list) > limit {
		return list[:limit]
	}
	return doc
}
