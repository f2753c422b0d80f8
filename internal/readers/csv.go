package readers

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"
)

const CodeCSV = "csv"

var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/octet-stream": true,
	"text/plain":               true,
}

type CSVOptions struct {
	HasHeadingRow bool   `json:"has_heading_row" yaml:"has_heading_row"`
	SkipEmptyRows bool   `json:"skip_empty_rows" yaml:"skip_empty_rows"`
	Delimiter     string `json:"delimiter,omitempty" yaml:"delimiter"`
	Comment       string `json:"comment,omitempty" yaml:"comment"`
	LazyQuotes    bool   `json:"lazy_quotes,omitempty" yaml:"lazy_quotes"`
}

func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{SkipEmptyRows: true, Delimiter: ","}
}

// CSVReader spools rows to a temporary file, so pages of any size can be read.
type CSVReader struct {
	fetcher Fetcher
	options CSVOptions
}

func NewCSVReader(fetcher Fetcher, options *CSVOptions) *CSVReader {
	if options == nil {
		options = DefaultCSVOptions()
	}
	return &CSVReader{fetcher: fetcher, options: *options}
}

func (r *CSVReader) Code() string     { return CodeCSV }
func (r *CSVReader) DataInRoot() bool { return true }

func (r *CSVReader) Read(ctx context.Context, link string, opts ReadOptions) (ImportedData, error) {
	res, err := r.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if !csvContentTypes[res.MediaType()] {
		return nil, newReaderError(link, "invalid CSV data: unexpected content type "+res.ContentType, nil)
	}

	csvReader := csv.NewReader(res.Body)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = r.options.LazyQuotes
	if delim, _ := utf8.DecodeRuneInString(r.options.Delimiter); delim != utf8.RuneError {
		csvReader.Comma = delim
	}
	if comment, _ := utf8.DecodeRuneInString(r.options.Comment); comment != utf8.RuneError {
		csvReader.Comment = comment
	}

	data, err := NewFileData()
	if err != nil {
		return nil, newReaderError(link, "temporary file creating error", err)
	}

	var heading []string
	for {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			data.Close()
			return nil, newReaderError(link, "invalid CSV data", err)
		}
		if r.options.SkipEmptyRows && isEmptyRow(row) {
			continue
		}
		if heading == nil && r.options.HasHeadingRow {
			heading = row
			continue
		}
		if err := data.Add(row); err != nil {
			data.Close()
			return nil, newReaderError(link, "temporary file writing error", err)
		}
		if opts.ExampleData && data.Count() >= ExampleDataLimit {
			break
		}
	}

	data.SetHeadingRow(heading)
	if err := data.Seal(); err != nil {
		data.Close()
		return nil, newReaderError(link, "temporary file writing error", err)
	}
	return data, nil
}

func isEmptyRow(row []string) bool {
	for _, value := range row {
		if value != "" {
			return false
		}
	}
	return true
}
