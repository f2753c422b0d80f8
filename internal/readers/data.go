package readers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// ImportedData is one decoded page of source records.
type ImportedData interface {
	// Each calls fn for every root record in order and stops at the first error.
	Each(fn func(row any) error) error

	// Root returns the whole decoded document. Spooled data has no root.
	Root() any

	DataInRoot() bool

	// HeadingRow returns the column names of tabular sources.
	HeadingRow() []string

	// PrepareRow turns a raw row into an associative record.
	PrepareRow(row any) map[string]any

	Empty() bool
	Count() int

	// Close releases temporary storage held by the data.
	Close() error
}

// MemoryData holds a decoded document in memory.
type MemoryData struct {
	root    any
	inRoot  bool
	heading []string
}

func NewMemoryData(root any, inRoot bool) *MemoryData {
	return &MemoryData{root: root, inRoot: inRoot}
}

func (d *MemoryData) WithHeadingRow(heading []string) *MemoryData {
	d.heading = heading
	return d
}

func (d *MemoryData) Each(fn func(row any) error) error {
	return EachRecord(d.root, fn)
}

func (d *MemoryData) Root() any { return d.root }
func (d *MemoryData) DataInRoot() bool { return d.inRoot }
func (d *MemoryData) HeadingRow() []string { return d.heading }
func (d *MemoryData) Empty() bool { return d.Count() == 0 }
func (d *MemoryData) Close() error { return nil }
func (d *MemoryData) Count() int { return CountRecords(d.root) }

func (d *MemoryData) PrepareRow(row any) map[string]any {
	return PrepareRow(row, d.heading)
}

// EachRecord iterates the records of a decoded value. Lists yield their
// elements, objects yield their values in key order and any other non-nil
// value is a single record.
func EachRecord(records any, fn func(row any) error) error {
	switch v := records.(type) {
	case nil:
		return nil
	case []any:
		for _, row := range v {
			if err := fn(row); err != nil {
				return err
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := fn(v[key]); err != nil {
				return err
			}
		}
	default:
		return fn(v)
	}
	return nil
}

// CountRecords returns how many records EachRecord would yield.
func CountRecords(records any) int {
	switch v := records.(type) {
	case nil:
		return 0
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	default:
		return 1
	}
}

// PrepareRow keys list rows by heading, falling back to the positional
// index for columns without a heading.
func PrepareRow(row any, heading []string) map[string]any {
	switch v := row.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case []any:
		record := make(map[string]any, len(v))
		for i, value := range v {
			record[columnKey(i, heading)] = value
		}
		return record
	case []string:
		record := make(map[string]any, len(v))
		for i, value := range v {
			record[columnKey(i, heading)] = value
		}
		return record
	default:
		return map[string]any{"0": v}
	}
}

func columnKey(i int, heading []string) string {
	if i < len(heading) && heading[i] != "" {
		return heading[i]
	}
	return strconv.Itoa(i)
}

// FileData spools rows to a temporary file of JSON lines so a large source
// never has to be held in memory.
type FileData struct {
	path    string
	file    *os.File
	writer  *bufio.Writer
	count   int
	heading []string
}

// NewFileData creates the spool file. Call Close to remove it.
func NewFileData() (*FileData, error) {
	file, err := os.CreateTemp("", "feedimport-*.jsonl")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary data file: %w", err)
	}
	return &FileData{path: file.Name(), file: file, writer: bufio.NewWriter(file)}, nil
}

// Add appends a row to the spool file.
func (d *FileData) Add(row any) error {
	if d.writer == nil {
		return fmt.Errorf("data file %s is sealed", d.path)
	}
	encoded, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	if _, err := d.writer.Write(encoded); err != nil {
		return err
	}
	if err := d.writer.WriteByte('\n'); err != nil {
		return err
	}
	d.count++
	return nil
}

// Seal flushes pending writes. No rows may be added afterwards.
func (d *FileData) Seal() error {
	if d.writer == nil {
		return nil
	}
	if err := d.writer.Flush(); err != nil {
		return err
	}
	d.writer = nil
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *FileData) SetHeadingRow(heading []string) {
	d.heading = heading
}

func (d *FileData) Each(fn func(row any) error) error {
	if err := d.Seal(); err != nil {
		return err
	}
	file, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var row any
		if err := decodeJSON(scanner.Bytes(), &row); err != nil {
			return fmt.Errorf("failed to decode spooled row: %w", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (d *FileData) Root() any { return nil }
func (d *FileData) DataInRoot() bool { return true }
func (d *FileData) HeadingRow() []string { return d.heading }
func (d *FileData) Count() int { return d.count }
func (d *FileData) Empty() bool { return d.count == 0 }

func (d *FileData) PrepareRow(row any) map[string]any {
	return PrepareRow(row, d.heading)
}

func (d *FileData) Close() error {
	if d.file != nil {
		d.file.Close()
		d.file = nil
		d.writer = nil
	}
	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// decodeJSON unmarshals keeping numbers as json.Number.
func decodeJSON(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(v)
}
