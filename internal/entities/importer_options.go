package entities

import (
	"errors"
	"strings"
)

const (
	// PathDelimiter separates segments of a source key path, e.g. "media/0/url".
	PathDelimiter = "/"

	// IDFieldsDelimiter separates identity field paths in their string form.
	IDFieldsDelimiter = ","
)

// ErrNoIdentityFields is returned when an importer has no identity fields configured.
// Without them every record would hash to the same entry id.
var ErrNoIdentityFields = errors.New("at least one item hash id field is required")

// FieldOptions configures where an importable field reads its value from.
type FieldOptions struct {
	Key          string   `json:"key,omitempty" yaml:"key"`
	FallbackKeys []string `json:"fallback_keys,omitempty" yaml:"fallback_keys"`
	DefaultValue any      `json:"default_value,omitempty" yaml:"default_value"`
}

// ImporterOptions is the per-task importer configuration.
type ImporterOptions struct {
	// DataPath locates the record list inside the decoded document when the
	// reader does not return records at the root.
	DataPath string `json:"data_path,omitempty" yaml:"data_path"`

	// ItemHashIDFields are the record paths whose values identify an entry.
	ItemHashIDFields []string `json:"item_hash_id_fields" yaml:"item_hash_id_fields"`

	// Fields maps importable field names to their source options.
	Fields map[string]FieldOptions `json:"fields,omitempty" yaml:"fields"`

	// Force reprocesses records even when nothing changed. Not part of the hash.
	Force bool `json:"force,omitempty" yaml:"force"`

	// SyncData replaces every mapped field on update instead of patching.
	SyncData bool `json:"sync_data,omitempty" yaml:"sync_data"`

	// SkipExisting leaves already imported objects untouched.
	SkipExisting bool `json:"skip_existing,omitempty" yaml:"skip_existing"`

	// Deferred only records entries as scheduled; mapping happens in the
	// scheduled item run.
	Deferred bool `json:"deferred,omitempty" yaml:"deferred"`
}

// HashFields returns the options that change the outcome of an import.
func (o ImporterOptions) HashFields() map[string]any {
	fields := make(map[string]any, len(o.Fields))
	for name, opts := range o.Fields {
		fields[name] = opts
	}
	return map[string]any{
		"data_path":           o.DataPath,
		"item_hash_id_fields": o.ItemHashIDFields,
		"fields":              fields,
		"sync_data":           o.SyncData,
		"skip_existing":       o.SkipExisting,
		"deferred":            o.Deferred,
	}
}

// FieldOptionsFor returns the options configured for a field, or zero options.
func (o ImporterOptions) FieldOptionsFor(name string) FieldOptions {
	if o.Fields == nil {
		return FieldOptions{}
	}
	return o.Fields[name]
}

// ItemHashIDFieldsString joins the identity fields with IDFieldsDelimiter.
func (o ImporterOptions) ItemHashIDFieldsString() string {
	return strings.Join(o.ItemHashIDFields, IDFieldsDelimiter)
}

// SetItemHashIDFieldsString parses a comma separated identity field list.
func (o *ImporterOptions) SetItemHashIDFieldsString(value string) {
	o.ItemHashIDFields = nil
	for _, field := range strings.Split(value, IDFieldsDelimiter) {
		if field = strings.TrimSpace(field); field != "" {
			o.ItemHashIDFields = append(o.ItemHashIDFields, field)
		}
	}
}

// Validate checks the options can drive an import.
func (o ImporterOptions) Validate() error {
	for _, field := range o.ItemHashIDFields {
		if strings.TrimSpace(field) != "" {
			return nil
		}
	}
	return ErrNoIdentityFields
}
