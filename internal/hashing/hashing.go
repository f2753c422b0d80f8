// Package hashing provides the deterministic content hashes used by the import
// ledger: record payload hashes, entry identity hashes and configuration hashes.
//
// All hashes are computed over encoding/json output. Map keys are emitted in
// sorted order, so two structurally equal values always hash the same way
// regardless of how they were built.
package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// EntrySeparator joins identity values before hashing.
const EntrySeparator = "-"

// Hashable is implemented by configuration values that declare which of their
// fields participate in the configuration hash.
type Hashable interface {
	HashFields() map[string]any
}

// Data returns the sha1 hex digest of the JSON encoding of v.
// A nil value hashes to the empty string.
func Data(v any) string {
	if v == nil {
		return ""
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		// Values reaching the ledger come from decoded JSON/XML/CSV documents,
		// so this only happens for programmer errors such as channels or funcs.
		encoded = []byte(cast.ToString(v))
	}
	sum := sha1.Sum(encoded)
	return hex.EncodeToString(sum[:])
}

// Entry returns the md5 hex digest of the identity values joined with
// EntrySeparator. Non-scalar values are JSON encoded first.
func Entry(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, Scalar(v))
	}
	sum := md5.Sum([]byte(strings.Join(parts, EntrySeparator)))
	return hex.EncodeToString(sum[:])
}

// Config returns the hash of the hash-relevant subset of a configuration.
// A nil configuration has no hash.
func Config(h Hashable) string {
	if h == nil {
		return ""
	}
	return Data(h.HashFields())
}

// Scalar renders a single identity value as a string. Booleans follow the
// "1"/"" convention so that legacy entry ids remain stable.
func Scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return ""
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return cast.ToString(val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return cast.ToString(val)
		}
		return string(encoded)
	}
}
