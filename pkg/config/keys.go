package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Required key lengths, mirrored from the pipeline so config can validate
// without importing it.
var keySizes = [3]int{16, 24, 32}

// DecodeKey turns a configured key value into bytes. Values prefixed with
// "hex:" or "base64:" are decoded; anything else is taken verbatim.
func DecodeKey(value string) ([]byte, error) {
	switch {
	case strings.HasPrefix(value, "hex:"):
		b, err := hex.DecodeString(strings.TrimPrefix(value, "hex:"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex key: %w", err)
		}
		return b, nil
	case strings.HasPrefix(value, "base64:"):
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, "base64:"))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 key: %w", err)
		}
		return b, nil
	default:
		return []byte(value), nil
	}
}

// EncodeKey renders key bytes in the "hex:" form accepted by DecodeKey
func EncodeKey(key []byte) string {
	return "hex:" + hex.EncodeToString(key)
}

// IsSet reports whether any key value is configured
func (k KeysConfig) IsSet() bool {
	return k.Key1 != "" || k.Key2 != "" || k.Key3 != ""
}

// Decode decodes and length-checks all three keys
func (k KeysConfig) Decode() (key1, key2, key3 []byte, err error) {
	var out [3][]byte
	for i, v := range [3]string{k.Key1, k.Key2, k.Key3} {
		if v == "" {
			return nil, nil, nil, fmt.Errorf("key%d is not set", i+1)
		}
		b, err := DecodeKey(v)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("key%d: %w", i+1, err)
		}
		if len(b) != keySizes[i] {
			return nil, nil, nil, fmt.Errorf("key%d must be %d bytes, got %d", i+1, keySizes[i], len(b))
		}
		out[i] = b
	}
	return out[0], out[1], out[2], nil
}

// Masked returns a copy with key values hidden, for display
func (k KeysConfig) Masked() KeysConfig {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	return KeysConfig{
		Key1:   mask(k.Key1),
		Key2:   mask(k.Key2),
		Key3:   mask(k.Key3),
		Source: k.Source,
	}
}
