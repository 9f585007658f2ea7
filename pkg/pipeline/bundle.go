package pipeline

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"scrapeguard/pkg/cipherstage"
	errs "scrapeguard/pkg/errors"
)

// NumStages is the length of the encryption chain
const NumStages = 8

// Bundle holds the IV and ciphertext of every stage. On disk it is a flat
// JSON object with the keys iv1, ct1, ..., iv8, ct8.
type Bundle struct {
	Stages [NumStages]cipherstage.Output
}

// IVField returns the JSON field name for the IV of stage k (1-based)
func IVField(k int) string { return fmt.Sprintf("iv%d", k) }

// CTField returns the JSON field name for the ciphertext of stage k (1-based)
func CTField(k int) string { return fmt.Sprintf("ct%d", k) }

// FieldNames lists the 16 bundle fields in canonical order
func FieldNames() []string {
	names := make([]string, 0, 2*NumStages)
	for k := 1; k <= NumStages; k++ {
		names = append(names, IVField(k), CTField(k))
	}
	return names
}

// Stage returns the output of stage k (1-based)
func (b *Bundle) Stage(k int) cipherstage.Output {
	return b.Stages[k-1]
}

// Fields returns the bundle as a field -> base64 map
func (b *Bundle) Fields() map[string]string {
	m := make(map[string]string, 2*NumStages)
	for k := 1; k <= NumStages; k++ {
		m[IVField(k)] = b.Stages[k-1].IV
		m[CTField(k)] = b.Stages[k-1].Ciphertext
	}
	return m
}

// ValidateShape checks that all 16 fields are present, non-empty and valid
// base64. It never runs a cipher.
func (b *Bundle) ValidateShape() error {
	if b == nil {
		return errs.NewMalformedBundleError("bundle is nil", nil)
	}
	var missing, invalid []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
			return
		}
		if _, err := base64.StdEncoding.DecodeString(value); err != nil {
			invalid = append(invalid, name)
		}
	}
	for k := 1; k <= NumStages; k++ {
		check(IVField(k), b.Stages[k-1].IV)
		check(CTField(k), b.Stages[k-1].Ciphertext)
	}
	if len(missing) > 0 {
		return errs.NewMalformedBundleError("missing fields: "+strings.Join(missing, ", "), nil)
	}
	if len(invalid) > 0 {
		return errs.NewMalformedBundleError("fields are not valid base64: "+strings.Join(invalid, ", "), nil)
	}
	return nil
}

// BundleFromFields builds a bundle from a field map, rejecting missing or
// extra fields
func BundleFromFields(fields map[string]string) (*Bundle, error) {
	var extra []string
	want := make(map[string]bool, 2*NumStages)
	for _, name := range FieldNames() {
		want[name] = true
	}
	for name := range fields {
		if !want[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, errs.NewMalformedBundleError("unexpected fields: "+strings.Join(extra, ", "), nil)
	}

	b := &Bundle{}
	for k := 1; k <= NumStages; k++ {
		b.Stages[k-1] = cipherstage.Output{
			IV:         fields[IVField(k)],
			Ciphertext: fields[CTField(k)],
		}
	}
	if err := b.ValidateShape(); err != nil {
		return nil, err
	}
	return b, nil
}

// ParseBundle decodes a JSON object into a bundle. Anything other than an
// object with exactly the 16 string fields is a malformed bundle.
func ParseBundle(data []byte) (*Bundle, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.NewMalformedBundleError("bundle is not a JSON object", err)
	}
	if raw == nil {
		return nil, errs.NewMalformedBundleError("bundle is not a JSON object", nil)
	}

	fields := make(map[string]string, len(raw))
	for name, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, errs.NewMalformedBundleError(fmt.Sprintf("field %s is not a string", name), err)
		}
		fields[name] = s
	}
	return BundleFromFields(fields)
}

// MarshalJSON writes the fields in canonical order
func (b Bundle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for k := 1; k <= NumStages; k++ {
		for j, pair := range [2][2]string{
			{IVField(k), b.Stages[k-1].IV},
			{CTField(k), b.Stages[k-1].Ciphertext},
		} {
			if k > 1 || j > 0 {
				buf.WriteByte(',')
			}
			name, _ := json.Marshal(pair[0])
			value, err := json.Marshal(pair[1])
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON applies the same checks as ParseBundle
func (b *Bundle) UnmarshalJSON(data []byte) error {
	parsed, err := ParseBundle(data)
	if err != nil {
		return err
	}
	*b = *parsed
	return nil
}
