package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "scrapeguard/pkg/errors"
)

func sampleFields() map[string]string {
	fields := make(map[string]string)
	for _, name := range FieldNames() {
		fields[name] = base64.StdEncoding.EncodeToString([]byte("value-" + name))
	}
	return fields
}

func TestFieldNames(t *testing.T) {
	names := FieldNames()
	require.Len(t, names, 16)
	assert.Equal(t, "iv1", names[0])
	assert.Equal(t, "ct1", names[1])
	assert.Equal(t, "ct8", names[15])
}

func TestMarshalJSONOrder(t *testing.T) {
	b, err := BundleFromFields(sampleFields())
	require.NoError(t, err)

	data, err := json.Marshal(b)
	require.NoError(t, err)

	s := string(data)
	last := -1
	for _, name := range FieldNames() {
		idx := strings.Index(s, `"`+name+`"`)
		require.GreaterOrEqual(t, idx, 0, "missing %s", name)
		assert.Greater(t, idx, last, "%s out of order", name)
		last = idx
	}

	var flat map[string]string
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, sampleFields(), flat)
}

func TestParseBundle(t *testing.T) {
	good, err := json.Marshal(sampleFields())
	require.NoError(t, err)

	b, err := ParseBundle(good)
	require.NoError(t, err)
	assert.Equal(t, sampleFields()["ct5"], b.Stage(5).Ciphertext)
	assert.Equal(t, sampleFields()["iv1"], b.Stage(1).IV)

	var viaUnmarshal Bundle
	require.NoError(t, json.Unmarshal(good, &viaUnmarshal))
	assert.Equal(t, *b, viaUnmarshal)
}

func TestParseBundleRejectsBadShape(t *testing.T) {
	missing := sampleFields()
	delete(missing, "ct5")

	extra := sampleFields()
	extra["version"] = "1"

	empty := sampleFields()
	empty["iv3"] = ""

	notBase64 := sampleFields()
	notBase64["ct6"] = "not base64!"

	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"not json", `{{`, "not a JSON object"},
		{"array", `["iv1"]`, "not a JSON object"},
		{"null", `null`, "not a JSON object"},
		{"missing ct5", mustJSON(t, missing), "ct5"},
		{"extra field", mustJSON(t, extra), "version"},
		{"empty field", mustJSON(t, empty), "iv3"},
		{"not base64", mustJSON(t, notBase64), "ct6"},
		{"non string value", strings.Replace(mustJSON(t, sampleFields()), `"`+sampleFields()["iv2"]+`"`, `42`, 1), "iv2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBundle([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errs.IsType(err, errs.ErrorTypeMalformedBundle), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateShapeNil(t *testing.T) {
	var b *Bundle
	assert.True(t, errs.IsType(b.ValidateShape(), errs.ErrorTypeMalformedBundle))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
