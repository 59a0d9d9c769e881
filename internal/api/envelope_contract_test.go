package api

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fixtures under testdata/envelope are shared with client parsers.
// Server output must have exactly their keys, with the same v, success and
// details values.
func TestEnvelopeContract(t *testing.T) {
	tests := []struct {
		fixture string
		status  string
		body    any
	}{
		{"success.json", "200", map[string]string{"id": "p_test123", "name": "Test Item"}},
		{"success_null_data.json", "204", nil},
		{"error_simple.json", "404", &APIError{Message: "Resource not found"}},
		{"error_detailed.json", "422", &APIError{
			Code:    "POLICY_REJECTED",
			Message: "post removed: banned words found",
			Details: map[string]string{"outcome": "removed"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			want := readFixture(t, tt.fixture)

			env, err := EnvelopeTransformer(nil, tt.status, tt.body)
			require.NoError(t, err)
			got := roundTrip(t, env)

			assert.Equal(t, keysOf(want), keysOf(got))
			assert.Equal(t, want["v"], got["v"])
			assert.Equal(t, want["success"], got["success"])
			assert.Equal(t, want["details"], got["details"])
			if msg, ok := want["error"]; ok {
				assert.IsType(t, "", got["error"])
				assert.Equal(t, msg, got["error"])
			}
		})
	}
}

// Clients key on "v"; a renamed field would break them silently.
func TestEnvelopeContract_VersionKey(t *testing.T) {
	env, err := EnvelopeTransformer(nil, "200", nil)
	require.NoError(t, err)
	got := roundTrip(t, env)

	assert.EqualValues(t, EnvelopeVersion, got["v"])
	assert.NotContains(t, got, "version")
	assert.NotContains(t, got, "Version")
}

func TestEnvelopeTransformer_BareErrorStatus(t *testing.T) {
	env, err := EnvelopeTransformer(nil, "503", struct{}{})
	require.NoError(t, err)
	got := roundTrip(t, env)

	assert.Equal(t, false, got["success"])
	assert.Equal(t, "Service Unavailable", got["error"])
}

func readFixture(t *testing.T, name string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "envelope", name))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func roundTrip(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
