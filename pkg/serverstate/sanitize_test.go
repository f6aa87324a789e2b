package serverstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeRedactsKnownKeysPreservingLength(t *testing.T) {
	original := map[string]any{
		"username":    "u@x",
		"accessToken": "secret_token_123",
		"nested": map[string]any{
			"password": "",
		},
	}
	snapshot := map[string]any{
		"username":    "u@x",
		"accessToken": "secret_token_123",
		"nested": map[string]any{
			"password": "",
		},
	}

	out := Sanitize(original, nil).(map[string]any)

	assert.Equal(t, "u@x", out["username"])
	assert.Equal(t, "[REDACTED length: 16]", out["accessToken"])
	assert.Equal(t, "[REDACTED]", out["nested"].(map[string]any)["password"])

	// Original must be untouched.
	assert.Equal(t, snapshot, original)
}

func TestSanitizeRecursesThroughArrays(t *testing.T) {
	original := map[string]any{
		"records": []any{
			map[string]any{"client_secret": "abcd"},
			map[string]any{"client_secret": "xy"},
		},
	}

	out := Sanitize(original, nil).(map[string]any)
	records := out["records"].([]any)

	assert.Equal(t, "[REDACTED length: 4]", records[0].(map[string]any)["client_secret"])
	assert.Equal(t, "[REDACTED length: 2]", records[1].(map[string]any)["client_secret"])
}

func TestSanitizeExtraKeys(t *testing.T) {
	original := map[string]any{"customSecret": "hunter2"}
	out := Sanitize(original, []string{"customSecret"}).(map[string]any)
	assert.Equal(t, "[REDACTED length: 7]", out["customSecret"])
}

func TestSanitizeLeavesNonSensitiveValuesAlone(t *testing.T) {
	original := map[string]any{"id": "001xx0000000001", "count": 3, "active": true}
	out := Sanitize(original, nil).(map[string]any)
	assert.Equal(t, original, out)
}
