package safety

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultContentIsValid(t *testing.T) {
	content := Default()

	assert.NotEmpty(t, content.Version)
	assert.Contains(t, content.EscalationResponse, "988")
	assert.NotContains(t, content.EscalationResponse, "[CRISIS_DETECTED]")
	require.Len(t, content.Resources, 4)
	assert.Equal(t, "988 Suicide & Crisis Lifeline", content.Resources[0].Name)
	require.NotNil(t, content.Resources[0].URL)
	assert.Nil(t, content.Resources[3].URL)
}

func TestParseRejectsIncompleteContent(t *testing.T) {
	_, err := Parse([]byte(`version: "1"`))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "escalation_response"))
	assert.True(t, strings.Contains(err.Error(), "resource"))
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "safety.yaml")
	raw := `
version: "test"
escalation_response: "Please call someone now."
fallback_response: "Try again."
empty_reply_response: "Tell me more."
resources:
  - name: Local line
    action: Call 123
    available: always
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	content, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", content.Version)
	assert.Equal(t, "Please call someone now.", content.EscalationResponse)
	assert.Len(t, content.ResourcesCopy(), 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
