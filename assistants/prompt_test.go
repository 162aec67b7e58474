package assistants_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/effective-security/felix/assistants"
	"github.com/effective-security/felix/chatmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	p, err := assistants.NewPrompt("", "")
	require.NoError(t, err)

	skills := p.Skills()
	assert.Equal(t, 2, strings.Count(skills, assistants.SkillsSeparator))
	assert.True(t, strings.HasPrefix(skills, "# Skill: Weather"))
	assert.Less(t, strings.Index(skills, "Taiwan Forecast"), strings.Index(skills, "General Questions"))

	catalogue := "- get_weather\n- read_file: Read a file"
	sys, err := p.System(catalogue)
	require.NoError(t, err)
	assert.Contains(t, sys, "You are Felix")
	assert.Contains(t, sys, "Available tools:\n"+catalogue+"\n")
	assert.Contains(t, sys, `{"tool": "tool_name", "args": {"parameter": "value"}}`)
	assert.True(t, strings.HasSuffix(sys, "\n\n"+skills))
}

func TestPrompt_Custom(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-extra.md"), []byte("# Skill: Extra\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	p, err := assistants.NewPrompt(`Tools: {{ .Tools | upper }}`, dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.Skills(), assistants.SkillsSeparator+"# Skill: Extra"))
	assert.NotContains(t, p.Skills(), "ignored")

	sys, err := p.System("- echo")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sys, "Tools: - ECHO\n\n# Skill: Weather"))

	_, err = assistants.NewPrompt(`{{ .Tools `, "")
	require.Error(t, err)
	assert.True(t, chatmodel.IsConfigError(err))
}

func TestUserMessage(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "hello", assistants.UserMessage(ctx, "hello"))

	rc := chatmodel.NewRequestContext("")
	ctx = chatmodel.WithRequestContext(ctx, rc)
	assert.Equal(t, "hello", assistants.UserMessage(ctx, "hello"))

	require.True(t, rc.SetLocation(25.033, 121.5654))
	assert.Equal(t, "what's the weather?\n\n(caller location: lat=25.033, lon=121.5654)",
		assistants.UserMessage(ctx, "what's the weather?"))
}
