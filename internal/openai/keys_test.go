package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckKeyFormat(t *testing.T) {
	assert.ErrorIs(t, CheckKeyFormat(""), ErrEmptyKey)
	assert.ErrorIs(t, CheckKeyFormat("pk-123"), ErrKeyFormat)
	assert.ErrorIs(t, CheckKeyFormat("sk-abc def"), ErrKeyCharacter)
	assert.ErrorIs(t, CheckKeyFormat(`sk-abc"def`), ErrKeyCharacter)
	assert.NoError(t, CheckKeyFormat("sk-abcdef"))
	assert.NoError(t, CheckKeyFormat("sk-proj-abcdef"))
	assert.NoError(t, CheckKeyFormat("sk_proj-abcdef"))
}

func TestNeedsProject(t *testing.T) {
	assert.True(t, NeedsProject("sk-proj-abc", ""))
	assert.False(t, NeedsProject("sk-proj-abc", "proj_1"))
	assert.False(t, NeedsProject("sk-abc", ""))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "None", MaskKey(""))
	assert.Equal(t, "***", MaskKey("sk-short"))
	assert.Equal(t, "sk-pro...wxyz", MaskKey("sk-proj-abcdefghijklmnopqrstuvwxyz"))
}
