package openai

import (
	"errors"
	"strings"
)

var (
	ErrEmptyKey     = errors.New("OPENAI_API_KEY is empty; check the .env location and variable name")
	ErrKeyFormat    = errors.New("OPENAI_API_KEY must start with sk- or sk-proj-")
	ErrKeyCharacter = errors.New("OPENAI_API_KEY contains quotes or whitespace; remove them from .env")
)

// CheckKeyFormat rejects keys that can never authenticate, before any request is made.
func CheckKeyFormat(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !strings.HasPrefix(key, "sk-") && !strings.HasPrefix(key, "sk_proj-") {
		return ErrKeyFormat
	}
	if strings.ContainsAny(key, "\"'` \t\n") {
		return ErrKeyCharacter
	}
	return nil
}

// NeedsProject reports a project-scoped key used without a project id.
func NeedsProject(key, projectID string) bool {
	return strings.HasPrefix(key, "sk-proj-") && projectID == ""
}

// MaskKey keeps enough of the key to recognise it in logs.
func MaskKey(k string) string {
	if k == "" {
		return "None"
	}
	if len(k) <= 10 {
		return "***"
	}
	return k[:6] + "..." + k[len(k)-4:]
}
