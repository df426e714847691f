package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry(Options{
		CallbackURL:        "http://localhost:8080/account/external/callback",
		GoogleClientID:     "google-id",
		GoogleClientSecret: "google-secret",
		GitHubClientID:     "github-id",
		GitHubClientSecret: "github-secret",
	})

	google, ok := registry.Get(ProviderGoogle)
	assert.True(t, ok)
	assert.Equal(t, ProviderGoogle, google.Name())
	assert.Contains(t, google.AuthCodeURL("state-1"), "state=state-1")

	github, ok := registry.Get(ProviderGitHub)
	assert.True(t, ok)
	assert.Equal(t, ProviderGitHub, github.Name())

	_, ok = registry.Get("MySpace")
	assert.False(t, ok)
}

func TestParseGoogleUser(t *testing.T) {
	body := []byte(`{"id":"10001","email":"ada@example.com","given_name":"Ada","family_name":"Lovelace"}`)

	info, err := parseGoogleUser(body)
	assert.NoError(t, err)
	assert.Equal(t, &UserInfo{
		Provider:  ProviderGoogle,
		Subject:   "10001",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}, info)
}

func TestParseGitHubUser(t *testing.T) {
	t.Run("full profile", func(t *testing.T) {
		body := []byte(`{"id":42,"email":"ada@example.com","name":"Ada Lovelace","login":"ada"}`)

		info, err := parseGitHubUser(body)
		assert.NoError(t, err)
		assert.Equal(t, &UserInfo{
			Provider:  ProviderGitHub,
			Subject:   "42",
			Email:     "ada@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
		}, info)
	})

	t.Run("private email is left empty for the subject fallback", func(t *testing.T) {
		body := []byte(`{"id":42,"email":null,"name":"ada","login":"ada"}`)

		info, err := parseGitHubUser(body)
		assert.NoError(t, err)
		assert.Empty(t, info.Email)
		assert.Equal(t, "42", info.Subject)
	})
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Ada", "Ada", ""},
		{"", "", ""},
		{"Ada King Lovelace", "Ada", "King Lovelace"},
		{"  Ada   Lovelace  ", "Ada", "Lovelace"},
	}

	for _, tt := range tests {
		first, last := SplitName(tt.name)
		assert.Equal(t, tt.first, first, "name %q", tt.name)
		assert.Equal(t, tt.last, last, "name %q", tt.name)
	}
}
