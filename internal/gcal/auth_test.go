package gcal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testCredentials = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestLoadOAuthConfig_FromFile(t *testing.T) {
	t.Setenv("GOOGLE_CREDENTIALS_JSON", "")
	t.Setenv("ALFRED_BASE_URL", "https://alfred.example.com")

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(testCredentials), 0o600))

	config, err := loadOAuthConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", config.ClientID)
	assert.Equal(t, "https://alfred.example.com/oauth/callback", config.RedirectURL)
	assert.Equal(t, OAuthScopes, config.Scopes)
}

func TestLoadOAuthConfig_FromEnv(t *testing.T) {
	t.Setenv("GOOGLE_CREDENTIALS_JSON", testCredentials)
	t.Setenv("ALFRED_BASE_URL", "")

	config, err := loadOAuthConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/oauth/callback", config.RedirectURL)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, saveToken(path, token))
	loaded, err := loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, loaded.AccessToken)
	assert.Equal(t, token.RefreshToken, loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))

	_, err = loadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewClient_WithoutToken(t *testing.T) {
	t.Setenv("GOOGLE_CREDENTIALS_JSON", testCredentials)

	client, err := NewClient("", filepath.Join(t.TempDir(), "token.json"), "")
	require.NoError(t, err)
	assert.False(t, client.IsAuthenticated())
	assert.Equal(t, "primary", client.calendarID)
	assert.Contains(t, client.GetAuthURL(), "access_type=offline")
}
