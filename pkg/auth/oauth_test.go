package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func writeCredentials(t *testing.T, dir, redirect string) {
	t.Helper()
	creds := `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
		`"redirect_uris":["` + redirect + `"]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ClientSecretsFile), []byte(creds), 0600))
}

func TestConfigForcesLocalCallbackPort(t *testing.T) {
	cases := map[string]string{
		"http://localhost":               "http://localhost:6789",
		"http://localhost:8080/callback": "http://localhost:6789/callback",
		"http://127.0.0.1/cb":            "http://127.0.0.1:6789/cb",
		oobRedirect:                      "http://localhost:6789/oauth2callback",
		"https://example.com/oauth":      "https://example.com/oauth",
	}
	for in, want := range cases {
		dir := t.TempDir()
		writeCredentials(t, dir, in)
		g := &Google{Dir: dir, Scopes: []string{"scope"}}

		cfg, err := g.Config()
		require.NoError(t, err, in)
		require.Equal(t, want, cfg.RedirectURL, in)
		require.Equal(t, []string{"scope"}, cfg.Scopes)
	}
}

func TestConfigMissingCredentials(t *testing.T) {
	g := &Google{Dir: t.TempDir()}
	_, err := g.Config()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestTokenFileRoundTrip(t *testing.T) {
	g := &Google{Dir: filepath.Join(t.TempDir(), "nested")}
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, saveToken(g.TokenPath(), tok))
	info, err := os.Stat(g.TokenPath())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := tokenFromFile(g.TokenPath())
	require.NoError(t, err)
	require.Equal(t, tok.AccessToken, got.AccessToken)
	require.Equal(t, tok.RefreshToken, got.RefreshToken)
	require.True(t, tok.Expiry.Equal(got.Expiry))

	require.NoError(t, g.Reset())
	require.NoError(t, g.Reset(), "resetting twice is fine")
	_, err = tokenFromFile(g.TokenPath())
	require.Error(t, err)
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestSavingSourcePersistsRefreshedToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), TokenFile)
	old := &oauth2.Token{AccessToken: "old", RefreshToken: "r"}
	fresh := &oauth2.Token{AccessToken: "new", RefreshToken: "r"}

	src := &savingSource{base: staticSource{fresh}, last: old, path: path}
	src.log = (&Google{}).logger()
	got, err := src.Token()
	require.NoError(t, err)
	require.Equal(t, "new", got.AccessToken)

	saved, err := tokenFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", saved.AccessToken)
}
