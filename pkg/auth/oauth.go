package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// ClientSecretsFile is the Google API credentials.json downloaded from the
	// cloud console. It is read from the config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile caches the user's access and refresh token next to it.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server listens for the OAuth redirect.
	LocalhostAuthPort = "6789"

	oobRedirect = "urn:ietf:wg:oauth:2.0:oob"
)

// Google runs the installed-app OAuth flow against credentials kept in Dir.
type Google struct {
	Dir    string
	Scopes []string
	Log    *zap.Logger
	// Prompt receives the authorization URL the user has to open.
	Prompt func(authURL string)
}

func (g *Google) logger() *zap.Logger {
	if g.Log == nil {
		return zap.NewNop()
	}
	return g.Log
}

// TokenPath is where the cached token lives.
func (g *Google) TokenPath() string {
	return filepath.Join(g.Dir, TokenFile)
}

// Config creates an oauth2.Config from the client secrets file, forcing the
// redirect onto the local callback port.
func (g *Google) Config() (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(g.Dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, g.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = g.redirectURL(config.RedirectURL)
	return config, nil
}

func (g *Google) redirectURL(configured string) string {
	log := g.logger()
	if configured == "" || configured == oobRedirect {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	parsed, err := url.Parse(configured)
	if err != nil {
		log.Warn("could not parse redirect URL, using it as is", zap.String("url", configured), zap.Error(err))
		return configured
	}
	if parsed.Hostname() != "localhost" && parsed.Hostname() != "127.0.0.1" {
		log.Warn("redirect URL is not a localhost callback", zap.String("url", configured))
		return configured
	}
	if p := parsed.Port(); p != "" && p != LocalhostAuthPort {
		log.Warn("forcing localhost redirect onto the callback port", zap.String("configured_port", p))
	}
	parsed.Host = net.JoinHostPort(parsed.Hostname(), LocalhostAuthPort)
	return parsed.String()
}

// Client returns an authenticated *http.Client. It loads the cached token,
// or runs the browser flow when there is none. Refreshed tokens are saved back.
func (g *Google) Client(ctx context.Context) (*http.Client, error) {
	log := g.logger()
	config, err := g.Config()
	if err != nil {
		return nil, err
	}

	tokenFile := g.TokenPath()
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		log.Info("no usable token, starting web authorization", zap.String("path", tokenFile), zap.Error(err))
		tok, err = g.tokenFromWeb(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	src := &savingSource{base: config.TokenSource(ctx, tok), last: tok, path: tokenFile, log: log}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// Reset removes the cached token so the next Client call re-authorizes.
func (g *Google) Reset() error {
	err := os.Remove(g.TokenPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete token file %s: %w", g.TokenPath(), err)
	}
	return nil
}

// savingSource writes the token back to disk whenever it changes.
type savingSource struct {
	base oauth2.TokenSource
	last *oauth2.Token
	path string
	log  *zap.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			s.log.Warn("could not save refreshed token", zap.Error(err))
		} else {
			s.log.Debug("saved refreshed token", zap.String("path", s.path))
		}
		s.last = tok
	}
	return tok, nil
}

// tokenFromWeb runs the authorization code flow through a local web server.
func (g *Google) tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	log := g.logger()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		log.Debug("listening for OAuth2 redirect", zap.String("redirect", config.RedirectURL))
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// AccessTypeOffline makes Google return a refresh token.
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	if g.Prompt != nil {
		g.Prompt(authURL)
	}
	log.Info("waiting for authorization code")

	select {
	case code := <-codeCh:
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out. Please try again")
	}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
