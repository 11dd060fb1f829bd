package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested from the remote service: append-only upload plus
// read/edit access to albums this tool created. The API exposes nothing
// beyond app-created data regardless of scope.
var Scopes = []string{
	"https://www.googleapis.com/auth/photoslibrary.appendonly",
	"https://www.googleapis.com/auth/photoslibrary.edit.appcreateddata",
}

// TokenProvider hands out bearer tokens. ForceRefresh is invoked by the
// client when the service answers 401 despite a locally unexpired token.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	ForceRefresh(ctx context.Context) (*oauth2.Token, error)
}

// Authenticator implements TokenProvider over an OAuth client-credentials
// file and a cached token file. The credentials file must exist; the token
// file is created by Authorize and rewritten on every refresh.
type Authenticator struct {
	conf      *oauth2.Config
	tokenFile string
	log       zerolog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewAuthenticator loads the OAuth client configuration. A missing
// credentials file is fatal so the user gets actionable guidance before any
// work starts.
func NewAuthenticator(credentialsFile, tokenFile string, logger zerolog.Logger) (*Authenticator, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("credentials file not found at %s: download an OAuth client ID file from the API console and place it there", credentialsFile)
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	conf, err := google.ConfigFromJSON(raw, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}

	a := &Authenticator{
		conf:      conf,
		tokenFile: tokenFile,
		log:       logger.With().Str("component", "auth").Logger(),
	}
	a.token, _ = a.readTokenFile()
	return a, nil
}

// HasToken reports whether a cached token exists. When false, Authorize must
// run before any API call.
func (a *Authenticator) HasToken() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token != nil
}

// Authorize runs the console authorization flow: print the consent URL,
// read the code from in, exchange it, and cache the resulting token.
func (a *Authenticator) Authorize(ctx context.Context, in io.Reader, out io.Writer) error {
	url := a.conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following link in your browser, then paste the authorization code:\n%s\n> ", url)

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}

	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = tok
	if err := a.writeTokenFile(tok); err != nil {
		return err
	}
	a.log.Info().Msg("authorization successful")
	return nil
}

// Token returns a valid token, refreshing and persisting it when the cached
// one has expired.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == nil {
		return nil, fmt.Errorf("not authorized: no cached token at %s, run the auth command first", a.tokenFile)
	}
	if a.token.Valid() {
		return a.token, nil
	}
	return a.refreshLocked(ctx)
}

// ForceRefresh discards the current access token and fetches a new one from
// the refresh token, regardless of local expiry.
func (a *Authenticator) ForceRefresh(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == nil {
		return nil, fmt.Errorf("not authorized: no cached token at %s", a.tokenFile)
	}
	a.token.AccessToken = ""
	return a.refreshLocked(ctx)
}

func (a *Authenticator) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	a.log.Debug().Msg("refreshing access token")
	tok, err := a.conf.TokenSource(ctx, a.token).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	a.token = tok
	if err := a.writeTokenFile(tok); err != nil {
		a.log.Warn().Err(err).Msg("cannot persist refreshed token")
	}
	return tok, nil
}

func (a *Authenticator) readTokenFile() (*oauth2.Token, error) {
	f, err := os.Open(a.tokenFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (a *Authenticator) writeTokenFile(tok *oauth2.Token) error {
	f, err := os.OpenFile(a.tokenFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("caching oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
