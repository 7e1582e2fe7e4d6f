// Package client provides OAuth2 client setup for Google APIs.
package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	callbackPort  = 8085
	callbackPath  = "/callback"
	serverTimeout = 5 * time.Minute
)

// TokenFile is the default path to the OAuth token file.
const TokenFile = "data/token.json"

// ErrNoToken is returned when no token is stored and the browser flow is disabled.
var ErrNoToken = errors.New("no oauth token stored, run `moneylogger setup` first")

// Config selects credentials and how a missing token is handled.
type Config struct {
	// SecretFile is the Google OAuth client secret JSON.
	SecretFile string
	// TokenFile defaults to TokenFile.
	TokenFile string
	// Scopes requested by the active plugins.
	Scopes []string
	// Interactive runs the browser consent flow when no token is stored.
	// Daemons leave it off and fail with ErrNoToken instead.
	Interactive bool
	Logger      *slog.Logger
}

// New creates an HTTP client whose token is refreshed and persisted automatically.
func New(ctx context.Context, cfg Config) (*http.Client, error) {
	b, err := os.ReadFile(cfg.SecretFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}
	return NewFromJSON(ctx, b, cfg)
}

// NewFromJSON is New with the client secret already read.
func NewFromJSON(ctx context.Context, secretJSON []byte, cfg Config) (*http.Client, error) {
	if cfg.TokenFile == "" {
		cfg.TokenFile = TokenFile
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	oc, err := google.ConfigFromJSON(secretJSON, cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret: %w", err)
	}

	tok, err := TokenFromFile(cfg.TokenFile)
	if err != nil {
		if !cfg.Interactive {
			return nil, ErrNoToken
		}
		cfg.Logger.Info("no existing token found, initiating OAuth flow")
		tok, err = tokenFromWeb(ctx, oc, cfg.Logger)
		if err != nil {
			return nil, err
		}
		if err := SaveToken(cfg.TokenFile, tok); err != nil {
			cfg.Logger.Error("failed to save token", "error", err)
		}
	}

	src := &persistingSource{
		base:   oc.TokenSource(ctx, tok),
		path:   cfg.TokenFile,
		last:   tok.AccessToken,
		logger: cfg.Logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// persistingSource writes refreshed tokens back to disk so a restarted
// daemon does not need a new consent.
type persistingSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.path, tok); err != nil {
			s.logger.Warn("failed to persist refreshed token", "error", err)
		}
	}
	return tok, nil
}

func tokenFromWeb(ctx context.Context, oc *oauth2.Config, logger *slog.Logger) (*oauth2.Token, error) {
	oc.RedirectURL = fmt.Sprintf("http://localhost:%d%s", callbackPort, callbackPath)

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state token: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	server, err := startCallbackServer(ctx, state, codeChan, errChan, logger)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline)

	fmt.Printf("\nOpening browser for Google authentication...\n")
	fmt.Printf("If the browser doesn't open automatically, visit this URL:\n%s\n\n", authURL)

	if err := openBrowser(ctx, authURL); err != nil {
		logger.Warn("failed to open browser automatically", "error", err)
	}

	select {
	case code := <-codeChan:
		tok, err := oc.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code for token: %w", err)
		}
		fmt.Println("Authentication successful!")
		return tok, nil
	case err := <-errChan:
		return nil, fmt.Errorf("oauth callback error: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(serverTimeout):
		return nil, fmt.Errorf("oauth flow timed out after %v", serverTimeout)
	}
}

// callbackHandler validates the redirect and hands the code over.
func callbackHandler(expectedState string, codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	fail := func(w http.ResponseWriter, err error, msg string) {
		select {
		case errChan <- err:
		default:
		}
		http.Error(w, msg, http.StatusBadRequest)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != expectedState {
			fail(w, errors.New("invalid state parameter"), "Invalid state parameter")
			return
		}
		if errMsg := q.Get("error"); errMsg != "" {
			fail(w, fmt.Errorf("%s: %s", errMsg, q.Get("error_description")), "Authentication failed: "+errMsg)
			return
		}
		code := q.Get("code")
		if code == "" {
			fail(w, errors.New("no authorization code received"), "No authorization code received")
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>moneylogger connected</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh;">
<h1>moneylogger is connected to Google</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)

		select {
		case codeChan <- code:
		default:
		}
	}
}

func startCallbackServer(ctx context.Context, state string, codeChan chan<- string, errChan chan<- error, logger *slog.Logger) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, callbackHandler(state, codeChan, errChan))

	server := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", callbackPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("port %d unavailable: %w", callbackPort, err)
	}

	go func() {
		logger.Debug("starting OAuth callback server", "port", callbackPort)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback server error", "error", err)
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	return server, nil
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// TokenFromFile retrieves a token from a local file.
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return tok, nil
}

// SaveToken saves a token to a file path, creating its directory.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}
