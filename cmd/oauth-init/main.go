// Command oauth-init runs the one-time OAuth consent flow for the export
// spreadsheet and saves the refresh token the worker uses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"billed/internal/cli"
	"billed/internal/config"
	"billed/internal/log"
)

const consentTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentOAuth)

	// config.Validate is not run here: it requires the token file to
	// exist, and this command is what creates it.
	cfg := config.Load()

	oauthCfg, err := consentConfig(cfg)
	if err != nil {
		logger.Error("Failed to load OAuth client credentials", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tok, err := runConsentFlow(ctx, oauthCfg, cfg.OAuthRedirectPort)
	if err != nil {
		logger.Error("Consent flow failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	tokenFile := cfg.GoogleOAuthTokenFile
	if tokenFile == "" {
		tokenFile = "token.json"
	}
	if err := saveToken(tokenFile, tok); err != nil {
		logger.Error("Failed to save token", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Saved OAuth token", "file", tokenFile)
}

// consentConfig builds the OAuth config for the sheets scope with the
// localhost redirect this command listens on. The OAuth client must list
// that redirect URI as authorized.
func consentConfig(cfg *config.Config) (*oauth2.Config, error) {
	material, err := cfg.OAuthClientMaterial()
	if err != nil {
		return nil, err
	}
	oauthCfg, err := google.ConfigFromJSON(material, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client credentials: %w", err)
	}
	oauthCfg.RedirectURL = "http://localhost:" + cfg.OAuthRedirectPort + "/callback"
	return oauthCfg, nil
}

// runConsentFlow prints the authorization URL, waits for the browser
// callback on the redirect port, and exchanges the code for a token.
func runConsentFlow(ctx context.Context, oauthCfg *oauth2.Config, port string) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if deniedErr := r.URL.Query().Get("error"); deniedErr != "" {
			http.Error(w, "authorization refused: "+deniedErr, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization refused: %s", deniedErr)
			return
		}
		fmt.Fprintln(w, "Authorization received, you can close this window.")
		codeCh <- r.URL.Query().Get("code")
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		tok, err := oauthCfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(consentTimeout):
		return nil, fmt.Errorf("authorization timed out after %v", consentTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
