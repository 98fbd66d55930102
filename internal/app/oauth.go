package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/semmidev/dbwarden/internal/adapter/storage"
	"github.com/semmidev/dbwarden/internal/usecase"
)

// DriveAuthServer walks an operator through the Google consent screen once
// and prints the refresh token to put into GDRIVE_REFRESH_TOKEN.
type DriveAuthServer struct {
	config *oauth2.Config
	logger usecase.Logger
	state  string
}

func NewDriveAuthServer(logger usecase.Logger, clientSecretPath string) (*DriveAuthServer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cfg, err := storage.GoogleOAuthConfig(clientSecretPath)
	if err != nil {
		return nil, err
	}

	return &DriveAuthServer{
		config: cfg,
		logger: logger,
		state:  uuid.NewString(),
	}, nil
}

func (s *DriveAuthServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google/drive", func(w http.ResponseWriter, r *http.Request) {
		authURL := s.config.AuthCodeURL(s.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("GET /auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != s.state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		token, err := s.config.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}

		if token.RefreshToken == "" {
			fmt.Fprintln(w, "No refresh token returned. Revoke app access and authorize again.")
			return
		}

		s.logger.Infof("Received a Google Drive refresh token")
		fmt.Fprintf(w, "Set GDRIVE_REFRESH_TOKEN to:\n\n%s\n", token.RefreshToken)
	})

	return mux
}

// Run serves the consent flow on addr until ctx is done.
func (s *DriveAuthServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Open http://%s/auth/google/drive to authorize Google Drive access", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("oauth server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown OAuth server: %w", err)
	}
	return nil
}
