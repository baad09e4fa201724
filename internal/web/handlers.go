// Package web exposes the authorization redirect, OAuth callback and
// status endpoints.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"

	"github.com/chatvault/chatvault/internal/auth/livechat"
	"github.com/chatvault/chatvault/internal/db/models"
	"github.com/chatvault/chatvault/internal/ingest"
	"github.com/chatvault/chatvault/internal/logging"
)

// Acquirer exchanges an authorization code for a persisted token.
type Acquirer interface {
	Acquire(ctx context.Context, code string) (*models.Token, error)
}

// Runner executes one ingestion pass.
type Runner interface {
	Run(ctx context.Context) (*ingest.Report, error)
}

// CheckpointReader reports the latest durable checkpoint.
type CheckpointReader interface {
	Latest() (*models.Checkpoint, error)
}

// Handlers wires the HTTP surface to the ingestion engine.
type Handlers struct {
	oauthCfg    *oauth2.Config
	tokens      Acquirer
	runner      Runner
	checkpoints CheckpointReader
}

func NewHandlers(oauthCfg *oauth2.Config, tokens Acquirer, runner Runner, checkpoints CheckpointReader) *Handlers {
	return &Handlers{
		oauthCfg:    oauthCfg,
		tokens:      tokens,
		runner:      runner,
		checkpoints: checkpoints,
	}
}

// NewRouter builds the chi router for all endpoints.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", h.HandleIndex)
	r.Get("/callback", h.HandleCallback)
	r.Get("/status", h.HandleStatus)
	return r
}

// HandleIndex redirects the user-agent to the remote authorization page.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	url := livechat.AuthCodeURL(h.oauthCfg)
	logging.Infof("redirecting to %s", url)
	http.Redirect(w, r, url, http.StatusFound)
}

// HandleCallback receives the authorization code, acquires a token and runs
// one ingestion pass, replying with a plain-text summary.
func (h *Handlers) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if state := r.URL.Query().Get("state"); state != livechat.StateToken() {
		http.Error(w, "Invalid state token", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "No authorization code provided in the redirect", http.StatusBadRequest)
		return
	}

	if _, err := h.tokens.Acquire(r.Context(), code); err != nil {
		logging.Errorf("token acquisition failed: %v", err)
		http.Error(w, fmt.Sprintf("Could not obtain an access token: %v", err), http.StatusBadGateway)
		return
	}

	report, err := h.runner.Run(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Ingestion stopped early after saving %d new chats: %v\n", report.ChatsCreated, err)
		return
	}
	fmt.Fprintf(w, "Saved %d new chats to the database.\n", report.ChatsCreated)
}

type statusResponse struct {
	Cursor       *string    `json:"cursor"`
	LastRecordID *string    `json:"last_record_id"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// HandleStatus reports the latest checkpoint for operational visibility.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cp, err := h.checkpoints.Latest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var resp statusResponse
	if cp != nil {
		resp = statusResponse{
			Cursor:       cp.Cursor,
			LastRecordID: cp.LastRecordID,
			UpdatedAt:    &cp.CreatedAt,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
