package main

import (
	"log"
	"net/http"

	"github.com/chatvault/chatvault/internal/archive"
	"github.com/chatvault/chatvault/internal/auth/livechat"
	"github.com/chatvault/chatvault/internal/auth/token"
	"github.com/chatvault/chatvault/internal/config"
	"github.com/chatvault/chatvault/internal/db"
	"github.com/chatvault/chatvault/internal/ingest"
	"github.com/chatvault/chatvault/internal/logging"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/internal/version"
	"github.com/chatvault/chatvault/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logging.Init(cfg.ErrorLogFile); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	tokenStore := store.NewTokenStore(database)
	checkpoints := store.NewCheckpointStore(database)
	repo := store.NewRepository(database)

	oauthCfg := livechat.OAuthConfig(
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.RedirectURI,
		cfg.Endpoints.AuthURL,
		cfg.Endpoints.TokenURL,
	)
	manager := token.NewManager(oauthCfg, tokenStore)

	var payload *archive.PayloadArchive
	if cfg.ArchiveRawPayloads {
		payload, err = archive.NewPayloadArchive(cfg.ArchiveDir)
		if err != nil {
			log.Fatalf("Failed to initialize payload archive: %v", err)
		}
		logging.Infof("raw payload archiving enabled (%s)", cfg.ArchiveDir)
	}
	fetcher := archive.NewFetcher(cfg.Endpoints.ArchiveURL, cfg.PageLimit, payload)

	runner := ingest.NewRunner(manager, fetcher, repo, checkpoints, ingest.Options{
		PageDelay:   cfg.PageDelay,
		MinMessages: cfg.MinMessages,
	})

	handlers := web.NewHandlers(oauthCfg, manager, runner, checkpoints)
	router := web.NewRouter(handlers)

	logging.Infof("chatvault %s (commit %s) listening on http://%s", version.Version, version.Commit, cfg.ListenAddr)
	logging.Infof("open http://%s to authorize and start ingestion", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
