package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shared-space-client/internal/api"
	"shared-space-client/internal/config"
	"shared-space-client/internal/control"
	"shared-space-client/internal/session"
	"shared-space-client/internal/storage"
	"shared-space-client/internal/store"
	appsync "shared-space-client/internal/sync"
	"shared-space-client/internal/transport"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open local store
	local, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open local store")
	}
	defer local.Close()
	log.Info().Str("path", cfg.Storage.Path).Msg("Local store opened")

	// Transport and session
	sess := session.NewStore(local)
	client := transport.NewClient(cfg.Server.BaseURL, sess)
	channel := transport.NewChannel(cfg.Server.WSURL, sess, cfg.Sync.ReconnectMax())

	// Domain API functions
	userAPI := api.NewUserAPI(client, sess, local)
	requestAPI := api.NewRequestAPI(client)
	spaceAPI := api.NewSpaceAPI(client)

	// Stores
	notices := store.NewNoticeStore()
	presence := store.NewPresenceStore()
	requests := store.NewRequestStore(requestAPI, sess, local)
	nav := store.NavigatorFunc(func(reason string) {
		log.Info().Str("reason", reason).Msg("Navigating to home screen")
	})
	space := store.NewSpaceStore(spaceAPI, sess, local, notices, nav)
	status := store.NewStatusStore(userAPI, spaceAPI, requestAPI, sess)

	// Bootstrap identity before anything touches the network
	if err := status.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize identity")
	}

	// Event channel (dialed with the identity available now)
	go channel.Run(ctx)

	// Reconciliation
	feed := appsync.NewFeedCoordinator(channel, space)
	location := appsync.NewLocationReporter(spaceAPI)
	requestSyncer := appsync.NewRequestSyncer(channel, requests)
	requestSyncer.Start(ctx)

	watcher := appsync.NewSentRequestWatcher(channel, requestAPI, status, notices, cfg.Sync.PollInterval(), func(ctx context.Context) {
		status.UpdateSpaceStatus(ctx)
		space.Refetch(ctx)
	})
	spaceSession := appsync.NewSpaceSession(channel, presence, space, notices, nav)

	if status.HasSpace() {
		space.FetchSpaceInfo(ctx, true)
	}

	go supervise(ctx, status, space, spaceSession, feed, watcher, location)

	// Control server
	controlHandler := control.NewHandler(requestAPI, spaceAPI, requests, space, status, presence, notices, nav, feed, location)
	addr := fmt.Sprintf("%s:%d", cfg.Control.Host, cfg.Control.Port)
	go func() {
		if err := control.Serve(ctx, addr, controlHandler); err != nil {
			log.Fatal().Err(err).Msg("Control server failed")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	log.Info().Msg("Client exited")
}

// supervise starts and stops the per-state reconciliation scopes: the
// space session while a space snapshot is cached, and the sent-request
// watcher while an outbound invitation is pending without a space.
func supervise(
	ctx context.Context,
	status *store.StatusStore,
	space *store.SpaceStore,
	spaceSession *appsync.SpaceSession,
	feed *appsync.FeedCoordinator,
	watcher *appsync.SentRequestWatcher,
	location *appsync.LocationReporter,
) {
	var (
		sessionCancel  context.CancelFunc
		sessionSpaceID string
		watcherRunning bool
		watcherDone    chan struct{}
	)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if sessionCancel != nil {
				sessionCancel()
			}
			return
		case <-ticker.C:
		}

		// Space session follows the cached snapshot.
		current := space.Space()
		switch {
		case current != nil && sessionCancel == nil:
			sessionCtx, cancel := context.WithCancel(ctx)
			sessionCancel = cancel
			sessionSpaceID = current.ID
			feed.Start(sessionCtx)
			go spaceSession.Run(sessionCtx, current.ID)
		case current == nil && sessionCancel != nil:
			sessionCancel()
			sessionCancel = nil
			location.Reset(sessionSpaceID)
			sessionSpaceID = ""
		case current != nil && sessionCancel != nil && current.ID != sessionSpaceID:
			sessionCancel()
			location.Reset(sessionSpaceID)
			sessionCtx, cancel := context.WithCancel(ctx)
			sessionCancel = cancel
			sessionSpaceID = current.ID
			feed.Start(sessionCtx)
			go spaceSession.Run(sessionCtx, current.ID)
		}

		// Sent-request watcher runs while the preconditions hold; it exits
		// on its own once the invitation resolves.
		if watcherRunning {
			select {
			case <-watcherDone:
				watcherRunning = false
			default:
			}
		}
		if !watcherRunning && status.SentRequest() != nil && !status.HasSpace() {
			watcherRunning = true
			watcherDone = make(chan struct{})
			done := watcherDone
			go func() {
				defer close(done)
				watcher.Run(ctx)
			}()
		}
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
