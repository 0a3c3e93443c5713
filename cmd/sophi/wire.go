package main

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/SophiChat/client/internal/audio"
	"github.com/GriffinCanCode/SophiChat/client/internal/auth"
	"github.com/GriffinCanCode/SophiChat/client/internal/blob"
	"github.com/GriffinCanCode/SophiChat/client/internal/credentials"
	"github.com/GriffinCanCode/SophiChat/client/internal/decoder"
	"github.com/GriffinCanCode/SophiChat/client/internal/domain/session"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/config"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/server"
	"github.com/GriffinCanCode/SophiChat/client/internal/transport"
	"go.uber.org/zap"
)

// client holds every long-lived component of one process
type client struct {
	cfg       *config.Config
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	store     credentials.Store
	blobs     *blob.Registry
	transport *transport.Session
	orch      *session.Orchestrator
}

// openStore returns the durable credential store, or an in-memory one when
// the session should not outlive the process
func openStore(cfg *config.Config) (credentials.Store, error) {
	if cfg.Storage.Ephemeral {
		return credentials.NewMemory(), nil
	}
	dir, err := cfg.Storage.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	return credentials.OpenSQLite(dir)
}

func audioSource(cfg *config.Config, audioFile string) audio.Source {
	if audioFile != "" {
		return &audio.FileSource{Path: audioFile}
	}
	return &audio.CommandSource{
		Command: cfg.Audio.CaptureArgs(),
		MIME:    cfg.Audio.MIMEType,
	}
}

// newClient wires configuration into a ready orchestrator; call run to start it
func newClient(cfg *config.Config, logger *logging.Logger, audioFile string) (*client, error) {
	metrics := monitoring.NewMetrics()

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	blobs := blob.NewRegistry()

	dec, err := decoder.New(decoder.Options{
		AssetURL: cfg.API.AssetURL,
		Blobs:    blobs,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid asset url: %w", err)
	}

	tr, err := transport.New(transport.Options{
		URL:             cfg.API.WSURL,
		Path:            cfg.Transport.Path,
		ConnectTimeout:  cfg.Transport.ConnectTimeout,
		LivenessTimeout: cfg.Transport.LivenessTimeout,
		Retry: resilience.RetryPolicy{
			MaxAttempts: cfg.Transport.MaxReconnectAttempts,
			Delay:       cfg.Transport.ReconnectDelay,
		},
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid websocket url: %w", err)
	}

	authClient := auth.New(auth.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.RequestTimeout,
		RetryCount: 2,
		RateLimit:  cfg.RateLimit.AuthRequestsPerSecond,
		Burst:      cfg.RateLimit.AuthBurst,
		Logger:     logger,
		Metrics:    metrics,
	})

	// The recorder hands clips to the orchestrator created below
	var orch *session.Orchestrator
	recorder := audio.NewController(audio.Options{
		Source:        audioSource(cfg, audioFile),
		Sender:        tr,
		Blobs:         blobs,
		Handoff:       func(b audio.Blob) { orch.HandoffRecording(b) },
		ChunkInterval: cfg.Audio.ChunkInterval,
		MaxDuration:   cfg.Audio.MaxDuration,
		MIMEType:      cfg.Audio.MIMEType,
		Logger:        logger,
		Metrics:       metrics,
	})

	orch = session.New(session.Options{
		Transport: tr,
		Auth:      authClient,
		Store:     store,
		Decoder:   dec,
		Recorder:  recorder,
		Blobs:     blobs,
		Greeting:  cfg.Chat.Greeting,
		Logger:    logger,
		Metrics:   metrics,
	})

	return &client{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		store:     store,
		blobs:     blobs,
		transport: tr,
		orch:      orch,
	}, nil
}

// run drives the orchestrator, and the bridge when enabled, until ctx ends
func (c *client) run(ctx context.Context, bridge bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- c.orch.Run(ctx) }()

	if bridge {
		srv := server.NewServer(c.cfg, server.Deps{
			Chat:    c.orch,
			Blobs:   c.blobs,
			Logger:  c.logger,
			Metrics: c.metrics,
			Version: version,
		})
		go func() { errCh <- srv.Run(ctx) }()
	}

	err := <-errCh
	cancel()
	<-c.orch.Done()
	return err
}

// close releases resources after run has returned
func (c *client) close() {
	if err := c.store.Close(); err != nil {
		c.logger.Warn("Failed to close credential store", zap.Error(err))
	}
	c.logger.Sync()
}
