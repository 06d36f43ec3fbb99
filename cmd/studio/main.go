package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Maxlottie/pray-production-studio/internal/api"
	"github.com/Maxlottie/pray-production-studio/internal/config"
	"github.com/Maxlottie/pray-production-studio/internal/db"
	"github.com/Maxlottie/pray-production-studio/internal/drive"
	"github.com/Maxlottie/pray-production-studio/internal/events"
	"github.com/Maxlottie/pray-production-studio/internal/generation"
	"github.com/Maxlottie/pray-production-studio/internal/logging"
	"github.com/Maxlottie/pray-production-studio/internal/media"
	"github.com/Maxlottie/pray-production-studio/internal/providers"
	"github.com/Maxlottie/pray-production-studio/internal/storage"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting production studio", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := studio.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	mediaClient := storage.NewClient(store, cfg.ProviderTimeout(), logging.WithComponent(logger, "storage"))

	var publisher events.Publisher = events.NopPublisher{}
	var rdb *redis.Client
	if cfg.RedisURL() != "" {
		rdb, err = events.NewRedisClient(cfg.RedisURL())
		if err != nil {
			return err
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, logger)
		logger.Info("publishing generation events", "channel", events.GenerationChannel)
	}

	var parser studio.ScriptParser
	var imageProvider providers.ImageProvider
	if oa := cfg.OpenAI(); oa.APIKey != "" {
		parser = providers.NewOpenAIScriptParser(oa.APIKey, oa.ChatModel, logger)
		imageProvider = providers.NewOpenAIImageClient(oa.APIKey, oa.ImageModel, logger)
	} else {
		logger.Warn("openai not configured, script parsing and image generation disabled")
	}

	var videoProviders []providers.VideoProvider
	if mm := cfg.Minimax(); mm.Enabled() {
		videoProviders = append(videoProviders, providers.NewMinimaxClient(mm.APIKey, mm.BaseURL, cfg.ProviderTimeout(), logger))
	}
	if rw := cfg.Runway(); rw.Enabled() {
		videoProviders = append(videoProviders, providers.NewRunwayClient(rw.APIKey, rw.BaseURL, cfg.ProviderTimeout(), logger))
	}
	if len(videoProviders) == 0 {
		logger.Warn("no video provider configured")
	}

	svc := studio.NewService(repo, parser, logging.WithComponent(logger, "studio"))
	orch := generation.NewOrchestrator(repo, mediaClient, publisher, logging.WithComponent(logger, "orchestrator"), videoProviders...)

	var images *generation.ImageGenerator
	if imageProvider != nil {
		images = generation.NewImageGenerator(repo, imageProvider, mediaClient, publisher, cfg.ImageCap(), logging.WithComponent(logger, "images"))
	}

	var audio *generation.AudioGenerator
	if el := cfg.ElevenLabs(); el.APIKey != "" {
		client := providers.NewElevenLabsClient(el.APIKey, "", cfg.ProviderTimeout(), logger)
		audio = generation.NewAudioGenerator(repo, client, mediaClient, el.VoiceID, logging.WithComponent(logger, "audio"))
	}

	var driveExporter *drive.Exporter
	if g := cfg.Google(); g.Enabled() {
		uploader, err := drive.NewDriveUploader(ctx, drive.Credentials{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RefreshToken: g.RefreshToken,
		})
		if err != nil {
			logger.Warn("google drive unavailable, export disabled", "error", err)
		} else {
			driveExporter = drive.NewExporter(svc, uploader, mediaClient, logging.WithComponent(logger, "drive"))
		}
	}

	poller := generation.NewPoller(orch, repo, cfg.PollInterval(), logging.WithComponent(logger, "poller"))
	go poller.Start(ctx)

	sweeper := generation.NewSweeper(repo, cfg.StaleGenerationAge(), logging.WithComponent(logger, "sweeper"))
	if err := sweeper.Start(ctx, generation.DefaultSweepSchedule); err != nil {
		return err
	}
	defer sweeper.Stop()

	apiServer := api.NewServer(api.ServerConfig{
		Host:           cfg.Host(),
		Port:           cfg.Port(),
		Service:        svc,
		Repository:     repo,
		Orchestrator:   orch,
		Images:         images,
		Audio:          audio,
		Poller:         poller,
		Drive:          driveExporter,
		Media:          mediaClient,
		MediaServer:    media.NewServer(store, logging.WithComponent(logger, "media")),
		Redis:          rdb,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
		StartTime:      startTime,
	})

	fmt.Println()
	fmt.Printf("  Production studio %s\n", config.Version)
	fmt.Printf("  API URL:    http://%s\n", apiServer.Addr())
	fmt.Printf("  Auth Token: %s\n", authToken)
	fmt.Println()

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// openStore selects the S3 bucket when one is configured and the local media
// directory otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	if s3 := cfg.S3(); s3.Enabled() {
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  s3.Endpoint,
			Bucket:    s3.Bucket,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Region:    s3.Region,
			UseSSL:    s3.UseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open bucket: %w", err)
		}
		logger.Info("media stored in bucket", "endpoint", s3.Endpoint, "bucket", s3.Bucket)
		return store, nil
	}

	store, err := storage.NewLocalStorage(cfg.MediaDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open media dir: %w", err)
	}
	logger.Info("media stored locally", "dir", cfg.MediaDir())
	return store, nil
}

func ensureAuthToken(repo studio.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
