package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"video-production-service/application/ports/outbound"
	"video-production-service/application/services"
	"video-production-service/config"
	"video-production-service/infrastructure/adapters"
	"video-production-service/infrastructure/gin_interface/controllers"
	"video-production-service/middleware"
	mock_generator "video-production-service/mock"
)

func main() {
	// Optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := adapters.NewZerologWrapper(os.Stderr)

	serverConfig, err := config.GetServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read server config")
	}
	costConfig, err := config.GetCostConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read cost config")
	}
	workspaceConfig, err := config.GetWorkspaceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read workspace config")
	}
	retryConfig, err := config.GetRetryConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read retry config")
	}

	workerPool, err := ants.NewPool(120, ants.WithPanicHandler(func(p interface{}) {
		log.Error().Interface("panic", p).Msg("Worker pool task panicked")
	}))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker pool")
	}
	defer workerPool.Release()

	assetStore := adapters.NewFsAssetStore(workspaceConfig, logger)
	workflowStore := adapters.NewFsWorkflowStore(workspaceConfig, logger)

	imageGenerator, videoGenerator, concatenator, orchestratorConfig := buildCollaborators(serverConfig, logger)

	costEstimator := services.NewCostEstimator(costConfig)
	sessionService := services.NewSessionService(logger, costEstimator, workflowStore, assetStore, costConfig)
	retryPolicy := services.NewRetryPolicy(retryConfig.MaxAttempts, retryConfig.BaseDelay)
	orchestrator := services.NewProductionOrchestrator(logger, workerPool, imageGenerator, videoGenerator,
		concatenator, assetStore, workflowStore, retryPolicy, orchestratorConfig)

	var publisher outbound.VideoPublisherPort
	s3Config, err := config.GetS3Config()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read S3 config")
	}
	if s3Config != nil {
		publisher, err = adapters.NewS3VideoPublisher(logger, s3Config)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 video publisher")
		}
	}

	router := gin.Default()
	if serverConfig.JwksUrl != "" {
		authHandler, err := middleware.NewAuthHandler(serverConfig.JwksUrl)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create auth handler")
		}
		router.Use(authHandler.AuthMiddleware())
	}

	controller := controllers.NewProductionController(logger, costEstimator, sessionService, orchestrator, publisher)
	controller.RegisterRoutes(router)

	if err := router.Run(":" + serverConfig.Port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// buildCollaborators wires the generation adapters: real clients from the
// service configs, or local mocks when MOCK_SERVICES is set.
func buildCollaborators(serverConfig *config.ServerConfig, logger outbound.LoggerPort) (
	outbound.ImageGeneratorPort, outbound.VideoGeneratorPort, outbound.ConcatenateVideosPort, services.OrchestratorConfig) {
	if serverConfig.MockServices {
		logger.Warn("MOCK_SERVICES is set, using local mock collaborators")
		return mock_generator.NewMockImageGenerator(logger, 50*time.Millisecond),
			mock_generator.NewMockVideoGenerator(logger, 100*time.Millisecond),
			mock_generator.NewMockConcatenator(logger),
			services.OrchestratorConfig{ImageConcurrency: 4, VideoConcurrency: 2}
	}

	imageConfig, err := config.GetImageServiceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read image service config")
	}
	videoConfig, err := config.GetVideoServiceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read video service config")
	}

	contentFetcher := adapters.NewContentFetcher(logger)
	concatenator, err := adapters.NewFFmpegConcatenator(logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ffmpeg concatenator")
	}

	return adapters.NewImageGenerator(contentFetcher, imageConfig, logger),
		adapters.NewVideoGenerator(contentFetcher, videoConfig, logger),
		concatenator,
		services.OrchestratorConfig{
			ImageConcurrency: int64(imageConfig.MaxConcurrent),
			VideoConcurrency: int64(videoConfig.MaxConcurrent),
			AspectRatio:      imageConfig.AspectRatio,
			Quality:          imageConfig.Quality,
			Resolution:       videoConfig.Resolution,
			ImageTimeout:     imageConfig.RequestTimeout,
			VideoTimeout:     videoConfig.RequestTimeout,
		}
}
