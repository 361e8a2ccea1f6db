package services

import (
	"context"

	"github.com/google/uuid"

	"video-production-service/application/ports/inbound"
	"video-production-service/application/ports/outbound"
	"video-production-service/config"
	"video-production-service/domain"
)

type sessionService struct {
	logger        outbound.LoggerPort
	costEstimator inbound.CostEstimatorPort
	workflowStore outbound.WorkflowStorePort
	assetStore    outbound.AssetStorePort
	costConfig    *config.CostConfig
}

func NewSessionService(logger outbound.LoggerPort, costEstimator inbound.CostEstimatorPort,
	workflowStore outbound.WorkflowStorePort, assetStore outbound.AssetStorePort,
	costConfig *config.CostConfig) inbound.SessionServicePort {
	return &sessionService{
		logger:        logger,
		costEstimator: costEstimator,
		workflowStore: workflowStore,
		assetStore:    assetStore,
		costConfig:    costConfig,
	}
}

// Approve validates the plan against the segment cap, prices it, and
// persists a fresh session in the planned state. Nothing is generated yet.
func (s *sessionService) Approve(ctx context.Context, plan domain.ScenePlan) (*domain.WorkflowState, error) {
	if err := plan.Validate(s.costConfig.SegmentCap); err != nil {
		return nil, err
	}

	estimate, err := s.costEstimator.EstimatePlan(plan)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	if err := s.assetStore.EnsureSession(sessionID); err != nil {
		s.logger.Error(err, "Failed to create session workspace")
		return nil, err
	}

	state := domain.NewWorkflowState(sessionID, plan, estimate)
	if err := s.workflowStore.Save(ctx, state); err != nil {
		s.logger.Error(err, "Failed to persist new session state")
		return nil, err
	}

	s.logger.InfoWithFields("Session approved", map[string]interface{}{
		"session_id":     sessionID,
		"scenes":         plan.SceneCount(),
		"total_duration": plan.TotalDuration,
		"estimated_cost": estimate.TotalCost,
	})

	return state, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*domain.WorkflowState, error) {
	return s.workflowStore.Load(ctx, sessionID)
}

func (s *sessionService) List(ctx context.Context) ([]string, error) {
	return s.workflowStore.List(ctx)
}
