package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"video-production-service/application/ports/inbound"
	"video-production-service/application/ports/outbound"
	"video-production-service/domain"
	"video-production-service/infrastructure/gin_interface/dto"
)

type ProductionController interface {
	RegisterRoutes(g *gin.Engine)
}

type productionController struct {
	logger         outbound.LoggerPort
	costEstimator  inbound.CostEstimatorPort
	sessionService inbound.SessionServicePort
	orchestrator   inbound.ProductionOrchestratorPort
	// publisher is nil when no bucket is configured; production still
	// succeeds, the final video just stays local.
	publisher outbound.VideoPublisherPort
}

func NewProductionController(logger outbound.LoggerPort, costEstimator inbound.CostEstimatorPort,
	sessionService inbound.SessionServicePort, orchestrator inbound.ProductionOrchestratorPort,
	publisher outbound.VideoPublisherPort) ProductionController {
	return &productionController{
		logger:         logger,
		costEstimator:  costEstimator,
		sessionService: sessionService,
		orchestrator:   orchestrator,
		publisher:      publisher,
	}
}

func (p *productionController) RegisterRoutes(g *gin.Engine) {
	g.GET("/health", p.Health)
	g.POST("/estimate", p.Estimate)
	g.POST("/sessions", p.ApproveSession)
	g.GET("/sessions", p.ListSessions)
	g.GET("/sessions/:id", p.GetSession)
	g.POST("/sessions/:id/produce", p.Produce)
}

func (p *productionController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Estimate prices a plan shape before anything is persisted, so a caller can
// get cost approval without committing to scene content.
func (p *productionController) Estimate(c *gin.Context) {
	var req dto.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	estimate, err := p.costEstimator.Estimate(req.ImageCount, req.TotalDurationSeconds)
	if err != nil {
		p.abortWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EstimateResponse{
		ImageCost: estimate.ImageCost,
		VideoCost: estimate.VideoCost,
		TotalCost: estimate.TotalCost,
	})
}

func (p *productionController) ApproveSession(c *gin.Context) {
	var req dto.ApproveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := p.sessionService.Approve(c.Request.Context(), req.ToScenePlan())
	if err != nil {
		p.abortWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SessionResponse{
		SessionID:    state.SessionID,
		Status:       state.Status,
		CostEstimate: state.CostEstimate,
	})
}

func (p *productionController) ListSessions(c *gin.Context) {
	ids, err := p.sessionService.List(c.Request.Context())
	if err != nil {
		p.abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": ids})
}

func (p *productionController) GetSession(c *gin.Context) {
	state, err := p.sessionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		p.abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Produce runs (or resumes) the pipeline synchronously and answers with the
// terminal state. Progress during a long run is observable through
// GET /sessions/:id, which reads the persisted state.
func (p *productionController) Produce(c *gin.Context) {
	sessionID := c.Param("id")

	events, errCh := p.orchestrator.Produce(c.Request.Context(), inbound.ProduceParams{SessionID: sessionID})

	for event := range events {
		p.logger.DebugWithFields("Production progress", map[string]interface{}{
			"session_id": event.SessionID,
			"scene_id":   event.SceneID,
			"phase":      event.Phase,
			"message":    event.Message,
		})
	}

	var runErr error
	for err := range errCh {
		runErr = err
	}
	if runErr != nil {
		p.abortProduceError(c, sessionID, runErr)
		return
	}

	state, err := p.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		p.abortWithDomainError(c, err)
		return
	}

	res := dto.ProduceResponse{
		SessionID: sessionID,
		Status:    state.Status,
	}
	if state.FinalVideo != nil {
		res.FinalVideo = state.FinalVideo.Path

		if p.publisher != nil {
			published, pubErr := p.publisher.Publish(c.Request.Context(), outbound.PublishVideoRequest{
				SessionID:     sessionID,
				VideoFileName: state.FinalVideo.Path,
			})
			if pubErr != nil {
				p.logger.Error(pubErr, "Failed to publish the final video")
			} else {
				res.VideoKey = published.VideoKey
				res.StoreRegion = published.StoreRegion
			}
		}
	}

	c.JSON(http.StatusOK, res)
}

// abortProduceError reports a partially failed run with the precise unit
// list so the caller knows exactly what to retry.
func (p *productionController) abortProduceError(c *gin.Context, sessionID string, err error) {
	var phaseErr *domain.PhaseError
	if errors.As(err, &phaseErr) {
		failures := make([]dto.UnitFailureResponse, 0, len(phaseErr.Failures))
		for _, f := range phaseErr.Failures {
			failures = append(failures, dto.UnitFailureResponse{
				SceneID: f.SceneID,
				Kind:    string(f.Kind),
				Message: f.Err.Error(),
			})
		}

		// Report the persisted status; a halted run is failed but stays
		// resumable, so completed units are never re-requested on retry.
		status := domain.StatusFailed
		if state, loadErr := p.sessionService.Get(c.Request.Context(), sessionID); loadErr == nil {
			status = state.Status
		}

		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.ProduceResponse{
			SessionID: sessionID,
			Status:    status,
			Failures:  failures,
		})
		return
	}
	p.abortWithDomainError(c, err)
}

func (p *productionController) abortWithDomainError(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.NotFoundKind:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.InvalidArgumentKind:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		p.logger.Error(err, "Request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
