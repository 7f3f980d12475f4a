package api

import (
	"errors"
	"net/http"

	models "BiasGuard/internal/domain/models"
	"BiasGuard/internal/usecase"
	xhttp "BiasGuard/pkg/http"
	xlogger "BiasGuard/pkg/logger"
	"BiasGuard/pkg/store"

	"github.com/labstack/echo/v4"
)

// BiasEchoHandler exposes the consistency engine over HTTP.
type BiasEchoHandler struct {
	logger   *xlogger.Logger
	query    *usecase.BiasQuery
	recorder *usecase.DecisionRecorder
	checker  *usecase.ConsistencyChecker
	reset    *usecase.ResetCoordinator
}

func NewBiasEchoHandler(
	logger *xlogger.Logger,
	query *usecase.BiasQuery,
	recorder *usecase.DecisionRecorder,
	checker *usecase.ConsistencyChecker,
	reset *usecase.ResetCoordinator,
) *BiasEchoHandler {
	return &BiasEchoHandler{
		logger:   logger,
		query:    query,
		recorder: recorder,
		checker:  checker,
		reset:    reset,
	}
}

func (h *BiasEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/bias/:symbol", h.GetBias)
	g.GET("/decisions/:symbol", h.GetDecisions)
	g.POST("/decisions", h.RecordDecision)
	g.POST("/consistency", h.CheckConsistency)
	g.POST("/reset", h.Reset)
	e.GET("/health", h.Health)
}

func (h *BiasEchoHandler) GetBias(c echo.Context) error {
	status, err := h.query.Get(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.mapError(c, err)
	}
	if status.Bias == nil {
		return xhttp.NotFoundResponse(c, status)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *BiasEchoHandler) GetDecisions(c echo.Context) error {
	q := &models.DecisionsQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	decisions, err := h.recorder.Recent(c.Request().Context(), c.Param("symbol"), q.Limit)
	if err != nil {
		return h.mapError(c, err)
	}
	return xhttp.SuccessResponse(c, decisions)
}

func (h *BiasEchoHandler) RecordDecision(c echo.Context) error {
	req := &models.DecisionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.recorder.Record(c.Request().Context(),
		req.Symbol, models.DecisionType(req.DecisionType), req.Content,
		req.Override, req.OverrideReason)
	if err != nil {
		return h.mapError(c, err)
	}
	if res.Blocked {
		return xhttp.DataResponse(c, http.StatusConflict, res)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *BiasEchoHandler) CheckConsistency(c echo.Context) error {
	req := &models.ConsistencyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	verdict, err := h.checker.Check(c.Request().Context(), usecase.CheckInput{
		Symbol:         req.Symbol,
		Proposed:       models.Bias(req.ProposedBias),
		Reasoning:      req.Reasoning,
		Action:         req.ProposedAction,
		Condition:      models.MarketCondition(req.MarketCondition),
		CurrentPrice:   req.CurrentPrice,
		Override:       req.Override,
		OverrideReason: req.OverrideReason,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return xhttp.SuccessResponse(c, verdict)
}

func (h *BiasEchoHandler) Reset(c echo.Context) error {
	req := &models.ResetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.reset.Reset(c.Request().Context(), req.Symbol, req.Confirm, req.Reason)
	if err != nil && res == nil {
		return h.mapError(c, err)
	}
	if err != nil {
		// Partial failure carries both the result and the error.
		return xhttp.DataResponse(c, http.StatusInternalServerError, res)
	}
	if !res.Success {
		return xhttp.DataResponse(c, http.StatusConflict, res)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BiasEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// mapError turns domain errors into HTTP envelopes. Storage failures
// carry a directive so automated callers know to proceed without
// memory context instead of retrying forever.
func (h *BiasEchoHandler) mapError(c echo.Context, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		appErr := xhttp.BadRequestError(verr.Message)
		appErr.Code = "ERR_VALIDATION"
		appErr.Field = verr.Field
		if len(verr.Allowed) > 0 {
			appErr.WithParam("allowed", verr.Allowed)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}

	if errors.Is(err, store.ErrUnavailable) {
		h.logger.Error("storage unavailable", xlogger.Error(err))
		appErr := xhttp.UnavailableError("storage unavailable after retries")
		appErr.Code = "ERR_STORAGE_UNAVAILABLE"
		appErr.WithParam("fallback", "continue without memory context - use extra caution")
		return xhttp.AppErrorResponse(c, appErr)
	}

	h.logger.Error("request failed", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
