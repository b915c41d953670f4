package api

import (
	models "ForecastBench/internal/domain/models"
	domrepo "ForecastBench/internal/domain/repository"
	"ForecastBench/internal/usecase"
	xhttp "ForecastBench/pkg/http"
	xlogger "ForecastBench/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReportsEchoHandler implements Echo-based HTTP handlers for benchmark reports.
type ReportsEchoHandler struct {
	logger  *xlogger.Logger
	reports *usecase.ReportsUseCase
	history domrepo.HistoryStore
}

func NewReportsEchoHandler(logger *xlogger.Logger, reports *usecase.ReportsUseCase, history domrepo.HistoryStore) *ReportsEchoHandler {
	return &ReportsEchoHandler{logger: logger, reports: reports, history: history}
}

func (h *ReportsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/report", h.RunReport)
	g.GET("/models/:model", h.ModelReport)
	g.GET("/leaderboard", h.Leaderboard)
	g.GET("/ensemble", h.EnsembleRounds)
	g.GET("/invariants", h.Invariants)
	g.GET("/history", h.History)
}

func (h *ReportsEchoHandler) RunReport(c echo.Context) error {
	res := h.reports.GetRunReport(c.Request().Context())
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) ModelReport(c echo.Context) error {
	req := &models.ModelReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.reports.GetModelReport(c.Request().Context(), req.Model)
	if err != nil {
		h.logger.Error("model report usecase error", xlogger.Error(err))
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) Leaderboard(c echo.Context) error {
	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hz := models.NormalizeHorizon(req.Horizon)

	res, err := h.reports.GetLeaderboard(c.Request().Context(), hz, req.Limit)
	if err != nil {
		h.logger.Error("leaderboard usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) EnsembleRounds(c echo.Context) error {
	req := &models.EnsembleRoundsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hz := models.NormalizeHorizon(req.Horizon)

	res, err := h.reports.GetEnsembleRounds(c.Request().Context(), hz, req.From, req.Limit)
	if err != nil {
		h.logger.Error("ensemble usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) Invariants(c echo.Context) error {
	res := h.reports.GetRunReport(c.Request().Context())
	if res.Invariants == nil {
		return xhttp.NotFoundResponse(c, "invariants not computed yet")
	}
	return xhttp.SuccessResponse(c, res.Invariants)
}

func (h *ReportsEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.history == nil {
		return xhttp.NotFoundResponse(c, "history store not configured")
	}
	hz := models.NormalizeHorizon(req.Horizon)

	res, err := h.history.GetLatestNOutcomes(c.Request().Context(), req.Model, req.N, hz)
	if err != nil {
		h.logger.Error("history store error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
