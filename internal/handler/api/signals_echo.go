package api

import (
	"time"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/usecase"
	xhttp "SignalGate/pkg/http"
	xlogger "SignalGate/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsEchoHandler exposes the read-only signal surface. All writes go
// through the workers; the API never mutates lifecycle state.
type SignalsEchoHandler struct {
	logger    *xlogger.Logger
	lifecycle *usecase.SignalLifecycleManager
	obs       drepo.ObservationStore
}

func NewSignalsEchoHandler(logger *xlogger.Logger, lifecycle *usecase.SignalLifecycleManager, obs drepo.ObservationStore) *SignalsEchoHandler {
	return &SignalsEchoHandler{logger: logger, lifecycle: lifecycle, obs: obs}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals/active", h.Active)
	g.GET("/signals/history", h.History)
	g.GET("/signals/:id", h.Get)
	g.GET("/observations", h.Observations)
	g.GET("/discrepancies", h.Discrepancies)
}

// Active lists the non-terminal signals, optionally filtered to one asset.
func (h *SignalsEchoHandler) Active(c echo.Context) error {
	req := &models.ActiveSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sigs, err := h.lifecycle.ActiveSignals(c.Request().Context())
	if err != nil {
		h.logger.Error("active signals usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if req.Asset != "" {
		filtered := sigs[:0]
		for _, s := range sigs {
			if s.Asset == req.Asset {
				filtered = append(filtered, s)
			}
		}
		sigs = filtered
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

// Get returns one signal by id, live or archived state as currently stored.
func (h *SignalsEchoHandler) Get(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "id is required")
	}

	sig, err := h.lifecycle.Get(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("get signal usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if sig == nil {
		return xhttp.NotFoundResponse(c, "signal not found")
	}
	return xhttp.SuccessResponse(c, sig)
}

// History returns archived terminal signals for one asset, newest first.
func (h *SignalsEchoHandler) History(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sigs, err := h.lifecycle.History(c.Request().Context(), req.Asset, req.Limit)
	if err != nil {
		h.logger.Error("signal history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

// Observations returns the reconciler's ground-truth records for one signal.
func (h *SignalsEchoHandler) Observations(c echo.Context) error {
	req := &models.ObservationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	obs, err := h.obs.BySignal(c.Request().Context(), req.SignalID)
	if err != nil {
		h.logger.Error("observations usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, obs, int64(len(obs)))
}

// Discrepancies returns flagged observations within the requested window.
func (h *SignalsEchoHandler) Discrepancies(c echo.Context) error {
	req := &models.DiscrepanciesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-24*time.Hour))
	if !from.Before(to) {
		return xhttp.BadRequestResponse(c, "from must precede to")
	}

	obs, err := h.obs.Discrepancies(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		h.logger.Error("discrepancies usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, obs, int64(len(obs)))
}
