package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/delivery/http/dto/response"
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

// SyncRunner is the part of the sync orchestrator the admin API drives.
type SyncRunner interface {
	RunOnce(ctx context.Context, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error)
	SyncPartner(ctx context.Context, partnerID string, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error)
	Running() bool
}

type CommissionHandler struct {
	commissionUc usecase.CommissionUsecase
	sync         SyncRunner
	// Lifetime of background runs started by POST /api/sync/run.
	baseCtx       context.Context
	maxAge        time.Duration
	defaultWindow time.Duration
	maxDays       int
	logger        *slog.Logger
	now           func() time.Time
	runs          sync.WaitGroup
}

type CommissionHandlerConfig struct {
	MaxAge        time.Duration
	DefaultWindow time.Duration
	MaxDays       int
}

func NewCommissionHandler(
	baseCtx context.Context,
	commissionUc usecase.CommissionUsecase,
	sync SyncRunner,
	cfg CommissionHandlerConfig,
	logger *slog.Logger,
) *CommissionHandler {
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 365
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommissionHandler{
		commissionUc:  commissionUc,
		sync:          sync,
		baseCtx:       baseCtx,
		maxAge:        cfg.MaxAge,
		defaultWindow: cfg.DefaultWindow,
		maxDays:       cfg.MaxDays,
		logger:        logger,
		now:           time.Now,
	}
}

// GetCommission serves the partner's commission; fresh=true recomputes it.
func (h *CommissionHandler) GetCommission(c *gin.Context) {
	maxAge := h.maxAge
	if fresh, _ := strconv.ParseBool(c.Query("fresh")); fresh {
		maxAge = 0
	}

	commission, err := h.commissionUc.GetCommission(c.Request.Context(), c.Param("id"), maxAge)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewCommissionResponse(commission, h.now()))
}

func (h *CommissionHandler) ListUserBreakdown(c *gin.Context) {
	rows, err := h.commissionUc.ListUserBreakdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": response.NewUserCommissionResponses(rows)})
}

// SyncPartner runs a synchronous backfill for one partner.
func (h *CommissionHandler) SyncPartner(c *gin.Context) {
	window, ok := h.window(c)
	if !ok {
		return
	}
	run, err := h.sync.SyncPartner(c.Request.Context(), c.Param("id"), domain.TriggerManual, window)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewSyncRunResponse(run))
}

// RunSync starts a full run in the background and returns immediately.
func (h *CommissionHandler) RunSync(c *gin.Context) {
	window, ok := h.window(c)
	if !ok {
		return
	}
	if h.sync.Running() {
		h.writeError(c, domain.ErrSyncAlreadyRunning)
		return
	}
	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		if _, err := h.sync.RunOnce(h.baseCtx, domain.TriggerManual, window); err != nil {
			h.logger.Error("manual sync run failed", slog.String("error", err.Error()))
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// Wait blocks until every run started by RunSync has returned.
func (h *CommissionHandler) Wait() {
	h.runs.Wait()
}

func (h *CommissionHandler) window(c *gin.Context) (time.Duration, bool) {
	raw := c.Query("days")
	if raw == "" {
		return h.defaultWindow, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 || days > h.maxDays {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "days must be between 1 and " + strconv.Itoa(h.maxDays)})
		return 0, false
	}
	return time.Duration(days) * 24 * time.Hour, true
}

func (h *CommissionHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPartnerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPartnerNotApproved), errors.Is(err, domain.ErrSyncAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("admin api request failed",
			slog.String("path", c.FullPath()),
			slog.String("partner_id", c.Param("id")),
			slog.String("error", err.Error()))
	}
	c.JSON(status, response.ErrorResponse{Error: err.Error()})
}
