package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coldchain/compliance/internal/auth"
	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/history"
	"coldchain/compliance/internal/pipeline"
	"coldchain/compliance/internal/store"
)

type LiveStateReader interface {
	LiveState(ctx context.Context, shipmentID string) (*store.LiveState, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	ingestor  *pipeline.Ingestor
	alerts    *pipeline.AlertManager
	resolver  *pipeline.RangeResolver
	shipments *pipeline.ShipmentService
	history   *history.Service
	live      LiveStateReader
	logger    *zap.Logger
}

func NewHandlers(
	ingestor *pipeline.Ingestor,
	alerts *pipeline.AlertManager,
	resolver *pipeline.RangeResolver,
	shipments *pipeline.ShipmentService,
	hist *history.Service,
	live LiveStateReader,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		ingestor:  ingestor,
		alerts:    alerts,
		resolver:  resolver,
		shipments: shipments,
		history:   hist,
		live:      live,
		logger:    logger,
	}
}

// SubmitReading records a reading. API-key callers are devices; users
// entering a reading on the dashboard are manual.
func (h *Handlers) SubmitReading(c *gin.Context) {
	var in domain.ReadingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, string(domain.KindValidation), "invalid request body: "+err.Error())
		return
	}
	in.Source = domain.SourceManual
	if p, ok := principalFrom(c); ok && p.Role == auth.RoleDevice {
		in.Source = domain.SourceDevice
	}

	res, err := h.ingestor.Ingest(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handlers) ListReadings(c *gin.Context) {
	f := domain.ReadingFilter{
		ShipmentID:  c.Query("shipmentId"),
		OrderNumber: c.Query("orderNumber"),
		Location:    c.Query("location"),
		Compliance:  domain.Compliance(c.Query("compliance")),
		Severity:    domain.Severity(c.Query("severity")),
		SortBy:      c.Query("sort"),
		Order:       domain.SortOrder(c.Query("order")),
	}
	var err error
	if f.Start, f.End, err = timeWindow(c); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if f.PageRequest, err = pageRequest(c); err != nil {
		writeError(c, h.logger, err)
		return
	}

	page, err := h.history.ListReadings(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handlers) ListAlerts(c *gin.Context) {
	f := domain.AlertFilter{
		ShipmentID:  c.Query("shipmentId"),
		OrderNumber: c.Query("orderNumber"),
		Status:      domain.AlertStatus(c.Query("status")),
		Severity:    domain.Severity(c.Query("severity")),
		Location:    c.Query("location"),
		SortBy:      c.Query("sort"),
		Order:       domain.SortOrder(c.Query("order")),
	}
	var err error
	if f.Start, f.End, err = timeWindow(c); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if f.PageRequest, err = pageRequest(c); err != nil {
		writeError(c, h.logger, err)
		return
	}

	page, err := h.history.ListAlerts(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handlers) GetAlert(c *gin.Context) {
	detail, err := h.history.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handlers) ResolveAlert(c *gin.Context) {
	var in domain.ResolveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, string(domain.KindValidation), "invalid request body: "+err.Error())
		return
	}
	in.AlertID = c.Param("id")
	if in.ResolvedBy == "" {
		if p, ok := principalFrom(c); ok {
			in.ResolvedBy = p.Subject
		}
	}

	alert, err := h.alerts.Resolve(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alertId":    alert.ID,
		"status":     alert.Status,
		"resolvedAt": alert.ResolvedAt,
	})
}

func (h *Handlers) ShipmentRange(c *gin.Context) {
	rng, err := h.resolver.ResolveCurrent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rng)
}

func (h *Handlers) ShipmentLive(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.shipments.Get(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	st, err := h.live.LiveState(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, domain.StorageErr("live state", err))
		return
	}
	if st == nil {
		writeError(c, h.logger, domain.NotFoundf("no recent reading for shipment %s", id))
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handlers) RegisterShipment(c *gin.Context) {
	var reg pipeline.ShipmentRegistration
	if err := c.ShouldBindJSON(&reg); err != nil {
		abortWithError(c, http.StatusBadRequest, string(domain.KindValidation), "invalid request body: "+err.Error())
		return
	}
	p, _ := principalFrom(c)

	sh, err := h.shipments.Register(c.Request.Context(), reg, p.Subject)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sh)
}

type statusRequest struct {
	Status domain.ShipmentStatus `json:"status"`
}

func (h *Handlers) UpdateShipmentStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, string(domain.KindValidation), "invalid request body: "+err.Error())
		return
	}

	sh, err := h.shipments.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

func (h *Handlers) SetShipmentRange(c *gin.Context) {
	var in domain.RangeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, string(domain.KindValidation), "invalid request body: "+err.Error())
		return
	}
	p, _ := principalFrom(c)

	v, err := h.resolver.SetShipmentOverride(c.Request.Context(), c.Param("id"), in, p.Subject)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handlers) CategoryRanges(c *gin.Context) {
	ranges, err := h.resolver.CategoryDefaults(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ranges)
}

func (h *Handlers) SetCategoryRange(c *gin.Context) {
	var in domain.RangeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, string(domain.KindValidation), "invalid request body: "+err.Error())
		return
	}
	p, _ := principalFrom(c)

	v, err := h.resolver.SetCategoryDefault(c.Request.Context(), domain.ProductCategory(c.Param("category")), in, p.Subject)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Health pings every dependency and reports the first failure.
func Health(deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{}
		healthy := true
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": status})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": status})
	}
}

func pageRequest(c *gin.Context) (domain.PageRequest, error) {
	var p domain.PageRequest
	var err error
	if p.Page, err = intQuery(c, "page"); err != nil {
		return p, err
	}
	if p.Limit, err = intQuery(c, "limit"); err != nil {
		return p, err
	}
	return p, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.Validationf("%s must be a positive integer", key)
	}
	return n, nil
}

func timeWindow(c *gin.Context) (*time.Time, *time.Time, error) {
	start, err := timeQuery(c, "start")
	if err != nil {
		return nil, nil, err
	}
	end, err := timeQuery(c, "end")
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.Validationf("%s must be an RFC 3339 timestamp", key)
	}
	t = t.UTC()
	return &t, nil
}
