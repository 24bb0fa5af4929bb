package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/infrastructure"
	"leadbot/internal/interfaces"
	"leadbot/internal/usecases"
)

// MessagePipeline is the message core as seen by the HTTP surface.
type MessagePipeline interface {
	interfaces.Pipeline
	interfaces.Responder
}

type UsageReporter interface {
	Summary(ctx context.Context, tenantID string) (usecases.UsageSummary, error)
}

// DeviceLinker manages tenants' linked WhatsApp devices.
type DeviceLinker interface {
	Link(ctx context.Context, tenantID string) (infrastructure.WhatsAppStatus, error)
	Status(tenantID string) infrastructure.WhatsAppStatus
	QR(tenantID string) string
}

// BotController reports and stops tenants' Telegram bots.
type BotController interface {
	Status(tenantID string) (connected bool, botName string)
	DisconnectBot(tenantID string)
}

// TenantCache drops cached tenant documents after they change on disk.
type TenantCache interface {
	Invalidate(tenantID string)
}

type StatsReporter interface {
	GetStats() map[string]interface{}
}

// Deps are the collaborators of the HTTP surface. Optional ones may be nil.
type Deps struct {
	Pipeline    MessagePipeline
	Usage       UsageReporter
	WhatsApp    DeviceLinker
	Telegram    BotController
	Tenants     TenantCache
	GraphSender interfaces.Messenger
	RateLimits  StatsReporter
	VerifyToken string
}

type Handler struct {
	deps Deps
	// async runs webhook work after the response has been written.
	async func(func())
	log   *zap.Logger
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:  deps,
		async: func(f func()) { go f() },
		log:   zap.L().With(zap.String("component", "http")),
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware, maxBodyBytes int64) {
	r.Use(RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(maxBodyBytes))
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", h.Health)

	// Channel webhooks
	hooks := r.Group("/webhook")
	hooks.Use(middleware.RateLimitPerClient())
	{
		hooks.POST("/twilio", h.HandleTwilio)
		hooks.GET("/meta", h.VerifyMeta)
		hooks.POST("/meta", h.HandleMeta)
		hooks.POST("/email", h.HandleEmail)
	}

	api := r.Group("/api")
	api.Use(middleware.RateLimitPerClient())
	{
		api.POST("/messages", h.HandleAPIMessage)
		api.GET("/tenants/:id/usage", h.GetUsage)
		api.POST("/tenants/:id/reload", h.ReloadTenant)

		api.POST("/whatsapp/:tenant/connect", h.ConnectWhatsApp)
		api.GET("/whatsapp/:tenant/qr", h.GetWhatsAppQR)
		api.GET("/whatsapp/:tenant/status", h.GetWhatsAppStatus)

		api.GET("/telegram/:tenant/status", h.GetTelegramStatus)
		api.POST("/telegram/:tenant/disconnect", h.DisconnectTelegram)
	}
}

func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.deps.RateLimits != nil {
		resp["rate_limit"] = h.deps.RateLimits.GetStats()
	}
	c.JSON(http.StatusOK, resp)
}

type messageRequest struct {
	Text            string            `json:"text" binding:"required"`
	ChannelMetadata map[string]string `json:"channel_metadata"`
	TenantID        string            `json:"tenant_id" binding:"omitempty,max=64"`
}

// HandleAPIMessage runs the pipeline synchronously and returns its result.
func (h *Handler) HandleAPIMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TenantID != "" && !ValidSlug(req.TenantID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant_id"})
		return
	}
	meta := req.ChannelMetadata
	if meta == nil {
		meta = map[string]string{}
	}
	if _, ok := meta["channel"]; !ok {
		meta["channel"] = string(entities.ChannelWeb)
	}

	result := h.deps.Pipeline.HandleMessage(c.Request.Context(), CleanText(req.Text), meta, req.TenantID)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetUsage(c *gin.Context) {
	tenantID := c.Param("id")
	if !ValidSlug(tenantID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return
	}
	if h.deps.Usage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Usage reporting not configured"})
		return
	}
	summary, err := h.deps.Usage.Summary(c.Request.Context(), tenantID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Lead store unavailable"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ReloadTenant drops the cached configuration so the next message rereads it.
func (h *Handler) ReloadTenant(c *gin.Context) {
	tenantID := c.Param("id")
	if !ValidSlug(tenantID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return
	}
	if h.deps.Tenants != nil {
		h.deps.Tenants.Invalidate(tenantID)
	}
	c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "reloaded": true})
}

// ========================================
// Per-tenant WhatsApp device handlers
// ========================================

func (h *Handler) deviceTenant(c *gin.Context) (string, bool) {
	tenantID := c.Param("tenant")
	if !ValidSlug(tenantID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return "", false
	}
	if h.deps.WhatsApp == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return "", false
	}
	return tenantID, true
}

// ConnectWhatsApp starts linking the tenant's device.
func (h *Handler) ConnectWhatsApp(c *gin.Context) {
	tenantID, ok := h.deviceTenant(c)
	if !ok {
		return
	}
	status, err := h.deps.WhatsApp.Link(c.Request.Context(), tenantID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to connect WhatsApp"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetWhatsAppQR returns the pending pairing code as a PNG.
func (h *Handler) GetWhatsAppQR(c *gin.Context) {
	tenantID, ok := h.deviceTenant(c)
	if !ok {
		return
	}
	code := h.deps.WhatsApp.QR(tenantID)
	if code == "" {
		if h.deps.WhatsApp.Status(tenantID).LoggedIn {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) GetWhatsAppStatus(c *gin.Context) {
	tenantID, ok := h.deviceTenant(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.deps.WhatsApp.Status(tenantID))
}
