package telephony

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"voiceai-platform/internal/config"
	"voiceai-platform/internal/session"
	"voiceai-platform/internal/tenant"
	"voiceai-platform/internal/voice"
	"voiceai-platform/pkg/logger"
	"voiceai-platform/pkg/utils"
)

// Gateway is the webhook edge: it authenticates the provider, resolves the
// tenant, enforces the per-tenant concurrency cap, and converts orchestrator
// decisions to TwiML.
//
// Error discipline: once a call is connected, the provider must always get
// valid TwiML back. Internal failures become a spoken apology, never a bare
// 5xx the caller would hear as dead air.
type Gateway struct {
	app    config.AppConfig
	twilio config.TwilioConfig
	dialog config.DialogConfig

	voice   *voice.Service
	tenants tenant.Repository

	// rdb backs the concurrency cap; nil disables the cap.
	rdb *redis.Client
}

func NewGateway(cfg config.Config, svc *voice.Service, tenants tenant.Repository, rdb *redis.Client) *Gateway {
	return &Gateway{
		app:     cfg.App,
		twilio:  cfg.Twilio,
		dialog:  cfg.Dialog,
		voice:   svc,
		tenants: tenants,
		rdb:     rdb,
	}
}

// HandleTurn serves POST /v1/voice/:tenant_id.
func (g *Gateway) HandleTurn(c *gin.Context) {
	log := logger.FromGin(c)
	defer g.recoverToTwiML(c)

	form, ok := g.authenticate(c)
	if !ok {
		return
	}

	p, ok := g.resolvePractice(c, c.Param("tenant_id"))
	if !ok {
		return
	}

	retried := IsRetried(c.Request.URL)
	if isCallStart(form, retried) {
		acquired, err := g.acquireSlot(c, p, form.CallSid)
		if err != nil {
			log.Warn("concurrency cap check failed", "tenant_id", p.TenantID, "err", err)
		} else if !acquired {
			log.Warn("concurrency cap reached", "tenant_id", p.TenantID)
			writeTwiML(c, RenderBusy())
			return
		}
	}
	if isFinalStatus(form.CallStatus) {
		g.releaseSlot(c, p, form.CallSid)
	}

	d, err := g.voice.HandleTurn(c.Request.Context(), voice.TurnInput{
		Practice:     p,
		CallID:       form.CallSid,
		From:         form.From,
		To:           form.To,
		CallStatus:   form.CallStatus,
		Speech:       form.Speech(),
		RecordingURL: form.RecordingURL,
		Retried:      retried,
	})
	if err != nil {
		log.Error("voice turn failed", "call_sid", form.CallSid, "err", err)
		writeTwiML(c, RenderError(p.VoiceName))
		return
	}

	g.render(c, p, d, retried)
}

// HandlePoll serves POST /v1/voice/:tenant_id/poll/:task_id, the redirect
// continuation for offloaded work.
func (g *Gateway) HandlePoll(c *gin.Context) {
	log := logger.FromGin(c)
	defer g.recoverToTwiML(c)

	form, ok := g.authenticate(c)
	if !ok {
		return
	}

	p, ok := g.resolvePractice(c, c.Param("tenant_id"))
	if !ok {
		return
	}

	d, err := g.voice.HandlePoll(c.Request.Context(), voice.TurnInput{
		Practice:   p,
		CallID:     form.CallSid,
		From:       form.From,
		To:         form.To,
		CallStatus: form.CallStatus,
	}, c.Param("task_id"))
	if err != nil {
		log.Error("voice poll failed", "call_sid", form.CallSid, "err", err)
		writeTwiML(c, RenderError(p.VoiceName))
		return
	}

	g.render(c, p, d, false)
}

func (g *Gateway) authenticate(c *gin.Context) (VoiceWebhookForm, bool) {
	log := logger.FromGin(c)

	form, err := ParseVoiceWebhook(c.Request)
	if err != nil {
		log.Warn("webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return VoiceWebhookForm{}, false
	}

	if g.twilio.ValidateSignature {
		fullURL := g.app.PublicBaseURL + c.Request.URL.RequestURI()
		sig := c.GetHeader(signatureHeader)
		if !ValidateSignature(g.twilio.AuthToken, fullURL, c.Request.PostForm, sig) {
			log.Warn("webhook signature rejected", "call_sid", form.CallSid)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return VoiceWebhookForm{}, false
		}
	}

	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return VoiceWebhookForm{}, false
	}
	return form, true
}

func (g *Gateway) resolvePractice(c *gin.Context, tenantID string) (tenant.Practice, bool) {
	log := logger.FromGin(c)

	p, err := g.tenants.Get(c.Request.Context(), tenantID)
	if err != nil {
		if !errors.Is(err, tenant.ErrNotFound) {
			log.Error("practice lookup failed", "tenant_id", tenantID, "err", err)
		}
		// Unknown tenants still get spoken TwiML: the provider has already
		// connected the caller.
		writeTwiML(c, RenderUnavailable())
		return tenant.Practice{}, false
	}
	if !p.Active {
		writeTwiML(c, RenderUnavailable())
		return tenant.Practice{}, false
	}
	return p, true
}

// isCallStart detects the opening webhook of a call: no speech, no
// recording, non-final status, and not a silent-gather retry (a retried turn
// belongs to a call that already holds its slot). Only that turn acquires a
// concurrency slot.
func isCallStart(form VoiceWebhookForm, retried bool) bool {
	return !retried && form.Speech() == "" && form.RecordingURL == "" && !isFinalStatus(form.CallStatus)
}

func (g *Gateway) acquireSlot(c *gin.Context, p tenant.Practice, callSid string) (bool, error) {
	if g.rdb == nil {
		return true, nil
	}
	limit := p.MaxConcurrentCalls
	if limit <= 0 {
		limit = g.dialog.MaxConcurrentCalls
	}
	// The TTL backstops leaked slots if the final status callback is lost.
	return utils.AcquireConcurrencyCap(
		c.Request.Context(), g.rdb,
		concurrencyKey(p.TenantID), slotHolderKey(p.TenantID, callSid),
		limit, g.dialog.SessionTTL,
	)
}

// releaseSlot returns the call's slot if it holds one. Calls rejected at
// capacity and redelivered final-status callbacks release nothing.
func (g *Gateway) releaseSlot(c *gin.Context, p tenant.Practice, callSid string) {
	if g.rdb == nil {
		return
	}
	_, err := utils.ReleaseConcurrencyCap(
		c.Request.Context(), g.rdb,
		concurrencyKey(p.TenantID), slotHolderKey(p.TenantID, callSid),
	)
	if err != nil {
		logger.FromGin(c).Warn("concurrency release failed", "tenant_id", p.TenantID, "err", err)
	}
}

func concurrencyKey(tenantID string) string {
	return "concurrency:" + tenantID
}

func slotHolderKey(tenantID, callSid string) string {
	return "concurrency:" + tenantID + ":call:" + callSid
}

func (g *Gateway) render(c *gin.Context, p tenant.Practice, d session.Decision, retried bool) {
	log := logger.FromGin(c)

	actionURL := g.turnURL(p.TenantID)
	opts := RenderOptions{
		ActionURL:     actionURL,
		Voice:         p.VoiceName,
		GatherTimeout: int(g.dialog.GatherTimeout.Seconds()),
		Retried:       retried,
	}
	if d.Action == session.ActionRedirect {
		opts.PollURL = g.pollURL(p.TenantID, d.TaskID)
	}

	twiml, err := RenderDecision(d, opts)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		writeTwiML(c, RenderError(p.VoiceName))
		return
	}
	writeTwiML(c, twiml)
}

func (g *Gateway) turnURL(tenantID string) string {
	return fmt.Sprintf("%s/v1/voice/%s", g.app.PublicBaseURL, tenantID)
}

func (g *Gateway) pollURL(tenantID, taskID string) string {
	return fmt.Sprintf("%s/v1/voice/%s/poll/%s", g.app.PublicBaseURL, tenantID, taskID)
}

// recoverToTwiML is the outermost guard on the webhook path: a panic still
// answers the call with the apology message.
func (g *Gateway) recoverToTwiML(c *gin.Context) {
	if rec := recover(); rec != nil {
		logger.FromGin(c).Error("panic in voice webhook", "panic", fmt.Sprint(rec))
		if !c.Writer.Written() {
			writeTwiML(c, RenderError(""))
		}
		c.Abort()
	}
}

func writeTwiML(c *gin.Context, body string) {
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, body)
}

func isFinalStatus(status string) bool {
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	default:
		return false
	}
}
