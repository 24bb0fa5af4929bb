package http

import (
	"context"
	"encoding/xml"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

// twimlResponse is the TwiML document answering a Twilio webhook.
type twimlResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

// HandleTwilio answers a Twilio WhatsApp message inline with TwiML.
func (h *Handler) HandleTwilio(c *gin.Context) {
	var form TwilioForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "invalid form")
		return
	}
	msg := AdaptTwilio(form)
	msg.Text = CleanText(msg.Text)

	resp := twimlResponse{}
	result, err := h.deps.Pipeline.Respond(c.Request.Context(), msg, "", nil, "")
	if err != nil {
		_ = c.Error(err)
	}
	if result != nil && result.Reply != "" {
		resp.Messages = []string{result.Reply}
	}
	c.XML(http.StatusOK, resp)
}

// VerifyMeta completes the Graph API subscription handshake.
func (h *Handler) VerifyMeta(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode == "subscribe" && h.deps.VerifyToken != "" && token == h.deps.VerifyToken {
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// HandleMeta acknowledges a Graph webhook at once and answers the message
// in the background. WhatsApp replies go out through the Graph sender.
func (h *Handler) HandleMeta(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	msg := AdaptMeta(body)
	c.JSON(http.StatusOK, gin.H{"status": "received"})

	if msg.Channel == entities.ChannelUnknown {
		// delivery receipts and other non-message callbacks
		h.log.Debug("meta webhook ignored", zap.Int("bytes", len(body)))
		return
	}
	msg.Text = CleanText(msg.Text)

	var out interfaces.Messenger
	if msg.Channel == entities.ChannelWhatsApp {
		out = h.deps.GraphSender
	}
	ctx := context.WithoutCancel(c.Request.Context())
	h.async(func() {
		if _, err := h.deps.Pipeline.Respond(ctx, msg, "", out, msg.From); err != nil {
			h.log.Error("meta reply failed", zap.String("channel", string(msg.Channel)), zap.Error(err))
		}
	})
}

// HandleEmail runs the pipeline for a SendGrid inbound email and returns
// the result; delivery of the answer is left to the caller.
func (h *Handler) HandleEmail(c *gin.Context) {
	var form SendGridForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	msg := AdaptSendGrid(form)
	msg.Text = CleanText(msg.Text)

	result := h.deps.Pipeline.HandleCanonical(c.Request.Context(), msg, "")
	c.JSON(http.StatusOK, result)
}
