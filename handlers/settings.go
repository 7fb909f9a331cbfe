package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ringboard/ringboard/db"
	"github.com/ringboard/ringboard/services"
)

type SettingsHandler struct {
	settings *services.SettingsService
	tester   *services.ConnectionTester
}

func NewSettingsHandler(settings *services.SettingsService, tester *services.ConnectionTester) *SettingsHandler {
	return &SettingsHandler{settings: settings, tester: tester}
}

// GetSettings handles GET /api/settings.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	respondOK(c, h.settings.Load())
}

// PutSettings handles PUT /api/settings, replacing the whole record.
func (h *SettingsHandler) PutSettings(c *gin.Context) {
	var settings db.IntegrationSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.Save(settings); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, settings)
}

// PutIntegration handles PUT /api/settings/:integration for one channel.
func (h *SettingsHandler) PutIntegration(c *gin.Context) {
	name := c.Param("integration")

	if name == "n8n" {
		var n8n db.N8NSettings
		if err := c.ShouldBindJSON(&n8n); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		settings, err := h.settings.UpdateN8N(n8n)
		if err != nil {
			respondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		respondOK(c, settings)
		return
	}

	var channel db.ChannelSettings
	if err := c.ShouldBindJSON(&channel); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	settings, err := h.settings.UpdateChannel(name, channel)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(c, settings)
}

// TestIntegration handles POST /api/integrations/:service/test. The body
// may override the stored webhook URL and credential; otherwise the saved
// settings are pinged. The result always comes back 200 with a success flag.
func (h *SettingsHandler) TestIntegration(c *gin.Context) {
	var body struct {
		WebhookURL string `json:"webhookUrl"`
		Credential string `json:"credential"`
	}
	_ = c.ShouldBindJSON(&body)

	settings := h.settings.Load()
	ctx := c.Request.Context()

	var result services.TestConnectionResult
	switch c.Param("service") {
	case "whatsapp":
		url, cred := body.WebhookURL, body.Credential
		if url == "" {
			url, cred = settings.WhatsApp.WebhookURL, settings.WhatsApp.Credential
		}
		result = h.tester.TestWhatsApp(ctx, url, cred)
	case "telegram":
		url, cred := body.WebhookURL, body.Credential
		if url == "" {
			url, cred = settings.Telegram.WebhookURL, settings.Telegram.Credential
		}
		result = h.tester.TestTelegram(ctx, url, cred)
	case "instagram":
		url, cred := body.WebhookURL, body.Credential
		if url == "" {
			url, cred = settings.Instagram.WebhookURL, settings.Instagram.Credential
		}
		result = h.tester.TestInstagram(ctx, url, cred)
	case "n8n":
		url := body.WebhookURL
		if url == "" {
			url = settings.N8N.TestWebhookURL
		}
		result = h.tester.TestN8N(ctx, url)
	default:
		respondError(c, http.StatusBadRequest, "unknown integration")
		return
	}

	c.JSON(http.StatusOK, result)
}
