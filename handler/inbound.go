package handler

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dealdeskapp/dealdesk/backend/config"
	"github.com/dealdeskapp/dealdesk/backend/extract"
	"github.com/dealdeskapp/dealdesk/backend/middleware"
	"github.com/dealdeskapp/dealdesk/backend/model"
	"github.com/dealdeskapp/dealdesk/backend/parser"
	"github.com/dealdeskapp/dealdesk/backend/pkg/logger"
	"github.com/dealdeskapp/dealdesk/backend/service"
)

type InboundHandler struct {
	config  *config.Config
	storage FileStorage
	store   *service.Store
}

func NewInboundHandler(cfg *config.Config, storage FileStorage, store *service.Store) *InboundHandler {
	return &InboundHandler{
		config:  cfg,
		storage: storage,
		store:   store,
	}
}

// InboundPayload is the Postmark inbound webhook body. Only the fields the
// pipeline reads are declared.
type InboundPayload struct {
	From              string              `json:"From"`
	FromName          string              `json:"FromName"`
	FromFull          InboundAddress      `json:"FromFull"`
	ToFull            []InboundAddress    `json:"ToFull"`
	OriginalRecipient string              `json:"OriginalRecipient"`
	Subject           string              `json:"Subject"`
	MessageID         string              `json:"MessageID"`
	Date              string              `json:"Date"`
	TextBody          string              `json:"TextBody"`
	HTMLBody          string              `json:"HtmlBody"`
	Attachments       []InboundAttachment `json:"Attachments"`
}

type InboundAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name"`
}

type InboundAttachment struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"` // base64
	ContentType string `json:"ContentType"`
}

// Receive handles an inbound email webhook. The provider retries on 5xx, so
// anything that isn't our fault answers 200.
func (h *InboundHandler) Receive(c *gin.Context) {
	log := logger.WithContext(c.Request.Context())

	var payload InboundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	toAddress := payload.OriginalRecipient
	if toAddress == "" && len(payload.ToFull) > 0 {
		toAddress = payload.ToFull[0].Email
	}
	if toAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No recipient address"})
		return
	}

	user := h.config.FindUserByForwardingAddress(toAddress)
	if user == nil {
		log.Info("inbound email for unknown address", "to", toAddress)
		c.JSON(http.StatusOK, gin.H{"message": "No matching user"})
		return
	}

	fromEmail := payload.FromFull.Email
	if fromEmail == "" {
		fromEmail = payload.From
	}
	fromName := payload.FromFull.Name
	if fromName == "" {
		fromName = payload.FromName
	}

	emailID := uuid.New().String()
	parsed := parser.ParseEmail(fromEmail, fromName, payload.Subject, payload.TextBody)

	attachments := h.storeAttachments(c, user.Username, emailID, payload.Attachments)

	now := time.Now()
	receivedAt := parseEmailDate(payload.Date, now)
	email := &model.Email{
		ID:          emailID,
		UserID:      user.Username,
		MessageID:   payload.MessageID,
		FromEmail:   fromEmail,
		FromName:    fromName,
		Subject:     payload.Subject,
		BodyText:    payload.TextBody,
		BodyHTML:    payload.HTMLBody,
		Attachments: attachments,
		Parsed:      parsed,
		ReceivedAt:  receivedAt,
		CreatedAt:   now,
	}
	h.store.Emails.Save(email)

	log.Info("inbound email stored",
		"email_id", emailID,
		"user", user.Username,
		"from", fromEmail,
		"confidence", parsed.Confidence,
		"attachments", len(attachments),
	)

	c.JSON(http.StatusOK, gin.H{
		"message":  "Email received",
		"email_id": emailID,
	})
}

// parseEmailDate reads the message's Date header from the webhook payload.
// An absent or unparseable date falls back to the delivery time.
func parseEmailDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}

// storeAttachments uploads decoded attachments to object storage. A bad or
// failed attachment is skipped, never fatal for the email itself.
func (h *InboundHandler) storeAttachments(c *gin.Context, username, emailID string, attachments []InboundAttachment) []model.EmailAttachment {
	log := logger.WithContext(c.Request.Context())

	var stored []model.EmailAttachment
	for _, att := range attachments {
		if att.Name == "" || att.Content == "" {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			log.Warn("skipping attachment with invalid encoding", "email_id", emailID, "name", att.Name)
			continue
		}

		objectName := username + "/emails/" + emailID + "/" + att.Name
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		err = h.storage.UploadFile(c.Request.Context(), objectName, bytes.NewReader(data), int64(len(data)), contentType)
		if err != nil {
			log.Warn("failed to store attachment", "email_id", emailID, "name", att.Name, "error", err)
			continue
		}

		stored = append(stored, model.EmailAttachment{
			FileName: att.Name,
			URL:      h.storage.GetPublicURL(objectName),
			Size:     int64(len(data)),
			MimeType: contentType,
		})
	}
	return stored
}

type linkEmailRequest struct {
	DealID string `json:"deal_id" binding:"required"`
}

// LinkToDeal attaches a parsed email to one of the user's deals, seeding
// empty deal fields from the email candidate under the no-clobber rule.
func (h *InboundHandler) LinkToDeal(c *gin.Context) {
	username := middleware.GetUsername(c)

	email := h.store.Emails.Get(c.Param("id"))
	if email == nil || email.UserID != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
		return
	}

	var req linkEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deal_id is required"})
		return
	}

	deal := h.store.Deals.Get(req.DealID)
	if deal == nil || deal.UserID != username {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Deal not found"})
		return
	}

	merged := extract.MergeEmailIntoDeal(deal, &email.Parsed)
	if len(merged) > 0 {
		h.store.Deals.Save(deal)
	}
	h.store.Emails.MarkLinked(email.ID)

	logger.WithContext(c.Request.Context()).Info("email linked to deal",
		"email_id", email.ID,
		"deal_id", deal.ID,
		"merged_fields", merged,
	)

	c.JSON(http.StatusOK, gin.H{
		"message":       "Email linked",
		"deal_id":       deal.ID,
		"merged_fields": merged,
	})
}

// List returns the current user's inbound emails, newest first
func (h *InboundHandler) List(c *gin.Context) {
	username := middleware.GetUsername(c)
	emails := h.store.Emails.GetByUser(username)
	if emails == nil {
		emails = []*model.Email{}
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails})
}
