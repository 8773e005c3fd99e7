package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dealdeskapp/dealdesk/backend/middleware"
	"github.com/dealdeskapp/dealdesk/backend/model"
	"github.com/dealdeskapp/dealdesk/backend/service"
)

type DealHandler struct {
	store *service.Store
}

func NewDealHandler(store *service.Store) *DealHandler {
	return &DealHandler{store: store}
}

type CreateDealRequest struct {
	Title       string  `json:"title" binding:"required"`
	BrandName   string  `json:"brand_name"`
	ContactName string  `json:"contact_name"`
	Status      string  `json:"status"`
	Value       float64 `json:"value"`
	Currency    string  `json:"currency"`
	Notes       string  `json:"notes"`
}

var validDealStatuses = map[string]bool{
	model.DealLead:        true,
	model.DealNegotiating: true,
	model.DealContracted:  true,
	model.DealInProgress:  true,
	model.DealCompleted:   true,
}

// Create creates a new deal
func (h *DealHandler) Create(c *gin.Context) {
	username := middleware.GetUsername(c)

	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	status := req.Status
	if status == "" {
		status = model.DealLead
	}
	if !validDealStatuses[status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deal status"})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	deal := &model.Deal{
		ID:          uuid.New().String(),
		UserID:      username,
		Title:       req.Title,
		BrandName:   req.BrandName,
		ContactName: req.ContactName,
		Status:      status,
		Value:       req.Value,
		Currency:    currency,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	h.store.Deals.Save(deal)

	c.JSON(http.StatusOK, deal)
}

// List returns all deals for the current user
func (h *DealHandler) List(c *gin.Context) {
	username := middleware.GetUsername(c)
	c.JSON(http.StatusOK, gin.H{"deals": h.store.Deals.GetByUser(username)})
}

// Get returns a single deal with its deliverables
func (h *DealHandler) Get(c *gin.Context) {
	username := middleware.GetUsername(c)
	id := c.Param("id")

	deal := h.store.Deals.Get(id)
	if deal == nil || deal.UserID != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found"})
		return
	}

	deliverables := h.store.Deliverables.GetByDeal(deal.ID)
	if deliverables == nil {
		deliverables = []*model.Deliverable{}
	}

	c.JSON(http.StatusOK, gin.H{
		"deal":         deal,
		"deliverables": deliverables,
	})
}

// Delete deletes a deal
func (h *DealHandler) Delete(c *gin.Context) {
	username := middleware.GetUsername(c)
	id := c.Param("id")

	deal := h.store.Deals.Get(id)
	if deal == nil || deal.UserID != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found"})
		return
	}

	h.store.Deals.Delete(id)

	c.JSON(http.StatusOK, gin.H{"message": "Deal deleted"})
}
