package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dealdeskapp/dealdesk/backend/extract"
	"github.com/dealdeskapp/dealdesk/backend/middleware"
	"github.com/dealdeskapp/dealdesk/backend/model"
	"github.com/dealdeskapp/dealdesk/backend/pkg/logger"
	"github.com/dealdeskapp/dealdesk/backend/service"
)

// FileStorage is the object-storage surface the handlers need. MinioService
// satisfies it.
type FileStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
	GetPublicURL(objectName string) string
}

type ContractHandler struct {
	storage    FileStorage
	extraction *service.ExtractionService
	store      *service.Store
}

func NewContractHandler(storage FileStorage, extraction *service.ExtractionService, store *service.Store) *ContractHandler {
	return &ContractHandler{
		storage:    storage,
		extraction: extraction,
		store:      store,
	}
}

// Upload handles contract file upload
func (h *ContractHandler) Upload(c *gin.Context) {
	username := middleware.GetUsername(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Contracts are PDF only; the text extractor has no other backends.
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	// The declared content type is client-controlled; sniff the file header
	// when it disagrees with the extension.
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" && !strings.Contains(ct, "pdf") {
		buffer := make([]byte, 512)
		if _, err := file.Read(buffer); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		file.Seek(0, io.SeekStart)

		detectedType := http.DetectContentType(buffer)
		if !strings.Contains(detectedType, "pdf") && detectedType != "application/octet-stream" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
			return
		}
	}

	dealID := c.PostForm("deal_id")
	if dealID != "" {
		deal := h.store.Deals.Get(dealID)
		if deal == nil || deal.UserID != username {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Deal not found"})
			return
		}
	}

	contractID := uuid.New().String()
	objectName := fmt.Sprintf("%s/contracts/%s/%s", username, contractID, header.Filename)

	err = h.storage.UploadFile(c.Request.Context(), objectName, file, header.Size, "application/pdf")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	now := time.Now()
	contract := &model.Contract{
		ID:         contractID,
		DealID:     dealID,
		UserID:     username,
		FileName:   header.Filename,
		ObjectName: objectName,
		FileSize:   header.Size,
		Status:     model.ExtractionNone,
		Confidence: model.ConfidenceNone,
		UploadedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	h.store.Contracts.Save(contract)

	c.JSON(http.StatusOK, gin.H{
		"id":                contractID,
		"file_name":         header.Filename,
		"deal_id":           dealID,
		"extraction_status": model.ExtractionNone,
	})
}

// List returns all contracts for the current user
func (h *ContractHandler) List(c *gin.Context) {
	username := middleware.GetUsername(c)
	contracts := h.store.Contracts.GetByUser(username)

	// Return without extraction payload for list view
	result := make([]gin.H, len(contracts))
	for i, contract := range contracts {
		result[i] = gin.H{
			"id":                    contract.ID,
			"deal_id":               contract.DealID,
			"file_name":             contract.FileName,
			"file_size":             contract.FileSize,
			"extraction_status":     contract.Status,
			"extraction_confidence": contract.Confidence,
			"reviewed":              contract.Reviewed,
			"uploaded_at":           contract.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"contracts": result})
}

// Get returns a single contract with its extraction payload
func (h *ContractHandler) Get(c *gin.Context) {
	contract := h.ownedContract(c)
	if contract == nil {
		return
	}

	pdfURL, err := h.storage.GetPresignedURL(c.Request.Context(), contract.ObjectName)
	if err != nil {
		log := logger.WithContext(c.Request.Context())
		log.Warn("failed to generate presigned URL", "contract_id", contract.ID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"contract": contract,
		"pdf_url":  pdfURL,
	})
}

// Delete deletes a contract and its stored file
func (h *ContractHandler) Delete(c *gin.Context) {
	contract := h.ownedContract(c)
	if contract == nil {
		return
	}

	if err := h.storage.DeleteFile(c.Request.Context(), contract.ObjectName); err != nil {
		log := logger.WithContext(c.Request.Context())
		log.Warn("failed to delete stored file", "contract_id", contract.ID, "error", err)
	}
	h.store.Contracts.Delete(contract.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// Extract runs AI extraction on the contract
func (h *ContractHandler) Extract(c *gin.Context) {
	contract := h.ownedContract(c)
	if contract == nil {
		return
	}
	tier := middleware.GetTier(c)

	candidate, confidence, err := h.extraction.Extract(c.Request.Context(), contract, tier)
	if err != nil {
		h.respondExtractionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"extracted_data": candidate,
		"confidence":     confidence,
	})
}

func (h *ContractHandler) respondExtractionError(c *gin.Context, err error) {
	var quotaErr *service.QuotaError

	switch {
	case errors.Is(err, service.ErrTierRequired):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "AI extraction requires a Pro or Elite subscription",
		})
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf(
				"You've used %d/%d AI extractions this month. Upgrade to Elite for unlimited.",
				quotaErr.Used, quotaErr.Limit,
			),
			"limit_reached": true,
			"used":          quotaErr.Used,
			"limit":         quotaErr.Limit,
		})
	case errors.Is(err, service.ErrExtractionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "Extraction already in progress"})
	case errors.Is(err, service.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": "Contract already reviewed"})
	case errors.Is(err, service.ErrNoDocumentText):
		// Not a hard failure: the upload is fine, there is just nothing to
		// extract from.
		c.JSON(http.StatusOK, gin.H{
			"error":          "No text found in PDF (may be a scanned document)",
			"extracted_data": nil,
			"confidence":     model.ConfidenceNone,
		})
	default:
		log := logger.WithContext(c.Request.Context())
		log.Error("contract extraction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Extraction failed"})
	}
}

// GetReview returns the extraction candidate with per-field confidence
// annotations for the review UI.
func (h *ContractHandler) GetReview(c *gin.Context) {
	contract := h.ownedContract(c)
	if contract == nil {
		return
	}

	if contract.Extracted == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No extraction to review"})
		return
	}

	resp := gin.H{
		"extracted_data": contract.Extracted,
		"confidence":     contract.Confidence,
		"reviewed":       contract.Reviewed,
	}
	if contract.Extracted.IsStructured() {
		resp["field_confidence"] = extract.Annotations(contract.Extracted.Fields)
	}

	c.JSON(http.StatusOK, resp)
}

type ReviewRequest struct {
	Edits []extract.Edit `json:"edits"`
}

// SubmitReview applies the reviewer's edits, marks the contract reviewed, and
// merges the approved terms into the linked deal.
func (h *ContractHandler) SubmitReview(c *gin.Context) {
	contract := h.ownedContract(c)
	if contract == nil {
		return
	}

	if contract.Extracted == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No extraction to review"})
		return
	}
	if contract.Reviewed {
		c.JSON(http.StatusConflict, gin.H{"error": "Contract already reviewed"})
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	candidate := contract.Extracted
	if len(req.Edits) > 0 {
		// Raw candidates can be approved as-is but carry no editable fields.
		if !candidate.IsStructured() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unparsed extraction cannot be edited"})
			return
		}
		if err := extract.ApplyEdits(candidate.Fields, req.Edits); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	h.store.Contracts.MarkReviewed(contract.ID, candidate)

	var merged []string
	if contract.DealID != "" && candidate.IsStructured() {
		deal := h.store.Deals.Get(contract.DealID)
		if deal == nil {
			// The review itself stands; the deal update is best effort.
			log := logger.WithContext(c.Request.Context())
			log.Warn("linked deal missing, skipping merge",
				"contract_id", contract.ID,
				"deal_id", contract.DealID,
			)
		} else {
			merged = extract.MergeIntoDeal(deal, candidate.Fields)
			if len(merged) > 0 {
				h.store.Deals.Save(deal)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"reviewed":       true,
		"extracted_data": candidate,
		"merged_fields":  merged,
	})
}

// CreateDeliverables materializes the reviewed extraction's deliverables as
// records on the linked deal.
func (h *ContractHandler) CreateDeliverables(c *gin.Context) {
	username := middleware.GetUsername(c)
	contract := h.ownedContract(c)
	if contract == nil {
		return
	}

	if contract.DealID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contract is not linked to a deal"})
		return
	}
	if contract.Extracted == nil || !contract.Extracted.IsStructured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No structured extraction available"})
		return
	}

	deliverables := extract.MaterializeDeliverables(contract.DealID, username, contract.Extracted.Fields)
	if len(deliverables) == 0 {
		c.JSON(http.StatusOK, gin.H{"deliverables": []*model.Deliverable{}})
		return
	}

	h.store.Deliverables.SaveAll(deliverables)

	c.JSON(http.StatusOK, gin.H{"deliverables": deliverables})
}

// ownedContract resolves the :id param to a contract owned by the caller,
// writing a 404 and returning nil otherwise.
func (h *ContractHandler) ownedContract(c *gin.Context) *model.Contract {
	username := middleware.GetUsername(c)
	id := c.Param("id")

	contract := h.store.Contracts.Get(id)
	if contract == nil || contract.UserID != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil
	}
	return contract
}
