package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dealdeskapp/dealdesk/backend/config"
	"github.com/dealdeskapp/dealdesk/backend/extract"
	"github.com/dealdeskapp/dealdesk/backend/model"
	"github.com/dealdeskapp/dealdesk/backend/pkg/logger"
)

var (
	// ErrTierRequired means the user's tier has no access to AI extraction.
	ErrTierRequired = errors.New("subscription tier does not include AI extraction")

	// ErrExtractionInFlight means an extraction for this contract is already
	// running.
	ErrExtractionInFlight = errors.New("extraction already in progress")

	// ErrAlreadyReviewed means the contract's extraction was approved and is
	// locked against re-extraction.
	ErrAlreadyReviewed = errors.New("contract already reviewed")
)

// QuotaError means the user exhausted their monthly extraction allowance.
type QuotaError struct {
	Used  int
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("monthly extraction limit reached (%d/%d)", e.Used, e.Limit)
}

// ObjectDownloader fetches a stored object into memory.
type ObjectDownloader interface {
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)
}

// TextExtractor pulls plain text out of a document.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// TextCompleter sends a prompt to the model and returns its text response.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ExtractionService runs the contract extraction pipeline: download the PDF,
// pull its text, prompt the model, parse the response, persist the result.
type ExtractionService struct {
	storage   ObjectDownloader
	documents TextExtractor
	model     TextCompleter
	contracts *ContractStore
	limits    *config.LimitsConfig

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewExtractionService(storage ObjectDownloader, documents TextExtractor, completer TextCompleter, contracts *ContractStore, limits *config.LimitsConfig) *ExtractionService {
	return &ExtractionService{
		storage:   storage,
		documents: documents,
		model:     completer,
		contracts: contracts,
		limits:    limits,
		inFlight:  make(map[string]bool),
	}
}

// Extract runs the pipeline for one contract. The tier gates access: free has
// none, pro is capped per calendar month, elite is unlimited. The quota check
// and the extraction are not atomic, so concurrent requests near the limit
// can briefly exceed it.
func (s *ExtractionService) Extract(ctx context.Context, contract *model.Contract, tier string) (*model.Candidate, model.Confidence, error) {
	if contract.Reviewed {
		return nil, "", ErrAlreadyReviewed
	}

	switch tier {
	case model.TierElite:
	case model.TierPro:
		used := s.contracts.CountMonthlyExtractions(contract.UserID, time.Now())
		if used >= s.limits.ProMonthlyExtractions {
			return nil, "", &QuotaError{Used: used, Limit: s.limits.ProMonthlyExtractions}
		}
	default:
		return nil, "", ErrTierRequired
	}

	if !s.acquire(contract.ID) {
		return nil, "", ErrExtractionInFlight
	}
	defer s.release(contract.ID)

	prevStatus := contract.Status
	s.contracts.SetStatus(contract.ID, model.ExtractionExtracting, "")

	data, err := s.storage.DownloadFile(ctx, contract.ObjectName)
	if err != nil {
		s.contracts.SetStatus(contract.ID, prevStatus, err.Error())
		return nil, "", fmt.Errorf("failed to download contract: %w", err)
	}

	text, err := s.documents.ExtractText(data)
	if err != nil {
		if errors.Is(err, ErrNoDocumentText) {
			s.contracts.ClearExtraction(contract.ID, err.Error())
			return nil, "", err
		}
		s.contracts.SetStatus(contract.ID, prevStatus, err.Error())
		return nil, "", fmt.Errorf("failed to extract text: %w", err)
	}

	prompt := extract.BuildPrompt(Truncate(text))

	response, err := s.model.Complete(ctx, prompt)
	if err != nil {
		s.contracts.SetStatus(contract.ID, prevStatus, err.Error())
		return nil, "", fmt.Errorf("model extraction failed: %w", err)
	}

	candidate, confidence := extract.ParseResponse(response)
	s.contracts.UpdateExtraction(contract.ID, &candidate, confidence)

	log := logger.WithContext(ctx)
	log.Info("contract extraction completed",
		"contract_id", contract.ID,
		"confidence", confidence,
		"structured", candidate.IsStructured(),
	)

	return &candidate, confidence, nil
}

func (s *ExtractionService) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *ExtractionService) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
