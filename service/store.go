package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dealdeskapp/dealdesk/backend/config"
	"github.com/dealdeskapp/dealdesk/backend/model"
)

// Store aggregates the in-memory stores for all record types.
// In production, this should be replaced with a database.
type Store struct {
	Contracts    *ContractStore
	Deals        *DealStore
	Deliverables *DeliverableStore
	Emails       *EmailStore
}

func NewStore(cfg *config.StoreConfig) *Store {
	maxEmails := cfg.MaxEmails
	if maxEmails < 0 {
		maxEmails = 0
	}
	slog.Info("store initialized", "max_emails", maxEmails)
	return &Store{
		Contracts:    &ContractStore{contracts: make(map[string]*model.Contract)},
		Deals:        &DealStore{deals: make(map[string]*model.Deal)},
		Deliverables: &DeliverableStore{deliverables: make(map[string]*model.Deliverable)},
		Emails:       &EmailStore{emails: make(map[string]*model.Email), maxEmails: maxEmails},
	}
}

// ContractStore is an in-memory store for contracts
type ContractStore struct {
	contracts map[string]*model.Contract
	mu        sync.RWMutex
}

func (s *ContractStore) Save(contract *model.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contract.UpdatedAt = time.Now()
	s.contracts[contract.ID] = contract
}

func (s *ContractStore) Get(id string) *model.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contracts[id]
}

func (s *ContractStore) GetByUser(userID string) []*model.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Contract
	for _, c := range s.contracts {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *ContractStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contracts, id)
}

func (s *ContractStore) SetStatus(id, status string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.Status = status
		c.ErrorMsg = errMsg
		c.UpdatedAt = time.Now()
	}
}

// UpdateExtraction stores the extraction result and moves the contract to
// the extracted state.
func (s *ContractStore) UpdateExtraction(id string, candidate *model.Candidate, confidence model.Confidence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.Extracted = candidate
		c.Confidence = confidence
		c.Status = model.ExtractionExtracted
		c.ErrorMsg = ""
		c.UpdatedAt = time.Now()
	}
}

// ClearExtraction drops any extraction result and returns the contract to the
// unextracted state.
func (s *ContractStore) ClearExtraction(id string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.Extracted = nil
		c.Confidence = model.ConfidenceNone
		c.Status = model.ExtractionNone
		c.ErrorMsg = errMsg
		c.UpdatedAt = time.Now()
	}
}

// MarkReviewed records the reviewed candidate and locks the contract against
// further extraction.
func (s *ContractStore) MarkReviewed(id string, candidate *model.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[id]; ok {
		c.Extracted = candidate
		c.Reviewed = true
		c.Status = model.ExtractionReviewed
		c.UpdatedAt = time.Now()
	}
}

// CountMonthlyExtractions counts the user's contracts created in the calendar
// month containing now that have an extraction result. A contract counts once
// no matter how many times it was re-extracted.
func (s *ContractStore) CountMonthlyExtractions(userID string, now time.Time) int {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.contracts {
		if c.UserID != userID {
			continue
		}
		if c.Confidence == model.ConfidenceNone || c.Confidence == "" {
			continue
		}
		if c.CreatedAt.Before(monthStart) || !c.CreatedAt.Before(monthEnd) {
			continue
		}
		count++
	}
	return count
}

// Count returns the number of contracts in the store
func (s *ContractStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contracts)
}

// DealStore is an in-memory store for deals
type DealStore struct {
	deals map[string]*model.Deal
	mu    sync.RWMutex
}

func (s *DealStore) Save(deal *model.Deal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deal.UpdatedAt = time.Now()
	s.deals[deal.ID] = deal
}

func (s *DealStore) Get(id string) *model.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deals[id]
}

func (s *DealStore) GetByUser(userID string) []*model.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Deal
	for _, d := range s.deals {
		if d.UserID == userID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *DealStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deals, id)
}

// DeliverableStore is an in-memory store for deliverables
type DeliverableStore struct {
	deliverables map[string]*model.Deliverable
	mu           sync.RWMutex
}

func (s *DeliverableStore) Save(deliverable *model.Deliverable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deliverable.UpdatedAt = time.Now()
	s.deliverables[deliverable.ID] = deliverable
}

// SaveAll saves a batch of deliverables, preserving their sort order.
func (s *DeliverableStore) SaveAll(deliverables []*model.Deliverable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, d := range deliverables {
		d.UpdatedAt = now
		s.deliverables[d.ID] = d
	}
}

func (s *DeliverableStore) Get(id string) *model.Deliverable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deliverables[id]
}

func (s *DeliverableStore) GetByDeal(dealID string) []*model.Deliverable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Deliverable
	for _, d := range s.deliverables {
		if d.DealID == dealID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SortOrder < result[j].SortOrder
	})
	return result
}

func (s *DeliverableStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deliverables, id)
}

// EmailStore is an in-memory store for inbound emails
type EmailStore struct {
	emails    map[string]*model.Email
	mu        sync.RWMutex
	maxEmails int // Maximum emails to keep, 0 = unlimited
}

func (s *EmailStore) Save(email *model.Email) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emails[email.ID] = email
	s.cleanupIfNeeded()
}

func (s *EmailStore) Get(id string) *model.Email {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emails[id]
}

func (s *EmailStore) GetByUser(userID string) []*model.Email {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Email
	for _, e := range s.emails {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	return result
}

// MarkLinked flags an email as processed and linked to a deal. Returns false
// when the email does not exist.
func (s *EmailStore) MarkLinked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok {
		return false
	}
	e.Processed = true
	e.LinkedToDeal = true
	return true
}

// cleanupIfNeeded removes oldest emails if store exceeds maxEmails
// Must be called with lock held
func (s *EmailStore) cleanupIfNeeded() {
	if s.maxEmails <= 0 {
		return // Unlimited
	}

	if len(s.emails) <= s.maxEmails {
		return
	}

	emails := make([]*model.Email, 0, len(s.emails))
	for _, e := range s.emails {
		emails = append(emails, e)
	}
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].CreatedAt.Before(emails[j].CreatedAt)
	})

	removeCount := len(emails) - s.maxEmails
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old email",
			"email_id", emails[i].ID,
			"created_at", emails[i].CreatedAt,
		)
		delete(s.emails, emails[i].ID)
	}
}

// Count returns the number of emails in the store
func (s *EmailStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.emails)
}
