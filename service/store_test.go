package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/dealdeskapp/dealdesk/backend/config"
	"github.com/dealdeskapp/dealdesk/backend/model"
)

func newTestStore(maxEmails int) *Store {
	return NewStore(&config.StoreConfig{MaxEmails: maxEmails})
}

func TestContractStoreCRUD(t *testing.T) {
	store := newTestStore(0)

	c := &model.Contract{
		ID:        "c1",
		UserID:    "alice",
		FileName:  "agreement.pdf",
		Status:    model.ExtractionNone,
		CreatedAt: time.Now(),
	}
	store.Contracts.Save(c)

	got := store.Contracts.Get("c1")
	if got == nil {
		t.Fatal("expected contract after save")
	}
	if got.FileName != "agreement.pdf" {
		t.Errorf("FileName = %q", got.FileName)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Save should set UpdatedAt")
	}

	if n := len(store.Contracts.GetByUser("alice")); n != 1 {
		t.Errorf("GetByUser(alice) = %d contracts, want 1", n)
	}
	if n := len(store.Contracts.GetByUser("bob")); n != 0 {
		t.Errorf("GetByUser(bob) = %d contracts, want 0", n)
	}

	store.Contracts.Delete("c1")
	if store.Contracts.Get("c1") != nil {
		t.Error("expected nil after delete")
	}
}

func TestContractStoreGetByUserOrder(t *testing.T) {
	store := newTestStore(0)
	base := time.Now()
	for i := 0; i < 3; i++ {
		store.Contracts.Save(&model.Contract{
			ID:        fmt.Sprintf("c%d", i),
			UserID:    "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got := store.Contracts.GetByUser("alice")
	if len(got) != 3 {
		t.Fatalf("got %d contracts", len(got))
	}
	// Newest first
	if got[0].ID != "c2" || got[2].ID != "c0" {
		t.Errorf("order = [%s %s %s], want newest first", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestContractStoreUpdateExtraction(t *testing.T) {
	store := newTestStore(0)
	store.Contracts.Save(&model.Contract{ID: "c1", UserID: "alice", Status: model.ExtractionExtracting})

	candidate := &model.Candidate{Fields: &model.ContractFields{}}
	store.Contracts.UpdateExtraction("c1", candidate, model.ConfidenceHigh)

	got := store.Contracts.Get("c1")
	if got.Status != model.ExtractionExtracted {
		t.Errorf("Status = %q, want extracted", got.Status)
	}
	if got.Confidence != model.ConfidenceHigh {
		t.Errorf("Confidence = %q", got.Confidence)
	}
	if got.Extracted != candidate {
		t.Error("Extracted not set")
	}
}

func TestContractStoreClearExtraction(t *testing.T) {
	store := newTestStore(0)
	store.Contracts.Save(&model.Contract{
		ID:         "c1",
		UserID:     "alice",
		Status:     model.ExtractionExtracting,
		Extracted:  &model.Candidate{Raw: "old"},
		Confidence: model.ConfidenceLow,
	})

	store.Contracts.ClearExtraction("c1", "no text found in document")

	got := store.Contracts.Get("c1")
	if got.Extracted != nil {
		t.Error("Extracted should be cleared")
	}
	if got.Confidence != model.ConfidenceNone {
		t.Errorf("Confidence = %q, want none", got.Confidence)
	}
	if got.Status != model.ExtractionNone {
		t.Errorf("Status = %q, want none", got.Status)
	}
	if got.ErrorMsg == "" {
		t.Error("ErrorMsg should be recorded")
	}
}

func TestContractStoreMarkReviewed(t *testing.T) {
	store := newTestStore(0)
	store.Contracts.Save(&model.Contract{ID: "c1", UserID: "alice", Status: model.ExtractionExtracted})

	candidate := &model.Candidate{Fields: &model.ContractFields{}}
	store.Contracts.MarkReviewed("c1", candidate)

	got := store.Contracts.Get("c1")
	if !got.Reviewed {
		t.Error("Reviewed should be true")
	}
	if got.Status != model.ExtractionReviewed {
		t.Errorf("Status = %q, want reviewed", got.Status)
	}
}

func TestCountMonthlyExtractions(t *testing.T) {
	store := newTestStore(0)
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	add := func(id, userID string, createdAt time.Time, confidence model.Confidence) {
		store.Contracts.Save(&model.Contract{
			ID:         id,
			UserID:     userID,
			CreatedAt:  createdAt,
			Confidence: confidence,
		})
	}

	// In-window, extracted: counts.
	add("c1", "alice", time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), model.ConfidenceHigh)
	add("c2", "alice", time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC), model.ConfidenceLow)
	// In-window but never extracted: does not count.
	add("c3", "alice", now, model.ConfidenceNone)
	add("c4", "alice", now, "")
	// Outside the window.
	add("c5", "alice", time.Date(2025, time.February, 28, 23, 59, 59, 0, time.UTC), model.ConfidenceHigh)
	add("c6", "alice", time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), model.ConfidenceHigh)
	// Someone else's contract.
	add("c7", "bob", now, model.ConfidenceHigh)

	if got := store.Contracts.CountMonthlyExtractions("alice", now); got != 2 {
		t.Errorf("CountMonthlyExtractions = %d, want 2", got)
	}
	if got := store.Contracts.CountMonthlyExtractions("bob", now); got != 1 {
		t.Errorf("CountMonthlyExtractions(bob) = %d, want 1", got)
	}
}

func TestDealStoreCRUD(t *testing.T) {
	store := newTestStore(0)

	store.Deals.Save(&model.Deal{ID: "d1", UserID: "alice", Title: "Spring campaign", Status: model.DealLead})

	got := store.Deals.Get("d1")
	if got == nil || got.Title != "Spring campaign" {
		t.Fatalf("Get = %+v", got)
	}

	if n := len(store.Deals.GetByUser("alice")); n != 1 {
		t.Errorf("GetByUser = %d deals, want 1", n)
	}

	store.Deals.Delete("d1")
	if store.Deals.Get("d1") != nil {
		t.Error("expected nil after delete")
	}
}

func TestDeliverableStoreByDealSorted(t *testing.T) {
	store := newTestStore(0)

	store.Deliverables.SaveAll([]*model.Deliverable{
		{ID: "del2", DealID: "d1", SortOrder: 1, Title: "IG story"},
		{ID: "del1", DealID: "d1", SortOrder: 0, Title: "YT video"},
		{ID: "del3", DealID: "other", SortOrder: 0},
	})

	got := store.Deliverables.GetByDeal("d1")
	if len(got) != 2 {
		t.Fatalf("got %d deliverables, want 2", len(got))
	}
	if got[0].ID != "del1" || got[1].ID != "del2" {
		t.Errorf("order = [%s %s], want sort order ascending", got[0].ID, got[1].ID)
	}
}

func TestEmailStoreCleanup(t *testing.T) {
	store := newTestStore(3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		store.Emails.Save(&model.Email{
			ID:         fmt.Sprintf("e%d", i),
			UserID:     "alice",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
			ReceivedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	if got := store.Emails.Count(); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
	// Oldest two should be evicted.
	if store.Emails.Get("e0") != nil || store.Emails.Get("e1") != nil {
		t.Error("oldest emails should be evicted")
	}
	if store.Emails.Get("e4") == nil {
		t.Error("newest email should survive")
	}
}

func TestEmailStoreMarkLinked(t *testing.T) {
	store := newTestStore(0)
	store.Emails.Save(&model.Email{ID: "e1", UserID: "alice"})

	if !store.Emails.MarkLinked("e1") {
		t.Fatal("MarkLinked should succeed for a stored email")
	}
	email := store.Emails.Get("e1")
	if !email.Processed || !email.LinkedToDeal {
		t.Errorf("Processed = %v, LinkedToDeal = %v, want both true", email.Processed, email.LinkedToDeal)
	}
	if store.Emails.MarkLinked("missing") {
		t.Error("MarkLinked should fail for an unknown email")
	}
}

func TestEmailStoreUnlimited(t *testing.T) {
	store := newTestStore(0)
	for i := 0; i < 10; i++ {
		store.Emails.Save(&model.Email{ID: fmt.Sprintf("e%d", i)})
	}
	if got := store.Emails.Count(); got != 10 {
		t.Errorf("Count = %d, want 10", got)
	}
}
