package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dealdeskapp/dealdesk/backend/config"
	"github.com/dealdeskapp/dealdesk/backend/model"
	"github.com/dealdeskapp/dealdesk/backend/service"
)

type inboundFixture struct {
	handler *InboundHandler
	storage *fakeStorage
	store   *service.Store
	router  *gin.Engine
}

func newInboundFixture() *inboundFixture {
	cfg := &config.Config{
		Users: []config.User{
			{Username: "creator", Tier: "pro", ForwardingAddress: "creator@deals.example.com"},
		},
	}
	storage := newFakeStorage()
	store := service.NewStore(&config.StoreConfig{MaxEmails: 100})
	handler := NewInboundHandler(cfg, storage, store)

	router := gin.New()
	router.POST("/email/inbound", handler.Receive)
	router.GET("/emails", func(c *gin.Context) {
		c.Set("username", "creator")
		handler.List(c)
	})
	router.POST("/emails/:id/link", func(c *gin.Context) {
		c.Set("username", "creator")
		handler.LinkToDeal(c)
	})

	return &inboundFixture{handler: handler, storage: storage, store: store, router: router}
}

func (f *inboundFixture) post(t *testing.T, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/email/inbound", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestInboundReceiveParsesAndStores(t *testing.T) {
	f := newInboundFixture()

	w := f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "sarah@northwind.com", "Name": "Sarah Chen"},
		"OriginalRecipient": "creator@deals.example.com",
		"Subject":           "Collab opportunity",
		"MessageID":         "msg-123",
		"TextBody":          "Hi! We'd love to partner on an Instagram reel. Our budget is $2,500. Deadline: March 5, 2025.\n\nBest,\nSarah Chen",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Email received") {
		t.Errorf("body = %s", w.Body.String())
	}

	emails := f.store.Emails.GetByUser("creator")
	if len(emails) != 1 {
		t.Fatalf("%d emails stored", len(emails))
	}
	email := emails[0]
	if email.FromEmail != "sarah@northwind.com" {
		t.Errorf("FromEmail = %q", email.FromEmail)
	}
	if email.Parsed.BrandName == nil || *email.Parsed.BrandName != "Northwind" {
		t.Error("brand name not parsed from sender domain")
	}
	if email.Parsed.Budget == nil || *email.Parsed.Budget != 2500 {
		t.Error("budget not parsed")
	}
	if len(email.Parsed.Deliverables) == 0 || email.Parsed.Deliverables[0].Platform != "instagram" {
		t.Error("deliverable not parsed")
	}
}

func TestInboundReceiveFallsBackToToFull(t *testing.T) {
	f := newInboundFixture()

	w := f.post(t, gin.H{
		"FromFull": gin.H{"Email": "brand@example.com"},
		"ToFull":   []gin.H{{"Email": "creator@deals.example.com"}},
		"TextBody": "Hello",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.store.Emails.Count() != 1 {
		t.Error("email should be stored via ToFull fallback")
	}
}

func TestInboundReceiveAddressMatchingCaseInsensitive(t *testing.T) {
	f := newInboundFixture()

	w := f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "brand@example.com"},
		"OriginalRecipient": "Creator@Deals.Example.Com",
		"TextBody":          "Hello",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.store.Emails.Count() != 1 {
		t.Error("address matching should be case-insensitive")
	}
}

func TestInboundReceiveNoRecipient(t *testing.T) {
	f := newInboundFixture()

	w := f.post(t, gin.H{
		"FromFull": gin.H{"Email": "brand@example.com"},
		"TextBody": "Hello",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInboundReceiveUnknownAddress(t *testing.T) {
	f := newInboundFixture()

	w := f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "brand@example.com"},
		"OriginalRecipient": "nobody@deals.example.com",
		"TextBody":          "Hello",
	})

	// The provider should not retry: answer 200 even with no match.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No matching user") {
		t.Errorf("body = %s", w.Body.String())
	}
	if f.store.Emails.Count() != 0 {
		t.Error("no email should be stored")
	}
}

func TestInboundReceiveAttachments(t *testing.T) {
	f := newInboundFixture()

	pdf := []byte("%PDF-1.4 contract")
	w := f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "brand@example.com"},
		"OriginalRecipient": "creator@deals.example.com",
		"TextBody":          "Contract attached.",
		"Attachments": []gin.H{
			{"Name": "contract.pdf", "Content": base64.StdEncoding.EncodeToString(pdf), "ContentType": "application/pdf"},
			{"Name": "broken.pdf", "Content": "%%%not-base64%%%", "ContentType": "application/pdf"},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	emails := f.store.Emails.GetByUser("creator")
	if len(emails) != 1 {
		t.Fatalf("%d emails", len(emails))
	}
	// Bad attachment skipped, good one stored.
	if len(emails[0].Attachments) != 1 {
		t.Fatalf("%d attachments recorded, want 1", len(emails[0].Attachments))
	}
	att := emails[0].Attachments[0]
	if att.FileName != "contract.pdf" || att.Size != int64(len(pdf)) {
		t.Errorf("attachment = %+v", att)
	}

	stored := false
	for name, data := range f.storage.objects {
		if strings.HasPrefix(name, "creator/emails/") && strings.HasSuffix(name, "/contract.pdf") && bytes.Equal(data, pdf) {
			stored = true
		}
	}
	if !stored {
		t.Error("attachment bytes not found in object storage")
	}
}

func TestInboundReceiveUsesMessageDate(t *testing.T) {
	f := newInboundFixture()

	w := f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "brand@example.com"},
		"OriginalRecipient": "creator@deals.example.com",
		"Date":              "Mon, 03 Mar 2025 10:30:00 -0500",
		"TextBody":          "Hello",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	emails := f.store.Emails.GetByUser("creator")
	if len(emails) != 1 {
		t.Fatalf("%d emails", len(emails))
	}
	want := time.Date(2025, 3, 3, 10, 30, 0, 0, time.FixedZone("", -5*3600))
	if !emails[0].ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", emails[0].ReceivedAt, want)
	}
	// CreatedAt is still the delivery time.
	if emails[0].CreatedAt.Equal(want) {
		t.Error("CreatedAt should not be taken from the Date header")
	}
}

func TestInboundReceiveUnparseableDateFallsBack(t *testing.T) {
	f := newInboundFixture()

	before := time.Now()
	w := f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "brand@example.com"},
		"OriginalRecipient": "creator@deals.example.com",
		"Date":              "not a date",
		"TextBody":          "Hello",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	emails := f.store.Emails.GetByUser("creator")
	if len(emails) != 1 {
		t.Fatalf("%d emails", len(emails))
	}
	if emails[0].ReceivedAt.Before(before) {
		t.Errorf("ReceivedAt = %v, want delivery-time fallback", emails[0].ReceivedAt)
	}
}

func TestInboundLinkToDeal(t *testing.T) {
	f := newInboundFixture()

	f.store.Deals.Save(&model.Deal{
		ID:     "deal-1",
		UserID: "creator",
		Title:  "Spring campaign",
		Status: model.DealLead,
	})

	f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "sarah@northwind.com", "Name": "Sarah Chen"},
		"OriginalRecipient": "creator@deals.example.com",
		"TextBody":          "Our budget is $2,500. Deadline: March 5, 2025.\n\nBest,\nSarah Chen",
	})
	emails := f.store.Emails.GetByUser("creator")
	if len(emails) != 1 {
		t.Fatalf("%d emails", len(emails))
	}
	emailID := emails[0].ID

	body, _ := json.Marshal(gin.H{"deal_id": "deal-1"})
	req := httptest.NewRequest("POST", "/emails/"+emailID+"/link", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	deal := f.store.Deals.Get("deal-1")
	if deal.BrandName != "Northwind" {
		t.Errorf("BrandName = %q", deal.BrandName)
	}
	if deal.Value != 2500 {
		t.Errorf("Value = %v", deal.Value)
	}
	if deal.DeliveryDeadline != "2025-03-05" {
		t.Errorf("DeliveryDeadline = %q", deal.DeliveryDeadline)
	}

	email := f.store.Emails.Get(emailID)
	if !email.Processed || !email.LinkedToDeal {
		t.Errorf("Processed = %v, LinkedToDeal = %v, want both true", email.Processed, email.LinkedToDeal)
	}
}

func TestInboundLinkToDealNeverClobbers(t *testing.T) {
	f := newInboundFixture()

	f.store.Deals.Save(&model.Deal{
		ID:        "deal-1",
		UserID:    "creator",
		Title:     "Spring campaign",
		BrandName: "Acme",
		Value:     9000,
		Status:    model.DealNegotiating,
	})

	f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "sarah@northwind.com"},
		"OriginalRecipient": "creator@deals.example.com",
		"TextBody":          "Our budget is $2,500.",
	})
	emailID := f.store.Emails.GetByUser("creator")[0].ID

	body, _ := json.Marshal(gin.H{"deal_id": "deal-1"})
	req := httptest.NewRequest("POST", "/emails/"+emailID+"/link", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	deal := f.store.Deals.Get("deal-1")
	if deal.BrandName != "Acme" || deal.Value != 9000 {
		t.Errorf("existing deal fields overwritten: %+v", deal)
	}
}

func TestInboundLinkToDealOwnership(t *testing.T) {
	f := newInboundFixture()

	f.store.Deals.Save(&model.Deal{ID: "foreign-deal", UserID: "someone-else", Status: model.DealLead})
	f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "brand@example.com"},
		"OriginalRecipient": "creator@deals.example.com",
		"TextBody":          "Hello",
	})
	emailID := f.store.Emails.GetByUser("creator")[0].ID

	body, _ := json.Marshal(gin.H{"deal_id": "foreign-deal"})
	req := httptest.NewRequest("POST", "/emails/"+emailID+"/link", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("foreign deal: status = %d, want 400", w.Code)
	}

	body, _ = json.Marshal(gin.H{"deal_id": "foreign-deal"})
	req = httptest.NewRequest("POST", "/emails/no-such-email/link", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown email: status = %d, want 404", w.Code)
	}
}

func TestInboundList(t *testing.T) {
	f := newInboundFixture()

	f.post(t, gin.H{
		"FromFull":          gin.H{"Email": "brand@example.com"},
		"OriginalRecipient": "creator@deals.example.com",
		"Subject":           "First",
		"TextBody":          "Hello",
	})

	req := httptest.NewRequest("GET", "/emails", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Emails []json.RawMessage `json:"emails"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Emails) != 1 {
		t.Errorf("%d emails listed", len(resp.Emails))
	}
}
