package handler

import (
	"net/http"
	"testing"

	"github.com/showcase/internal/db"
)

func TestSubmitContactValidatesAndStores(t *testing.T) {
	api, gdb := setupTestDB(t)

	w := performJSON(api.SubmitContact, http.MethodPost, "/api/contact", map[string]string{
		"name":    "Jane",
		"email":   "not-an-email",
		"message": "Hello",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	w = performJSON(api.SubmitContact, http.MethodPost, "/api/contact", map[string]string{
		"name":    "Jane",
		"email":   "Jane@Example.com",
		"message": "We need a new website.",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var message db.ContactMessage
	if err := gdb.First(&message).Error; err != nil {
		t.Fatalf("failed to load message: %v", err)
	}
	if message.Kind != db.MessageKindContact || message.Email != "jane@example.com" {
		t.Fatalf("unexpected stored message: %+v", message)
	}

	var notifications int64
	gdb.Model(&db.Notification{}).Count(&notifications)
	if notifications != 1 {
		t.Fatalf("expected an admin notification, got %d", notifications)
	}
}

func TestSubmitQuoteUsesQuoteKind(t *testing.T) {
	api, gdb := setupTestDB(t)

	w := performJSON(api.SubmitQuote, http.MethodPost, "/api/quote", map[string]any{
		"name":     "Acme",
		"email":    "ops@acme.test",
		"message":  "Shop redesign",
		"budget":   "5k-10k",
		"services": []string{"design", "seo"},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var message db.ContactMessage
	if err := gdb.First(&message).Error; err != nil {
		t.Fatalf("failed to load message: %v", err)
	}
	if message.Kind != db.MessageKindQuote {
		t.Fatalf("expected quote kind, got %s", message.Kind)
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	api, gdb := setupTestDB(t)

	w := performJSON(api.Subscribe, http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "reader@example.com"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	w = performJSON(api.Subscribe, http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "Reader@example.com"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for repeat subscription, got %d", w.Code)
	}

	var subscriber db.Subscriber
	if err := gdb.First(&subscriber).Error; err != nil {
		t.Fatalf("failed to load subscriber: %v", err)
	}

	w = performJSON(api.Unsubscribe, http.MethodGet, "/api/newsletter/unsubscribe?token=bogus", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid token, got %d", w.Code)
	}
	w = performJSON(api.Unsubscribe, http.MethodGet, "/api/newsletter/unsubscribe?token="+subscriber.Token, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if err := gdb.First(&subscriber, subscriber.ID).Error; err != nil {
		t.Fatalf("failed to reload subscriber: %v", err)
	}
	if subscriber.Status != db.SubscriberUnsubscribed {
		t.Fatalf("expected unsubscribed status, got %s", subscriber.Status)
	}
}
