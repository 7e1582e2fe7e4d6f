package api

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testCategories = []string{"Food & Dining", "Transport", "Others"}

func TestExtract(t *testing.T) {
	received := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	created := time.Date(2025, 6, 10, 9, 0, 5, 0, time.UTC)

	ex := &Extractor{
		Categories: testCategories,
		Currency:   "USD",
		Location:   time.UTC,
		Now:        func() time.Time { return created },
	}

	tests := []struct {
		name         string
		text         string
		wantAmount   string
		wantCurrency string
		wantDate     string
		wantValid    bool
	}{
		{"currency word", "50tk on breakfast", "50", "BDT", "2025-06-10", true},
		{"relative date", "coffee 50 yesterday", "50", "USD", "2025-06-09", true},
		{"no amount", "hello there", "0", "USD", "2025-06-10", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(&Transcript{ID: "msg-1", Text: tt.text, Source: "test", ReceivedAt: received})

			if got.ID != "msg-1" {
				t.Errorf("id: got %q, want msg-1", got.ID)
			}
			if !got.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("amount: got %v, want %s", got.Amount, tt.wantAmount)
			}
			if got.Currency != tt.wantCurrency {
				t.Errorf("currency: got %q, want %q", got.Currency, tt.wantCurrency)
			}
			if got.Date != tt.wantDate {
				t.Errorf("date: got %q, want %q", got.Date, tt.wantDate)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("valid: got %v, want %v (errors %v)", got.Valid, tt.wantValid, got.Errors)
			}
			if got.Transcript != tt.text || got.Source != "test" {
				t.Errorf("provenance: got %q from %q", got.Transcript, got.Source)
			}
			if !got.CreatedAt.Equal(created) {
				t.Errorf("created_at: got %v, want %v", got.CreatedAt, created)
			}
		})
	}
}

func TestExtractCategory(t *testing.T) {
	ex := &Extractor{Categories: testCategories, Location: time.UTC}

	got := ex.Extract(&Transcript{ID: "1", Text: "50tk on breakfast"})
	if got.Category != "Food & Dining" {
		t.Errorf("category: got %q, want Food & Dining", got.Category)
	}
	if got.NeedsConfirmation {
		t.Errorf("needs_confirmation: got true, want false")
	}
}

func TestExtractAssignsID(t *testing.T) {
	ex := &Extractor{Categories: testCategories}

	a := ex.Extract(&Transcript{Text: "uber 250"})
	b := ex.Extract(&Transcript{Text: "uber 250"})
	if a.ID == "" || b.ID == "" {
		t.Fatal("expected generated ids")
	}
	if a.ID == b.ID {
		t.Errorf("generated ids collide: %q", a.ID)
	}
}

func TestExtractReceivedInLocation(t *testing.T) {
	dhaka := time.FixedZone("BST", 6*60*60)
	ex := &Extractor{Categories: testCategories, Location: dhaka}

	// 20:00 UTC is already the next day in Dhaka.
	received := time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC)
	got := ex.Extract(&Transcript{ID: "1", Text: "lunch 300 today", ReceivedAt: received})
	if got.Date != "2025-06-11" {
		t.Errorf("date: got %q, want 2025-06-11", got.Date)
	}
}
