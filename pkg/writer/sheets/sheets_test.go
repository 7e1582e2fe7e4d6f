package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

type fakeSheets struct {
	mu       sync.Mutex
	creates  int
	headers  int
	appended [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/v4/spreadsheets"):
		f.creates++
		_, _ = w.Write([]byte(`{"spreadsheetId": "sheet-1", "properties": {"title": "Expenses"}}`))
	case r.Method == http.MethodPut:
		f.headers++
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, body.Values...)
		_, _ = w.Write([]byte(`{}`))
	default:
		http.NotFound(w, r)
	}
}

func TestWriterCreatesSheetAndAppendsRows(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	w, err := New(srv.Client(), Config{
		SheetTitle: "Expenses",
		SheetName:  "Sheet1",
		BatchSize:  10,
		Endpoint:   srv.URL + "/",
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if w.SpreadsheetID() != "sheet-1" {
		t.Errorf("spreadsheet id: got %q, want sheet-1", w.SpreadsheetID())
	}

	in := make(chan *api.Expense, 2)
	in <- &api.Expense{ID: "a", Title: "Lunch", Amount: decimal.NewFromInt(300), Valid: true}
	in <- &api.Expense{ID: "b", Title: "Expense", NeedsConfirmation: true, Errors: []string{"Invalid or missing amount"}}
	close(in)

	acks := make(chan string, 2)
	if err := w.Write(context.Background(), in, acks); err != nil {
		t.Fatalf("Write: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.creates != 1 || fake.headers != 1 {
		t.Errorf("setup calls: got %d creates and %d header writes, want 1 and 1", fake.creates, fake.headers)
	}
	if len(fake.appended) != 2 {
		t.Fatalf("rows: got %d, want 2", len(fake.appended))
	}
	if got := fake.appended[1][7]; got != "Invalid or missing amount" {
		t.Errorf("review column: got %v", got)
	}
	if len(acks) != 2 {
		t.Errorf("acks: got %d, want 2", len(acks))
	}
}

func TestColumn(t *testing.T) {
	if got := column(len(Headers)); got != "J" {
		t.Errorf("column: got %q, want J", got)
	}
}
