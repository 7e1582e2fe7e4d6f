package json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

func write(t *testing.T, path string, expenses ...*api.Expense) {
	t.Helper()

	w, err := New(Config{FilePath: path, BatchSize: 10}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := make(chan *api.Expense, len(expenses))
	for _, e := range expenses {
		in <- e
	}
	close(in)

	acks := make(chan string, len(expenses))
	if err := w.Write(context.Background(), in, acks); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(acks) != len(expenses) {
		t.Errorf("acks: got %d, want %d", len(acks), len(expenses))
	}
}

func TestWriterMergesByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.json")

	write(t, path,
		&api.Expense{ID: "a", Title: "Lunch", Amount: decimal.NewFromInt(300)},
		&api.Expense{ID: "b", Title: "Uber Ride", Amount: decimal.NewFromInt(250)},
	)
	write(t, path, &api.Expense{ID: "a", Title: "Team Lunch", Amount: decimal.NewFromInt(320)})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []api.Expense
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expenses: got %d, want 2", len(got))
	}
	if got[0].Title != "Team Lunch" {
		t.Errorf("title: got %q, want %q", got[0].Title, "Team Lunch")
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(320)) {
		t.Errorf("amount: got %v, want 320", got[0].Amount)
	}
	if got[1].ID != "b" {
		t.Errorf("order: got %q second, want b", got[1].ID)
	}
}
