package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

func TestConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults",
			cfg:  Config{Host: "db", Database: "money", User: "u", Password: "p"},
			want: "host=db port=5432 user=u password=p dbname=money sslmode=disable",
		},
		{
			name: "explicit",
			cfg:  Config{Host: "db", Port: 6543, Database: "money", User: "u", Password: "p", SSLMode: "require"},
			want: "host=db port=6543 user=u password=p dbname=money sslmode=require",
		},
		{
			name: "dsn wins",
			cfg:  Config{DSN: "postgres://u:p@db/money", Host: "ignored"},
			want: "postgres://u:p@db/money",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.connString(); got != tt.want {
				t.Errorf("connString: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewConnectionFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := New(ctx, Config{
		Host:     "nonexistent-host.invalid",
		Database: "moneylogger",
		User:     "moneylogger",
		Password: "password",
	}, nil)
	if err == nil {
		t.Error("expected error when connecting to nonexistent host, got nil")
	}
}

func startPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("moneylogger"),
		tcpostgres.WithUsername("moneylogger"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return dsn
}

func TestWriteUpsertsAndAcks(t *testing.T) {
	dsn := startPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	w, err := New(ctx, Config{DSN: dsn, BatchSize: 5, FlushInterval: time.Second}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	created := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	send := func(expenses ...*api.Expense) {
		t.Helper()
		in := make(chan *api.Expense, len(expenses))
		acks := make(chan string, len(expenses))
		for _, e := range expenses {
			in <- e
		}
		close(in)
		if err := w.Write(ctx, in, acks); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if len(acks) != len(expenses) {
			t.Errorf("acks: got %d, want %d", len(acks), len(expenses))
		}
	}

	send(
		&api.Expense{ID: "a", Title: "Lunch", Amount: decimal.NewFromInt(300), Currency: "BDT",
			Category: "Food & Dining", Date: "2025-06-09", Confidence: 0.9, Valid: true, CreatedAt: created},
		&api.Expense{ID: "b", Title: "Expense", Category: "Uncategorized", Date: "not-a-date",
			NeedsConfirmation: true, Errors: []string{"Invalid or missing amount"}, CreatedAt: created},
	)
	send(&api.Expense{ID: "a", Title: "Team Lunch", Amount: decimal.RequireFromString("320.50"), Currency: "BDT",
		Category: "Food & Dining", Date: "2025-06-09", Confidence: 0.9, Valid: true, CreatedAt: created})

	var count int
	if err := w.pool.QueryRow(ctx, `SELECT count(*) FROM expenses`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("rows: got %d, want 2", count)
	}

	var title, amount string
	if err := w.pool.QueryRow(ctx, `SELECT title, amount::text FROM expenses WHERE id = 'a'`).Scan(&title, &amount); err != nil {
		t.Fatalf("select a: %v", err)
	}
	if title != "Team Lunch" || amount != "320.50" {
		t.Errorf("upsert: got %q %s, want Team Lunch 320.50", title, amount)
	}

	var date time.Time
	var errs []string
	if err := w.pool.QueryRow(ctx, `SELECT expense_date, errors FROM expenses WHERE id = 'b'`).Scan(&date, &errs); err != nil {
		t.Fatalf("select b: %v", err)
	}
	if date.Format("2006-01-02") != "2025-06-10" {
		t.Errorf("fallback date: got %s, want 2025-06-10", date.Format("2006-01-02"))
	}
	if len(errs) != 1 {
		t.Errorf("errors: got %v", errs)
	}
}
