// Package gmail implements a Reader that picks up dictated expenses from Gmail.
//
// Phone dictation apps and voice assistants can mail a transcript to a
// dedicated address or label. Each matching unread message becomes one
// transcript; the message is marked read once its expense is stored.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

// DefaultQuery selects unread dictated expenses.
const DefaultQuery = "is:unread subject:expense"

// Reader reads transcripts from Gmail messages.
type Reader struct {
	client   *gmail.Service
	query    string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// Config holds configuration for the Gmail reader.
type Config struct {
	// Query is a Gmail search query. Defaults to DefaultQuery.
	Query string
	// Interval between polls. Defaults to 30 seconds.
	Interval time.Duration
	// Endpoint overrides the Gmail API endpoint.
	Endpoint string
}

// New creates a new Gmail reader.
func New(httpClient *http.Client, cfg Config, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := gmail.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	query := cfg.Query
	if query == "" {
		query = DefaultQuery
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Reader{
		client:   client,
		query:    query,
		interval: interval,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}, nil
}

// Read polls Gmail and sends each new matching message as a transcript.
// It runs until the context is canceled.
// Messages are only marked as read after receiving acknowledgment via ackChan.
func (r *Reader) Read(ctx context.Context, out chan<- *api.Transcript, ackChan <-chan string) error {
	defer close(out)

	go r.handleAcknowledgments(ctx, ackChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.poll(ctx, out)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("gmail reader stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			r.poll(ctx, out)
		}
	}
}

// handleAcknowledgments marks messages as read when their expense is written.
func (r *Reader) handleAcknowledgments(ctx context.Context, ackChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case msgID, ok := <-ackChan:
			if !ok {
				r.logger.Info("acknowledgment channel closed")
				return
			}
			r.markAsRead(ctx, msgID)
		}
	}
}

func (r *Reader) markAsRead(ctx context.Context, msgID string) {
	defer r.release(msgID)

	_, err := r.client.Users.Messages.Modify("me", msgID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		r.logger.Warn("failed to mark message as read", "message_id", msgID, "error", err)
		return
	}
	r.logger.Debug("marked message as read", "message_id", msgID)
}

// claim records msgID as in flight. It reports false if the message was
// already sent and is still waiting for its acknowledgment.
func (r *Reader) claim(msgID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[msgID]; ok {
		return false
	}
	r.pending[msgID] = struct{}{}
	return true
}

func (r *Reader) release(msgID string) {
	r.mu.Lock()
	delete(r.pending, msgID)
	r.mu.Unlock()
}

func (r *Reader) poll(ctx context.Context, out chan<- *api.Transcript) {
	resp, err := r.client.Users.Messages.List("me").Q(r.query).Context(ctx).Do()
	if err != nil {
		r.logger.Error("failed to list messages", "query", r.query, "error", err)
		return
	}

	r.logger.Debug("found messages", "count", len(resp.Messages))

	for _, msg := range resp.Messages {
		if !r.claim(msg.Id) {
			continue
		}
		if err := r.processMessage(ctx, msg.Id, out); err != nil {
			r.release(msg.Id)
			r.logger.Error("failed to process message", "message_id", msg.Id, "error", err)
		}
	}
}

func (r *Reader) processMessage(ctx context.Context, msgID string, out chan<- *api.Transcript) error {
	msg, err := r.client.Users.Messages.Get("me", msgID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting message: %w", err)
	}

	text := Transcript(msg)
	if text == "" {
		r.logger.Warn("empty message", "message_id", msgID)
		return nil
	}

	t := &api.Transcript{
		ID:         msgID,
		Text:       text,
		Source:     "gmail",
		ReceivedAt: time.UnixMilli(msg.InternalDate),
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- t:
	}
	return nil
}

// Transcript returns the dictated text of a message: the first non-empty
// line of its plain-text body, or the subject when the body is empty.
func Transcript(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if line := firstLine(plainBody(msg.Payload)); line != "" {
		return line
	}
	for _, h := range msg.Payload.Headers {
		if h.Name == "Subject" {
			return strings.TrimSpace(h.Value)
		}
	}
	return ""
}

func plainBody(part *gmail.MessagePart) string {
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		return decode(part.Body.Data)
	}
	for _, p := range part.Parts {
		if body := plainBody(p); body != "" {
			return body
		}
	}
	return ""
}

func decode(data string) string {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(b)
}

func firstLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
