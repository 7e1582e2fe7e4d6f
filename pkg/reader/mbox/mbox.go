// Package mbox implements a Reader that replays dictated expenses from an
// mbox export, such as a Google Takeout dump of a dictation mailbox.
package mbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/google/uuid"

	"github.com/mr-aminul/moneylogger/pkg/api"
)

// Config holds configuration for the mbox reader.
type Config struct {
	// Path is the mbox file.
	Path string
	// Subject, when set, keeps only messages whose subject contains it
	// (case-insensitive).
	Subject string
}

// Reader emits one transcript per message.
type Reader struct {
	path    string
	subject string
	logger  *slog.Logger
}

// New creates a new mbox reader.
func New(cfg Config, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("path is required")
	}
	return &Reader{path: cfg.Path, subject: strings.ToLower(cfg.Subject), logger: logger}, nil
}

// Read sends every matching message and closes out at the end of the file.
func (r *Reader) Read(ctx context.Context, out chan<- *api.Transcript, ackChan <-chan string) error {
	defer close(out)

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("opening mbox: %w", err)
	}
	defer f.Close()

	mr := mbox.NewReader(f)
	sent, skipped := 0, 0
	for {
		raw, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading mbox: %w", err)
		}

		t, err := r.transcript(raw)
		if err != nil {
			r.logger.Warn("skipping unreadable message", "error", err)
			skipped++
			continue
		}
		if t == nil {
			skipped++
			continue
		}

		if err := send(ctx, out, ackChan, t); err != nil {
			return err
		}
		sent++
	}

	r.logger.Info("mbox reader finished", "path", r.path, "transcripts", sent, "skipped", skipped)
	return nil
}

// send delivers t, discarding acknowledgments meanwhile: an export is
// never modified.
func send(ctx context.Context, out chan<- *api.Transcript, ackChan <-chan string, t *api.Transcript) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- t:
			return nil
		case _, ok := <-ackChan:
			if !ok {
				ackChan = nil
			}
		}
	}
}

func (r *Reader) transcript(raw io.Reader) (*api.Transcript, error) {
	msg, err := mail.ReadMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	if r.subject != "" && !strings.Contains(strings.ToLower(subject), r.subject) {
		return nil, nil
	}

	body, err := plainBody(msg.Header.Get("Content-Type"), msg.Body)
	if err != nil {
		return nil, err
	}
	text := firstLine(body)
	if text == "" {
		text = strings.TrimSpace(subject)
	}
	if text == "" {
		return nil, nil
	}

	received, err := msg.Header.Date()
	if err != nil {
		received = time.Now()
	}

	id := strings.Trim(msg.Header.Get("Message-Id"), "<> ")
	if id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(received.String()+"\n"+text)).String()
	}

	return &api.Transcript{
		ID:         id,
		Text:       text,
		Source:     "mbox",
		ReceivedAt: received,
	}, nil
}

func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	if s, err := dec.DecodeHeader(v); err == nil {
		return s
	}
	return v
}

// plainBody returns the first text/plain part of a message body.
func plainBody(contentType string, body io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parsing content type: %w", err)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return "", nil
			}
			if err != nil {
				return "", fmt.Errorf("reading part: %w", err)
			}
			text, err := plainBody(part.Header.Get("Content-Type"), part)
			if err != nil {
				return "", err
			}
			if text != "" {
				return text, nil
			}
		}
	}

	if mediaType != "text/plain" {
		return "", nil
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(b), nil
}

func firstLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
