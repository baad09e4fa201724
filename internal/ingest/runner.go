// Package ingest drives the sequential fetch, persist, checkpoint loop.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/chatvault/chatvault/internal/archive"
	"github.com/chatvault/chatvault/internal/db/models"
	"github.com/chatvault/chatvault/internal/logging"
)

// TokenSource yields a currently valid access token.
type TokenSource interface {
	Current(ctx context.Context) (*models.Token, error)
}

// PageFetcher retrieves one archive page.
type PageFetcher interface {
	FetchPage(ctx context.Context, accessToken string, cursor *string) (*archive.Page, error)
}

// Repository is the idempotent record sink.
type Repository interface {
	UpsertUser(id string, name, email *string) error
	UpsertChat(id string, createdAt time.Time, participantIDs []string) (created bool, err error)
	AppendMessages(chatID string, msgs []models.Message) error
}

// CheckpointStore persists pagination progress.
type CheckpointStore interface {
	Latest() (*models.Checkpoint, error)
	Advance(cursor, lastRecordID *string) error
}

// State is the terminal state of one run.
type State string

const (
	StateDone   State = "done"
	StateFailed State = "failed"
)

// Report summarizes one run. On failure it reflects the work committed
// before the run stopped.
type Report struct {
	ChatsCreated   int
	PagesProcessed int
	State          State
}

// Runner executes the ingestion loop: one page at a time, fully persisted
// and checkpointed before the next fetch. There is no parallelism and no
// in-run retry; a re-invocation resumes from the last durable checkpoint.
type Runner struct {
	tokens      TokenSource
	fetcher     PageFetcher
	repo        Repository
	checkpoints CheckpointStore
	pageDelay   time.Duration
	minMessages int
}

// Options tune the loop. PageDelay throttles requests between pages;
// MinMessages, when positive, skips chats with fewer messages.
type Options struct {
	PageDelay   time.Duration
	MinMessages int
}

func NewRunner(tokens TokenSource, fetcher PageFetcher, repo Repository, checkpoints CheckpointStore, opts Options) *Runner {
	return &Runner{
		tokens:      tokens,
		fetcher:     fetcher,
		repo:        repo,
		checkpoints: checkpoints,
		pageDelay:   opts.PageDelay,
		minMessages: opts.MinMessages,
	}
}

// Run ingests pages until the archive is exhausted or an error stops the
// run. A canceled context is honored between pages, never mid-page: once a
// page starts persisting it runs to completion or failure.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{State: StateFailed}

	cursor, lastRecordID, err := r.resumePoint()
	if err != nil {
		return report, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		tok, err := r.tokens.Current(ctx)
		if err != nil {
			logging.Errorf("cannot obtain a valid token: %v", err)
			return report, err
		}

		page, err := r.fetcher.FetchPage(ctx, tok.AccessToken, cursor)
		if err != nil {
			logging.Errorf("page fetch stopped the run: %v", err)
			return report, err
		}

		created, err := r.persistPage(page)
		report.ChatsCreated += created
		if err != nil {
			logging.Errorf("page persistence stopped the run: %v", err)
			return report, err
		}

		// The checkpoint moves only now, after every record in the page
		// has been committed. A crash before this point re-fetches the
		// same page on the next invocation.
		if n := len(page.Chats); n > 0 {
			id := page.Chats[n-1].ID
			lastRecordID = &id
		}
		if err := r.checkpoints.Advance(page.NextCursor, lastRecordID); err != nil {
			logging.Errorf("checkpoint write failed: %v", err)
			return report, fmt.Errorf("advance checkpoint: %w", err)
		}
		report.PagesProcessed++

		cursor = page.NextCursor
		if cursor == nil {
			report.State = StateDone
			logging.Infof("archive exhausted after %d page(s), %d new chat(s)", report.PagesProcessed, report.ChatsCreated)
			return report, nil
		}

		logging.Debugf("waiting %s before the next page", r.pageDelay)
		if err := sleepCtx(ctx, r.pageDelay); err != nil {
			return report, err
		}
	}
}

func (r *Runner) resumePoint() (cursor, lastRecordID *string, err error) {
	cp, err := r.checkpoints.Latest()
	if err != nil {
		return nil, nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		logging.Infof("no checkpoint found, starting from the first page")
		return nil, nil, nil
	}
	logging.Infof("resuming from checkpoint (cursor=%s, last record=%s)",
		strOrNone(cp.Cursor), strOrNone(cp.LastRecordID))
	return cp.Cursor, cp.LastRecordID, nil
}

// persistPage commits one page in the page's given order. A failure for one
// chat aborts the rest of the page; chats committed earlier stay committed.
func (r *Runner) persistPage(page *archive.Page) (int, error) {
	created := 0
	for _, chat := range page.Chats {
		if r.minMessages > 0 && len(chat.Messages) < r.minMessages {
			logging.Warnf("skipping chat %s with %d message(s)", chat.ID, len(chat.Messages))
			continue
		}

		participantIDs := make([]string, 0, len(chat.Participants))
		for _, p := range chat.Participants {
			if err := r.repo.UpsertUser(p.ID, p.Name, p.Email); err != nil {
				return created, fmt.Errorf("upsert user %s: %w", p.ID, err)
			}
			participantIDs = append(participantIDs, p.ID)
		}

		isNew, err := r.repo.UpsertChat(chat.ID, chat.CreatedAt, participantIDs)
		if err != nil {
			return created, fmt.Errorf("upsert chat %s: %w", chat.ID, err)
		}

		msgs := make([]models.Message, 0, len(chat.Messages))
		for _, m := range chat.Messages {
			msgs = append(msgs, models.Message{
				AuthorID: m.AuthorID,
				Text:     m.Text,
				SentAt:   m.CreatedAt,
			})
		}
		if err := r.repo.AppendMessages(chat.ID, msgs); err != nil {
			return created, fmt.Errorf("append messages for chat %s: %w", chat.ID, err)
		}

		if isNew {
			created++
		}
		logging.Infof("saved chat %s (%d messages, new=%v)", chat.ID, len(msgs), isNew)
	}
	return created, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func strOrNone(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}
