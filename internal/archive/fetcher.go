// Package archive talks to the remote archive-listing endpoint and parses
// its pages into domain records.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chatvault/chatvault/internal/logging"
	"github.com/chatvault/chatvault/internal/util"
)

// Participant is one chat member as reported by the remote API.
type Participant struct {
	ID    string
	Name  *string
	Email *string
}

// Message is one "message" thread event. Events of other types are
// discarded during parsing.
type Message struct {
	Text      string
	AuthorID  *string
	CreatedAt *time.Time
}

// Chat is one parsed archive record.
type Chat struct {
	ID           string
	CreatedAt    time.Time
	Participants []Participant
	Messages     []Message
}

// Page is the result of one archive-listing request. A nil NextCursor means
// the archive is exhausted.
type Page struct {
	Chats      []Chat
	NextCursor *string
}

// FetchError reports a failed archive-listing request: either a non-200
// response (Status/Body set) or a transport or parse failure (Err set).
// Fetch errors terminate the current run without advancing the checkpoint;
// they are not retried within a run.
type FetchError struct {
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("archive endpoint returned %d: %s", e.Status, util.TruncateLog(e.Body, util.DefaultBodyMaxLen))
}

func (e *FetchError) Unwrap() error { return e.Err }

type listRequest struct {
	Limit  int     `json:"limit"`
	Cursor *string `json:"cursor,omitempty"`
}

type listResponse struct {
	Chats []struct {
		ID    string `json:"id"`
		Users []struct {
			ID    string  `json:"id"`
			Name  *string `json:"name"`
			Email *string `json:"email"`
		} `json:"users"`
		Thread struct {
			CreatedAt string `json:"created_at"`
			Events    []struct {
				Type      string  `json:"type"`
				Text      string  `json:"text"`
				AuthorID  *string `json:"author_id"`
				CreatedAt *string `json:"created_at"`
			} `json:"events"`
		} `json:"thread"`
	} `json:"chats"`
	NextCursor *string `json:"next_cursor"`
}

// Fetcher issues one paginated request at a time against the archive-listing
// endpoint.
type Fetcher struct {
	url     string
	limit   int
	client  *http.Client
	payload *PayloadArchive // nil when raw archiving is disabled
}

// NewFetcher builds a fetcher for the given endpoint. payload may be nil.
func NewFetcher(url string, limit int, payload *PayloadArchive) *Fetcher {
	return &Fetcher{
		url:     url,
		limit:   limit,
		client:  &http.Client{Timeout: 30 * time.Second},
		payload: payload,
	}
}

// FetchPage requests one page. A nil cursor requests the first page and the
// cursor field is omitted from the body entirely; otherwise the opaque
// cursor from the previous page is sent back verbatim.
func (f *Fetcher) FetchPage(ctx context.Context, accessToken string, cursor *string) (*Page, error) {
	body, err := json.Marshal(listRequest{Limit: f.limit, Cursor: cursor})
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Status: resp.StatusCode, Body: string(raw)}
	}

	// Raw payload is archived before any parsing so a replay is possible
	// even when the page fails downstream.
	if f.payload != nil {
		if _, err := f.payload.Save(cursorLabel(cursor), raw); err != nil {
			logging.Warnf("failed to archive raw payload: %v", err)
		}
	}

	return parsePage(raw)
}

func parsePage(raw []byte) (*Page, error) {
	var decoded listResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("parse response: %w", err)}
	}

	page := &Page{NextCursor: decoded.NextCursor}
	for _, c := range decoded.Chats {
		createdAt, err := time.Parse(time.RFC3339, c.Thread.CreatedAt)
		if err != nil {
			return nil, &FetchError{Err: fmt.Errorf("chat %s: parse created_at %q: %w", c.ID, c.Thread.CreatedAt, err)}
		}

		chat := Chat{ID: c.ID, CreatedAt: createdAt}
		for _, u := range c.Users {
			chat.Participants = append(chat.Participants, Participant{ID: u.ID, Name: u.Name, Email: u.Email})
		}
		for _, ev := range c.Thread.Events {
			if ev.Type != "message" {
				continue
			}
			msg := Message{Text: ev.Text, AuthorID: ev.AuthorID}
			if ev.CreatedAt != nil {
				ts, err := time.Parse(time.RFC3339, *ev.CreatedAt)
				if err != nil {
					return nil, &FetchError{Err: fmt.Errorf("chat %s: parse event created_at %q: %w", c.ID, *ev.CreatedAt, err)}
				}
				msg.CreatedAt = &ts
			}
			chat.Messages = append(chat.Messages, msg)
		}
		page.Chats = append(page.Chats, chat)
	}
	return page, nil
}

func cursorLabel(cursor *string) string {
	if cursor == nil {
		return "start"
	}
	return *cursor
}
