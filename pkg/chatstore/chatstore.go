// Package chatstore reads Cursor CLI chat sessions from disk.
//
// Sessions live at <chats>/<workspace hash>/<session id>/store.db. Each
// store.db is a SQLite database owned by Cursor; it is only ever opened
// read-only.
package chatstore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const storeFile = "store.db"

// ErrSessionNotFound is returned when no store.db exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Meta is the session header Cursor stores hex-encoded in meta key '0'.
type Meta struct {
	AgentID   string `json:"agentId"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// Created returns the session creation time.
func (m *Meta) Created() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// Message is one readable record of a session log. Seq is the record's
// position in the log and only grows as the session is appended to.
type Message struct {
	Seq  int64
	Role Role
	Text string
}

// Session identifies one chat on disk.
type Session struct {
	ID            string
	WorkspaceHash string
	StorePath     string
	ModifiedAt    time.Time
}

// Store gives read access to every session under a chats directory.
type Store struct {
	chatsDir string
}

// NewStore creates a Store rooted at chatsDir (usually ~/.cursor/chats).
func NewStore(chatsDir string) *Store {
	return &Store{chatsDir: chatsDir}
}

// Discover lists every session with a store.db, ordered by most recent
// modification first. A missing chats directory yields no sessions.
func (s *Store) Discover(ctx context.Context) ([]Session, error) {
	hashDirs, err := os.ReadDir(s.chatsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chats directory: %w", err)
	}

	var sessions []Session
	for _, hd := range hashDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !hd.IsDir() {
			continue
		}

		convDirs, err := os.ReadDir(filepath.Join(s.chatsDir, hd.Name()))
		if err != nil {
			continue
		}
		for _, cd := range convDirs {
			if !cd.IsDir() {
				continue
			}
			if session, ok := s.session(hd.Name(), cd.Name()); ok {
				sessions = append(sessions, session)
			}
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].ModifiedAt.After(sessions[j].ModifiedAt)
	})

	return sessions, nil
}

// Find locates a session by id across all workspace hashes.
func (s *Store) Find(ctx context.Context, id string) (Session, error) {
	if id == "" || filepath.Base(id) != id {
		return Session{}, ErrSessionNotFound
	}

	hashDirs, err := os.ReadDir(s.chatsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("reading chats directory: %w", err)
	}

	for _, hd := range hashDirs {
		if err := ctx.Err(); err != nil {
			return Session{}, err
		}
		if !hd.IsDir() {
			continue
		}
		if session, ok := s.session(hd.Name(), id); ok {
			return session, nil
		}
	}

	return Session{}, ErrSessionNotFound
}

func (s *Store) session(hash, id string) (Session, bool) {
	path := filepath.Join(s.chatsDir, hash, id, storeFile)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Session{}, false
	}

	modified := info.ModTime()
	// Recent writes land in the WAL before the main file.
	if wal, err := os.Stat(path + "-wal"); err == nil && wal.ModTime().After(modified) {
		modified = wal.ModTime()
	}

	return Session{
		ID:            id,
		WorkspaceHash: hash,
		StorePath:     path,
		ModifiedAt:    modified,
	}, true
}

// Reader holds an open read-only handle on one store.db.
type Reader struct {
	db *sql.DB
}

// Open opens the session's store.db read-only. Close the Reader when done.
func Open(ctx context.Context, session Session) (*Reader, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=2000", session.StorePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", session.StorePath, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", session.StorePath, err)
	}

	return &Reader{db: db}, nil
}

func (r *Reader) Close() error {
	return r.db.Close()
}

// Meta reads and decodes the session header. It returns nil and no error
// when the header is absent or undecodable.
func (r *Reader) Meta(ctx context.Context) (*Meta, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = '0'`).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading meta: %w", err)
	}

	data := raw
	if decoded, err := hex.DecodeString(string(raw)); err == nil {
		data = decoded
	}

	meta := &Meta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, nil
	}

	return meta, nil
}

// blob is the JSON shape of one message record.
type blob struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Messages returns the session's message records in log order.
//
// Only JSON blobs are messages. Reading stops at the first JSON blob that
// does not decode: an in-progress session may have a partially written tail,
// and records from that point on are picked up on a later read.
func (r *Reader) Messages(ctx context.Context) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rowid, data
		FROM blobs
		WHERE hex(substr(data, 1, 1)) = '7B'
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("reading blobs: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			seq  int64
			data []byte
		)
		if err := rows.Scan(&seq, &data); err != nil {
			return nil, fmt.Errorf("scanning blob: %w", err)
		}

		var b blob
		if err := json.Unmarshal(data, &b); err != nil {
			break
		}

		messages = append(messages, Message{
			Seq:  seq,
			Role: b.Role,
			Text: contentText(b.Content),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading blobs: %w", err)
	}

	return messages, nil
}

// contentText flattens message content. Plain strings are returned as is;
// content arrays contribute their text items, space separated.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []contentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}

	var sb strings.Builder
	for _, item := range items {
		if item.Type != "text" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(item.Text)
	}

	return sb.String()
}
