package testutils

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// CursorHome lays out a fake ~/.cursor directory with chats/ and projects/.
type CursorHome struct {
	Root string
}

// NewCursorHome creates the chats/ and projects/ directories under root.
func NewCursorHome(root string) (*CursorHome, error) {
	for _, dir := range []string{"chats", "projects"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, err
		}
	}
	return &CursorHome{Root: root}, nil
}

func (h *CursorHome) ChatsDir() string    { return filepath.Join(h.Root, "chats") }
func (h *CursorHome) ProjectsDir() string { return filepath.Join(h.Root, "projects") }

// RegisterProject adds a project registry entry for the absolute workspace path.
func (h *CursorHome) RegisterProject(path string) error {
	name := strings.ReplaceAll(strings.TrimPrefix(path, "/"), "/", "-")
	return os.MkdirAll(filepath.Join(h.ProjectsDir(), name), 0o755)
}

// SessionMeta is the header written into a fake store.db.
type SessionMeta struct {
	Name    string
	Created time.Time
}

// ChatBlob is one message record. Raw, when set, is written verbatim.
type ChatBlob struct {
	Role    string
	Content any
	Raw     []byte
}

// Text builds a plain-text message record.
func Text(role, text string) ChatBlob {
	return ChatBlob{Role: role, Content: text}
}

// CreateSession writes a store.db for session id under the workspace hash
// and returns its path. A nil meta leaves the meta table empty.
func (h *CursorHome) CreateSession(hash, id string, meta *SessionMeta, blobs ...ChatBlob) (string, error) {
	dir := filepath.Join(h.ChatsDir(), hash, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "store.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)`,
		`CREATE TABLE IF NOT EXISTS blobs (id TEXT PRIMARY KEY, data BLOB)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return "", err
		}
	}

	if meta != nil {
		header, err := json.Marshal(map[string]any{
			"agentId":   id,
			"name":      meta.Name,
			"createdAt": meta.Created.UnixMilli(),
		})
		if err != nil {
			return "", err
		}
		if _, err := db.Exec(`INSERT INTO meta (key, value) VALUES ('0', ?)`, hex.EncodeToString(header)); err != nil {
			return "", err
		}
	}

	if err := appendBlobs(db, blobs); err != nil {
		return "", err
	}

	return path, nil
}

// AppendMessages adds records to an existing store.db.
func (h *CursorHome) AppendMessages(storePath string, blobs ...ChatBlob) error {
	db, err := sql.Open("sqlite3", storePath)
	if err != nil {
		return err
	}
	defer db.Close()

	return appendBlobs(db, blobs)
}

func appendBlobs(db *sql.DB, blobs []ChatBlob) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM blobs`).Scan(&n); err != nil {
		return err
	}

	for i, b := range blobs {
		data := b.Raw
		if data == nil {
			var err error
			data, err = json.Marshal(map[string]any{"role": b.Role, "content": b.Content})
			if err != nil {
				return err
			}
		}
		id := fmt.Sprintf("blob-%04d", n+i)
		if _, err := db.Exec(`INSERT INTO blobs (id, data) VALUES (?, ?)`, id, data); err != nil {
			return err
		}
	}

	return nil
}
