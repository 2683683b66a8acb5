package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store persists completed session transcripts and extraction records.
// The live session stays in memory; only finished material lands here.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// TranscriptRecord is one archived session.
type TranscriptRecord struct {
	ID         int64
	Channel    string
	ChatID     string
	Messages   int
	Characters int
	Words      int
	Turns      int
	Transcript string
	CreatedAt  string
}

// ExtractionRecord is one archived extraction with its validation verdict.
type ExtractionRecord struct {
	ID        int64
	Source    string
	Name      string
	Email     string
	Phone     string
	Location  string
	Age       string
	Extracted int
	Valid     bool
	CreatedAt string
}

// Stats is a compact snapshot used by status reporting.
type Stats struct {
	Transcripts int
	Extractions int
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL DEFAULT '',
		chat_id TEXT NOT NULL DEFAULT '',
		messages INTEGER NOT NULL DEFAULT 0,
		characters INTEGER NOT NULL DEFAULT 0,
		words INTEGER NOT NULL DEFAULT 0,
		turns INTEGER NOT NULL DEFAULT 0,
		transcript TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);
	CREATE TABLE IF NOT EXISTS extractions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		age TEXT NOT NULL DEFAULT '',
		extracted INTEGER NOT NULL DEFAULT 0,
		valid INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_extractions_created ON extractions(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveTranscript(rec TranscriptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO transcripts (channel, chat_id, messages, characters, words, turns, transcript)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Channel, rec.ChatID, rec.Messages, rec.Characters, rec.Words, rec.Turns, rec.Transcript)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

func (s *Store) SaveExtraction(rec ExtractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	valid := 0
	if rec.Valid {
		valid = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO extractions (source, name, email, phone, location, age, extracted, valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Source, rec.Name, rec.Email, rec.Phone, rec.Location, rec.Age, rec.Extracted, valid)
	if err != nil {
		return fmt.Errorf("insert extraction: %w", err)
	}
	return nil
}

func (s *Store) RecentTranscripts(limit int) ([]TranscriptRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, channel, chat_id, messages, characters, words, turns, transcript, created_at
		FROM transcripts ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var out []TranscriptRecord
	for rows.Next() {
		var r TranscriptRecord
		if err := rows.Scan(&r.ID, &r.Channel, &r.ChatID, &r.Messages, &r.Characters,
			&r.Words, &r.Turns, &r.Transcript, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RecentExtractions(limit int) ([]ExtractionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, source, name, email, phone, location, age, extracted, valid, created_at
		FROM extractions ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	defer rows.Close()

	var out []ExtractionRecord
	for rows.Next() {
		var r ExtractionRecord
		var valid int
		if err := rows.Scan(&r.ID, &r.Source, &r.Name, &r.Email, &r.Phone, &r.Location,
			&r.Age, &r.Extracted, &valid, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		r.Valid = valid != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes archived records older than the retention window.
func (s *Store) Prune(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	age := fmt.Sprintf("-%d day", retentionDays)
	var total int64
	for _, table := range []string{"transcripts", "extractions"} {
		res, err := s.db.Exec(
			`DELETE FROM `+table+` WHERE created_at < datetime('now', ?)`, age)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM transcripts`).Scan(&st.Transcripts); err != nil {
		return st, fmt.Errorf("count transcripts: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM extractions`).Scan(&st.Extractions); err != nil {
		return st, fmt.Errorf("count extractions: %w", err)
	}
	return st, nil
}
