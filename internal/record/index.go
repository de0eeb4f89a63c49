package record

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"simscope.ai/internal/metrics"
)

// Index is a SQLite catalogue of recorded sessions and their frames. Writes
// go through a buffered background writer so the recorder never blocks on
// disk; the archive files remain the source of truth.
type Index struct {
	db *sql.DB

	ch   chan Frame
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	session string
}

// SessionInfo is one row of the sessions table.
type SessionInfo struct {
	ID        string
	StartedAt time.Time
	SourceURL string
	Frames    int64
	LastSeq   uint64
}

func OpenIndex(path, sessionID, sourceURL string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(
		`INSERT OR REPLACE INTO sessions(id,started_at,source_url) VALUES(?,?,?)`,
		sessionID, time.Now().UTC().Format(time.RFC3339Nano), sourceURL,
	); err != nil {
		_ = db.Close()
		return nil, err
	}

	ix := &Index{
		db:      db,
		ch:      make(chan Frame, 4096),
		session: sessionID,
	}
	ix.wg.Add(1)
	go func() {
		defer ix.wg.Done()
		ix.loop()
	}()
	return ix, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only frame stream.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			source_url TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			received_at TEXT NOT NULL,
			domains TEXT NOT NULL,
			bytes INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_frames_session_seq ON frames(session_id, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) Close() error {
	var err error
	ix.once.Do(func() {
		ix.closed.Store(true)
		close(ix.ch)
		ix.wg.Wait()
		err = ix.db.Close()
	})
	return err
}

// WriteFrame enqueues one frame row. Drops when the writer falls behind;
// the JSONL archive keeps every frame regardless.
func (ix *Index) WriteFrame(fr Frame) {
	if ix == nil || ix.closed.Load() {
		return
	}
	select {
	case ix.ch <- fr:
	default:
	}
}

// ListSessions lists recorded sessions with frame counts, newest first. It
// opens its own connection so it works while a recorder holds the writer.
func ListSessions(path string) ([]SessionInfo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT s.id, s.started_at, s.source_url,
		       COUNT(f.seq), COALESCE(MAX(f.seq), 0)
		FROM sessions s LEFT JOIN frames f ON f.session_id = s.id
		GROUP BY s.id ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var si SessionInfo
		var started string
		if err := rows.Scan(&si.ID, &started, &si.SourceURL, &si.Frames, &si.LastSeq); err != nil {
			return nil, err
		}
		si.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		out = append(out, si)
	}
	return out, rows.Err()
}

func (ix *Index) loop() {
	insert, err := ix.db.Prepare(
		`INSERT INTO frames(session_id,seq,received_at,domains,bytes) VALUES(?,?,?,?,?)`)
	if err != nil {
		for range ix.ch {
		}
		return
	}
	defer insert.Close()

	var (
		tx          *sql.Tx
		opCount     int
		lastCommit  = time.Now()
		commitEvery = 500
		commitWait  = 2 * time.Second
	)

	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for fr := range ix.ch {
		if tx == nil {
			txx, err := ix.db.Begin()
			if err != nil {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			tx = txx
			opCount = 0
			lastCommit = time.Now()
		}

		var present []string
		var size int
		for _, d := range metrics.Domains {
			if raw, ok := fr.Data[d]; ok {
				present = append(present, d)
				size += len(raw)
			}
		}
		if _, err := tx.Stmt(insert).Exec(
			ix.session,
			int64(fr.Seq),
			fr.ReceivedAt.UTC().Format(time.RFC3339Nano),
			strings.Join(present, ","),
			size,
		); err != nil {
			_ = tx.Rollback()
			tx = nil
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitWait {
			commit()
		}
	}
	commit()
}
