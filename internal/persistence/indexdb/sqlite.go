package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"immortal.idle/internal/persistence/snapshot"
	"immortal.idle/internal/sim/catalogs"
	"immortal.idle/internal/sim/progression"
	"immortal.idle/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index of progression history. Writes
// are queued and applied by one writer goroutine; the JSONL audit log and the
// save files remain the source of truth.
type SQLiteIndex struct {
	db *sqlx.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit    atomic.Uint64
	dropSave     atomic.Uint64
	dropLifetime atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSave
	reqLifetime
	reqFlush
)

type req struct {
	kind reqKind

	audit    progression.AuditEntry
	save     SaveRow
	lifetime LifetimeRow
	done     chan struct{}
}

type AuditRow struct {
	Seq      int64  `db:"seq"`
	Tick     int64  `db:"tick"`
	Lifetime string `db:"lifetime"`
	Action   string `db:"action"`
	Activity string `db:"activity"`
	Level    int    `db:"level"`
	Reason   string `db:"reason"`
	RawJSON  string `db:"raw_json"`
}

type LifetimeRow struct {
	ID          string        `db:"id"`
	Mode        string        `db:"mode"`
	StartedTick int64         `db:"started_tick"`
	EndedTick   sql.NullInt64 `db:"ended_tick"`
	StartedAt   string        `db:"started_at"`
}

type SaveRow struct {
	Tick       int64  `db:"tick"`
	Path       string `db:"path"`
	Lifetime   string `db:"lifetime"`
	Mode       string `db:"mode"`
	Unlocked   int    `db:"unlocked"`
	LoopLen    int    `db:"loop_len"`
	Completed  int    `db:"completed"`
	RecordedAt string `db:"recorded_at"`
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropAuditTotal    uint64
	DropSaveTotal     uint64
	DropLifetimeTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
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

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sqlx.DB) error {
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

func initSchema(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lifetimes (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			started_tick INTEGER NOT NULL,
			ended_tick INTEGER,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			lifetime TEXT NOT NULL,
			action TEXT NOT NULL,
			activity TEXT NOT NULL,
			level INTEGER NOT NULL,
			reason TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_lifetime_action ON audits(lifetime, action);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_activity ON audits(activity, tick);`,
		`CREATE TABLE IF NOT EXISTS saves (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			lifetime TEXT NOT NULL,
			mode TEXT NOT NULL,
			unlocked INTEGER NOT NULL,
			loop_len INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSaveTotal:     s.dropSave.Load(),
		DropLifetimeTotal: s.dropLifetime.Load(),
	}
}

// WriteAudit queues an entry. It never blocks the caller; entries are dropped
// and counted when the writer falls behind.
func (s *SQLiteIndex) WriteAudit(entry progression.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordLifetime(id string, mode string, longTick uint64) {
	if s == nil || s.closed.Load() || id == "" {
		return
	}
	r := LifetimeRow{
		ID:          id,
		Mode:        mode,
		StartedTick: int64(longTick),
		StartedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqLifetime, lifetime: r}:
	default:
		s.dropLifetime.Add(1)
	}
}

func (s *SQLiteIndex) RecordSave(path string, save snapshot.SaveV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := SaveRow{
		Tick:       int64(save.Header.Tick),
		Path:       path,
		Lifetime:   save.Header.Lifetime,
		Mode:       string(save.Mode),
		Unlocked:   len(save.Properties.UnlockedActivities),
		LoopLen:    len(save.Properties.ActivityLoop),
		Completed:  len(save.Properties.CompletedApprenticeships),
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		s.dropSave.Add(1)
	}
}

// Flush blocks until everything queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs stores the activity tables and the applied tuning so a
// database can be read without the config files that produced it.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, _ := json.Marshal(cats.Activities.Modes); len(b) > 0 {
		rows = append(rows, kv{name: "activities", digest: cats.Activities.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`, r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) SetMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, key, value)
	return err
}

func (s *SQLiteIndex) GetMeta(key string) (string, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// RecentAudit returns the newest limit entries, newest first.
func (s *SQLiteIndex) RecentAudit(limit int) ([]AuditRow, error) {
	var rows []AuditRow
	err := s.db.Select(&rows,
		`SELECT seq, tick, lifetime, action, activity, level, reason, raw_json FROM audits ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	return rows, err
}

// Lifetimes returns every recorded life in start order.
func (s *SQLiteIndex) Lifetimes() ([]LifetimeRow, error) {
	var rows []LifetimeRow
	err := s.db.Select(&rows, `SELECT id, mode, started_tick, ended_tick, started_at FROM lifetimes ORDER BY started_at, started_tick`)
	return rows, err
}

// CompletedApprenticeships lists the trades whose apprenticeship was completed
// during lifetime, in completion order.
func (s *SQLiteIndex) CompletedApprenticeships(lifetime string) ([]string, error) {
	var out []string
	err := s.db.Select(&out,
		`SELECT activity FROM audits WHERE lifetime = ? AND action = ? GROUP BY activity ORDER BY MIN(seq)`,
		lifetime, progression.ActionApprenticeshipCompleted,
	)
	return out, err
}

// LatestSave returns the newest recorded save, or ok=false when there is none.
func (s *SQLiteIndex) LatestSave() (SaveRow, bool, error) {
	var row SaveRow
	err := s.db.Get(&row, `SELECT tick, path, lifetime, mode, unlocked, loop_len, completed, recorded_at FROM saves ORDER BY tick DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return row, false, nil
	}
	return row, err == nil, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(tick,lifetime,action,activity,level,reason,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(tick,path,lifetime,mode,unlocked,loop_len,completed,recorded_at) VALUES(?,?,?,?,?,?,?,?)`)
	insertLifetime, _ := s.db.Prepare(`INSERT OR IGNORE INTO lifetimes(id,mode,started_tick,started_at) VALUES(?,?,?,?)`)
	endLifetime, _ := s.db.Prepare(`UPDATE lifetimes SET ended_tick = ? WHERE id = ? AND ended_tick IS NULL`)
	defer func() {
		for _, st := range []*sql.Stmt{insertAudit, insertSave, insertLifetime, endLifetime} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	// An idle writer must not hold a transaction open; queries share the
	// single connection.
	idle := time.NewTicker(commitMaxWait)
	defer idle.Stop()

	for {
		var r req
		select {
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		case <-idle.C:
			if time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		}

		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			exec(insertAudit, int64(a.Tick), a.Lifetime, a.Action, string(a.Activity), a.Level, a.Reason, string(raw))
			if a.Action == progression.ActionReincarnated {
				if prev, _ := a.Details["previous"].(string); prev != "" {
					exec(endLifetime, int64(a.Tick), prev)
				}
				mode, _ := a.Details["mode"].(string)
				exec(insertLifetime, a.Lifetime, mode, int64(a.Tick), time.Now().UTC().Format(time.RFC3339Nano))
			}

		case reqSave:
			sv := r.save
			exec(insertSave, sv.Tick, sv.Path, sv.Lifetime, sv.Mode, sv.Unlocked, sv.LoopLen, sv.Completed, sv.RecordedAt)

		case reqLifetime:
			lt := r.lifetime
			exec(insertLifetime, lt.ID, lt.Mode, lt.StartedTick, lt.StartedAt)
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
}
