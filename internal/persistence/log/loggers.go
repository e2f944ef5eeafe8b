package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"immortal.idle/internal/sim/progression"
)

const segmentLayout = "2006-01-02-15"

// AuditLogger writes progression audit entries as compressed JSON lines into
// one segment per UTC hour: <dataDir>/audit/audit-<YYYY-MM-DD-HH>.jsonl.zst.
// Every entry is flushed through the encoder so a crash loses at most the
// current zstd frame. Safe for concurrent use.
type AuditLogger struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	seg     *segment
	written uint64
}

type segment struct {
	hour string
	f    *os.File
	zw   *zstd.Encoder
	enc  *json.Encoder
}

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{dir: filepath.Join(dataDir, "audit"), now: time.Now}
}

// WriteAudit implements progression.AuditSink.
func (l *AuditLogger) WriteAudit(e progression.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seg, err := l.segmentFor(l.now().UTC().Format(segmentLayout))
	if err != nil {
		return err
	}
	if err := seg.enc.Encode(e); err != nil {
		return fmt.Errorf("audit %s tick %d: %w", e.Action, e.Tick, err)
	}
	if err := seg.zw.Flush(); err != nil {
		return fmt.Errorf("audit flush: %w", err)
	}
	l.written++
	return nil
}

// Written reports how many entries reached disk since the logger was opened.
func (l *AuditLogger) Written() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.seg.close()
	l.seg = nil
	return err
}

func (l *AuditLogger) segmentFor(hour string) (*segment, error) {
	if l.seg != nil && l.seg.hour == hour {
		return l.seg, nil
	}
	if err := l.seg.close(); err != nil {
		return nil, err
	}
	l.seg = nil
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit dir: %w", err)
	}
	path := filepath.Join(l.dir, "audit-"+hour+".jsonl.zst")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit segment: %w", err)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("audit encoder: %w", err)
	}
	l.seg = &segment{hour: hour, f: f, zw: zw, enc: json.NewEncoder(zw)}
	return l.seg, nil
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	err := s.zw.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close audit segment %s: %w", s.hour, err)
	}
	return nil
}
