package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Frame is one received realtime envelope as stored on disk: the receipt
// time, the producer sequence (0 when the producer is unsequenced) and the
// raw per-domain payloads.
type Frame struct {
	ReceivedAt time.Time                  `json:"receivedAt"`
	Seq        uint64                     `json:"seq"`
	Data       map[string]json.RawMessage `json:"data"`
}

// ArchiveWriter appends frames to hourly-rotated zstd-compressed JSONL
// files under a session directory.
type ArchiveWriter struct {
	dir string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewArchiveWriter(sessionDir string) *ArchiveWriter {
	return &ArchiveWriter{dir: sessionDir}
}

func (w *ArchiveWriter) Write(fr Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := fr.ReceivedAt.UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(fr)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *ArchiveWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *ArchiveWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("frames-%s.jsonl.zst", hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *ArchiveWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

// ReadArchive streams every frame in a session directory in file order
// (lexicographic, which matches chronological for hourly names). The
// callback returning false stops the scan early.
func ReadArchive(sessionDir string, fn func(Frame) bool) error {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "frames-") && strings.HasSuffix(name, ".jsonl.zst") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return fmt.Errorf("no frame archives in %s", sessionDir)
	}

	for _, name := range files {
		stop, err := readOne(filepath.Join(sessionDir, name), fn)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func readOne(path string, fn func(Frame) bool) (stopped bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return false, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var fr Frame
		if err := json.Unmarshal(line, &fr); err != nil {
			return false, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if !fn(fr) {
			return true, nil
		}
	}
	return false, sc.Err()
}
