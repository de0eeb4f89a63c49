package record

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"simscope.ai/internal/feed"
)

func TestArchive_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewArchiveWriter(dir)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		fr := Frame{
			ReceivedAt: base.Add(time.Duration(i) * time.Second),
			Seq:        uint64(i + 1),
			Data: map[string]json.RawMessage{
				"network": json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
			},
		}
		if err := w.Write(fr); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []Frame
	if err := ReadArchive(dir, func(fr Frame) bool {
		got = append(got, fr)
		return true
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("frames=%d want 5", len(got))
	}
	for i, fr := range got {
		if fr.Seq != uint64(i+1) {
			t.Fatalf("frame %d seq=%d want %d", i, fr.Seq, i+1)
		}
		if string(fr.Data["network"]) != fmt.Sprintf(`{"n":%d}`, i) {
			t.Fatalf("frame %d payload=%s", i, fr.Data["network"])
		}
	}
}

func TestArchive_HourlyRotation(t *testing.T) {
	dir := t.TempDir()
	w := NewArchiveWriter(dir)

	first := time.Date(2026, 3, 14, 9, 59, 0, 0, time.UTC)
	second := time.Date(2026, 3, 14, 10, 1, 0, 0, time.UTC)
	for i, at := range []time.Time{first, second} {
		fr := Frame{ReceivedAt: at, Seq: uint64(i + 1)}
		if err := w.Write(fr); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, name := range []string{"frames-2026-03-14-09.jsonl.zst", "frames-2026-03-14-10.jsonl.zst"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected archive file %s: %v", name, err)
		}
	}
	var seqs []uint64
	if err := ReadArchive(dir, func(fr Frame) bool {
		seqs = append(seqs, fr.Seq)
		return true
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("seqs=%v", seqs)
	}
}

func TestArchive_EarlyStop(t *testing.T) {
	dir := t.TempDir()
	w := NewArchiveWriter(dir)
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := w.Write(Frame{ReceivedAt: at, Seq: uint64(i + 1)}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var n int
	if err := ReadArchive(dir, func(fr Frame) bool {
		n++
		return n < 3
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 3 {
		t.Fatalf("visited=%d want 3", n)
	}
}

func TestReadArchive_EmptyDir(t *testing.T) {
	if err := ReadArchive(t.TempDir(), func(Frame) bool { return true }); err == nil {
		t.Fatalf("expected error for directory without archives")
	}
}

func TestIndex_SessionsAndFrameCounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	ix, err := OpenIndex(path, "sess-1", "ws://example/ws")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	at := time.Now().UTC()
	for i := 0; i < 3; i++ {
		ix.WriteFrame(Frame{
			ReceivedAt: at,
			Seq:        uint64(i + 1),
			Data: map[string]json.RawMessage{
				"network":  json.RawMessage(`{}`),
				"timeline": json.RawMessage(`{}`),
			},
		})
	}
	if err := ix.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sessions, err := ListSessions(path)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions=%d want 1", len(sessions))
	}
	s := sessions[0]
	if s.ID != "sess-1" || s.SourceURL != "ws://example/ws" {
		t.Fatalf("session row: %+v", s)
	}
	if s.Frames != 3 || s.LastSeq != 3 {
		t.Fatalf("frames=%d lastSeq=%d want 3/3", s.Frames, s.LastSeq)
	}
}

func TestRecorder_CapturesEnvelopes(t *testing.T) {
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	send := make(chan []byte, 8)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for msg := range send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}))
	defer ts.Close()
	defer close(send)

	baseDir := t.TempDir()
	logger := log.New(io.Discard, "", 0)
	rec, err := NewRecorder(baseDir, ts.URL, logger)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}

	ch := feed.New(feed.Options{
		URL:            "ws" + strings.TrimPrefix(ts.URL, "http"),
		ReconnectDelay: 50 * time.Millisecond,
		MaxAttempts:    3,
		Logger:         logger,
	})
	rec.Attach(ch)
	ch.Connect()
	defer ch.Disconnect()

	deadline := time.Now().Add(3 * time.Second)
	for !ch.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !ch.IsConnected() {
		t.Fatalf("channel never connected")
	}

	for i := 1; i <= 2; i++ {
		send <- []byte(fmt.Sprintf(
			`{"type":"metrics_update","seq":%d,"data":{"network":{"nodes":[],"edges":[]}}}`, i))
	}
	for rec.Frames() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rec.Frames() != 2 {
		t.Fatalf("frames=%d want 2", rec.Frames())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var seqs []uint64
	if err := ReadArchive(filepath.Join(baseDir, rec.SessionID()), func(fr Frame) bool {
		seqs = append(seqs, fr.Seq)
		return true
	}); err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("archived seqs=%v", seqs)
	}

	sessions, err := ListSessions(filepath.Join(baseDir, "index.db"))
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != rec.SessionID() {
		t.Fatalf("sessions=%+v", sessions)
	}
}
