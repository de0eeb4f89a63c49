package record

import (
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"simscope.ai/internal/feed"
)

// Recorder captures every realtime envelope from a channel into a session
// archive plus the SQLite index. One recorder owns one session.
type Recorder struct {
	sessionID string
	archive   *ArchiveWriter
	index     *Index
	log       *log.Logger

	unsubscribe func()
	frames      atomic.Uint64
}

// NewRecorder creates a session directory named by a fresh UUID under
// baseDir and opens the shared index database next to the sessions.
func NewRecorder(baseDir, sourceURL string, logger *log.Logger) (*Recorder, error) {
	id := uuid.NewString()
	ix, err := OpenIndex(filepath.Join(baseDir, "index.db"), id, sourceURL)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		sessionID: id,
		archive:   NewArchiveWriter(filepath.Join(baseDir, id)),
		index:     ix,
		log:       logger,
	}, nil
}

func (r *Recorder) SessionID() string { return r.sessionID }
func (r *Recorder) Frames() uint64    { return r.frames.Load() }

// Attach subscribes the recorder to a channel. Call once.
func (r *Recorder) Attach(ch *feed.Channel) {
	r.unsubscribe = ch.Subscribe(func(u feed.Update) {
		fr := Frame{ReceivedAt: time.Now().UTC(), Seq: u.Seq, Data: u.Data}
		if err := r.archive.Write(fr); err != nil {
			r.log.Printf("archive write: %v", err)
			return
		}
		r.index.WriteFrame(fr)
		r.frames.Add(1)
	})
}

func (r *Recorder) Close() error {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	err := r.archive.Close()
	if cerr := r.index.Close(); err == nil {
		err = cerr
	}
	return err
}
