package feed

import "sync"

var (
	sharedMu sync.Mutex
	shared   *Channel
)

// Shared returns the process-wide channel so every consumer rides one
// connection instead of opening its own. It is constructed lazily on first
// call (that caller's options win; later options are ignored) and torn down
// only by an explicit Disconnect.
func Shared(opts Options) *Channel {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = New(opts)
	}
	return shared
}
