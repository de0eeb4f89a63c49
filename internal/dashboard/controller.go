// Package dashboard wires the REST client, the realtime channel and the store
// together: snapshot fan-out on start, realtime patch application per domain,
// connection status and error propagation, agent selection.
package dashboard

import (
	"context"
	"log"
	"os"
	"sync"

	"simscope.ai/internal/api"
	"simscope.ai/internal/feed"
	"simscope.ai/internal/metrics"
	"simscope.ai/internal/store"
	"simscope.ai/internal/transform"
)

type Controller struct {
	api   *api.Client
	feed  *feed.Channel
	store *store.Store
	log   *log.Logger

	// ownsFeed: Stop disconnects the channel only when this controller's
	// lifetime bounds it (the top-level app). Embedders sharing the channel
	// pass false.
	ownsFeed bool

	unsubscribe func()
}

func NewController(apiClient *api.Client, ch *feed.Channel, st *store.Store, ownsFeed bool, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(os.Stdout, "[dashboard] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Controller{api: apiClient, feed: ch, store: st, ownsFeed: ownsFeed, log: logger}
}

func (c *Controller) Store() *store.Store { return c.store }

// Start loads one snapshot per domain and opens the realtime channel. The
// snapshot fetches fan out and are joined before loading clears; the first
// fetch error becomes the store error but does not stop the other domains.
func (c *Controller) Start(ctx context.Context) {
	c.store.SetLoading(true)

	c.unsubscribe = c.feed.Subscribe(c.applyUpdate)
	c.feed.Connect()

	go func() {
		var wg sync.WaitGroup
		var mu sync.Mutex
		var firstErr error
		fail := func(err error) {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}

		// Each snapshot is stamped with the domain sequence observed at
		// fetch start and applied through the snapshot path, so a slow
		// response cannot clobber a fresher realtime patch that landed
		// meanwhile, including patches over an initially empty slot.
		run := func(fetch func() error) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := fetch(); err != nil {
					fail(err)
				}
			}()
		}
		run(func() error {
			seq := c.store.Seq(store.SliceNetwork)
			d, err := c.api.FetchNetwork(ctx)
			if err != nil {
				return err
			}
			c.store.ApplyNetworkSnapshot(d, seq)
			return nil
		})
		run(func() error {
			seq := c.store.Seq(store.SliceTimeline)
			d, err := c.api.FetchTimeline(ctx)
			if err != nil {
				return err
			}
			c.store.ApplyTimelineSnapshot(d, seq)
			return nil
		})
		run(func() error {
			seq := c.store.Seq(store.SliceSpatial)
			d, err := c.api.FetchSpatial(ctx)
			if err != nil {
				return err
			}
			c.store.ApplySpatialSnapshot(d, seq)
			return nil
		})
		run(func() error {
			seq := c.store.Seq(store.SliceInequality)
			d, err := c.api.FetchInequality(ctx)
			if err != nil {
				return err
			}
			c.store.ApplyInequalitySnapshot(d, seq)
			return nil
		})
		run(func() error {
			seq := c.store.Seq(store.SliceCultural)
			d, err := c.api.FetchCultural(ctx)
			if err != nil {
				return err
			}
			c.store.ApplyCulturalSnapshot(d, seq)
			return nil
		})
		run(func() error {
			seq := c.store.Seq(store.SliceTimeSeries)
			d, err := c.api.FetchTimeSeries(ctx)
			if err != nil {
				return err
			}
			c.store.ApplyTimeSeriesSnapshot(d, seq)
			return nil
		})

		wg.Wait()
		if firstErr != nil {
			c.log.Printf("snapshot load: %v", firstErr)
			c.store.SetError(firstErr)
		}
		c.store.SetLoading(false)
	}()
}

// applyUpdate leniently decodes each domain present in a realtime patch and
// applies it with the envelope sequence. Malformed-but-present fields pass
// through here untouched; the view gates display them. A domain payload that
// is not even an object is logged and skipped.
func (c *Controller) applyUpdate(u feed.Update) {
	for domain, raw := range u.Data {
		var err error
		switch domain {
		case metrics.DomainNetwork:
			var d *metrics.NetworkData
			if d, err = transform.DecodeNetwork(raw); err == nil {
				c.store.ApplyNetwork(d, u.Seq)
			}
		case metrics.DomainTimeline:
			var d *metrics.TimelineData
			if d, err = transform.DecodeTimeline(raw); err == nil {
				c.store.ApplyTimeline(d, u.Seq)
			}
		case metrics.DomainSpatial:
			var d *metrics.SpatialData
			if d, err = transform.DecodeSpatial(raw); err == nil {
				c.store.ApplySpatial(d, u.Seq)
			}
		case metrics.DomainInequality:
			var d *metrics.InequalityData
			if d, err = transform.DecodeInequality(raw); err == nil {
				c.store.ApplyInequality(d, u.Seq)
			}
		case metrics.DomainCultural:
			var d *metrics.CulturalData
			if d, err = transform.DecodeCultural(raw); err == nil {
				c.store.ApplyCultural(d, u.Seq)
			}
		case metrics.DomainTimeSeries:
			var d *metrics.TimeSeriesData
			if d, err = transform.DecodeTimeSeries(raw); err == nil {
				c.store.ApplyTimeSeries(d, u.Seq)
			}
		default:
			// Unknown domain keys are forward compatibility, not errors.
		}
		if err != nil {
			c.log.Printf("patch %s: %v", domain, err)
		}
	}
}

// FeedOptions builds the channel callbacks that route connection status and
// hard errors into the store, the production wrapping of the channel's
// error surface.
func FeedOptions(st *store.Store, base feed.Options) feed.Options {
	base.OnStatus = st.SetConnected
	base.OnError = st.SetError
	return base
}

// SelectAgent fetches one agent's detail snapshot into the selected slot.
func (c *Controller) SelectAgent(ctx context.Context, id string) error {
	d, err := c.api.AgentDetails(ctx, id)
	if err != nil {
		c.store.SetError(err)
		return err
	}
	c.store.SetSelectedAgent(d)
	return nil
}

// ClearSelection empties the selected-agent slot.
func (c *Controller) ClearSelection() {
	c.store.SetSelectedAgent(nil)
}

// Stop detaches from the channel and, when this controller owns it,
// disconnects it.
func (c *Controller) Stop() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.ownsFeed {
		c.feed.Disconnect()
	}
}
