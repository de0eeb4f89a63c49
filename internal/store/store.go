// Package store is the process-wide holder of the latest known value per
// metric domain plus connection/loading/error state and the selected-agent
// slot. Slots are independent: setting one never touches another, and
// subscribers registered on a slice are woken only when that slice changes.
package store

import (
	"sync"

	"simscope.ai/internal/metrics"
)

// Slice identifies one independently-subscribable part of the store.
type Slice int

const (
	SliceNetwork Slice = iota
	SliceTimeline
	SliceSpatial
	SliceInequality
	SliceCultural
	SliceTimeSeries
	SliceConnected
	SliceLoading
	SliceError
	SliceSelectedAgent
)

// DomainSlices lists the six domain slots in canonical order.
var DomainSlices = []Slice{
	SliceNetwork, SliceTimeline, SliceSpatial,
	SliceInequality, SliceCultural, SliceTimeSeries,
}

type Store struct {
	mu sync.Mutex

	network    *metrics.NetworkData
	timeline   *metrics.TimelineData
	spatial    *metrics.SpatialData
	inequality *metrics.InequalityData
	cultural   *metrics.CulturalData
	timeseries *metrics.TimeSeriesData

	// Highest sequence number applied per domain slot. Guards the REST
	// snapshot vs realtime patch race: a write carrying seq 0 is
	// unsequenced and always wins (last-write-wins), a sequenced write is
	// rejected when older than what the slot already holds.
	seq map[Slice]uint64

	connected bool
	loading   bool
	err       error
	selected  *metrics.AgentDetails

	subs    map[Slice]map[int]func()
	nextSub int
}

func New() *Store {
	return &Store{
		seq:  make(map[Slice]uint64),
		subs: make(map[Slice]map[int]func()),
	}
}

// Subscribe registers fn to run after every change of the given slice and
// returns its unsubscribe func. fn is invoked without the store lock held.
func (s *Store) Subscribe(slice Slice, fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	m := s.subs[slice]
	if m == nil {
		m = make(map[int]func())
		s.subs[slice] = m
	}
	m[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if m := s.subs[slice]; m != nil {
			delete(m, id)
		}
		s.mu.Unlock()
	}
}

func (s *Store) notifyLocked(slice Slice) []func() {
	m := s.subs[slice]
	if len(m) == 0 {
		return nil
	}
	fns := make([]func(), 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// Seq reports the highest sequence number applied to a domain slot. The
// controller samples it before a snapshot fetch so the response can be
// stamped and rejected if a fresher sequenced patch landed meanwhile.
func (s *Store) Seq(slice Slice) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[slice]
}

func (s *Store) applyLocked(slice Slice, seq uint64) bool {
	if seq != 0 && seq < s.seq[slice] {
		return false
	}
	if seq > s.seq[slice] {
		s.seq[slice] = seq
	}
	return true
}

// ApplyNetwork replaces the network slot unless the write is sequenced and
// stale. The aggregate is replaced whole; there is no field-level merging.
func (s *Store) ApplyNetwork(d *metrics.NetworkData, seq uint64) bool {
	s.mu.Lock()
	if !s.applyLocked(SliceNetwork, seq) {
		s.mu.Unlock()
		return false
	}
	s.network = d
	fns := s.notifyLocked(SliceNetwork)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplyTimeline(d *metrics.TimelineData, seq uint64) bool {
	s.mu.Lock()
	if !s.applyLocked(SliceTimeline, seq) {
		s.mu.Unlock()
		return false
	}
	s.timeline = d
	fns := s.notifyLocked(SliceTimeline)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplySpatial(d *metrics.SpatialData, seq uint64) bool {
	s.mu.Lock()
	if !s.applyLocked(SliceSpatial, seq) {
		s.mu.Unlock()
		return false
	}
	s.spatial = d
	fns := s.notifyLocked(SliceSpatial)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplyInequality(d *metrics.InequalityData, seq uint64) bool {
	s.mu.Lock()
	if !s.applyLocked(SliceInequality, seq) {
		s.mu.Unlock()
		return false
	}
	s.inequality = d
	fns := s.notifyLocked(SliceInequality)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplyCultural(d *metrics.CulturalData, seq uint64) bool {
	s.mu.Lock()
	if !s.applyLocked(SliceCultural, seq) {
		s.mu.Unlock()
		return false
	}
	s.cultural = d
	fns := s.notifyLocked(SliceCultural)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplyTimeSeries(d *metrics.TimeSeriesData, seq uint64) bool {
	s.mu.Lock()
	if !s.applyLocked(SliceTimeSeries, seq) {
		s.mu.Unlock()
		return false
	}
	s.timeseries = d
	fns := s.notifyLocked(SliceTimeSeries)
	s.mu.Unlock()
	run(fns)
	return true
}

// snapshotLocked guards a REST snapshot stamped with the domain seq observed
// at fetch start: it is rejected once any sequenced patch advanced the slot
// past the stamp, a stamp of 0 included. This is stricter than the seq-0
// last-write-wins that realtime patches from unsequenced producers get.
func (s *Store) snapshotLocked(slice Slice, stamp uint64) bool {
	return s.seq[slice] <= stamp
}

// ApplyNetworkSnapshot replaces the network slot with a REST snapshot unless
// a fresher sequenced patch landed while the fetch was in flight.
func (s *Store) ApplyNetworkSnapshot(d *metrics.NetworkData, stamp uint64) bool {
	s.mu.Lock()
	if !s.snapshotLocked(SliceNetwork, stamp) {
		s.mu.Unlock()
		return false
	}
	s.network = d
	fns := s.notifyLocked(SliceNetwork)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplyTimelineSnapshot(d *metrics.TimelineData, stamp uint64) bool {
	s.mu.Lock()
	if !s.snapshotLocked(SliceTimeline, stamp) {
		s.mu.Unlock()
		return false
	}
	s.timeline = d
	fns := s.notifyLocked(SliceTimeline)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplySpatialSnapshot(d *metrics.SpatialData, stamp uint64) bool {
	s.mu.Lock()
	if !s.snapshotLocked(SliceSpatial, stamp) {
		s.mu.Unlock()
		return false
	}
	s.spatial = d
	fns := s.notifyLocked(SliceSpatial)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplyInequalitySnapshot(d *metrics.InequalityData, stamp uint64) bool {
	s.mu.Lock()
	if !s.snapshotLocked(SliceInequality, stamp) {
		s.mu.Unlock()
		return false
	}
	s.inequality = d
	fns := s.notifyLocked(SliceInequality)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplyCulturalSnapshot(d *metrics.CulturalData, stamp uint64) bool {
	s.mu.Lock()
	if !s.snapshotLocked(SliceCultural, stamp) {
		s.mu.Unlock()
		return false
	}
	s.cultural = d
	fns := s.notifyLocked(SliceCultural)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) ApplyTimeSeriesSnapshot(d *metrics.TimeSeriesData, stamp uint64) bool {
	s.mu.Lock()
	if !s.snapshotLocked(SliceTimeSeries, stamp) {
		s.mu.Unlock()
		return false
	}
	s.timeseries = d
	fns := s.notifyLocked(SliceTimeSeries)
	s.mu.Unlock()
	run(fns)
	return true
}

func (s *Store) Network() *metrics.NetworkData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

func (s *Store) Timeline() *metrics.TimelineData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline
}

func (s *Store) Spatial() *metrics.SpatialData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spatial
}

func (s *Store) Inequality() *metrics.InequalityData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inequality
}

func (s *Store) Cultural() *metrics.CulturalData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cultural
}

func (s *Store) TimeSeries() *metrics.TimeSeriesData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeseries
}

func (s *Store) SetConnected(v bool) {
	s.mu.Lock()
	if s.connected == v {
		s.mu.Unlock()
		return
	}
	s.connected = v
	fns := s.notifyLocked(SliceConnected)
	s.mu.Unlock()
	run(fns)
}

func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	if s.loading == v {
		s.mu.Unlock()
		return
	}
	s.loading = v
	fns := s.notifyLocked(SliceLoading)
	s.mu.Unlock()
	run(fns)
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.err = err
	fns := s.notifyLocked(SliceError)
	s.mu.Unlock()
	run(fns)
}

func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) SetSelectedAgent(d *metrics.AgentDetails) {
	s.mu.Lock()
	s.selected = d
	fns := s.notifyLocked(SliceSelectedAgent)
	s.mu.Unlock()
	run(fns)
}

func (s *Store) SelectedAgent() *metrics.AgentDetails {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Reset clears every slot and sequence counter. Subscriptions survive; every
// slice is notified.
func (s *Store) Reset() {
	s.mu.Lock()
	s.network = nil
	s.timeline = nil
	s.spatial = nil
	s.inequality = nil
	s.cultural = nil
	s.timeseries = nil
	s.seq = make(map[Slice]uint64)
	s.connected = false
	s.loading = false
	s.err = nil
	s.selected = nil
	var fns []func()
	for slice := range s.subs {
		fns = append(fns, s.notifyLocked(slice)...)
	}
	s.mu.Unlock()
	run(fns)
}
