package store

import (
	"errors"
	"testing"

	"simscope.ai/internal/metrics"
)

func TestSubscribe_SliceGranularity(t *testing.T) {
	s := New()
	var timelineFires, networkFires int
	unsubT := s.Subscribe(SliceTimeline, func() { timelineFires++ })
	defer unsubT()
	unsubN := s.Subscribe(SliceNetwork, func() { networkFires++ })
	defer unsubN()

	s.ApplyNetwork(&metrics.NetworkData{}, 0)
	if timelineFires != 0 {
		t.Fatalf("timeline subscriber woken by a network write")
	}
	if networkFires != 1 {
		t.Fatalf("network subscriber fires: got %d want 1", networkFires)
	}

	s.ApplyTimeline(&metrics.TimelineData{}, 0)
	if timelineFires != 1 {
		t.Fatalf("timeline subscriber fires: got %d want 1", timelineFires)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := New()
	fires := 0
	unsub := s.Subscribe(SliceError, func() { fires++ })
	s.SetError(errors.New("x"))
	unsub()
	s.SetError(nil)
	if fires != 1 {
		t.Fatalf("fires: got %d want 1", fires)
	}
}

func TestApply_SequenceGuard(t *testing.T) {
	s := New()

	// Unsequenced writes always win.
	if !s.ApplyNetwork(&metrics.NetworkData{}, 0) {
		t.Fatalf("unsequenced write rejected")
	}

	// Sequenced patch lands.
	fresh := &metrics.NetworkData{Nodes: metrics.Ok([]metrics.NetworkNode{{ID: "new"}})}
	if !s.ApplyNetwork(fresh, 5) {
		t.Fatalf("sequenced write rejected")
	}
	if s.Seq(SliceNetwork) != 5 {
		t.Fatalf("seq: got %d want 5", s.Seq(SliceNetwork))
	}

	// A stale REST snapshot stamped with an older seq must not clobber it.
	stale := &metrics.NetworkData{Nodes: metrics.Ok([]metrics.NetworkNode{{ID: "old"}})}
	if s.ApplyNetwork(stale, 3) {
		t.Fatalf("stale sequenced write applied")
	}
	if got := s.Network(); got != fresh {
		t.Fatalf("slot holds stale data")
	}

	// Equal seq re-applies (same generation, freshest wins).
	if !s.ApplyNetwork(stale, 5) {
		t.Fatalf("equal-seq write rejected")
	}
}

func TestApplySnapshot_RejectedOncePatchOutrunsStamp(t *testing.T) {
	s := New()

	// A snapshot fetch starts against an empty slot: stamp 0. While it is
	// in flight a sequenced realtime patch lands.
	fresh := &metrics.NetworkData{Nodes: metrics.Ok([]metrics.NetworkNode{{ID: "new"}})}
	if !s.ApplyNetwork(fresh, 5) {
		t.Fatalf("sequenced patch rejected")
	}

	// The slow snapshot response must not overwrite it, even though its
	// stamp of 0 would be last-write-wins on the realtime path.
	stale := &metrics.NetworkData{Nodes: metrics.Ok([]metrics.NetworkNode{{ID: "old"}})}
	if s.ApplyNetworkSnapshot(stale, 0) {
		t.Fatalf("stale snapshot applied over sequenced patch")
	}
	if got := s.Network(); got != fresh {
		t.Fatalf("slot holds stale snapshot")
	}

	// A snapshot stamped with the current seq still applies, and does not
	// disturb the sequence.
	if !s.ApplyNetworkSnapshot(stale, 5) {
		t.Fatalf("current-stamp snapshot rejected")
	}
	if s.Seq(SliceNetwork) != 5 {
		t.Fatalf("seq: got %d want 5", s.Seq(SliceNetwork))
	}

	// And the startup case: empty slot, stamp 0, nothing raced — applies.
	s2 := New()
	if !s2.ApplyTimelineSnapshot(&metrics.TimelineData{}, 0) {
		t.Fatalf("startup snapshot rejected")
	}
}

func TestApply_SequenceGuardIsPerDomain(t *testing.T) {
	s := New()
	s.ApplyNetwork(&metrics.NetworkData{}, 9)
	if !s.ApplyTimeline(&metrics.TimelineData{}, 2) {
		t.Fatalf("timeline write rejected by network's sequence")
	}
}

func TestFlags(t *testing.T) {
	s := New()
	var connFires int
	unsub := s.Subscribe(SliceConnected, func() { connFires++ })
	defer unsub()

	s.SetConnected(true)
	s.SetConnected(true) // unchanged, no wake
	s.SetConnected(false)
	if connFires != 2 {
		t.Fatalf("connected fires: got %d want 2", connFires)
	}

	s.SetLoading(true)
	if !s.Loading() {
		t.Fatalf("loading not set")
	}
	s.SetSelectedAgent(&metrics.AgentDetails{ID: "a1"})
	if s.SelectedAgent().ID != "a1" {
		t.Fatalf("selected agent not set")
	}
}

func TestReset(t *testing.T) {
	s := New()
	s.ApplyNetwork(&metrics.NetworkData{}, 7)
	s.SetConnected(true)
	s.SetSelectedAgent(&metrics.AgentDetails{ID: "a1"})

	s.Reset()
	if s.Network() != nil || s.Connected() || s.SelectedAgent() != nil {
		t.Fatalf("reset left state behind")
	}
	if s.Seq(SliceNetwork) != 0 {
		t.Fatalf("reset left sequence behind")
	}
}
