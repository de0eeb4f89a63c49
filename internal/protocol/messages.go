package protocol

import "encoding/json"

// METRICS_UPDATE (producer -> client)
//
// Data carries any subset of domain keys; an absent key means "no change to
// that domain in this message", never "clear that domain". Seq is an optional
// monotonic sequence number; 0 means the producer does not sequence updates
// and consumers fall back to last-write-wins.
type MetricsUpdateMsg struct {
	Type    string                     `json:"type"`
	Version string                     `json:"version,omitempty"`
	Seq     uint64                     `json:"seq,omitempty"`
	Data    map[string]json.RawMessage `json:"data"`
}

func DecodeMetricsUpdate(b []byte) (MetricsUpdateMsg, error) {
	var m MetricsUpdateMsg
	err := json.Unmarshal(b, &m)
	return m, err
}
