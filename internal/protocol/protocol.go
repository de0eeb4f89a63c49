// Package protocol defines the realtime wire envelope shared by the feed
// client, the recorder and the development producer.
package protocol

import "encoding/json"

// Version is advertised by producers in the envelope. Consumers ignore it
// today; it exists so a future incompatible envelope can be detected.
const Version = "1.0"

// Message types.
const (
	TypeMetricsUpdate = "metrics_update"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
