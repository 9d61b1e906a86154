package types

import (
	"encoding/json"
	"time"
)

// Direction labels bridge traffic.
type Direction string

const (
	DirectionHostToView Direction = "host_to_view"
	DirectionViewToHost Direction = "view_to_host"
)

// Message is a single bridge envelope. The payload is the serialized form of
// the sender's value; it must round-trip through JSON and carries no schema
// beyond that. Seq is assigned per view per direction and delivery follows it.
type Message struct {
	ID         string          `json:"id"`
	ViewID     string          `json:"view_id"`
	Direction  Direction       `json:"direction"`
	Seq        uint64          `json:"seq"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// BridgeStats contains message bridge statistics. Latency quantiles cover
// host-to-view deliveries from enqueue to handoff.
type BridgeStats struct {
	Posted       uint64  `json:"posted"`
	Delivered    uint64  `json:"delivered"`
	Dropped      uint64  `json:"dropped"`
	Rejected     uint64  `json:"rejected"`
	Subscribers  int     `json:"subscribers"`
	LatencyP50Ms float64 `json:"latency_p50_ms"`
	LatencyP95Ms float64 `json:"latency_p95_ms"`
	LatencyP99Ms float64 `json:"latency_p99_ms"`
}

// WSFrame is the websocket envelope for both renderer and embedder streams.
type WSFrame struct {
	Type    string                 `json:"type"`
	ViewID  string                 `json:"view_id,omitempty"`
	Visible *bool                  `json:"visible,omitempty"`
	Column  *Column                `json:"column,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
