// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// AnalyticsTask is the wire form of an analytics event on the Kafka topic.
type AnalyticsTask struct {
	Email          string                 `json:"email"`
	Kind           string                 `json:"kind"`
	Sector         string                 `json:"sector"`
	ConversationID string                 `json:"conversation_id"`
	Meta           map[string]interface{} `json:"meta,omitempty"`
	EmittedAt      time.Time              `json:"emitted_at"`
}
