package models

import "time"

// MemoryEventErased 是记忆被清除后发布的事件类型。
const MemoryEventErased = "memory.erased"

// MemoryEvent 是发布到 Kafka 的记忆变更事件，供分析流水线停止或调整记忆写入。
type MemoryEvent struct {
	Type           string    `json:"type"`
	UserID         string    `json:"userId"`
	CoupleID       string    `json:"coupleId,omitempty"`
	Scope          string    `json:"scope"`
	ConsentRevoked bool      `json:"consentRevoked"`
	OccurredAt     time.Time `json:"occurredAt"`
}
