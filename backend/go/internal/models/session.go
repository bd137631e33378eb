package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionType 区分单人会话和双人会话。
type SessionType string

const (
	SessionSolo   SessionType = "solo"
	SessionCouple SessionType = "couple"
)

// SessionRecord 是一次已结束会话的分析结果。由分析流水线写入，之后不再修改。
// 只有 Analysis 非空的记录才会被聚合进上下文。
type SessionRecord struct {
	ID       string      `gorm:"primaryKey;size:36"`
	Type     SessionType `gorm:"type:varchar(16);not null"`
	UserID   string      `gorm:"size:36;not null;index"`
	CoupleID *string     `gorm:"size:36;index"` // 仅 couple 类型的会话有值

	Analysis *string                     `gorm:"type:text"`
	Themes   datatypes.JSONSlice[string] `gorm:"column:themes"`

	CreatedAt time.Time `gorm:"index"`
}

// IsCouple 判断是否为双人会话。
func (s SessionRecord) IsCouple() bool {
	return s.Type == SessionCouple
}

func (SessionRecord) TableName() string {
	return "sessions"
}
