package models

import (
	"time"

	"gorm.io/datatypes"
)

// User 代表一个用户账户中与记忆相关的部分。
type User struct {
	ID       string  `gorm:"primaryKey;size:36"`
	CoupleID *string `gorm:"size:36;index"` // 用户可以没有伴侣关系

	// MemoryConsent 控制今后是否允许写入记忆。只有完全清除（scope=all）会把它设为 false。
	MemoryConsent   bool                                `gorm:"not null;default:true"`
	PersonalContext datatypes.JSONType[PersonalContext] `gorm:"column:personal_context"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Couple 代表一对伴侣，SharedContext 由双方共同拥有。
type Couple struct {
	ID            string                            `gorm:"primaryKey;size:36"`
	SharedContext datatypes.JSONType[SharedContext] `gorm:"column:shared_context"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建一个带有空私人记忆并默认同意记忆写入的用户。
func NewUser(id string, coupleID *string) *User {
	return &User{
		ID:              id,
		CoupleID:        coupleID,
		MemoryConsent:   true,
		PersonalContext: datatypes.NewJSONType(EmptyPersonalContext()),
	}
}

// NewCouple 创建一个带有空共享记忆的伴侣记录。
func NewCouple(id string) *Couple {
	return &Couple{
		ID:            id,
		SharedContext: datatypes.NewJSONType(EmptySharedContext()),
	}
}

// --- 自定义表名 ---

func (User) TableName() string {
	return "users"
}

func (Couple) TableName() string {
	return "couples"
}
