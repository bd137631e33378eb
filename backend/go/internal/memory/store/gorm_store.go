package store

import (
	"context"
	"errors"
	"fmt"

	"couplecoach/backend/go/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	DB *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// ListUserSessions 查询用户的全部已分析会话，按创建时间倒序。
func (s *GormStore) ListUserSessions(ctx context.Context, userID string) ([]models.SessionRecord, error) {
	var sessions []models.SessionRecord
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND analysis IS NOT NULL", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	return sessions, nil
}

// ListCoupleSessions 查询伴侣关系的双人已分析会话，按创建时间倒序。
func (s *GormStore) ListCoupleSessions(ctx context.Context, coupleID string) ([]models.SessionRecord, error) {
	var sessions []models.SessionRecord
	err := s.DB.WithContext(ctx).
		Where("couple_id = ? AND type = ? AND analysis IS NOT NULL", coupleID, models.SessionCouple).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list couple sessions: %w", err)
	}
	return sessions, nil
}

// GetCoupleID 查询用户所属的伴侣关系。
func (s *GormStore) GetCoupleID(ctx context.Context, userID string) (string, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Select("id", "couple_id").
		Where("id = ?", userID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get couple id: %w", err)
	}
	if user.CoupleID == nil {
		return "", nil
	}
	return *user.CoupleID, nil
}

// ResetPersonalContext 把用户的私人记忆重置为空默认值。
func (s *GormStore) ResetPersonalContext(ctx context.Context, userID string) error {
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("personal_context", datatypes.NewJSONType(models.EmptyPersonalContext())).Error
	if err != nil {
		return fmt.Errorf("reset personal context: %w", err)
	}
	return nil
}

// ResetSharedContext 把伴侣的共享记忆重置为空默认值，对双方同时生效。
func (s *GormStore) ResetSharedContext(ctx context.Context, coupleID string) error {
	err := s.DB.WithContext(ctx).
		Model(&models.Couple{}).
		Where("id = ?", coupleID).
		Update("shared_context", datatypes.NewJSONType(models.EmptySharedContext())).Error
	if err != nil {
		return fmt.Errorf("reset shared context: %w", err)
	}
	return nil
}

// RevokeConsent 撤销用户的记忆写入同意。
func (s *GormStore) RevokeConsent(ctx context.Context, userID string) error {
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("memory_consent", false).Error
	if err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	return nil
}
