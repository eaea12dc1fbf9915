package deviceRepo

import (
	"context"
	"time"

	"homeserve/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository stores FCM tokens per user.
type DeviceRepository interface {
	UpsertToken(ctx context.Context, userID, token, platform string) error
	RemoveToken(ctx context.Context, userID, token string) error
	TokensForUser(ctx context.Context, userID string) ([]string, error)
}

type gormDeviceRepo struct {
	db *gorm.DB
}

func NewGormDeviceRepo(db *gorm.DB) DeviceRepository {
	return &gormDeviceRepo{db: db}
}

// UpsertToken registers token for userID, moving it if another user had it.
func (r *gormDeviceRepo) UpsertToken(ctx context.Context, userID, token, platform string) error {
	row := models.DeviceToken{UserID: userID, Token: token, Platform: platform, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(&row).Error
}

func (r *gormDeviceRepo) RemoveToken(ctx context.Context, userID, token string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.DeviceToken{}).Error
}

func (r *gormDeviceRepo) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&models.DeviceToken{}).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Pluck("token", &tokens).Error
	return tokens, err
}
