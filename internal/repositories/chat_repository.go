package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/harshitk99/excali-new/internal/models"
)

const defaultHistoryLimit = 50

type ChatRepository struct {
	DB *gorm.DB
}

func (r *ChatRepository) Create(ctx context.Context, chat *models.Chat) error {
	return r.DB.WithContext(ctx).Create(chat).Error
}

// Recent returns the newest chats of a room, newest first.
func (r *ChatRepository) Recent(ctx context.Context, roomID models.RoomID, limit int) ([]models.Chat, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	chats := []models.Chat{}
	err := r.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&chats).Error
	return chats, err
}
