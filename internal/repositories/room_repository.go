package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harshitk99/excali-new/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

type RoomRepository struct {
	DB *gorm.DB
}

func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.DB.WithContext(ctx).Create(room).Error
}

func (r *RoomRepository) GetByID(ctx context.Context, id models.RoomID) (*models.Room, error) {
	var room models.Room
	err := r.DB.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}
