package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harshitk99/excali-new/internal/models"
)

var ErrDrawingNotFound = errors.New("drawing not found")

type DrawingRepository struct {
	DB *gorm.DB
}

func (r *DrawingRepository) Create(ctx context.Context, drawing *models.Drawing) error {
	return r.DB.WithContext(ctx).Create(drawing).Error
}

// GetByIDAndOwner only matches drawings authored by userID.
func (r *DrawingRepository) GetByIDAndOwner(ctx context.Context, id int64, userID string) (*models.Drawing, error) {
	var drawing models.Drawing
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&drawing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDrawingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &drawing, nil
}

func (r *DrawingRepository) ListByRoom(ctx context.Context, roomID models.RoomID) ([]models.Drawing, error) {
	drawings := []models.Drawing{}
	err := r.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&drawings).Error
	return drawings, err
}

func (r *DrawingRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.DB.WithContext(ctx).Delete(&models.Drawing{}, id).Error
}

// DeleteByRoom removes every drawing of a room and reports how many went away.
func (r *DrawingRepository) DeleteByRoom(ctx context.Context, roomID models.RoomID) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.Drawing{})
	return tx.RowsAffected, tx.Error
}
