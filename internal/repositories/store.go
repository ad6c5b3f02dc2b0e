package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/harshitk99/excali-new/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultSQLiteDSN = "file:whiteboard.db?_busy_timeout=5000"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

var dialectors = map[string]func(dsn string) gorm.Dialector{
	DriverSQLite:   sqlite.Open,
	DriverPostgres: postgres.Open,
}

// Open connects to the database and migrates the room, chat and drawing tables.
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, ok := dialectors[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
	db, err := gorm.Open(dialector(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		if err := limitSQLiteConns(db); err != nil {
			return nil, err
		}
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// limitSQLiteConns pins the pool to one connection. SQLite admits a single
// writer, and concurrent pool connections fail with "database table is
// locked" instead of waiting.
func limitSQLiteConns(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// Store is the durable side of the collaboration core: chats, drawings and
// the room admin lookup.
type Store struct {
	Chats    *ChatRepository
	Drawings *DrawingRepository
	Rooms    *RoomRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		Chats:    &ChatRepository{DB: db},
		Drawings: &DrawingRepository{DB: db},
		Rooms:    &RoomRepository{DB: db},
	}
}

func (s *Store) CreateChat(ctx context.Context, roomID models.RoomID, userID, userName, message string) (*models.Chat, error) {
	chat := &models.Chat{
		RoomID:   roomID,
		UserID:   userID,
		UserName: userName,
		Message:  message,
	}
	if err := s.Chats.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

func (s *Store) CreateDrawing(ctx context.Context, drawing *models.Drawing) (*models.Drawing, error) {
	if drawing.Points == nil {
		drawing.Points = []float64{}
	}
	if err := s.Drawings.Create(ctx, drawing); err != nil {
		return nil, fmt.Errorf("create drawing: %w", err)
	}
	return drawing, nil
}

// FindDrawingByIDAndOwner returns nil without error when the drawing does
// not exist or belongs to someone else.
func (s *Store) FindDrawingByIDAndOwner(ctx context.Context, id int64, userID string) (*models.Drawing, error) {
	drawing, err := s.Drawings.GetByIDAndOwner(ctx, id, userID)
	if errors.Is(err, ErrDrawingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find drawing: %w", err)
	}
	return drawing, nil
}

func (s *Store) DeleteDrawing(ctx context.Context, id int64) error {
	if err := s.Drawings.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete drawing: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllDrawingsInRoom(ctx context.Context, roomID models.RoomID) (int64, error) {
	n, err := s.Drawings.DeleteByRoom(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("clear room drawings: %w", err)
	}
	return n, nil
}

// FindRoomAdmin reports the admin user id of a room; found is false when the
// room does not exist.
func (s *Store) FindRoomAdmin(ctx context.Context, roomID models.RoomID) (string, bool, error) {
	room, err := s.Rooms.GetByID(ctx, roomID)
	if errors.Is(err, ErrRoomNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find room admin: %w", err)
	}
	return room.AdminID, true, nil
}

func (s *Store) ListDrawings(ctx context.Context, roomID models.RoomID) ([]models.Drawing, error) {
	return s.Drawings.ListByRoom(ctx, roomID)
}

func (s *Store) RecentChats(ctx context.Context, roomID models.RoomID, limit int) ([]models.Chat, error) {
	return s.Chats.Recent(ctx, roomID, limit)
}
