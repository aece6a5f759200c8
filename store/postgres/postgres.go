package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/store"
)

type PostgresDrawStore struct {
	db *gorm.DB
}

func NewPostgresDrawStore(dsn string) (*PostgresDrawStore, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.AutoMigrate(&userRow{}, &roomRow{}, &chatRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}

	return &PostgresDrawStore{db: db}, nil
}

func (pgStore *PostgresDrawStore) Close() error {
	sqlDB, err := pgStore.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser inserts the user unless the provider identity is already taken,
// in which case the existing user is returned together with ErrAlreadyExists.
func (pgStore *PostgresDrawStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	userId, err := uuid.NewV4()
	if err != nil {
		return models.User{}, err
	}
	user.Id = userId.String()
	user.Created = time.Now().Unix()

	var row userRow
	res := pgStore.db.WithContext(ctx).
		Where(&userRow{Provider: user.Provider, ProviderId: user.ProviderId}).
		Attrs(userToRow(user)).
		FirstOrCreate(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			existing, err := pgStore.GetUser(ctx, user.Provider, user.ProviderId)
			if err != nil {
				return models.User{}, err
			}
			return existing, store.ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("create user failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return userFromRow(row), store.ErrAlreadyExists
	}

	return userFromRow(row), nil
}

func (pgStore *PostgresDrawStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	var row userRow
	err := pgStore.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerId).
		First(&row).Error
	if err != nil {
		return models.User{}, translateError(err)
	}
	return userFromRow(row), nil
}

func (pgStore *PostgresDrawStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	res := pgStore.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerId).
		Delete(&userRow{})
	if res.Error != nil {
		return fmt.Errorf("delete user failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

func (pgStore *PostgresDrawStore) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	row := roomToRow(room)
	row.Id = 0
	row.Created = time.Now().Unix()
	if err := pgStore.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Room{}, translateError(err)
	}
	return roomFromRow(row), nil
}

func (pgStore *PostgresDrawStore) GetRoom(ctx context.Context, roomId int64) (models.Room, error) {
	var row roomRow
	if err := pgStore.db.WithContext(ctx).First(&row, roomId).Error; err != nil {
		return models.Room{}, translateError(err)
	}
	return roomFromRow(row), nil
}

func (pgStore *PostgresDrawStore) GetRoomBySlug(ctx context.Context, slug string) (models.Room, error) {
	var row roomRow
	if err := pgStore.db.WithContext(ctx).Where("slug = ?", slug).First(&row).Error; err != nil {
		return models.Room{}, translateError(err)
	}
	return roomFromRow(row), nil
}

func (pgStore *PostgresDrawStore) IncrementRoomShapeCount(ctx context.Context, roomId int64, count int) error {
	res := pgStore.db.WithContext(ctx).
		Model(&roomRow{}).
		Where("id = ?", roomId).
		UpdateColumn("shape_count", gorm.Expr("shape_count + ?", count))
	if res.Error != nil {
		return fmt.Errorf("increment counter failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

func (pgStore *PostgresDrawStore) AppendChat(ctx context.Context, record models.ChatRecord) (models.ChatRecord, error) {
	row := chatRow{
		RoomId:  record.RoomId,
		Message: record.Message,
		UserId:  record.UserId,
		Created: time.Now().UnixMilli(),
	}
	if err := pgStore.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.ChatRecord{}, fmt.Errorf("append chat failed: %w", err)
	}
	return chatFromRow(row), nil
}

func (pgStore *PostgresDrawStore) GetRecentChats(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error) {
	var rows []chatRow
	err := pgStore.db.WithContext(ctx).
		Where("room_id = ?", roomId).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query chats failed: %w", err)
	}

	records := make([]models.ChatRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, chatFromRow(row))
	}
	return records, nil
}

func (pgStore *PostgresDrawStore) GetUserRooms(ctx context.Context, userId string) ([]int64, error) {
	var roomIds []int64
	err := pgStore.db.WithContext(ctx).
		Model(&chatRow{}).
		Where("user_id = ?", userId).
		Distinct().
		Pluck("room_id", &roomIds).Error
	if err != nil {
		return nil, fmt.Errorf("query user rooms failed: %w", err)
	}
	return roomIds, nil
}

func (pgStore *PostgresDrawStore) DeleteUserChats(ctx context.Context, userId string) error {
	if err := pgStore.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&chatRow{}).Error; err != nil {
		return fmt.Errorf("delete user chats failed: %w", err)
	}
	return nil
}

func translateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrItemNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrAlreadyExists
	default:
		return err
	}
}
