package postgres

import "github.com/zlnvch/sketchroom/models"

type userRow struct {
	Id           string `gorm:"primaryKey;size:36"`
	Provider     string `gorm:"not null;uniqueIndex:idx_user_identity;size:32"`
	ProviderId   string `gorm:"not null;uniqueIndex:idx_user_identity;size:255"`
	Username     string `gorm:"not null"`
	Name         string
	PasswordHash string
	Created      int64 `gorm:"not null"`
}

func (userRow) TableName() string {
	return "users"
}

type roomRow struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	Slug       string `gorm:"not null;uniqueIndex;size:64"`
	Name       string
	AdminId    string `gorm:"not null;index;size:36"`
	Created    int64  `gorm:"not null"`
	ShapeCount int64  `gorm:"not null;default:0"`
}

func (roomRow) TableName() string {
	return "rooms"
}

type chatRow struct {
	Id      int64  `gorm:"primaryKey;autoIncrement"`
	RoomId  int64  `gorm:"not null;index:idx_chat_room_id,priority:1"`
	Message string `gorm:"type:text;not null"`
	UserId  string `gorm:"not null;index;size:36"`
	Created int64  `gorm:"not null"`
}

func (chatRow) TableName() string {
	return "chats"
}

func userToRow(u models.User) userRow {
	return userRow{
		Id:           u.Id,
		Provider:     u.Provider,
		ProviderId:   u.ProviderId,
		Username:     u.Username,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Created:      u.Created,
	}
}

func userFromRow(r userRow) models.User {
	return models.User{
		Id:           r.Id,
		Username:     r.Username,
		Name:         r.Name,
		Provider:     r.Provider,
		ProviderId:   r.ProviderId,
		PasswordHash: r.PasswordHash,
		Created:      r.Created,
	}
}

func roomToRow(r models.Room) roomRow {
	return roomRow{
		Id:         r.Id,
		Slug:       r.Slug,
		Name:       r.Name,
		AdminId:    r.AdminId,
		Created:    r.Created,
		ShapeCount: r.ShapeCount,
	}
}

func roomFromRow(r roomRow) models.Room {
	return models.Room{
		Id:         r.Id,
		Slug:       r.Slug,
		Name:       r.Name,
		AdminId:    r.AdminId,
		Created:    r.Created,
		ShapeCount: r.ShapeCount,
	}
}

func chatFromRow(r chatRow) models.ChatRecord {
	return models.ChatRecord{
		Id:      r.Id,
		RoomId:  r.RoomId,
		Message: r.Message,
		UserId:  r.UserId,
		Created: r.Created,
	}
}
