package dynamo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zlnvch/sketchroom/models"
)

const (
	userPrefix = "USER#"
	roomPrefix = "ROOM#"
	slugPrefix = "SLUG#"
	chatPrefix = "CHAT#"

	userChatsIndex = "GSI_UserChats"
)

func userPK(provider string, providerId string) string {
	return userPrefix + provider + "#" + providerId
}

func roomPK(roomId int64) string {
	return roomPrefix + strconv.FormatInt(roomId, 10)
}

func slugPK(slug string) string {
	return slugPrefix + slug
}

func chatPK(roomId int64) string {
	return chatPrefix + strconv.FormatInt(roomId, 10)
}

// chatSK zero-pads the sequence so lexical SK order matches insertion order.
func chatSK(seq int64) string {
	return fmt.Sprintf("%020d", seq)
}

// roomIdFromChatPK parses CHAT#<roomId>.
func roomIdFromChatPK(pk string) (int64, bool) {
	idPart, found := strings.CutPrefix(pk, chatPrefix)
	if !found {
		return 0, false
	}
	roomId, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return roomId, true
}

type dynamoUser struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Id           string `dynamodbav:"Id"`
	Provider     string `dynamodbav:"Provider"`
	ProviderId   string `dynamodbav:"ProviderId"`
	Username     string `dynamodbav:"Username"`
	Name         string `dynamodbav:"Name"`
	PasswordHash string `dynamodbav:"PasswordHash,omitempty"`
	Created      int64  `dynamodbav:"Created"`
}

// Map domain User -> Dynamo
func userToDynamo(u models.User) dynamoUser {
	return dynamoUser{
		PK:           userPK(u.Provider, u.ProviderId),
		SK:           "PROFILE",
		Id:           u.Id,
		Provider:     u.Provider,
		ProviderId:   u.ProviderId,
		Username:     u.Username,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Created:      u.Created,
	}
}

// Map Dynamo -> domain User
func userFromDynamo(du dynamoUser) models.User {
	return models.User{
		Id:           du.Id,
		Username:     du.Username,
		Name:         du.Name,
		Provider:     du.Provider,
		ProviderId:   du.ProviderId,
		PasswordHash: du.PasswordHash,
		Created:      du.Created,
	}
}

type dynamoRoom struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Id         int64  `dynamodbav:"Id"`
	Slug       string `dynamodbav:"Slug"`
	Name       string `dynamodbav:"Name"`
	AdminId    string `dynamodbav:"AdminId"`
	Created    int64  `dynamodbav:"Created"`
	ShapeCount int64  `dynamodbav:"ShapeCount"`
	ChatSeq    int64  `dynamodbav:"ChatSeq"`
}

func roomToDynamo(r models.Room) dynamoRoom {
	return dynamoRoom{
		PK:         roomPK(r.Id),
		SK:         "META",
		Id:         r.Id,
		Slug:       r.Slug,
		Name:       r.Name,
		AdminId:    r.AdminId,
		Created:    r.Created,
		ShapeCount: r.ShapeCount,
	}
}

func roomFromDynamo(dr dynamoRoom) models.Room {
	return models.Room{
		Id:         dr.Id,
		Slug:       dr.Slug,
		Name:       dr.Name,
		AdminId:    dr.AdminId,
		Created:    dr.Created,
		ShapeCount: dr.ShapeCount,
	}
}

// dynamoSlug maps a room slug to its numeric id.
type dynamoSlug struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	RoomId int64  `dynamodbav:"RoomId"`
}

type dynamoChat struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	Id      int64  `dynamodbav:"Id"`
	RoomId  int64  `dynamodbav:"RoomId"`
	UserId  string `dynamodbav:"UserId"`
	Message string `dynamodbav:"Message"`
	Created int64  `dynamodbav:"Created"`
}

// Map domain ChatRecord -> Dynamo
func chatToDynamo(c models.ChatRecord) dynamoChat {
	return dynamoChat{
		PK:      chatPK(c.RoomId),
		SK:      chatSK(c.Id),
		Id:      c.Id,
		RoomId:  c.RoomId,
		UserId:  c.UserId,
		Message: c.Message,
		Created: c.Created,
	}
}

// Map Dynamo -> domain ChatRecord
func chatFromDynamo(dc dynamoChat) models.ChatRecord {
	return models.ChatRecord{
		Id:      dc.Id,
		RoomId:  dc.RoomId,
		Message: dc.Message,
		UserId:  dc.UserId,
		Created: dc.Created,
	}
}
