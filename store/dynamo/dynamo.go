package dynamo

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gofrs/uuid/v5"

	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/store"
)

type DynamoDrawStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoDrawStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoDrawStore, error) {
	client, err := newDynamoDBClient(ctx, devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	if err := checkTable(ctx, client, tableName); err != nil {
		return nil, err
	}

	return &DynamoDrawStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoDrawStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	userId, err := uuid.NewV4()
	if err != nil {
		return models.User{}, err
	}
	user.Id = userId.String()

	user.Created = time.Now().Unix()

	err = dynamoStore.putNew(ctx, userToDynamo(user))
	if errors.Is(err, store.ErrAlreadyExists) {
		existing, getErr := dynamoStore.GetUser(ctx, user.Provider, user.ProviderId)
		if getErr != nil {
			return models.User{}, getErr
		}
		return existing, store.ErrAlreadyExists
	}
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (dynamoStore *DynamoDrawStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	du, err := getItem[dynamoUser](dynamoStore, ctx, userPK(provider, providerId), "PROFILE")
	if err != nil {
		return models.User{}, err
	}

	return userFromDynamo(du), nil
}

func (dynamoStore *DynamoDrawStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	return dynamoStore.deleteExisting(ctx, userPK(provider, providerId), "PROFILE")
}

// CreateRoom takes the next id from the global room counter and writes the
// room together with its slug item, failing with ErrAlreadyExists when the
// slug is taken.
func (dynamoStore *DynamoDrawStore) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	roomId, err := dynamoStore.addToCounter(ctx, "COUNTER", "ROOM", "Value", 1, true)
	if err != nil {
		return models.Room{}, err
	}

	room.Id = roomId
	room.Created = time.Now().Unix()
	room.ShapeCount = 0

	slugItem := dynamoSlug{PK: slugPK(room.Slug), SK: "ROOM", RoomId: roomId}
	if err := dynamoStore.transactPutNew(ctx, slugItem, roomToDynamo(room)); err != nil {
		return models.Room{}, err
	}

	return room, nil
}

func (dynamoStore *DynamoDrawStore) GetRoom(ctx context.Context, roomId int64) (models.Room, error) {
	dr, err := getItem[dynamoRoom](dynamoStore, ctx, roomPK(roomId), "META")
	if err != nil {
		return models.Room{}, err
	}

	return roomFromDynamo(dr), nil
}

func (dynamoStore *DynamoDrawStore) GetRoomBySlug(ctx context.Context, slug string) (models.Room, error) {
	ds, err := getItem[dynamoSlug](dynamoStore, ctx, slugPK(slug), "ROOM")
	if err != nil {
		return models.Room{}, err
	}

	return dynamoStore.GetRoom(ctx, ds.RoomId)
}

func (dynamoStore *DynamoDrawStore) IncrementRoomShapeCount(ctx context.Context, roomId int64, count int) error {
	_, err := dynamoStore.addToCounter(ctx, roomPK(roomId), "META", "ShapeCount", int64(count), false)
	return err
}

// AppendChat draws the record id from the room's ChatSeq counter, so ids are
// strictly increasing per room and a missing room is ErrItemNotFound.
func (dynamoStore *DynamoDrawStore) AppendChat(ctx context.Context, record models.ChatRecord) (models.ChatRecord, error) {
	seq, err := dynamoStore.addToCounter(ctx, roomPK(record.RoomId), "META", "ChatSeq", 1, false)
	if err != nil {
		return models.ChatRecord{}, err
	}

	record.Id = seq
	record.Created = time.Now().UnixMilli()

	if err := dynamoStore.putNew(ctx, chatToDynamo(record)); err != nil {
		return models.ChatRecord{}, err
	}

	return record, nil
}

func (dynamoStore *DynamoDrawStore) GetRecentChats(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error) {
	if limit <= 0 {
		return []models.ChatRecord{}, nil
	}

	dynamoChats, err := queryPartition[dynamoChat](dynamoStore, ctx, chatPK(roomId), true, limit)
	if err != nil {
		return nil, err
	}

	records := make([]models.ChatRecord, 0, len(dynamoChats))
	for _, dc := range dynamoChats {
		records = append(records, chatFromDynamo(dc))
	}

	return records, nil
}

func (dynamoStore *DynamoDrawStore) GetUserRooms(ctx context.Context, userId string) ([]int64, error) {
	uniqueRooms := make(map[int64]struct{})
	err := dynamoStore.forEachIndexed(ctx, userChatsIndex, "UserId", userId, func(key map[string]types.AttributeValue) error {
		if pk, ok := key["PK"].(*types.AttributeValueMemberS); ok {
			if roomId, ok := roomIdFromChatPK(pk.Value); ok {
				uniqueRooms[roomId] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rooms := make([]int64, 0, len(uniqueRooms))
	for roomId := range uniqueRooms {
		rooms = append(rooms, roomId)
	}
	slices.Sort(rooms)

	return rooms, nil
}

func (dynamoStore *DynamoDrawStore) DeleteUserChats(ctx context.Context, userId string) error {
	var keys []map[string]types.AttributeValue
	err := dynamoStore.forEachIndexed(ctx, userChatsIndex, "UserId", userId, func(key map[string]types.AttributeValue) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return err
	}

	return dynamoStore.batchDelete(ctx, keys, 50*time.Millisecond)
}
