package models

type User struct {
	Id           string
	Username     string
	Name         string
	Provider     string
	ProviderId   string
	PasswordHash string
	Created      int64
}

// ProviderPassword marks accounts created through signup, their ProviderId is
// the email address.
const ProviderPassword = "password"

type Room struct {
	Id         int64  `json:"id"`
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	AdminId    string `json:"adminId"`
	Created    int64  `json:"created"`
	ShapeCount int64  `json:"shapeCount"`
}

// ChatRecord is one persisted shape event. Message holds the chat payload as
// sent by the client, a JSON object of the form {"shape": ...}.
type ChatRecord struct {
	Id      int64  `json:"id"`
	RoomId  int64  `json:"roomId"`
	Message string `json:"message"`
	UserId  string `json:"userId"`
	Created int64  `json:"created"`
}
