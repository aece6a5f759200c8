package wsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zlnvch/sketchroom/models"
)

// API is a client for the REST endpoints. It implements draw.HistoryFetcher.
type API struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewAPI(baseURL string, token string) *API {
	return &API{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// StatusError is returned for any non 200 response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (a *API) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var msg struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(raw))
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Signin exchanges credentials for a token and keeps it for later calls.
func (a *API) Signin(ctx context.Context, username string, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := a.do(ctx, http.MethodPost, "/signin", body, &resp); err != nil {
		return "", err
	}
	a.Token = resp.Token
	return resp.Token, nil
}

func (a *API) CreateRoom(ctx context.Context, name string) (models.Room, error) {
	var resp struct {
		RoomId string      `json:"roomId"`
		Room   models.Room `json:"room"`
	}
	if err := a.do(ctx, http.MethodPost, "/room", map[string]string{"name": name}, &resp); err != nil {
		return models.Room{}, err
	}
	return resp.Room, nil
}

func (a *API) Room(ctx context.Context, slug string) (models.Room, error) {
	var resp struct {
		Room models.Room `json:"room"`
	}
	if err := a.do(ctx, http.MethodGet, "/room/"+url.PathEscape(slug), nil, &resp); err != nil {
		return models.Room{}, err
	}
	return resp.Room, nil
}

// FetchHistory returns up to limit records of roomId, newest first.
func (a *API) FetchHistory(ctx context.Context, roomId string, limit int) ([]models.ChatRecord, error) {
	path := "/chats/" + url.PathEscape(roomId)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp struct {
		Messages []models.ChatRecord `json:"messages"`
	}
	if err := a.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// WebSocketURL derives the realtime endpoint from the REST base url.
func (a *API) WebSocketURL() (string, error) {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
