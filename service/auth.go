package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/zlnvch/sketchroom/cache"
	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/mq"
	"github.com/zlnvch/sketchroom/store"
)

var (
	ErrInvalidInput       = errors.New("incorrect inputs")
	ErrUserExists         = errors.New("user already exists with this username")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

const (
	tokenLifetime = 24 * time.Hour

	minUsernameLength = 3
	maxUsernameLength = 254
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72
	maxNameLength     = 64
)

var bcryptCost = bcrypt.DefaultCost

func (s *Service) CreateJWT(id string, provider string, providerId string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":         id,
		"provider":   provider,
		"providerId": providerId,
		"exp":        now.Add(tokenLifetime).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return "", err
	}

	return signedToken, nil
}

func (s *Service) VerifyJWT(tokenString string) (string, string, string, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", "", time.Time{}, err
	}

	if !token.Valid {
		return "", "", "", time.Time{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", "", time.Time{}, errors.New("invalid token claims")
	}

	id, ok := claims["id"].(string)
	if !ok {
		return "", "", "", time.Time{}, errors.New("missing id claim")
	}

	provider, ok := claims["provider"].(string)
	if !ok {
		return "", "", "", time.Time{}, errors.New("missing provider claim")
	}

	providerId, ok := claims["providerId"].(string)
	if !ok {
		return "", "", "", time.Time{}, errors.New("missing providerId claim")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", "", "", time.Time{}, errors.New("missing exp claim")
	}

	return id, provider, providerId, exp.Time, nil
}

// AuthenticateToken maps a bearer token to the account it was issued for.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (models.User, error) {
	if len(token) == 0 {
		return models.User{}, errors.New("token not provided")
	}

	id, provider, providerId, _, err := s.VerifyJWT(token)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.Store.GetUser(ctx, provider, providerId)
	if err != nil {
		return models.User{}, err
	}

	// A recreated account reuses the provider identity but gets a new id
	if user.Id != id {
		return models.User{}, errors.New("token issued for a deleted account")
	}

	return user, nil
}

type SignupParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func validateSignup(params SignupParams) error {
	username := strings.TrimSpace(params.Username)
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return fmt.Errorf("%w: username must be %d to %d characters", ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	if len(params.Password) < minPasswordLength || len(params.Password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	if len(params.Name) > maxNameLength {
		return fmt.Errorf("%w: name too long", ErrInvalidInput)
	}
	return nil
}

// Signup creates a password account keyed by username and returns a token.
func (s *Service) Signup(ctx context.Context, params SignupParams) (models.User, string, error) {
	if err := validateSignup(params); err != nil {
		return models.User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcryptCost)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	username := strings.TrimSpace(params.Username)
	user, err := s.Store.CreateUser(ctx, models.User{
		Username:     username,
		Name:         strings.TrimSpace(params.Name),
		Provider:     models.ProviderPassword,
		ProviderId:   username,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return models.User{}, "", ErrUserExists
		}
		return models.User{}, "", fmt.Errorf("create user failed: %w", err)
	}

	token, err := s.CreateJWT(user.Id, user.Provider, user.ProviderId)
	if err != nil {
		return models.User{}, "", fmt.Errorf("token generation failed: %w", err)
	}

	return user, token, nil
}

func (s *Service) Signin(ctx context.Context, username string, password string) (models.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, "", ErrInvalidInput
	}

	user, err := s.Store.GetUser(ctx, models.ProviderPassword, username)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.CreateJWT(user.Id, user.Provider, user.ProviderId)
	if err != nil {
		return models.User{}, "", fmt.Errorf("token generation failed: %w", err)
	}

	return user, token, nil
}

type UserDeletedMessage struct {
	UserId string `json:"userId"`
}

// DeleteUser removes the profile synchronously. Closing the user's live
// connections and purging their shapes happen in the background.
func (s *Service) DeleteUser(ctx context.Context, user models.User) error {
	if err := s.Store.DeleteUser(ctx, user.Provider, user.ProviderId); err != nil {
		return err
	}

	go func() {
		userDeletedMsg := UserDeletedMessage{UserId: user.Id}
		if userDeletedMsgBytes, err := json.Marshal(userDeletedMsg); err == nil {
			if err := s.Cache.Publish(context.Background(), cache.UserDeletedChannel, userDeletedMsgBytes); err != nil {
				log.Printf("Failed to publish user deletion for %s: %v", user.Id, err)
			}
		}

		if s.MQ == nil {
			return
		}
		body, err := mq.EncodeDeleteUserChats(mq.DeleteUserChatsMessage{
			UserId:         user.Id,
			UserProvider:   user.Provider,
			UserProviderId: user.ProviderId,
		})
		if err != nil {
			log.Printf("Failed to encode chat purge for %s: %v", user.Id, err)
			return
		}
		if err := s.MQ.Send(context.Background(), body); err != nil {
			log.Printf("Failed to enqueue chat purge for %s: %v", user.Id, err)
		}
	}()

	return nil
}
