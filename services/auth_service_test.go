package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"term-chatroom/auth"
	"term-chatroom/errors"
	"term-chatroom/mocks"
	"term-chatroom/repositories"
)

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret", 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, newTokenManager())

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		username := "alice42"
		password := "longenoughpass"
		expectedUserID := "user-uuid"

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser(username, gomock.Not(password)).
			Return(expectedUserID, nil).
			Times(1)

		token, err := svc.Register(username, password)

		req.NoError(err)
		req.NotEmpty(token)
	})

	t.Run("should fail when password is too short", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		token, err := svc.Register("alice42", "short")

		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when username is not alphanumeric", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register("alice bob", "longenoughpass")

		req.ErrorIs(err, errors.ErrInvalidUsername)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			CreateUser("duplicate1", gomock.Any()).
			Return("", errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register("duplicate1", "longenoughpass")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := newTokenManager()
	svc := NewAuthService(mockRepo, tokens)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		username := "alice42"
		password := "Secret123456"

		hashedPassword, err := auth.HashPassword(password)
		req.NoError(err)
		storedUser := repositories.User{
			ID:           "uuid-123",
			Username:     username,
			PasswordHash: hashedPassword,
			Roles:        []string{"user"},
		}

		mockRepo.EXPECT().
			GetUserByUsername(username).
			Return(storedUser, nil).
			Times(1)

		token, err := svc.Login(username, password)

		req.NoError(err)
		req.NotEmpty(token)

		// The token carries the chat identity
		claims, err := tokens.Validate(string(token))
		req.NoError(err)
		req.Equal(username, claims.Username)
	})

	t.Run("should fail with a generic error when the user is unknown", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			GetUserByUsername("ghost").
			Return(repositories.User{}, errors.ErrInvalidCredentials).
			Times(1)

		_, err := svc.Login("ghost", "whatever123")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should fail when the password does not match", func(t *testing.T) {
		req := require.New(t)

		hashedPassword, err := auth.HashPassword("the-real-password")
		req.NoError(err)

		mockRepo.EXPECT().
			GetUserByUsername("alice42").
			Return(repositories.User{ID: "uuid-123", Username: "alice42", PasswordHash: hashedPassword}, nil).
			Times(1)

		_, err = svc.Login("alice42", "the-wrong-password")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
