package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"term-chatroom/errors"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("correct horse battery staple")
	req.NoError(err)
	req.Contains(hash, "$argon2id$")

	match, err := ComparePassword("correct horse battery staple", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(match)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("same password")
	req.NoError(err)
	second, err := HashPassword("same password")
	req.NoError(err)

	// Random salts must produce distinct encodings
	req.NotEqual(first, second)
}

func TestComparePassword_RejectsGarbageHash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "not-a-valid-hash")
	req.Error(err)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret", time.Hour)

	token, err := manager.Generate("uuid-123", "alice", []string{"user"})
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := manager.Validate(token)
	req.NoError(err)
	req.Equal("uuid-123", claims.UserID)
	req.Equal("alice", claims.Username)
	req.Equal("term-chatroom", claims.Issuer)
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	req := require.New(t)

	token, err := NewTokenManager("secret-a", time.Hour).Generate("id", "alice", nil)
	req.NoError(err)

	_, err = NewTokenManager("secret-b", time.Hour).Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("secret", -time.Minute)

	token, err := manager.Generate("id", "alice", nil)
	req.NoError(err)

	_, err = manager.Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid pair", username: "alice42", password: "longenough", wantErr: nil},
		{name: "username too short", username: "al", password: "longenough", wantErr: errors.ErrInvalidUsername},
		{name: "username not alphanumeric", username: "alice bob", password: "longenough", wantErr: errors.ErrInvalidUsername},
		{name: "password too short", username: "alice42", password: "short", wantErr: errors.ErrInvalidPassword},
		{name: "missing password", username: "alice42", password: "", wantErr: errors.ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(RegisterRequest{Username: tt.username, Password: tt.password})
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
