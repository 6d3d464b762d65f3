package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, ComparePassword("hunter22", hash))
	assert.False(t, ComparePassword("wrong", hash))
	assert.False(t, ComparePassword("hunter22", "not-a-hash"))
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	identity := &Identity{UserID: "u1", Email: "ada@example.com", Name: "Ada"}

	token, err := tm.Issue(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", 0).Issue(&Identity{UserID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 0).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	_, err := tm.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = tm.Verify("")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenExpiry(t *testing.T) {
	tm := NewTokenManager("secret", -time.Minute)
	token, err := tm.Issue(&Identity{UserID: "u1"})
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccountSummaryExcludesCredentials(t *testing.T) {
	account := &Account{ID: "a1", Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	summary := account.Summary()
	assert.Equal(t, "a1", summary.UserID)
	assert.Equal(t, "ada@example.com", summary.Email)
	assert.Equal(t, "Ada", summary.Name)
}
