package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_prep_backend/internal/util"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.users)

	result, err := svc.Register(RegisterInput{
		FirstName: "Anna",
		LastName:  "Smirnova",
		Email:     "anna@example.com",
		Password:  "supersecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEqual(t, "supersecret", result.User.Password)

	// Duplicate email rejected.
	_, err = svc.Register(RegisterInput{
		FirstName: "Anna",
		LastName:  "Smirnova",
		Email:     "anna@example.com",
		Password:  "supersecret",
	})
	assert.ErrorIs(t, err, util.ErrEmailTaken)

	login, err := svc.Login(LoginInput{Email: "anna@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	_, err = svc.Login(LoginInput{Email: "anna@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, err = svc.Login(LoginInput{Email: "nobody@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}
