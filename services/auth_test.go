package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventmanager/models"
	"eventmanager/utils"
)

func signupInput(username string) SignupInput {
	return SignupInput{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "hunter22",
		FirstName: "Test",
		LastName:  "User",
	}
}

func TestSignup(t *testing.T) {
	f := newFixture(t)
	u, err := f.auth.Signup(context.Background(), signupInput("alice"))
	require.NoError(t, err)

	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "hunter22", u.PasswordHash)
	assert.True(t, utils.CheckPasswordHash("hunter22", u.PasswordHash))

	in := signupInput("olga")
	in.Role = "organizer"
	u, err = f.auth.Signup(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganizer, u.Role)
}

func TestSignup_Conflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Signup(context.Background(), signupInput("alice"))
	require.NoError(t, err)

	_, err = f.auth.Signup(context.Background(), signupInput("alice"))
	requireKind(t, err, KindConflict, "Username is already taken!")

	in := signupInput("alice2")
	in.Email = "alice@example.com"
	_, err = f.auth.Signup(context.Background(), in)
	requireKind(t, err, KindConflict, "Email is already in use!")
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]func(in *SignupInput){
		"admin role":     func(in *SignupInput) { in.Role = models.RoleAdmin },
		"unknown role":   func(in *SignupInput) { in.Role = "ROOT" },
		"bad email":      func(in *SignupInput) { in.Email = "not-an-email" },
		"short password": func(in *SignupInput) { in.Password = "abc" },
		"blank username": func(in *SignupInput) { in.Username = "  " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := signupInput("bob")
			mutate(&in)
			_, err := f.auth.Signup(context.Background(), in)
			requireKind(t, err, KindValidation, "")
		})
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Signup(context.Background(), signupInput("alice"))
	require.NoError(t, err)

	for _, in := range []LoginInput{
		{UsernameOrEmail: "alice", Password: "hunter22"},
		{UsernameOrEmail: "alice@example.com", Password: "hunter22"},
		{Username: "alice", Password: "hunter22"},
	} {
		info, token, err := f.auth.Login(context.Background(), in)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "alice", info.Username)
		assert.Equal(t, []string{"USER"}, info.Roles)
	}

	_, _, err = f.auth.Login(context.Background(), LoginInput{UsernameOrEmail: "alice", Password: "nope"})
	requireKind(t, err, KindUnauthorized, "Invalid username or password.")
	_, _, err = f.auth.Login(context.Background(), LoginInput{UsernameOrEmail: "ghost", Password: "hunter22"})
	requireKind(t, err, KindUnauthorized, "Invalid username or password.")
	_, _, err = f.auth.Login(context.Background(), LoginInput{Password: "hunter22"})
	requireKind(t, err, KindValidation, "")
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	u, err := f.auth.Signup(context.Background(), signupInput("alice"))
	require.NoError(t, err)

	info, err := f.auth.Me(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, UserInfo{
		ID: u.ID, Username: "alice", Email: "alice@example.com",
		FirstName: "Test", LastName: "User", Roles: []string{"USER"},
	}, info)

	_, err = f.auth.Me(context.Background(), 999)
	requireKind(t, err, KindNotFound, "")
}

func TestBootstrapAdmin_Idempotent(t *testing.T) {
	f := newFixture(t)
	created, err := f.auth.BootstrapAdmin(context.Background(), "admin", "admin@example.com", "changeme")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.auth.BootstrapAdmin(context.Background(), "admin", "admin@example.com", "changeme")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := f.users.GetByLogin(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}
