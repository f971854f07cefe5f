package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	users map[string]string
	err   error
}

func (a *fakeAuthenticator) SignUp(_ context.Context, email, password string) (*gateway.Session, error) {
	if a.err != nil {
		return nil, a.err
	}
	if _, ok := a.users[email]; ok {
		return nil, gateway.ErrEmailTaken
	}
	a.users[email] = password
	return &gateway.Session{AccessToken: "a", RefreshToken: "r", User: gateway.User{ID: uuid.New(), Email: email}}, nil
}

func (a *fakeAuthenticator) SignInWithPassword(_ context.Context, email, password string) (*gateway.Session, error) {
	if pw, ok := a.users[email]; !ok || pw != password {
		return nil, gateway.ErrInvalidCredentials
	}
	return &gateway.Session{AccessToken: "a", RefreshToken: "r", User: gateway.User{ID: uuid.New(), Email: email}}, nil
}

func TestAuthSignUp_CreatesPlayerProfile(t *testing.T) {
	f := newFixture(t)
	auth := &fakeAuthenticator{users: map[string]string{}}
	svc := NewAuthService(auth, f.store.Profiles(), f.logger)

	sess, err := svc.SignUp(t.Context(), SignUpInput{Email: " new@example.com ", Password: "pw", Username: "newbie"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", sess.User.Email)

	p, err := f.store.Profiles().GetByID(t.Context(), sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "newbie", p.Username)
	assert.Equal(t, models.RolePlayer, p.Role)

	_, err = svc.SignUp(t.Context(), SignUpInput{Email: "new@example.com", Password: "pw", Username: "again"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthSignUp_RequiredFields(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(&fakeAuthenticator{users: map[string]string{}}, f.store.Profiles(), f.logger)

	_, err := svc.SignUp(t.Context(), SignUpInput{Email: "a@b.c"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"password", "username"}, ve.Fields)
}

func TestAuthSignUp_ProfileFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(&fakeAuthenticator{users: map[string]string{}}, f.store.Profiles(), f.logger)
	f.store.Fail("profiles.Create", errors.New("insert failed"))

	sess, err := svc.SignUp(t.Context(), SignUpInput{Email: "a@b.c", Password: "pw", Username: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
}

func TestAuthSignIn(t *testing.T) {
	f := newFixture(t)
	auth := &fakeAuthenticator{users: map[string]string{"neo@example.com": "matrix"}}
	svc := NewAuthService(auth, f.store.Profiles(), f.logger)

	_, err := svc.SignIn(t.Context(), SignInInput{Email: "neo@example.com", Password: "matrix"})
	require.NoError(t, err)

	_, err = svc.SignIn(t.Context(), SignInInput{Email: "neo@example.com", Password: "spoon"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
