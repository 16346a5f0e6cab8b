package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
	"lukamath/internal/repos"
	"lukamath/internal/token"
)

func newAuth(t *testing.T) (*AuthService, *UserService) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.Seed(db, 4))
	users := repos.NewUserRepo(db)
	return NewAuthService(users, token.NewManager("test-secret", time.Hour), 4), NewUserService(users, 4)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	auth, _ := newAuth(t)
	res, err := auth.Login(context.Background(), " Demo@LukaMath.com", repos.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, "u-demo", res.User.ID)

	id, err := auth.Tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, token.Identity{Subject: "u-demo", Role: domain.RoleStudent}, id)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	_, errWrongPass := auth.Login(ctx, "demo@lukamath.com", "Wrong-pass1")
	_, errNoUser := auth.Login(ctx, "ghost@lukamath.com", repos.DemoPassword)
	require.Error(t, errWrongPass)
	assert.Equal(t, apperr.InvalidCredentials, apperr.KindOf(errWrongPass))
	assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

func TestRegister(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()
	in := RegisterInput{Email: "New@LukaMath.com", Password: "Str0ng!pass", FirstName: "Ana", LastName: "Kos"}

	u, err := auth.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "new@lukamath.com", u.Email)
	assert.Equal(t, domain.RoleStudent, u.Role)
	assert.Equal(t, "en", u.Language)

	_, err = auth.Register(ctx, in)
	assert.ErrorIs(t, err, ErrUserExists)

	in.Email, in.Password = "weak@lukamath.com", "password"
	_, err = auth.Register(ctx, in)
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))

	_, err = auth.Login(ctx, "new@lukamath.com", "Str0ng!pass")
	assert.NoError(t, err)
}

func TestCurrentUserAfterDeactivation(t *testing.T) {
	auth, users := newAuth(t)
	ctx := context.Background()

	require.NoError(t, users.Deactivate(ctx, admin, "u-maria"))
	_, err := auth.CurrentUser(ctx, "u-maria")
	assert.Equal(t, apperr.InvalidToken, apperr.KindOf(err))

	_, err = auth.Login(ctx, "maria@lukamath.com", repos.DemoPassword)
	assert.Equal(t, apperr.InvalidCredentials, apperr.KindOf(err))
}

func TestAdminUserManagement(t *testing.T) {
	_, users := newAuth(t)
	ctx := context.Background()

	_, err := users.List(ctx, luka, "")
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	tutors, err := users.List(ctx, admin, domain.RoleTutor)
	require.NoError(t, err)
	assert.Len(t, tutors, 2)

	u, err := users.SetRole(ctx, admin, "u-maria", domain.RoleTutor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTutor, u.Role)

	_, err = users.SetRole(ctx, admin, "u-ghost", domain.RoleTutor)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = users.SetRole(ctx, admin, "u-admin", domain.RoleStudent)
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(users.Deactivate(ctx, admin, "u-admin")))
}

func TestProfileAndPassword(t *testing.T) {
	auth, users := newAuth(t)
	ctx := context.Background()

	u, err := users.UpdateProfile(ctx, demo, ProfileInput{FirstName: "Dee", LastName: "Mo", Language: "HR"})
	require.NoError(t, err)
	assert.Equal(t, "hr", u.Language)

	// a wrong current password is a bad request, not a dead session
	err = users.ChangePassword(ctx, demo, "nope", "N3w!password")
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))
	assert.Equal(t, 400, apperr.KindOf(err).Status())
	require.NoError(t, users.ChangePassword(ctx, demo, repos.DemoPassword, "N3w!password"))

	_, err = auth.Login(ctx, "demo@lukamath.com", "N3w!password")
	assert.NoError(t, err)
}
