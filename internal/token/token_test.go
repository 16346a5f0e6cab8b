package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
	"lukamath/internal/token"
)

func tutor() *domain.User {
	return &domain.User{ID: "u-luka", Email: "luka@lukamath.com", Role: domain.RoleTutor}
}

func TestIssueEmbedsSubjectAndRole(t *testing.T) {
	m := token.NewManager("s3cret", time.Hour)

	raw, exp, err := m.Issue(tutor())
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-luka", id.Subject)
	assert.Equal(t, domain.RoleTutor, id.Role)
}

func TestVerifyIsIdempotent(t *testing.T) {
	m := token.NewManager("s3cret", time.Hour)
	raw, _, err := m.Issue(tutor())
	require.NoError(t, err)

	first, err := m.Verify(raw)
	require.NoError(t, err)
	second, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExpiredTokenRejectedWithoutGrace(t *testing.T) {
	base := time.Now()
	m := token.NewManager("s3cret", time.Minute).WithClock(func() time.Time { return base })
	raw, exp, err := m.Issue(tutor())
	require.NoError(t, err)

	// still valid one second before expiry
	_, err = m.WithClock(func() time.Time { return exp.Add(-time.Second) }).Verify(raw)
	require.NoError(t, err)

	for _, at := range []time.Time{exp, exp.Add(time.Second), exp.Add(24 * time.Hour)} {
		_, err = m.WithClock(func() time.Time { return at }).Verify(raw)
		require.Error(t, err)
		assert.Equal(t, apperr.InvalidToken, apperr.KindOf(err), "at %s", at)
	}
}

func TestTamperedSignatureRejected(t *testing.T) {
	m := token.NewManager("s3cret", time.Hour)
	raw, _, err := m.Issue(tutor())
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = m.Verify(tampered)
	assert.Equal(t, apperr.InvalidToken, apperr.KindOf(err))

	// signed with another key
	other, _, err := token.NewManager("other", time.Hour).Issue(tutor())
	require.NoError(t, err)
	_, err = m.Verify(other)
	assert.Equal(t, apperr.InvalidToken, apperr.KindOf(err))
}

func TestPayloadRoleEscalationRejected(t *testing.T) {
	m := token.NewManager("s3cret", time.Hour)
	student := &domain.User{ID: "u-demo", Role: domain.RoleStudent}
	raw, _, err := m.Issue(student)
	require.NoError(t, err)

	// re-sign the same claims as admin with a forged key
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-demo", "role": "admin", "iss": "lukamath",
		"exp": time.Now().Add(time.Hour).Unix(), "iat": time.Now().Unix(),
	})
	forgedRaw, err := forged.SignedString([]byte("guess"))
	require.NoError(t, err)
	_, err = m.Verify(forgedRaw)
	assert.Equal(t, apperr.InvalidToken, apperr.KindOf(err))

	id, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, id.Role)
}

func TestNoneAlgorithmAndGarbageRejected(t *testing.T) {
	m := token.NewManager("s3cret", time.Hour)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u-admin", "role": "admin", "iss": "lukamath",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for _, tok := range []string{raw, "not-a-jwt", "a.b.c"} {
		_, err := m.Verify(tok)
		assert.Equal(t, apperr.InvalidToken, apperr.KindOf(err), tok)
	}
}

func TestMissingExpiryRejected(t *testing.T) {
	m := token.NewManager("s3cret", time.Hour)
	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-demo", "role": "student", "iss": "lukamath",
	})
	raw, err := noExp.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = m.Verify(raw)
	assert.Equal(t, apperr.InvalidToken, apperr.KindOf(err))
}

func TestEmptyTokenIsMissing(t *testing.T) {
	_, err := token.NewManager("s3cret", time.Hour).Verify("")
	assert.Equal(t, apperr.MissingToken, apperr.KindOf(err))
}
