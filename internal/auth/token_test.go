package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-key-32-characters"

func TestIssueAndParseRoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	p := Principal{ID: models.NewID(), Email: "rider@test", Role: RoleRider}

	token, err := m.Issue(p)
	require.NoError(t, err)
	assert.Contains(t, token, ".")

	parsed, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
	assert.True(t, parsed.Is(RoleRider))
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	_, err := m.Issue(Principal{ID: models.NewID(), Role: "superuser"})
	assert.Error(t, err)

	_, err = m.Issue(Principal{Role: RoleUser})
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute)
	token, err := m.Issue(Principal{ID: models.NewID(), Role: RoleUser})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("another-secret", time.Hour).Issue(Principal{ID: models.NewID(), Role: RoleAdmin})
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNonHMACAlgorithm(t *testing.T) {
	claims := jwt.MapClaims{
		"uid":  models.NewID(),
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRequiresClaims(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	exp := time.Now().Add(time.Hour).Unix()

	testCases := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"missing uid", jwt.MapClaims{"role": "user", "exp": exp}},
		{"non object id uid", jwt.MapClaims{"uid": "42", "role": "user", "exp": exp}},
		{"missing role", jwt.MapClaims{"uid": models.NewID(), "exp": exp}},
		{"unknown role", jwt.MapClaims{"uid": models.NewID(), "role": "root", "exp": exp}},
		{"missing exp", jwt.MapClaims{"uid": models.NewID(), "role": "user"}},
		{"issued in the future", jwt.MapClaims{"uid": models.NewID(), "role": "user", "exp": exp, "iat": time.Now().Add(30 * time.Minute).Unix()}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte(testSecret))
			require.NoError(t, err)

			_, err = m.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestParseRole(t *testing.T) {
	for _, r := range []string{"admin", "user", "rider"} {
		role, err := ParseRole(r)
		require.NoError(t, err)
		assert.Equal(t, Role(r), role)
	}
	_, err := ParseRole("general")
	assert.Error(t, err)
}
