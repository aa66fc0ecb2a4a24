package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ev-charge-reservation/internal/utils"
)

const testSecret = "test-secret"

func authedRequest(t *testing.T, token string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestJWTAuthInjectsTypedIdentity(t *testing.T) {
	access, err := utils.NewAccessToken(testSecret, 42, "admin", 5)
	require.NoError(t, err)

	c, _ := authedRequest(t, access.Token)
	called := false
	next := func(c echo.Context) error {
		called = true
		// The subject must arrive as uint64, not the float64 the JSON
		// decoder produces, so handlers never re-convert it.
		uid, ok := c.Get("user_id").(uint64)
		assert.True(t, ok)
		assert.Equal(t, uint64(42), uid)
		assert.Equal(t, "admin", c.Get("role"))
		return nil
	}
	require.NoError(t, JWTAuth(testSecret)(next)(c))
	assert.True(t, called)
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	// No bearer at all.
	c, rec := authedRequest(t, "")
	require.NoError(t, JWTAuth(testSecret)(failIfCalled(t))(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Signed with a different secret.
	access, err := utils.NewAccessToken("other-secret", 42, "user", 5)
	require.NoError(t, err)
	c, rec = authedRequest(t, access.Token)
	require.NoError(t, JWTAuth(testSecret)(failIfCalled(t))(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubjectID(t *testing.T) {
	uid, ok := subjectID(float64(7))
	assert.True(t, ok)
	assert.Equal(t, uint64(7), uid)

	uid, ok = subjectID("19")
	assert.True(t, ok)
	assert.Equal(t, uint64(19), uid)

	for _, bad := range []interface{}{nil, float64(0), "", "abc", true} {
		_, ok := subjectID(bad)
		assert.False(t, ok, "subjectID(%v) should fail", bad)
	}
}

func failIfCalled(t *testing.T) echo.HandlerFunc {
	return func(echo.Context) error {
		t.Fatal("next handler should not run")
		return nil
	}
}
