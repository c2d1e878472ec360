package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigner = Signer{Key: "k", Issuer: "rollcall", AccessTTL: time.Minute, RefreshTTL: time.Hour}

func TestIssueAndParse(t *testing.T) {
	pair, err := testSigner.Issue("scanner-1", RoleDevice)
	require.NoError(t, err)
	assert.True(t, pair.RefreshExp.After(pair.AccessExp))

	claims, err := testSigner.Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "scanner-1", claims.Subject)
	assert.Equal(t, RoleDevice, claims.Role)
}

func TestParseRejects(t *testing.T) {
	pair, err := testSigner.Issue("scanner-1", RoleDevice)
	require.NoError(t, err)

	other := testSigner
	other.Issuer = "someone-else"
	_, err = other.Parse(pair.AccessToken)
	assert.Error(t, err, "issuer mismatch")

	wrongKey := testSigner
	wrongKey.Key = "other"
	_, err = wrongKey.Parse(pair.AccessToken)
	assert.Error(t, err, "bad signature")

	expired := testSigner
	expired.AccessTTL = -time.Minute
	old, err := expired.Issue("scanner-1", RoleDevice)
	require.NoError(t, err)
	_, err = testSigner.Parse(old.AccessToken)
	assert.Error(t, err, "expired")
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/staff", RequireRole(testSigner, RoleStaff), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Subject)
	})

	staff, err := testSigner.Issue("alice", RoleStaff)
	require.NoError(t, err)
	device, err := testSigner.Issue("scanner-1", RoleDevice)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + device.AccessToken, http.StatusForbidden},
		{"staff", "bearer " + staff.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/staff", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRoleRejectsRefreshToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	short := Signer{Key: "k", Issuer: "rollcall", AccessTTL: time.Nanosecond, RefreshTTL: time.Hour}
	r := gin.New()
	r.GET("/scan", RequireRole(short, RoleDevice), func(c *gin.Context) { c.Status(http.StatusOK) })

	pair, err := short.Issue("gate-1", RoleDevice)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	for name, token := range map[string]string{"expired access": pair.AccessToken, "refresh": pair.RefreshToken} {
		req := httptest.NewRequest(http.MethodGet, "/scan", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}

func TestTokenTypes(t *testing.T) {
	pair, err := testSigner.Issue("scanner-1", RoleDevice)
	require.NoError(t, err)

	access, err := testSigner.Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, TokenAccess, access.Type)

	refresh, err := testSigner.Parse(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, refresh.Type)
}

func TestRefresh(t *testing.T) {
	pair, err := testSigner.Issue("scanner-1", RoleDevice)
	require.NoError(t, err)

	next, err := testSigner.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	claims, err := testSigner.Parse(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "scanner-1", claims.Subject)
	assert.Equal(t, RoleDevice, claims.Role)
	assert.Equal(t, TokenAccess, claims.Type)

	_, err = testSigner.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = testSigner.Refresh("garbage")
	assert.Error(t, err)
}
