package middlewares

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"bitbucket.org/mmdatafocus/bakery_backend/workflow"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func authRouter(t *testing.T) (*gin.Engine, *utils.TokenIssuer, *models.User) {
	t.Helper()
	db, err := config.OpenSQLite("file::memory:")
	require.NoError(t, err)
	require.NoError(t, models.MigrateTable(db))
	require.NoError(t, models.SeedRights(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	user := &models.User{Name: "ana", Email: "ana@example.ro", Password: "x", Phone: "0722000001"}
	require.NoError(t, models.CreateUser(db, user))
	require.NoError(t, models.GrantRight(db, user.ID, models.RightCodeCustomer))

	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	access := workflow.NewAccessPolicy(db, nil, time.Minute, quietLogger())

	r := gin.New()
	r.Use(CorrelationMiddleware())
	r.Use(AuthMiddleware(tokens, access, quietLogger()))
	r.GET("/open", func(c *gin.Context) {
		p := CtxPrincipal(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"anonymous": p == nil})
	})
	r.GET("/closed", RequireAuth(), func(c *gin.Context) {
		id, _ := utils.GetUserIdFromContext(c.Request.Context())
		codes, _ := utils.GetRightCodesFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id, "codes": codes})
	})
	return r, tokens, user
}

func TestAuthMiddleware(t *testing.T) {
	r, tokens, user := authRouter(t)
	token, err := tokens.JwtGenerate(user.ID, user.Email)
	require.NoError(t, err)
	ghost, err := tokens.JwtGenerate(999, "ghost@example.ro")
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		value  string
		status int
		body   string
	}{
		{"anonymous open route", "/open", "", "", http.StatusOK, `{"anonymous":true}`},
		{"anonymous closed route", "/closed", "", "", http.StatusUnauthorized, ""},
		{"bearer token", "/closed", "Authorization", "Bearer " + token, http.StatusOK, `{"id":1,"codes":[2]}`},
		{"x-auth-token header", "/closed", AuthTokenHeader, token, http.StatusOK, `{"id":1,"codes":[2]}`},
		{"garbage token", "/open", "Authorization", "Bearer nope", http.StatusUnauthorized, ""},
		{"unknown user", "/closed", "Authorization", "Bearer " + ghost, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
			assert.NotEmpty(t, w.Header().Get(CorrelationIdHeader))
		})
	}
}

func TestCorrelationIdIsEchoed(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationMiddleware())
	r.GET("/", func(c *gin.Context) {
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		c.String(http.StatusOK, cid)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIdHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(CorrelationIdHeader))
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := NewRateLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 2, time.Minute)

	r := gin.New()
	r.Use(limiter.RateLimitMiddleware)
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, do())
	assert.Equal(t, http.StatusNoContent, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusNoContent, do())
}
