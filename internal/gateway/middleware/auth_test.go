package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codequest/internal/gateway/service"
	"codequest/internal/testutil"
	"codequest/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
)

func newRouter(t *testing.T, auth *service.AuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(auth), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(contextkey.GinUserID))
	})
	router.GET("/admin", AuthMiddleware(auth, "admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	auth, err := service.NewAuthService(service.AuthConfig{JWTSecret: "secret"}, nil)
	testutil.MustNoError(t, err)
	userToken, _, err := auth.Issue(service.UserInfo{ID: "u1", Role: "user"})
	testutil.MustNoError(t, err)
	adminToken, _, err := auth.Issue(service.UserInfo{ID: "a1", Role: "admin"})
	testutil.MustNoError(t, err)
	router := newRouter(t, auth)

	cases := []struct {
		name   string
		path   string
		bearer string
		cookie string
		status int
		body   string
	}{
		{name: "no token", path: "/me", status: http.StatusUnauthorized},
		{name: "bearer", path: "/me", bearer: userToken, status: http.StatusOK, body: "u1"},
		{name: "cookie", path: "/me", cookie: userToken, status: http.StatusOK, body: "u1"},
		{name: "user on admin route", path: "/admin", bearer: userToken, status: http.StatusForbidden},
		{name: "admin", path: "/admin", cookie: adminToken, status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tc.bearer)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			testutil.AssertEqual(t, rec.Code, tc.status)
			if tc.body != "" {
				testutil.AssertEqual(t, rec.Body.String(), tc.body)
			}
		})
	}
}

func TestCORSMiddlewareEchoesOriginWithCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware(CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}, AllowCredentials: true}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	testutil.AssertEqual(t, rec.Code, http.StatusNoContent)
	testutil.AssertEqual(t, rec.Header().Get("Access-Control-Allow-Origin"), "http://localhost:5173")
	testutil.AssertEqual(t, rec.Header().Get("Access-Control-Allow-Credentials"), "true")
}
