package controller

import (
	"net/http"
	"strings"
	"time"

	"codequest/internal/gateway/middleware"
	"codequest/internal/user/service"
	"codequest/pkg/utils/contextkey"
	"codequest/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the token cookie.
type CookieConfig struct {
	Domain   string `yaml:"domain"`
	Secure   bool   `yaml:"secure"`
	SameSite string `yaml:"sameSite"`
}

// AuthController handles account HTTP endpoints.
type AuthController struct {
	userService *service.UserService
	cookie      CookieConfig
}

// NewAuthController creates a new AuthController.
func NewAuthController(userService *service.UserService, cookie CookieConfig) *AuthController {
	return &AuthController{userService: userService, cookie: cookie}
}

// RegisterRoutes mounts the account routes. limit guards the credential endpoints.
func (h *AuthController) RegisterRoutes(api *gin.RouterGroup, auth, admin, limit gin.HandlerFunc) {
	user := api.Group("/user")
	user.POST("/register", limit, h.Register)
	user.POST("/login", limit, h.Login)
	user.POST("/logout", h.Logout)
	user.GET("/profile", auth, h.Profile)
	user.DELETE("/profile", auth, h.DeleteProfile)
	user.GET("/solved", auth, h.Solved)
	user.POST("/admin/register", auth, admin, h.RegisterAdmin)
}

// Register handles user registration and signs the new user in.
func (h *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.userService.Register(c.Request.Context(), req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpiresAt)
	response.Created(c, toAuthResponse(result))
}

// RegisterAdmin lets an administrator create another administrator.
// The caller's session is left untouched.
func (h *AuthController) RegisterAdmin(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.userService.RegisterAdmin(c.Request.Context(), req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result.User)
}

// Login handles user login.
func (h *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.userService.Login(c.Request.Context(), service.LoginInput{
		EmailID:  req.EmailID,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpiresAt)
	response.Success(c, toAuthResponse(result))
}

// Logout revokes the presented token and clears the cookie.
func (h *AuthController) Logout(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		response.SuccessWithMessage(c, "Already logged out", nil)
		return
	}
	if err := h.userService.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	h.clearTokenCookie(c)
	response.SuccessWithMessage(c, "Logout success", nil)
}

// Profile returns the current user.
func (h *AuthController) Profile(c *gin.Context) {
	user, err := h.userService.Profile(c.Request.Context(), c.GetString(contextkey.GinUserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// DeleteProfile removes the current user and their submissions.
func (h *AuthController) DeleteProfile(c *gin.Context) {
	err := h.userService.DeleteProfile(c.Request.Context(), c.GetString(contextkey.GinUserID), c.GetString(contextkey.GinToken))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.clearTokenCookie(c)
	response.SuccessWithMessage(c, "Account deleted", nil)
}

// Solved lists the problems the current user has solved.
func (h *AuthController) Solved(c *gin.Context) {
	problems, err := h.userService.SolvedProblems(c.Request.Context(), c.GetString(contextkey.GinUserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problems)
}

func (h *AuthController) setTokenCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(h.sameSite())
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthController) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(h.sameSite())
	c.SetCookie(middleware.TokenCookie, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthController) sameSite() http.SameSite {
	switch strings.ToLower(h.cookie.SameSite) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

// RegisterRequest defines registration payload.
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
	EmailID   string `json:"emailId" binding:"required"`
	Age       int    `json:"age"`
	Password  string `json:"password" binding:"required"`
}

func (r RegisterRequest) toInput() service.RegisterInput {
	return service.RegisterInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		EmailID:   r.EmailID,
		Age:       r.Age,
		Password:  r.Password,
	}
}

// LoginRequest defines login payload.
type LoginRequest struct {
	EmailID  string `json:"emailId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse defines auth response payload.
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      service.UserInfo `json:"user"`
}

func toAuthResponse(result service.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	}
}
