package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waktsa/elearning/internal/account"
	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/http/middlewares"
)

type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (user.User, error)
	Login(ctx context.Context, email, password string, now time.Time) (account.Session, error)
}

type UserLister interface {
	List(ctx context.Context, role *user.Role) ([]user.User, error)
}

type AuthHandler struct {
	accounts     Accounts
	users        UserLister
	cookieSecure bool
	now          func() time.Time
}

func NewAuthHandler(accounts Accounts, users UserLister, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		users:        users,
		cookieSecure: cookieSecure,
		now:          time.Now,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Role     string `json:"role" binding:"omitempty,oneof=admin student"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.register(ctx, req)
}

// RegisterStudent serves the student signup form; any role in the body is
// ignored.
func (h *AuthHandler) RegisterStudent(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Role = user.RoleStudent.String()
	h.register(ctx, req)
}

func (h *AuthHandler) register(ctx *gin.Context, req RegisterRequest) {

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := h.accounts.Register(cctx, account.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, account.ErrDuplicateEmail):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, account.ErrAdminExists):
			RespondConflict(ctx, "admin_exists", "Admin user already exists.")
		case errors.Is(err, user.ErrInvalidRole):
			RespondBadRequest(ctx, "Invalid role", gin.H{"field": "role"})
		default:
			RespondInternal(ctx, "Could not create user", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	sess, err := h.accounts.Login(cctx, req.Email, req.Password, h.now())
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}
		RespondInternal(ctx, "Could not log in", err)
		return
	}

	h.setAccessCookie(ctx, sess.AccessToken, sess.ExpiresAt)

	ctx.JSON(http.StatusOK, LoginResponse{
		AccessToken: sess.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   sess.ExpiresAt,
	})
}

// Logout only clears the cookie. Tokens are stateless, so a copy held
// elsewhere stays valid until it expires.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearAccessCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "missing_token", "Authentication required")
		return
	}

	ctx.JSON(http.StatusOK, id)
}

func (h *AuthHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx, nil)
	if err != nil {
		RespondInternal(ctx, "Could not list users", err)
		return
	}

	ctx.JSON(http.StatusOK, users)
}

// Helper functions

func (h *AuthHandler) setAccessCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		auth.AccessTokenCookie,
		raw,
		maxAge,
		"/",
		"",
		h.cookieSecure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearAccessCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		auth.AccessTokenCookie,
		"",
		-1,
		"/",
		"",
		h.cookieSecure,
		true,
	)
}
