package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	config "github.com/Keoroanthony/go-dairydelight/configs"
	"github.com/Keoroanthony/go-dairydelight/internal/db"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

const (
	SessionName    = "dairysess"
	SessionUserKey = "user_id"
	SessionCartKey = "cart_id"

	stateKey = "oauth_state"
	ctxUser  = "user"
)

var (
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
	adminEmails  []string
)

func Init(ctx context.Context, cfg config.OIDCConfig) error {
	var err error
	provider, err = oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return fmt.Errorf("OIDC provider init error: %w", err)
	}

	verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	oauth2Config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email", "phone"},
	}

	SetAdminEmails(cfg.AdminEmails)
	return nil
}

// SetAdminEmails replaces the addresses that are granted the admin role at login.
func SetAdminEmails(emails []string) {
	adminEmails = adminEmails[:0]
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			adminEmails = append(adminEmails, e)
		}
	}
}

func isAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range adminEmails {
		if e == email {
			return true
		}
	}
	return false
}

// Identity is the subset of ID token claims the store keeps.
type Identity struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone_number"`
}

// UpsertUser finds the user for id by subject, then by e-mail, creating it
// when neither matches. Profile fields follow the identity provider; the
// admin role is granted to configured addresses and never revoked here.
func UpsertUser(ctx context.Context, conn *gorm.DB, id Identity) (*models.User, error) {
	if id.Subject == "" || id.Email == "" {
		return nil, errors.New("identity is missing subject or email")
	}

	var user models.User
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("oidc_id = ?", id.Subject).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Where("email = ?", id.Email).First(&user).Error
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user.OIDCID = id.Subject
		user.Email = id.Email
		if id.Name != "" {
			user.Name = id.Name
		}
		if user.Name == "" {
			user.Name = id.Email
		}
		if id.Phone != "" {
			user.Phone = id.Phone
		}
		if user.Role == "" {
			user.Role = models.RoleCustomer
		}
		if isAdminEmail(id.Email) {
			user.Role = models.RoleAdmin
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

// GET /auth/login
func Login(c *gin.Context) {
	state := uuid.NewString()
	sess := sessions.Default(c)
	sess.Set(stateKey, state)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.Redirect(http.StatusFound, oauth2Config.AuthCodeURL(state))
}

// GET /auth/callback
func Callback(c *gin.Context) {
	sess := sessions.Default(c)
	want, _ := sess.Get(stateKey).(string)
	if want == "" || c.Query("state") != want {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}
	sess.Delete(stateKey)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code missing"})
		return
	}

	ctx := c.Request.Context()
	oauth2Token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token exchange failed"})
		return
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no id_token in token response"})
		return
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token verification failed"})
		return
	}

	var claims Identity
	if err := idToken.Claims(&claims); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "claims parse error"})
		return
	}

	user, err := UpsertUser(ctx, db.DB, claims)
	if err != nil {
		slog.ErrorContext(ctx, "login failed", "subject", claims.Subject, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save user"})
		return
	}

	sess.Set(SessionUserKey, user.ID)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	slog.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	c.JSON(http.StatusOK, gin.H{"message": "logged in", "user": user})
}

// POST /auth/logout keeps the cart id so an anonymous cart survives.
func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Delete(SessionUserKey)
	if err := sess.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to save session on logout", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// RequireAuth ensures a user is logged in and puts *models.User on the context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		userID, ok := sess.Get(SessionUserKey).(uint)
		if !ok || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var user models.User
		if err := db.DB.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		c.Set(ctxUser, &user)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized as an admin"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// CartSession returns the session's cart id, minting one on first use.
func CartSession(c *gin.Context) (string, error) {
	sess := sessions.Default(c)
	if id, ok := sess.Get(SessionCartKey).(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	sess.Set(SessionCartKey, id)
	if err := sess.Save(); err != nil {
		return "", fmt.Errorf("failed to save cart session: %w", err)
	}
	return id, nil
}
