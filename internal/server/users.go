package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tracker/internal/apperr"
	"tracker/internal/auth"
	"tracker/internal/models"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	userKey       = "tracker.user"
)

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
}

// requireAuth resolves the access token into a user and stores it on the
// context for the handlers behind it.
func (s *Server) requireAuth(c *gin.Context) {
	user, err := s.auth.VerifyAccess(c.Request.Context(), accessToken(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Set(userKey, user)
	c.Next()
}

// accessToken reads the bearer header first and falls back to the cookie.
func accessToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	token, _ := c.Cookie(accessCookie)
	return token
}

func currentUser(c *gin.Context) models.User {
	v, _ := c.Get(userKey)
	user, _ := v.(models.User)
	return user
}

func (s *Server) setSessionCookies(c *gin.Context, session auth.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, session.AccessToken, s.opts.AccessMaxAge, "/", "", s.opts.SecureCookies, true)
	c.SetCookie(refreshCookie, session.RefreshToken, s.opts.RefreshMaxAge, "/", "", s.opts.SecureCookies, true)
}

func (s *Server) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, "", -1, "/", "", s.opts.SecureCookies, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", s.opts.SecureCookies, true)
}

// handleRegister creates a new account.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.auth.Register(c.Request.Context(), auth.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Handle:   req.Handle,
		Password: req.Password,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": user}, "User registered successfully")
}

// handleLogin checks credentials and starts a session.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	session, err := s.auth.Login(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Handle:   req.Handle,
		Password: req.Password,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.setSessionCookies(c, session)
	respondSuccess(c, http.StatusOK, sessionResponse{
		User:         session.User,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}, "User logged in successfully")
}

// handleRefresh trades a refresh token for a new token pair.
func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	// ContentLength is -1 for chunked bodies.
	if c.Request.ContentLength != 0 && c.Request.Body != http.NoBody && !s.bindJSON(c, &req) {
		return
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookie)
	}

	session, err := s.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.setSessionCookies(c, session)
	respondSuccess(c, http.StatusOK, sessionResponse{
		User:         session.User,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}, "Access token refreshed")
}

// handleLogout drops the stored refresh token and clears the cookies.
func (s *Server) handleLogout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context(), currentUser(c).ID); err != nil {
		s.respondError(c, err)
		return
	}
	s.clearSessionCookies(c)
	respondSuccess(c, http.StatusOK, nil, "User logged out")
}

// handleMe returns the authenticated user's profile.
func (s *Server) handleMe(c *gin.Context) {
	user := currentUser(c)
	if user.ID == 0 {
		s.respondError(c, apperr.New(apperr.Auth, "unauthorized request"))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()}, "Current user")
}
