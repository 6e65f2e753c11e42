package handler

import (
	"errors"
	"net/http"

	"roomchat/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required"`
}

// loginRequest accepts the OAuth2 password form as well as JSON.
type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		abortWithError(c, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, user.Info())
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		c.Header("WWW-Authenticate", "Bearer")
		abortWithError(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	token, err := h.Auth.IssueToken(user)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.Revoke(c.Request.Context(), c.GetString(ctxTokenKey)); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Successfully logged out"})
}
