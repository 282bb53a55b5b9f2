package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-service/internal/usecase/auth"
	"user-service/pkg/logger"
)

const msgServerError = "Server error"

// AuthHandler handles login requests
type AuthHandler struct {
	uc  auth.Usecase
	log *zap.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(uc auth.Usecase, log *zap.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, log: log}
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	Token string `json:"token"`
}

// Login handles POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	resp, err := h.uc.Login(c.Request.Context(), auth.LoginRequest{Fields: fields})
	if err != nil {
		logger.WithContext(c.Request.Context(), h.log).Debug("login failed", zap.Error(err))
		writeError(c, err, msgServerError)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: resp.Token})
}
