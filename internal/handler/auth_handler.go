package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sauverpro/Safe-Vend-Backend/internal/service"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// AuthHandler handles operator authentication.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/admin/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Email and password are required")
		return
	}

	token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		log.Warn().Str("email", req.Email).Msg("failed login attempt")
		utils.Error(c, 401, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	utils.Success(c, 200, "Login successful", gin.H{
		"token": token,
		"email": req.Email,
	})
}
