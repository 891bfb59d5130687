package http

import (
	"net/http"

	"taskloop-sync/internal/dto"
	"taskloop-sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler serves the login screens of the bridge.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	if authService == nil {
		panic("AuthService cannot be nil for AuthHandler")
	}
	return &AuthHandler{authService: authService}
}

// LoginResponse carries the route to open after logging in.
type LoginResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Login: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: username and password required")
		return
	}

	if _, err := h.authService.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		HandleServiceError(c, err)
		return
	}
	h.respondLoggedIn(c, "Login successful")
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Register: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}

	if _, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
		HandleServiceError(c, err)
		return
	}
	h.respondLoggedIn(c, "User registered successfully")
}

func (h *AuthHandler) respondLoggedIn(c *gin.Context, message string) {
	route, err := h.authService.ConsumeRedirect(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Warn("Handler: Failed to read post-login redirect")
		route = service.RouteHome
	}
	SuccessResponse(c, http.StatusOK, LoginResponse{Message: message, Redirect: route})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context()); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Logged out", "redirect": service.RouteLogin})
}

// Redirect returns and forgets the remembered post-login route.
func (h *AuthHandler) Redirect(c *gin.Context) {
	route, err := h.authService.ConsumeRedirect(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"route": route})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.CurrentUser(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, user)
}
