package handler

import (
	"encoding/json"
	"net/http"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/middleware"
	"colab-review-server/internal/service"
	"colab-review-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ConnectionCloser drops a user's live connections.
type ConnectionCloser interface {
	CloseUser(userID string) int
}

type AuthHandler struct {
	authService *service.AuthService
	connections ConnectionCloser
	validator   *validator.Validate
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, connections ConnectionCloser, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		connections: connections,
		validator:   validator.New(),
		logger:      logger,
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req domain.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.authService.SignUp(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to sign up")
		return
	}

	response.Created(w, user)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	signInResp, err := h.authService.SignIn(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to sign in")
		return
	}

	response.Success(w, signInResp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	tokenResp, err := h.authService.Refresh(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to refresh token")
		return
	}

	response.Success(w, tokenResp)
}

// SignOut revokes the refresh token and closes the user's live workspaces.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	userID, err := h.authService.SignOut(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to sign out")
		return
	}

	if h.connections != nil {
		h.connections.CloseUser(userID)
	}

	response.Message(w, "Signed out successfully")
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	if !session.Active() {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	response.Success(w, session)
}
