// FilePath: api/resources/api.resource.auth.go
package resources

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/greeneye-project/greeneye-hub/api/middleware"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandlers encapsulates account registration and login
type AuthHandlers struct {
	hubservice *hubservice.HubService
	auth       *middleware.JWTMiddleware
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// @Summary Register a new account
// @Description Create a user account with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "Email and password"
// @Success 201 {object} tokenResponse
// @Failure 400 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /auth/register [post]
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		respondWithError(w, errors.NewValidationError("valid email is required", nil).WithRequestID(requestID))
		return
	}
	if len(req.Password) < 8 {
		respondWithError(w, errors.NewValidationError("password must be at least 8 characters", nil).WithRequestID(requestID))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to hash password", err).WithRequestID(requestID))
		return
	}

	user := &models.User{Email: req.Email, PasswordHash: string(hash)}
	if err := h.hubservice.Users.Create(r.Context(), user); err != nil {
		if err == repository.ErrDuplicate {
			respondWithError(w, errors.NewConflictError("email already registered", nil).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to create user", err).WithRequestID(requestID))
		return
	}

	token, err := h.auth.GenerateToken(user)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to issue token", err).WithRequestID(requestID))
		return
	}

	nuts.L.Infof("[AuthHandler] Registered user %s", user.Email)
	respondWithJSON(w, http.StatusCreated, tokenResponse{Token: token, User: user})
}

// @Summary Log in
// @Description Exchange email and password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "Email and password"
// @Success 200 {object} tokenResponse
// @Failure 401 {object} errors.APIError
// @Router /auth/login [post]
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	user, err := h.hubservice.Users.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		// Same response for unknown email and wrong password.
		respondWithError(w, errors.NewAuthError("invalid credentials", nil).WithRequestID(requestID))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondWithError(w, errors.NewAuthError("invalid credentials", nil).WithRequestID(requestID))
		return
	}

	token, err := h.auth.GenerateToken(user)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to issue token", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

// @Summary Current account
// @Description Return the account of the authenticated user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} errors.APIError
// @Router /auth/me [get]
// @Security BearerAuth
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, errors.NewAuthError("not authenticated", nil).WithRequestID(requestID))
		return
	}

	user, err := h.hubservice.Users.GetByID(r.Context(), userID)
	if err != nil {
		respondWithError(w, errors.NewNotFoundError("user not found", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}
