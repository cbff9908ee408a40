package handler

import (
	"net/http"

	"e-transfer-auth/internal/model/requestresponse"
	"e-transfer-auth/internal/ports"
	"e-transfer-auth/internal/security"
	"e-transfer-auth/internal/service"
	"e-transfer-auth/internal/util"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
}

func NewAuthenticationHandler(authenticationService ports.AuthenticationService) *AuthenticationHandler {
	return &AuthenticationHandler{authenticationService}
}

// Login godoc
// @Summary User login
// @Description Exchanges email and password for an access and a refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Credentials"
// @Success 200 {object} requestresponse.TokensResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Invalid body"
// @Failure 401 {object} requestresponse.ErrorResponse "Invalid email or password"
// @Failure 403 {object} requestresponse.ErrorResponse "Account disabled"
// @Failure 500 {object} requestresponse.ErrorResponse "Internal server error"
// @Router /api/auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tokens, err := h.AuthenticationService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.NewTokensResponse(tokens))
}

// RefreshToken godoc
// @Summary Refresh access token
// @Description Exchanges a refresh token for a new access token. With rotation enabled the refresh token is replaced too.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} requestresponse.TokensResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Invalid body"
// @Failure 401 {object} requestresponse.ErrorResponse "Invalid, revoked or expired refresh token"
// @Failure 403 {object} requestresponse.ErrorResponse "Account disabled"
// @Failure 500 {object} requestresponse.ErrorResponse "Internal server error"
// @Router /api/auth/refresh [post]
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tokens, err := h.AuthenticationService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.NewTokensResponse(tokens))
}

// Logout godoc
// @Summary Logout
// @Description Revokes the given refresh token. Access tokens stay valid until they expire.
// @Tags Authentication
// @Accept json
// @Param body body requestresponse.RefreshTokenRequest true "Refresh token"
// @Success 204 "Revoked"
// @Failure 400 {object} requestresponse.ErrorResponse "Invalid body"
// @Failure 401 {object} requestresponse.ErrorResponse "Unknown refresh token"
// @Failure 500 {object} requestresponse.ErrorResponse "Internal server error"
// @Router /api/auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.AuthenticationService.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutEverywhere godoc
// @Summary Logout from all sessions
// @Description Revokes every refresh token of the caller
// @Tags Authentication
// @Produce json
// @Success 200 {object} requestresponse.RevokedResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Authentication required"
// @Failure 500 {object} requestresponse.ErrorResponse "Internal server error"
// @Router /api/auth/logout-all [post]
// @Security BearerAuth
func (h *AuthenticationHandler) LogoutEverywhere(w http.ResponseWriter, r *http.Request) {
	identity, ok := security.IdentityFromContext(r.Context())
	if !ok {
		writeServiceError(w, service.ErrUnauthorized)
		return
	}

	revoked, err := h.AuthenticationService.LogoutEverywhere(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.RevokedResponse{Revoked: revoked})
}

// GetCurrentUser godoc
// @Summary Current caller
// @Description Returns the identity carried by the access token
// @Tags Authentication
// @Produce json
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Authentication required"
// @Router /api/auth/me [get]
// @Router /api/auth/me [head]
// @Security BearerAuth
func (h *AuthenticationHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := security.IdentityFromContext(r.Context())
	if !ok {
		writeServiceError(w, service.ErrUnauthorized)
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.CurrentUserResponse{
		UserID:  identity.UserID,
		Subject: identity.Subject,
		Role:    identity.Role.String(),
	})
}
