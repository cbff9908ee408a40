package handler

import (
	"net/http"
	"strconv"

	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/model/requestresponse"
	"e-transfer-auth/internal/ports"
	"e-transfer-auth/internal/util"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService}
}

// RegisterUser godoc
// @Summary Register a user
// @Description Creates an account and returns it with a token pair. Only an admin caller may choose the role.
// @Tags Users
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "New account"
// @Success 201 {object} requestresponse.RegisterResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Invalid body"
// @Failure 409 {object} requestresponse.ErrorResponse "Email already exists"
// @Failure 500 {object} requestresponse.ErrorResponse "Internal server error"
// @Router /api/auth/register [post]
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user := &model.User{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Role:        model.Role(req.Role),
	}

	created, tokens, err := h.UserService.Register(r.Context(), user, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusCreated, requestresponse.RegisterResponse{
		User:   requestresponse.NewUserResponse(created),
		Tokens: requestresponse.NewTokensResponse(tokens),
	})
}

// GetUser godoc
// @Summary Get a user
// @Description Available to the account owner and to admins
// @Tags Users
// @Produce json
// @Param id path int true "User id"
// @Success 200 {object} requestresponse.UserResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Invalid id"
// @Failure 401 {object} requestresponse.ErrorResponse "Authentication required"
// @Failure 403 {object} requestresponse.ErrorResponse "Access denied"
// @Failure 404 {object} requestresponse.ErrorResponse "User not found"
// @Router /api/auth/users/{id} [get]
// @Security BearerAuth
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.UserService.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.NewUserResponse(user))
}

// UpdateUser godoc
// @Summary Update a user
// @Description Owners may change names, phone number and password; role and active flag require an admin. A password change signs the account out everywhere.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User id"
// @Param body body requestresponse.UpdateUserRequest true "Changes"
// @Success 200 {object} requestresponse.UserResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Invalid body"
// @Failure 401 {object} requestresponse.ErrorResponse "Authentication required"
// @Failure 403 {object} requestresponse.ErrorResponse "Access denied"
// @Failure 404 {object} requestresponse.ErrorResponse "User not found"
// @Router /api/auth/users/{id} [put]
// @Security BearerAuth
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req requestresponse.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	update := ports.UserUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		IsActive:    req.IsActive,
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		update.Role = &role
	}

	user, err := h.UserService.UpdateUser(r.Context(), userID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, requestresponse.NewUserResponse(user))
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Removes the account and revokes its refresh tokens. Admin only.
// @Tags Users
// @Param id path int true "User id"
// @Success 204 "Deleted"
// @Failure 400 {object} requestresponse.ErrorResponse "Invalid id"
// @Failure 401 {object} requestresponse.ErrorResponse "Authentication required"
// @Failure 403 {object} requestresponse.ErrorResponse "Access denied"
// @Failure 404 {object} requestresponse.ErrorResponse "User not found"
// @Router /api/auth/users/{id} [delete]
// @Security BearerAuth
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if err := h.UserService.DeleteUser(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers godoc
// @Summary List users
// @Description Cursor-paginated list of accounts. Admin only.
// @Tags Users
// @Produce json
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size" default(20) minimum(1) maximum(100)
// @Success 200 {object} requestresponse.ListUsersResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Invalid cursor"
// @Failure 401 {object} requestresponse.ErrorResponse "Authentication required"
// @Failure 403 {object} requestresponse.ErrorResponse "Access denied"
// @Router /api/auth/users [get]
// @Security BearerAuth
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			util.HandleError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	users, nextCursor, err := h.UserService.ListUsers(r.Context(), cursor, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := requestresponse.ListUsersResponse{
		Users:      make([]requestresponse.UserResponse, 0, len(users)),
		NextCursor: nextCursor,
	}
	for _, user := range users {
		resp.Users = append(resp.Users, requestresponse.NewUserResponse(user))
	}

	util.WriteJSON(w, http.StatusOK, resp)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID < 1 {
		util.HandleError(w, "invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return userID, true
}
