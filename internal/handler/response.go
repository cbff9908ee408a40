package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"e-transfer-auth/internal/service"
	"e-transfer-auth/internal/util"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register phone validator: %v", err))
	}
	return v
}

// decodeAndValidate writes a 400 and returns false if the body is not valid JSON or
// fails validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		util.HandleError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(target); err != nil {
		util.HandleError(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

// writeServiceError maps service errors to HTTP status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenRevokedOrExpired),
		errors.Is(err, service.ErrUnauthorized):
		util.HandleError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrForbidden):
		util.HandleError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrUserNotFound):
		util.HandleError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrEmailTaken):
		util.HandleError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidCursor):
		util.HandleError(w, err.Error(), http.StatusBadRequest)
	default:
		util.Logger.WithError(err).Error("request failed")
		util.HandleError(w, "internal server error", http.StatusInternalServerError)
	}
}
