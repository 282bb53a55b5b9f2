package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"user-service/internal/usecase/user"
	pkgerrors "user-service/pkg/errors"
	"user-service/pkg/validation"
)

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       *int      `json:"age,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse represents a single-message error response
type ErrorResponse struct {
	Message string `json:"message"`
}

// ValidationErrorResponse lists every violated rule
type ValidationErrorResponse struct {
	Errors []string `json:"errors"`
}

const msgBodyNotObject = "Request body must be a JSON object."

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// bindFields decodes the body as a JSON object. An empty body is an empty
// object. It writes a 400 and returns false for anything else.
func bindFields(c *gin.Context) (validation.Record, bool) {
	var fields validation.Record
	if err := c.ShouldBindJSON(&fields); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: []string{msgBodyNotObject}})
		return nil, false
	}
	if fields == nil {
		fields = validation.Record{}
	}
	return fields, true
}

// writeError maps a usecase error to its HTTP response. Server errors carry
// serverMessage, or the error text when serverMessage is empty.
func writeError(c *gin.Context, err error, serverMessage string) {
	var verr *pkgerrors.ValidationError
	if errors.As(err, &verr) {
		c.JSON(verr.HTTPStatus(), ValidationErrorResponse{Errors: verr.Errors})
		return
	}

	status := http.StatusInternalServerError
	var statuser pkgerrors.HTTPStatuser
	if errors.As(err, &statuser) {
		status = statuser.HTTPStatus()
	}

	message := err.Error()
	if status >= http.StatusInternalServerError && serverMessage != "" {
		message = serverMessage
	}
	c.JSON(status, ErrorResponse{Message: message})
}
