package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	usecase "user-service/internal/usecase/user"
	pkgerrors "user-service/pkg/errors"
	"user-service/pkg/validation"
)

// MockUserUsecase is a mock implementation of user.Usecase
type MockUserUsecase struct {
	mock.Mock
}

func (m *MockUserUsecase) CreateUser(ctx context.Context, req usecase.CreateUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) ListUsers(ctx context.Context) ([]usecase.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.User), args.Error(1)
}

func (m *MockUserUsecase) GetUser(ctx context.Context, req usecase.GetUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) UpdateUser(ctx context.Context, req usecase.UpdateUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) DeleteUser(ctx context.Context, req usecase.DeleteUserRequest) error {
	return m.Called(ctx, req).Error(0)
}

func setupTest(t *testing.T) (*gin.Engine, *MockUserUsecase) {
	gin.SetMode(gin.TestMode)
	mockUsecase := new(MockUserUsecase)
	h := NewUserHandler(mockUsecase, zaptest.NewLogger(t))

	r := gin.New()
	r.POST("/users", h.CreateUser)
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	r.PUT("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
	return r, mockUsecase
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		age := 30
		mockUsecase.On("CreateUser", mock.Anything, mock.MatchedBy(func(req usecase.CreateUserRequest) bool {
			return req.Fields["name"] == "John Doe" && req.Fields["age"] == 30.0
		})).Return(&usecase.User{ID: "u-1", Name: "John Doe", Email: "john@example.com", Age: &age}, nil)

		w := doRequest(r, http.MethodPost, "/users", `{"name":"John Doe","email":"john@example.com","password":"pw","age":30}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "u-1", body["id"])
		assert.Equal(t, 30.0, body["age"])
		assert.NotContains(t, body, "password")
	})

	t.Run("Validation Error", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewValidationError("Name is required.", "Password is required."))

		w := doRequest(r, http.MethodPost, "/users", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"errors":["Name is required.","Password is required."]}`, w.Body.String())
	})

	t.Run("Empty Body Is Empty Object", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, usecase.CreateUserRequest{Fields: validation.Record{}}).
			Return(nil, pkgerrors.NewValidationError("Name is required."))

		w := doRequest(r, http.MethodPost, "/users", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUsecase.AssertExpectations(t)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		for _, body := range []string{"invalid json", `["a"]`} {
			w := doRequest(r, http.MethodPost, "/users", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"errors":["Request body must be a JSON object."]}`, w.Body.String())
		}
		mockUsecase.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("Email Exists", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).Return(nil, usecase.ErrEmailExists)

		w := doRequest(r, http.MethodPost, "/users", `{"name":"A","email":"a@b.co","password":"p"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"message":"Email already exists"}`, w.Body.String())
	})

	t.Run("Internal Error Exposes Message", func(t *testing.T) {
		r, mockUsecase := setupTest(t)

		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewInternalError("failed to create user", errors.New("connection refused")))

		w := doRequest(r, http.MethodPost, "/users", `{"name":"A","email":"a@b.co","password":"p"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"message":"failed to create user: connection refused"}`, w.Body.String())
	})
}

func TestListUsers(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("ListUsers", mock.Anything).Return([]usecase.User{}, nil)

		w := doRequest(r, http.MethodGet, "/users", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("Users", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("ListUsers", mock.Anything).Return([]usecase.User{
			{ID: "u-1", Name: "Ann"},
			{ID: "u-2", Name: "Bob"},
		}, nil)

		w := doRequest(r, http.MethodGet, "/users", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var body []UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body, 2)
		assert.Equal(t, "Bob", body[1].Name)
	})

	t.Run("Untyped Error", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("ListUsers", mock.Anything).Return(nil, errors.New("boom"))

		w := doRequest(r, http.MethodGet, "/users", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"message":"boom"}`, w.Body.String())
	})
}

func TestGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("GetUser", mock.Anything, usecase.GetUserRequest{ID: "u-1"}).
			Return(&usecase.User{ID: "u-1", Name: "Ann", Email: "ann@example.com"}, nil)

		w := doRequest(r, http.MethodGet, "/users/u-1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, strings.Contains(w.Body.String(), `"age"`))
	})

	t.Run("Not Found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("GetUser", mock.Anything, usecase.GetUserRequest{ID: "nope"}).
			Return(nil, usecase.ErrUserNotFound)

		w := doRequest(r, http.MethodGet, "/users/nope", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"message":"User not found"}`, w.Body.String())
	})
}

func TestUpdateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("UpdateUser", mock.Anything, usecase.UpdateUserRequest{
			ID:     "u-1",
			Fields: validation.Record{"name": "Anna"},
		}).Return(&usecase.User{ID: "u-1", Name: "Anna"}, nil)

		w := doRequest(r, http.MethodPut, "/users/u-1", `{"name":"Anna"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var body UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Anna", body.Name)
	})

	t.Run("Not Found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("UpdateUser", mock.Anything, mock.Anything).Return(nil, usecase.ErrUserNotFound)

		w := doRequest(r, http.MethodPut, "/users/nope", `{"name":"X"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Validation Error", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("UpdateUser", mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewValidationError("The Email must be a valid email address."))

		w := doRequest(r, http.MethodPut, "/users/u-1", `{"email":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"errors":["The Email must be a valid email address."]}`, w.Body.String())
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("DeleteUser", mock.Anything, usecase.DeleteUserRequest{ID: "u-1"}).Return(nil)

		w := doRequest(r, http.MethodDelete, "/users/u-1", "")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("Not Found", func(t *testing.T) {
		r, mockUsecase := setupTest(t)
		mockUsecase.On("DeleteUser", mock.Anything, usecase.DeleteUserRequest{ID: "nope"}).
			Return(usecase.ErrUserNotFound)

		w := doRequest(r, http.MethodDelete, "/users/nope", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"message":"User not found"}`, w.Body.String())
	})
}
