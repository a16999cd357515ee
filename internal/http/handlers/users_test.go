package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// Fake service implementation of the handlers.UserManager interface

type fakeUsersService struct {
	listFn           func(ctx context.Context) ([]user.User, error)
	getFn            func(ctx context.Context, id string) (user.User, error)
	createFn         func(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	updateFn         func(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	deleteFn         func(ctx context.Context, id string) error
	updatePasswordFn func(ctx context.Context, id string, req user.UpdatePasswordRequest) error
}

func (f *fakeUsersService) List(ctx context.Context) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}

	return []user.User{}, nil
}

func (f *fakeUsersService) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return user.User{}, nil
}

func (f *fakeUsersService) Create(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}

	return user.User{}, nil
}

func (f *fakeUsersService) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}

	return user.User{}, nil
}

func (f *fakeUsersService) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}

	return nil
}

func (f *fakeUsersService) UpdatePassword(ctx context.Context, id string, req user.UpdatePasswordRequest) error {
	if f.updatePasswordFn != nil {
		return f.updatePasswordFn(ctx, id, req)
	}

	return nil
}

// small helper which returns a gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

// Create user tests

func TestCreateUserHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		body           string
		svcSetUp       func(*fakeUsersService)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{
				"name": "Ada",
				"email": "ada@example.com",
				"password": "correct-horse",
				"password_confirm": "correct-horse"
			}`,
			svcSetUp: func(f *fakeUsersService) {
				f.createFn = func(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
					return user.User{
						ID:        newUUID(),
						Name:      req.Name,
						Email:     req.Email,
						CreatedAt: now,
						UpdatedAt: now,
					}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "validation_error",
			body: `{"name": ""}`, // incomplete payload, service must not be called
			svcSetUp: func(f *fakeUsersService) {
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "password_mismatch",
			body: `{
				"name": "Ada",
				"email": "ada@example.com",
				"password": "correct-horse",
				"password_confirm": "wrong-horse"
			}`,
			svcSetUp: func(f *fakeUsersService) {
				f.createFn = func(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
					return user.User{}, apperr.InvalidPassword("Passwords do not match")
				}
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "email_taken",
			body: `{
				"name": "Ada",
				"email": "ada@example.com",
				"password": "correct-horse",
				"password_confirm": "correct-horse"
			}`,
			svcSetUp: func(f *fakeUsersService) {
				f.createFn = func(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
					return user.User{}, apperr.EmailTaken("Email is already in use")
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "service_error",
			body: `{
				"name": "Ada",
				"email": "ada@example.com",
				"password": "correct-horse",
				"password_confirm": "correct-horse"
			}`,
			svcSetUp: func(f *fakeUsersService) {
				f.createFn = func(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
					return user.User{}, apperr.Server("Could not create user")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeSvc := &fakeUsersService{}

			if tt.svcSetUp != nil {
				tt.svcSetUp(fakeSvc)
			}

			h := handlers.NewUsersHandler(fakeSvc)

			r := setupRouter(http.MethodPost, "/users", h.CreateUser)

			req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusCreated {
				var resp map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if _, ok := resp["password"]; ok {
					t.Fatalf("password must never be echoed back: %s", w.Body.String())
				}
				if resp["name"] != "Ada" || resp["email"] != "ada@example.com" {
					t.Fatalf("unexpected payload: %s", w.Body.String())
				}
			}
		})
	}
}

// List users tests

func TestListUsersHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		svcSetup       func(*fakeUsersService)
		wantStatusCode int
		wantCount      int
	}{
		{
			name: "success",
			svcSetup: func(f *fakeUsersService) {
				f.listFn = func(ctx context.Context) ([]user.User, error) {
					return []user.User{
						{ID: "id-1", Name: "Ada", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now},
						{ID: "id-2", Name: "Grace", Email: "grace@example.com", CreatedAt: now, UpdatedAt: now},
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      2,
		},
		{
			name: "empty",
			svcSetup: func(f *fakeUsersService) {
				f.listFn = func(ctx context.Context) ([]user.User, error) {
					return []user.User{}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      0,
		},
		{
			name: "service_error",
			svcSetup: func(f *fakeUsersService) {
				f.listFn = func(ctx context.Context) ([]user.User, error) {
					return nil, apperr.Server("Could not list users")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantCount:      0,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeSvc := &fakeUsersService{}
			if tt.svcSetup != nil {
				tt.svcSetup(fakeSvc)
			}

			h := handlers.NewUsersHandler(fakeSvc)
			r := setupRouter(http.MethodGet, "/users", h.ListUsers)

			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Count int `json:"count"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Count != tt.wantCount {
					t.Fatalf("got count %d, want %d", resp.Count, tt.wantCount)
				}
			}
		})
	}
}

func TestGetUserByIdHandler(t *testing.T) {
	now := time.Now().UTC()
	validID := newUUID()
	missingID := newUUID()

	tests := []struct {
		name           string
		url            string
		svcSetup       func(f *fakeUsersService)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/users/" + validID,
			svcSetup: func(f *fakeUsersService) {
				f.getFn = func(ctx context.Context, id string) (user.User, error) {
					return user.User{
						ID:        id,
						Name:      "Ada",
						Email:     "ada@example.com",
						CreatedAt: now.Add(-time.Hour),
						UpdatedAt: now,
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "unknown_user",
			url:  "/users/" + missingID,
			svcSetup: func(f *fakeUsersService) {
				f.getFn = func(ctx context.Context, id string) (user.User, error) {
					return user.User{}, apperr.Unprocessable("Unknown user")
				}
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "service_error",
			url:  "/users/" + validID,
			svcSetup: func(f *fakeUsersService) {
				f.getFn = func(ctx context.Context, id string) (user.User, error) {
					return user.User{}, apperr.Server("Could not fetch user")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeSvc := &fakeUsersService{}

			if tt.svcSetup != nil {
				tt.svcSetup(fakeSvc)
			}

			h := handlers.NewUsersHandler(fakeSvc)
			r := setupRouter(http.MethodGet, "/users/:id", h.GetUserById)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestUpdateUserHandler(t *testing.T) {
	validID := newUUID()
	missingID := newUUID()

	tests := []struct {
		name           string
		url            string
		body           string
		svcSetup       func(f *fakeUsersService)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/users/" + validID,
			body: `{"name": "Ada Lovelace", "email": "ada@example.com"}`,
			svcSetup: func(f *fakeUsersService) {
				f.updateFn = func(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
					return user.User{ID: id, Name: req.Name, Email: req.Email}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "unknown_user",
			url:  "/users/" + missingID,
			body: `{"name": "Nobody", "email": "nobody@example.com"}`,
			svcSetup: func(f *fakeUsersService) {
				f.updateFn = func(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
					return user.User{}, apperr.Unprocessable("Unknown user")
				}
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "validation_error",
			url:  "/users/" + validID,
			body: `{"name": ""}`,
			svcSetup: func(f *fakeUsersService) {
				// service must not be called at all in this case
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "email_taken",
			url:  "/users/" + validID,
			body: `{"name": "Ada", "email": "grace@example.com"}`,
			svcSetup: func(f *fakeUsersService) {
				f.updateFn = func(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
					return user.User{}, apperr.EmailTaken("Email is already in use")
				}
			},
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeSvc := &fakeUsersService{}

			if tt.svcSetup != nil {
				tt.svcSetup(fakeSvc)
			}

			h := handlers.NewUsersHandler(fakeSvc)

			r := setupRouter(http.MethodPut, "/users/:id", h.UpdateUser)
			req := httptest.NewRequest(http.MethodPut, tt.url, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteUserHandler(t *testing.T) {
	validID := newUUID()
	missingID := newUUID()

	tests := []struct {
		name           string
		url            string
		svcSetup       func(*fakeUsersService)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/users/" + validID,
			svcSetup: func(f *fakeUsersService) {
				f.deleteFn = func(ctx context.Context, id string) error {
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "unknown_user",
			url:  "/users/" + missingID,
			svcSetup: func(f *fakeUsersService) {
				f.deleteFn = func(ctx context.Context, id string) error {
					return apperr.Unprocessable("Unknown user")
				}
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeSvc := &fakeUsersService{}

			if tt.svcSetup != nil {
				tt.svcSetup(fakeSvc)
			}

			h := handlers.NewUsersHandler(fakeSvc)

			r := setupRouter(http.MethodDelete, "/users/:id", h.DeleteUser)

			req := httptest.NewRequest(http.MethodDelete, tt.url, nil)

			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					ID string `json:"id"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.ID != validID {
					t.Fatalf("got id %q, want %q", resp.ID, validID)
				}
			}
		})
	}
}

func TestUpdatePasswordHandler(t *testing.T) {
	validID := newUUID()

	tests := []struct {
		name           string
		body           string
		svcSetup       func(*fakeUsersService)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{
				"password_old": "correct-horse",
				"password_new": "battery-staple",
				"password_new_confirm": "battery-staple"
			}`,
			svcSetup: func(f *fakeUsersService) {
				f.updatePasswordFn = func(ctx context.Context, id string, req user.UpdatePasswordRequest) error {
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "wrong_old_password",
			body: `{
				"password_old": "not-my-password",
				"password_new": "battery-staple",
				"password_new_confirm": "battery-staple"
			}`,
			svcSetup: func(f *fakeUsersService) {
				f.updatePasswordFn = func(ctx context.Context, id string, req user.UpdatePasswordRequest) error {
					return apperr.InvalidPassword("Wrong password")
				}
			},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "validation_error",
			body: `{"password_old": "correct-horse"}`,
			svcSetup: func(f *fakeUsersService) {
				// service must not be called
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "downstream_failure",
			body: `{
				"password_old": "correct-horse",
				"password_new": "battery-staple",
				"password_new_confirm": "battery-staple"
			}`,
			svcSetup: func(f *fakeUsersService) {
				f.updatePasswordFn = func(ctx context.Context, id string, req user.UpdatePasswordRequest) error {
					return apperr.Server("Could not update password")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeSvc := &fakeUsersService{}

			if tt.svcSetup != nil {
				tt.svcSetup(fakeSvc)
			}

			h := handlers.NewUsersHandler(fakeSvc)

			r := setupRouter(http.MethodPut, "/users/:id/password", h.UpdatePassword)

			req := httptest.NewRequest(http.MethodPut, "/users/"+validID+"/password", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				// the new plaintext password must never appear in the response
				var resp map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if _, ok := resp["password_new"]; ok {
					t.Fatalf("plaintext password echoed back: %s", w.Body.String())
				}
				if resp["id"] != validID {
					t.Fatalf("got id %v, want %q", resp["id"], validID)
				}
			}
		})
	}
}

func TestListUsersHandler_CacheHit(t *testing.T) {
	now := time.Now().UTC()

	fakeSvc := &fakeUsersService{}
	c := cache.New(30 * time.Second)

	calls := 0
	fakeSvc.listFn = func(ctx context.Context) ([]user.User, error) {
		calls++
		return []user.User{
			{ID: "id-1", Name: "Ada", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now},
		}, nil
	}

	h := handlers.NewUsersHandlerWithCache(fakeSvc, c)
	r := setupRouter(http.MethodGet, "/users", h.ListUsers)

	// First request: cache miss -> service called
	w1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.ServeHTTP(w1, req1)

	if w1.Code != http.StatusOK {
		t.Fatalf("first call got %d body=%s", w1.Code, w1.Body.String())
	}

	// Second request: cache hit -> service should NOT be called again
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.ServeHTTP(w2, req2)

	if w2.Code != http.StatusOK {
		t.Fatalf("second call got %d body=%s", w2.Code, w2.Body.String())
	}

	if calls != 1 {
		t.Fatalf("expected service calls=1, got %d", calls)
	}
}

func TestListUsersHandler_CacheInvalidatedByDelete(t *testing.T) {
	now := time.Now().UTC()

	fakeSvc := &fakeUsersService{}
	c := cache.New(30 * time.Second)

	calls := 0
	fakeSvc.listFn = func(ctx context.Context) ([]user.User, error) {
		calls++
		return []user.User{
			{ID: "id-1", Name: "Ada", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now},
		}, nil
	}

	h := handlers.NewUsersHandlerWithCache(fakeSvc, c)

	r := gin.New()
	r.GET("/users", h.ListUsers)
	r.DELETE("/users/:id", h.DeleteUser)

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/users", nil))

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodDelete, "/users/id-1", nil))

	if w2.Code != http.StatusOK {
		t.Fatalf("delete got %d body=%s", w2.Code, w2.Body.String())
	}

	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/users", nil))

	if calls != 2 {
		t.Fatalf("expected list to hit the service again after delete, calls=%d", calls)
	}
}

func TestListUsersHandler_ETagNotModified(t *testing.T) {
	now := time.Now().UTC()

	fakeSvc := &fakeUsersService{}
	c := cache.New(30 * time.Second)
	calls := 0

	fakeSvc.listFn = func(ctx context.Context) ([]user.User, error) {
		calls++
		return []user.User{
			{ID: "id-1", Name: "Ada", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now},
		}, nil
	}

	h := handlers.NewUsersHandlerWithCache(fakeSvc, c)
	r := setupRouter(http.MethodGet, "/users", h.ListUsers)

	w1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.ServeHTTP(w1, req1)

	if w1.Code != http.StatusOK {
		t.Fatalf("first call got %d body=%s", w1.Code, w1.Body.String())
	}

	etag := w1.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header in first response")
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/users", nil)
	req2.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w2, req2)

	if w2.Code != http.StatusNotModified {
		t.Fatalf("second call got %d, want %d, body=%s", w2.Code, http.StatusNotModified, w2.Body.String())
	}

	if w2.Body.Len() != 0 {
		t.Fatalf("expected empty body for 304, got %q", w2.Body.String())
	}

	if calls != 1 {
		t.Fatalf("expected service calls=1 due to cache hit, got %d", calls)
	}
}
