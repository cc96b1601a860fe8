package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleanline-pos/api/internal/auth"
	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
	"github.com/cleanline-pos/api/internal/handler"
)

type mockAuthStore struct {
	getUserByEmailFn func(ctx context.Context, email string) (database.User, error)
	getUserByIDFn    func(ctx context.Context, id uuid.UUID) (database.User, error)
}

func (m *mockAuthStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(ctx, email)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, id)
	}
	return database.User{}, pgx.ErrNoRows
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func testUser(t *testing.T, password string) database.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return database.User{
		ID:           uuid.New(),
		BranchID:     uuid.New(),
		Name:         "Jane Attendant",
		Email:        "jane@cleanline.test",
		PasswordHash: string(hash),
		Role:         enum.UserRoleFrontDesk,
		Active:       true,
	}
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestLogin_Success(t *testing.T) {
	user := testUser(t, "correct horse")
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			if email != user.Email {
				t.Errorf("email: got %s, want %s", email, user.Email)
			}
			return user, nil
		},
	}
	router := setupAuthRouter(store)

	rr := postJSON(t, router, "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "correct horse",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	access, _ := resp["access_token"].(string)
	if access == "" {
		t.Fatal("expected non-empty access_token")
	}
	if resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}

	// The access token must carry the user's identity and branch.
	claims, err := auth.ValidateToken(testJWTSecret, access)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("user_id: got %v, want %v", claims.UserID, user.ID)
	}
	if claims.BranchID != user.BranchID {
		t.Errorf("branch_id: got %v, want %v", claims.BranchID, user.BranchID)
	}
	if claims.Role != enum.UserRoleFrontDesk {
		t.Errorf("role: got %s, want %s", claims.Role, enum.UserRoleFrontDesk)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := testUser(t, "correct horse")
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			return user, nil
		},
	}
	router := setupAuthRouter(store)

	rr := postJSON(t, router, "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "battery staple",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})

	rr := postJSON(t, router, "/auth/login", map[string]string{
		"email":    "nobody@cleanline.test",
		"password": "whatever",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})

	rr := postJSON(t, router, "/auth/login", map[string]string{"email": "jane@cleanline.test"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRefresh_Success(t *testing.T) {
	user := testUser(t, "pw")
	refresh, err := auth.GenerateRefreshToken(testJWTSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id != user.ID {
				t.Errorf("user id: got %v, want %v", id, user.ID)
			}
			return user, nil
		},
	}
	router := setupAuthRouter(store)

	rr := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": refresh})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	user := testUser(t, "pw")
	access, err := auth.GenerateToken(testJWTSecret, user.ID, user.BranchID, user.Name, user.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	router := setupAuthRouter(&mockAuthStore{})

	rr := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": access})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})

	rr := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": "not-a-jwt"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_UserDeleted(t *testing.T) {
	refresh, err := auth.GenerateRefreshToken(testJWTSecret, uuid.New())
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	router := setupAuthRouter(&mockAuthStore{})

	rr := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": refresh})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
