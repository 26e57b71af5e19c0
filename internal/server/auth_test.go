package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type stubUserStore struct {
	users     map[string]string // email -> hash
	createErr error
}

func (s *stubUserStore) CreateUser(ctx context.Context, email, hash string) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.users == nil {
		s.users = map[string]string{}
	}
	s.users[email] = hash
	return nil
}

func (s *stubUserStore) GetUserByEmail(ctx context.Context, email string) (string, string, error) {
	hash, ok := s.users[email]
	if !ok {
		return "", "", errors.New("no rows")
	}
	return "user-1", hash, nil
}

func TestSignupCreatesUser(t *testing.T) {
	st := &stubUserStore{}
	h := &AuthHandler{Store: st, Secret: []byte("secret")}
	e := echo.New()
	rec, c := postJSON(t, e, "/api/auth/signup", `{"email": "a@b.com", "password": "longenough"}`)
	if err := h.signup(c); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := st.users["a@b.com"]; !ok {
		t.Fatal("user not stored")
	}
}

func TestSignupRejectsShortPassword(t *testing.T) {
	h := &AuthHandler{Store: &stubUserStore{}, Secret: []byte("secret")}
	e := echo.New()
	_, c := postJSON(t, e, "/api/auth/signup", `{"email": "a@b.com", "password": "short"}`)
	err := h.signup(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	st := &stubUserStore{createErr: &pq.Error{Code: "23505"}}
	h := &AuthHandler{Store: st, Secret: []byte("secret")}
	e := echo.New()
	_, c := postJSON(t, e, "/api/auth/signup", `{"email": "a@b.com", "password": "longenough"}`)
	err := h.signup(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestLoginSetsCookieAndReturnsToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatal(err)
	}
	st := &stubUserStore{users: map[string]string{"a@b.com": string(hash)}}
	h := &AuthHandler{Store: st, Secret: []byte("secret")}
	e := echo.New()
	rec, c := postJSON(t, e, "/api/auth/login", `{"email": "a@b.com", "password": "longenough"}`)
	if err := h.login(c); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	found := false
	for _, ck := range cookies {
		if ck.Name == "auth" && ck.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("auth cookie not set")
	}
	if got := rec.Header().Get("Authorization"); got == "" {
		t.Fatal("bearer header not set")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("rightpassword"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatal(err)
	}
	st := &stubUserStore{users: map[string]string{"a@b.com": string(hash)}}
	h := &AuthHandler{Store: st, Secret: []byte("secret")}
	e := echo.New()
	_, c := postJSON(t, e, "/api/auth/login", `{"email": "a@b.com", "password": "wrongpassword"}`)
	loginErr := h.login(c)
	he, ok := loginErr.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", loginErr)
	}
}

func TestLoginUnknownUserUnauthorized(t *testing.T) {
	h := &AuthHandler{Store: &stubUserStore{}, Secret: []byte("secret")}
	e := echo.New()
	_, c := postJSON(t, e, "/api/auth/login", `{"email": "nobody@b.com", "password": "longenough"}`)
	loginErr := h.login(c)
	he, ok := loginErr.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", loginErr)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h := &AuthHandler{Store: &stubUserStore{}, Secret: []byte("secret")}
	e := echo.New()
	rec, c := postJSON(t, e, "/api/auth/logout", `{}`)
	if err := h.logout(c); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "auth" {
			if ck.MaxAge >= 0 {
				t.Fatalf("auth cookie not expired: MaxAge=%d", ck.MaxAge)
			}
			return
		}
	}
	t.Fatal("auth cookie not touched")
}
