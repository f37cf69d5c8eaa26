package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestSignupNeverLeaksCredentials(t *testing.T) {
	_, h := newTestApp(t)
	w, env := doJSON(t, h, http.MethodPost, "/api/users/signup", map[string]string{
		"name": "A", "email": "a@x.com", "username": "a1", "password": "p",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("code %d body %s", w.Code, w.Body.String())
	}
	if env.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("bad envelope: %s", w.Body.String())
	}
	var raw map[string]any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		t.Fatalf("data: %v", err)
	}
	for _, forbidden := range []string{"password", "refreshToken"} {
		if _, ok := raw[forbidden]; ok {
			t.Errorf("signup response contains %q", forbidden)
		}
	}
	if body := w.Body.String(); strings.Contains(body, "\"password\"") {
		t.Errorf("password serialized in body: %s", body)
	}
}

func TestSignupValidation(t *testing.T) {
	_, h := newTestApp(t)
	w, _ := doJSON(t, h, http.MethodPost, "/api/users/signup", map[string]string{
		"name": "A", "email": "", "username": "a1", "password": "p",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSignupDuplicateIsConflict(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "A", "a@x.com", "a1", "p")

	w, _ := doJSON(t, h, http.MethodPost, "/api/users/signup", map[string]string{
		"name": "B", "email": "b@x.com", "username": "a1", "password": "p",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("same username: expected 409, got %d", w.Code)
	}
	w, _ = doJSON(t, h, http.MethodPost, "/api/users/signup", map[string]string{
		"name": "B", "email": "a@x.com", "username": "b1", "password": "p",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("same email: expected 409, got %d", w.Code)
	}
}

func TestConcurrentSignupOneWinner(t *testing.T) {
	_, h := newTestApp(t)
	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, _ := doJSON(t, h, http.MethodPost, "/api/users/signup", map[string]string{
				"name": "A", "email": "a@x.com", "username": "a1", "password": "p",
			}, nil)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	if created != 1 || conflicts != n-1 {
		t.Fatalf("want exactly one 201, got %d created / %d conflicts (%v)", created, conflicts, codes)
	}
}

func TestLoginStoresIssuedRefreshToken(t *testing.T) {
	a, h := newTestApp(t)
	id := signupUser(t, h, "A", "a@x.com", "a1", "p")

	cookies := loginUser(t, h, "a1", "p")
	refresh := cookieValue(cookies, cookieRefresh)
	if refresh == "" || cookieValue(cookies, cookieAccess) == "" {
		t.Fatal("login did not set the token pair")
	}

	oid, _ := bson.ObjectIDFromHex(id)
	u, err := a.store.FindUserByID(context.Background(), oid)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if u.RefreshToken != refresh {
		t.Fatal("stored refresh token does not equal the issued one")
	}
}

func TestLoginByEmail(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "A", "a@x.com", "a1", "p")
	loginUser(t, h, "a@x.com", "p")
}

func TestLoginFailsAreIndistinguishable(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "A", "a@x.com", "a1", "p")

	w1, env1 := doJSON(t, h, http.MethodPost, "/api/users/login", map[string]string{
		"username": "nobody", "password": "p",
	}, nil)
	w2, env2 := doJSON(t, h, http.MethodPost, "/api/users/login", map[string]string{
		"username": "a1", "password": "wrong",
	}, nil)
	if w1.Code != http.StatusUnauthorized || w2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", w1.Code, w2.Code)
	}
	if env1.Message != env2.Message {
		t.Fatalf("unknown-user and wrong-password messages differ: %q vs %q", env1.Message, env2.Message)
	}
}

func TestAuthGate(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "A", "a@x.com", "a1", "p")
	cookies := loginUser(t, h, "a1", "p")

	// no token
	w, _ := doJSON(t, h, http.MethodGet, "/api/users/me", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}
	// garbage token
	w, _ = doJSON(t, h, http.MethodGet, "/api/users/me", nil, []*http.Cookie{
		{Name: cookieAccess, Value: "not-a-jwt"},
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", w.Code)
	}
	// cookie
	w, env := doJSON(t, h, http.MethodGet, "/api/users/me", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie auth: expected 200, got %d", w.Code)
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil || me.Username != "a1" {
		t.Fatalf("me: %s", env.Data)
	}
	// bearer header
	req := newBearerRequest(http.MethodGet, "/api/users/me", cookieValue(cookies, cookieAccess))
	w2 := doRaw(h, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("bearer auth: expected 200, got %d", w2.Code)
	}
	// refresh token is not an access token
	w, _ = doJSON(t, h, http.MethodGet, "/api/users/me", nil, []*http.Cookie{
		{Name: cookieAccess, Value: cookieValue(cookies, cookieRefresh)},
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh-as-access: expected 401, got %d", w.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "A", "a@x.com", "a1", "p")
	cookies := loginUser(t, h, "a1", "p")
	oldRefresh := cookieValue(cookies, cookieRefresh)

	// refresh via JSON body
	w, env := doJSON(t, h, http.MethodPost, "/api/users/refresh-token", map[string]string{
		"refreshToken": oldRefresh,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: code %d body %s", w.Code, w.Body.String())
	}
	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(env.Data, &pair); err != nil || pair.RefreshToken == "" {
		t.Fatalf("refresh data: %s", env.Data)
	}
	if pair.RefreshToken == oldRefresh {
		t.Fatal("refresh did not rotate the token")
	}

	// replaying the old token fails even though its signature is valid
	w, _ = doJSON(t, h, http.MethodPost, "/api/users/refresh-token", map[string]string{
		"refreshToken": oldRefresh,
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("replay: expected 401, got %d", w.Code)
	}

	// the rotated token still works, via cookie this time
	w, _ = doJSON(t, h, http.MethodPost, "/api/users/refresh-token", nil, []*http.Cookie{
		{Name: cookieRefresh, Value: pair.RefreshToken},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("rotated token: code %d body %s", w.Code, w.Body.String())
	}
}

func TestRefreshRejectsForgeries(t *testing.T) {
	a, h := newTestApp(t)
	signupUser(t, h, "A", "a@x.com", "a1", "p")
	loginUser(t, h, "a1", "p")

	// missing token
	w, _ := doJSON(t, h, http.MethodPost, "/api/users/refresh-token", map[string]string{}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing: expected 401, got %d", w.Code)
	}
	// access token signed with the wrong secret for this purpose
	u, _ := a.store.FindUserByLogin(context.Background(), "a1")
	access, _ := a.tokens.issue(kindAccess, u.ID.Hex())
	w, _ = doJSON(t, h, http.MethodPost, "/api/users/refresh-token", map[string]string{
		"refreshToken": access,
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong kind: expected 401, got %d", w.Code)
	}
	// well-signed refresh token that was never persisted
	stray, _ := a.tokens.issue(kindRefresh, u.ID.Hex())
	w, _ = doJSON(t, h, http.MethodPost, "/api/users/refresh-token", map[string]string{
		"refreshToken": stray,
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unstored: expected 401, got %d", w.Code)
	}
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "A", "a@x.com", "a1", "p")
	cookies := loginUser(t, h, "a1", "p")
	refresh := cookieValue(cookies, cookieRefresh)

	w, _ := doJSON(t, h, http.MethodPost, "/api/users/logout", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: code %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			t.Errorf("logout left cookie %s set", c.Name)
		}
	}

	w, _ = doJSON(t, h, http.MethodPost, "/api/users/refresh-token", map[string]string{
		"refreshToken": refresh,
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", w.Code)
	}
}

func TestResetPassword(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "A", "a@x.com", "a1", "old-pass")
	cookies := loginUser(t, h, "a1", "old-pass")

	// wrong old password
	w, _ := doJSON(t, h, http.MethodPost, "/api/users/reset-password", map[string]string{
		"oldPassword": "nope", "newPassword": "new-pass", "confirmPassword": "new-pass",
	}, cookies)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong old: expected 400, got %d", w.Code)
	}
	// mismatched confirmation
	w, _ = doJSON(t, h, http.MethodPost, "/api/users/reset-password", map[string]string{
		"oldPassword": "old-pass", "newPassword": "new-pass", "confirmPassword": "other",
	}, cookies)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("mismatch: expected 400, got %d", w.Code)
	}
	// success
	w, _ = doJSON(t, h, http.MethodPost, "/api/users/reset-password", map[string]string{
		"oldPassword": "old-pass", "newPassword": "new-pass", "confirmPassword": "new-pass",
	}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: code %d body %s", w.Code, w.Body.String())
	}

	// old password no longer logs in, new one does
	w, _ = doJSON(t, h, http.MethodPost, "/api/users/login", map[string]string{
		"username": "a1", "password": "old-pass",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password still works: %d", w.Code)
	}
	loginUser(t, h, "a1", "new-pass")
}
