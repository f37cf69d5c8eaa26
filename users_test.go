package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUpdateDetails(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "Alice", "a@x.com", "a1", "p")
	signupUser(t, h, "Bob", "b@x.com", "b1", "p")
	alice := loginUser(t, h, "a1", "p")

	// taking bob's username is a conflict
	w, _ := doJSON(t, h, http.MethodPatch, "/api/users/details", map[string]string{
		"username": "b1",
	}, alice)
	if w.Code != http.StatusConflict {
		t.Fatalf("stolen username: expected 409, got %d", w.Code)
	}

	w, env := doJSON(t, h, http.MethodPatch, "/api/users/details", map[string]string{
		"name": "Alice Cooper", "email": "alice@x.com",
	}, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("update: code %d body %s", w.Code, w.Body.String())
	}
	var dto struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(env.Data, &dto); err != nil {
		t.Fatalf("data: %v", err)
	}
	if dto.Name != "Alice Cooper" || dto.Email != "alice@x.com" || dto.Username != "a1" {
		t.Fatalf("patch semantics broken: %+v", dto)
	}
}

func TestUpdateProfileImage(t *testing.T) {
	a, h := newTestApp(t)
	signupUser(t, h, "Alice", "a@x.com", "a1", "p")
	alice := loginUser(t, h, "a1", "p")

	// missing file
	body, contentType := multipartBody(t, map[string]string{"noise": "x"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/users/profile-image", body)
	req.Header.Set("Content-Type", contentType)
	for _, c := range alice {
		req.AddCookie(c)
	}
	if w := doRaw(h, req); w.Code != http.StatusBadRequest {
		t.Fatalf("missing file: expected 400, got %d", w.Code)
	}

	body, contentType = multipartBody(t, nil, "profileImage", "me.jpg", []byte("jpeg-bytes"))
	req = httptest.NewRequest(http.MethodPatch, "/api/users/profile-image", body)
	req.Header.Set("Content-Type", contentType)
	for _, c := range alice {
		req.AddCookie(c)
	}
	w := doRaw(h, req)
	if w.Code != http.StatusOK {
		t.Fatalf("code %d body %s", w.Code, w.Body.String())
	}
	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	var dto struct {
		ProfileImage string `json:"profileImage"`
	}
	if err := json.Unmarshal(env.Data, &dto); err != nil || dto.ProfileImage == "" {
		t.Fatalf("no image url in %s", env.Data)
	}
	if a.images.(*fakeImageHost).uploads != 1 {
		t.Fatalf("image host called %d times", a.images.(*fakeImageHost).uploads)
	}
}

func TestImageHostFailureIsUpstream(t *testing.T) {
	a, h := newTestApp(t)
	signupUser(t, h, "Alice", "a@x.com", "a1", "p")
	alice := loginUser(t, h, "a1", "p")
	a.images.(*fakeImageHost).fail = true

	body, contentType := multipartBody(t, nil, "profileImage", "me.jpg", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPatch, "/api/users/profile-image", body)
	req.Header.Set("Content-Type", contentType)
	for _, c := range alice {
		req.AddCookie(c)
	}
	w := doRaw(h, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if env.Success {
		t.Fatal("failure reported as success")
	}
}

func TestListUsersHidesCredentials(t *testing.T) {
	_, h := newTestApp(t)
	signupUser(t, h, "Alice", "a@x.com", "a1", "p")
	signupUser(t, h, "Bob", "b@x.com", "b1", "p")

	w, env := doJSON(t, h, http.MethodGet, "/api/users/", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: code %d", w.Code)
	}
	var users []map[string]any
	if err := json.Unmarshal(env.Data, &users); err != nil {
		t.Fatalf("data: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("want 2 users, got %d", len(users))
	}
	for _, u := range users {
		if _, ok := u["password"]; ok {
			t.Fatal("password exposed in user list")
		}
		if _, ok := u["refreshToken"]; ok {
			t.Fatal("refresh token exposed in user list")
		}
	}
}
