package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

const (
	cookieAccess  = "accessToken"
	cookieRefresh = "refreshToken"
)

/* ===================== Cookies ====================== */

func (a *app) setSessionCookies(w http.ResponseWriter, access, refresh string) {
	a.setCookie(w, cookieAccess, access, a.cfg.AccessTTL)
	a.setCookie(w, cookieRefresh, refresh, a.cfg.RefreshTTL)
}

func (a *app) clearSessionCookies(w http.ResponseWriter) {
	a.setCookie(w, cookieAccess, "", -1)
	a.setCookie(w, cookieRefresh, "", -1)
}

func (a *app) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: a.cfg.CookieSameSite,
		Secure:   a.cfg.CookieSecure,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, c)
}

/* ===================== Session helpers ====================== */

// issueSession mints the token pair and persists the refresh token on the
// user record, which is what makes it the single valid session.
func (a *app) issueSession(r *http.Request, u *User) (access, refresh string, apiErr *apiError) {
	access, err := a.tokens.issue(kindAccess, u.ID.Hex())
	if err != nil {
		return "", "", upstream("could not issue session", err)
	}
	refresh, err = a.tokens.issue(kindRefresh, u.ID.Hex())
	if err != nil {
		return "", "", upstream("could not issue session", err)
	}
	if _, err := a.store.UpdateUser(r.Context(), u.ID, UserPatch{RefreshToken: &refresh}); err != nil {
		return "", "", upstream("could not persist session", err)
	}
	return access, refresh, nil
}

/* ===================== Handlers ====================== */

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignup accepts JSON, or multipart form data when a profileImage file
// accompanies the registration.
func (a *app) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupReq
	var imageURL string
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			errorJSON(w, badRequest("invalid form"))
			return
		}
		in = signupReq{
			Name:     r.FormValue("name"),
			Email:    r.FormValue("email"),
			Username: r.FormValue("username"),
			Password: r.FormValue("password"),
		}
		url, apiErr := a.uploadFromRequest(r, "profileImage")
		if apiErr != nil {
			errorJSON(w, apiErr)
			return
		}
		imageURL = url
	} else if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, badRequest("invalid json"))
		return
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if in.Name == "" || in.Email == "" || in.Username == "" || in.Password == "" {
		errorJSON(w, badRequest("all fields are required"))
		return
	}

	if _, err := a.store.FindUserTaken(r.Context(), in.Username, in.Email); err == nil {
		errorJSON(w, conflict("user with same username or email already exists"))
		return
	} else if !errors.Is(err, errNotFound) {
		errorJSON(w, upstream("could not create user", err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		errorJSON(w, upstream("could not create user", err))
		return
	}
	u := &User{
		Name:         in.Name,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: string(hash),
		ProfileImage: imageURL,
	}
	// the unique indexes are the source of truth for duplicates, so two
	// concurrent signups cannot both win
	if err := a.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, errDuplicate) {
			errorJSON(w, conflict("user with same username or email already exists"))
			return
		}
		errorJSON(w, upstream("could not create user", err))
		return
	}
	writeJSON(w, http.StatusCreated, toDTO(u), "successfully created user")
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, badRequest("invalid json"))
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		errorJSON(w, badRequest("username and password are required"))
		return
	}

	// same response for unknown user and wrong password
	u, err := a.store.FindUserByLogin(r.Context(), in.Username)
	if errors.Is(err, errNotFound) {
		errorJSON(w, unauthorized("invalid credentials"))
		return
	}
	if err != nil {
		errorJSON(w, upstream("could not log in", err))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		errorJSON(w, unauthorized("invalid credentials"))
		return
	}

	access, refresh, apiErr := a.issueSession(r, u)
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	a.setSessionCookies(w, access, refresh)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         toDTO(u),
		"accessToken":  access,
		"refreshToken": refresh,
	}, "user logged in successfully")
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())
	if err := a.store.ClearRefreshToken(r.Context(), u.ID); err != nil && !errors.Is(err, errNotFound) {
		errorJSON(w, upstream("could not log out", err))
		return
	}
	a.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{}, "user logged out")
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

// handleRefresh rotates the session: the presented token must match the one
// stored on the user exactly, and a successful refresh invalidates it. A
// mismatch with a valid signature means the token was already used.
func (a *app) handleRefresh(w http.ResponseWriter, r *http.Request) {
	incoming := ""
	if c, err := r.Cookie(cookieRefresh); err == nil && c.Value != "" {
		incoming = c.Value
	} else {
		var in refreshReq
		if err := decodeJSON(r, &in); err == nil {
			incoming = in.RefreshToken
		}
	}
	if incoming == "" {
		errorJSON(w, unauthorized("unauthorized request"))
		return
	}

	claims, err := a.tokens.verify(incoming, kindRefresh)
	if err != nil {
		errorJSON(w, unauthorized("invalid refresh token"))
		return
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		errorJSON(w, unauthorized("invalid refresh token"))
		return
	}

	access, err := a.tokens.issue(kindAccess, claims.UserID)
	if err != nil {
		errorJSON(w, upstream("could not issue session", err))
		return
	}
	refresh, err := a.tokens.issue(kindRefresh, claims.UserID)
	if err != nil {
		errorJSON(w, upstream("could not issue session", err))
		return
	}

	switch err := a.store.RotateRefreshToken(r.Context(), id, incoming, refresh); {
	case errors.Is(err, errTokenMismatch):
		errorJSON(w, unauthorized("refresh token is expired or used"))
		return
	case errors.Is(err, errNotFound):
		errorJSON(w, unauthorized("invalid refresh token"))
		return
	case err != nil:
		errorJSON(w, upstream("could not refresh session", err))
		return
	}

	a.setSessionCookies(w, access, refresh)
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
	}, "access token refreshed successfully")
}

type resetPasswordReq struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// handleResetPassword leaves outstanding access tokens valid; the short
// access TTL bounds the staleness window.
func (a *app) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetPasswordReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, badRequest("invalid json"))
		return
	}
	if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		errorJSON(w, badRequest("all fields are required"))
		return
	}
	if in.NewPassword != in.ConfirmPassword {
		errorJSON(w, badRequest("passwords do not match"))
		return
	}

	// re-read the record: the gate stripped the hash from the context copy
	u, err := a.store.FindUserByID(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		errorJSON(w, unauthorized("invalid or expired token"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.OldPassword)) != nil {
		errorJSON(w, badRequest("invalid old password"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		errorJSON(w, upstream("could not change password", err))
		return
	}
	hashStr := string(hash)
	if _, err := a.store.UpdateUser(r.Context(), u.ID, UserPatch{PasswordHash: &hashStr}); err != nil {
		errorJSON(w, upstream("could not change password", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{}, "password changed successfully")
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
