package main

import (
	"errors"
	"net/http"
	"strings"
)

func (a *app) handleMe(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())
	writeJSON(w, http.StatusOK, toDTO(u), "current user fetched successfully")
}

func (a *app) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		errorJSON(w, upstream("could not list users", err))
		return
	}
	out := make([]userDTO, 0, len(users))
	for i := range users {
		out = append(out, toDTO(&users[i]))
	}
	writeJSON(w, http.StatusOK, out, "all users fetched successfully")
}

type updateDetailsReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// handleUpdateDetails patches only the provided fields. Taking someone
// else's username or email is a conflict.
func (a *app) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	var in updateDetailsReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, badRequest("invalid json"))
		return
	}
	u := currentUser(r.Context())

	var patch UserPatch
	if v := strings.TrimSpace(in.Name); v != "" && v != u.Name {
		patch.Name = &v
	}
	if v := strings.TrimSpace(strings.ToLower(in.Email)); v != "" && v != u.Email {
		patch.Email = &v
	}
	if v := strings.TrimSpace(in.Username); v != "" && v != u.Username {
		patch.Username = &v
	}

	updated, err := a.store.UpdateUser(r.Context(), u.ID, patch)
	if errors.Is(err, errDuplicate) {
		errorJSON(w, conflict("user with same username or email already exists"))
		return
	}
	if err != nil {
		errorJSON(w, upstream("could not update user", err))
		return
	}
	writeJSON(w, http.StatusOK, toDTO(updated), "account details updated successfully")
}

func (a *app) handleUpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		errorJSON(w, badRequest("invalid form"))
		return
	}
	url, apiErr := a.uploadFromRequest(r, "profileImage")
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	if url == "" {
		errorJSON(w, badRequest("profile image file is missing"))
		return
	}

	u := currentUser(r.Context())
	updated, err := a.store.UpdateUser(r.Context(), u.ID, UserPatch{ProfileImage: &url})
	if err != nil {
		errorJSON(w, upstream("could not update profile image", err))
		return
	}
	writeJSON(w, http.StatusOK, toDTO(updated), "profile image updated successfully")
}
