package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type commentDTO struct {
	ID        string        `json:"id"`
	Text      string        `json:"commentText"`
	PostID    string        `json:"commentOnPost"`
	Author    *ownerSummary `json:"commentBy,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

func toCommentDTO(c *Comment) commentDTO {
	return commentDTO{
		ID:        c.ID.Hex(),
		Text:      c.Text,
		PostID:    c.PostID.Hex(),
		CreatedAt: c.CreatedAt,
	}
}

type createCommentReq struct {
	Text   string `json:"commentText"`
	PostID string `json:"postId"`
}

// handleCreateComment records the authenticated user as the comment owner;
// the body cannot name someone else.
func (a *app) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var in createCommentReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, badRequest("invalid json"))
		return
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		errorJSON(w, badRequest("comment text is required"))
		return
	}
	postID, err := bson.ObjectIDFromHex(in.PostID)
	if err != nil {
		errorJSON(w, badRequest("invalid post id"))
		return
	}
	if _, err := a.store.FindPostByID(r.Context(), postID); err != nil {
		if errors.Is(err, errNotFound) {
			errorJSON(w, notFound("no post found"))
			return
		}
		errorJSON(w, upstream("could not post comment", err))
		return
	}

	c := &Comment{
		Text:    in.Text,
		OwnerID: currentUser(r.Context()).ID,
		PostID:  postID,
	}
	if err := a.store.CreateComment(r.Context(), c); err != nil {
		errorJSON(w, upstream("could not post comment", err))
		return
	}
	writeJSON(w, http.StatusCreated, toCommentDTO(c), "comment posted successfully")
}

func (a *app) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	c, err := a.store.FindCommentByID(r.Context(), id)
	if errors.Is(err, errNotFound) {
		errorJSON(w, notFound("no comment found"))
		return
	}
	if err != nil {
		errorJSON(w, upstream("could not update comment", err))
		return
	}
	if apiErr := requireOwner(c.OwnerID, currentUser(r.Context())); apiErr != nil {
		errorJSON(w, apiErr)
		return
	}

	var in struct {
		Text string `json:"commentText"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, badRequest("invalid json"))
		return
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		errorJSON(w, badRequest("comment text is required"))
		return
	}

	updated, err := a.store.UpdateCommentText(r.Context(), id, in.Text)
	if err != nil {
		errorJSON(w, upstream("could not update comment", err))
		return
	}
	writeJSON(w, http.StatusOK, toCommentDTO(updated), "comment updated successfully")
}

func (a *app) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	c, err := a.store.FindCommentByID(r.Context(), id)
	if errors.Is(err, errNotFound) {
		errorJSON(w, notFound("no comment found"))
		return
	}
	if err != nil {
		errorJSON(w, upstream("could not delete comment", err))
		return
	}
	if apiErr := requireOwner(c.OwnerID, currentUser(r.Context())); apiErr != nil {
		errorJSON(w, apiErr)
		return
	}

	if err := a.store.DeleteComment(r.Context(), id); err != nil {
		errorJSON(w, upstream("could not delete comment", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{}, "comment deleted successfully")
}
