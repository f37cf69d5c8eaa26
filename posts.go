package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

/* ===================== Public JSON (API) ====================== */

type postDTO struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category,omitempty"`
	PostImage   string        `json:"postImage,omitempty"`
	Owner       *ownerSummary `json:"owner,omitempty"`
	Comments    []commentDTO  `json:"comments,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func toPostDTO(p *Post) postDTO {
	return postDTO{
		ID:          p.ID.Hex(),
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		PostImage:   p.PostImage,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

/* ===================== Helpers ====================== */

func pathID(r *http.Request) (bson.ObjectID, *apiError) {
	raw := chi.URLParam(r, "id")
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, badRequest("invalid id")
	}
	return id, nil
}

// requireOwner is the ownership guard: mutation is allowed only to the user
// recorded as owner at creation time.
func requireOwner(owner bson.ObjectID, u *User) *apiError {
	if owner != u.ID {
		return forbidden("you do not own this resource")
	}
	return nil
}

// ownerOf resolves an owner reference to its embedded summary; a deleted
// owner leaves the field empty rather than failing the read.
func (a *app) ownerOf(r *http.Request, id bson.ObjectID) *ownerSummary {
	u, err := a.store.FindUserByID(r.Context(), id)
	if err != nil {
		return nil
	}
	s := toOwnerSummary(u)
	return &s
}

/* ===================== Handlers ====================== */

// handleCreatePost accepts multipart form data (optional postImage file) or
// plain JSON.
func (a *app) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var title, description, category, imageURL string
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			errorJSON(w, badRequest("invalid form"))
			return
		}
		title = r.FormValue("title")
		description = r.FormValue("description")
		category = r.FormValue("category")
		url, apiErr := a.uploadFromRequest(r, "postImage")
		if apiErr != nil {
			errorJSON(w, apiErr)
			return
		}
		imageURL = url
	} else {
		var in struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Category    string `json:"category"`
		}
		if err := decodeJSON(r, &in); err != nil {
			errorJSON(w, badRequest("invalid json"))
			return
		}
		title, description, category = in.Title, in.Description, in.Category
	}

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		errorJSON(w, badRequest("title and description are required"))
		return
	}

	p := &Post{
		Title:       title,
		Description: description,
		Category:    strings.TrimSpace(category),
		PostImage:   imageURL,
		OwnerID:     currentUser(r.Context()).ID,
	}
	if err := a.store.CreatePost(r.Context(), p); err != nil {
		errorJSON(w, upstream("could not create post", err))
		return
	}
	writeJSON(w, http.StatusCreated, toPostDTO(p), "post created successfully")
}

// handleGetPost returns the post with its owner summary and comments, each
// comment carrying its author summary.
func (a *app) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	p, err := a.store.FindPostByID(r.Context(), id)
	if errors.Is(err, errNotFound) {
		errorJSON(w, notFound("no post found"))
		return
	}
	if err != nil {
		errorJSON(w, upstream("could not fetch post", err))
		return
	}

	out := toPostDTO(p)
	out.Owner = a.ownerOf(r, p.OwnerID)

	comments, err := a.store.FindCommentsByPost(r.Context(), p.ID)
	if err != nil {
		errorJSON(w, upstream("could not fetch post", err))
		return
	}
	for i := range comments {
		c := toCommentDTO(&comments[i])
		c.Author = a.ownerOf(r, comments[i].OwnerID)
		out.Comments = append(out.Comments, c)
	}
	writeJSON(w, http.StatusOK, out, "post fetched successfully")
}

func (a *app) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.store.ListPosts(r.Context())
	if err != nil {
		errorJSON(w, upstream("could not list posts", err))
		return
	}
	out := make([]postDTO, 0, len(posts))
	for i := range posts {
		d := toPostDTO(&posts[i])
		d.Owner = a.ownerOf(r, posts[i].OwnerID)
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, out, "all posts fetched successfully")
}

func (a *app) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	p, err := a.store.FindPostByID(r.Context(), id)
	if errors.Is(err, errNotFound) {
		errorJSON(w, notFound("no post found"))
		return
	}
	if err != nil {
		errorJSON(w, upstream("could not update post", err))
		return
	}
	if apiErr := requireOwner(p.OwnerID, currentUser(r.Context())); apiErr != nil {
		errorJSON(w, apiErr)
		return
	}

	var in struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, badRequest("invalid json"))
		return
	}

	var patch PostPatch
	if v := strings.TrimSpace(in.Title); v != "" && v != p.Title {
		patch.Title = &v
	}
	if v := strings.TrimSpace(in.Description); v != "" && v != p.Description {
		patch.Description = &v
	}
	if v := strings.TrimSpace(in.Category); v != "" && v != p.Category {
		patch.Category = &v
	}

	updated, err := a.store.UpdatePost(r.Context(), id, patch)
	if err != nil {
		errorJSON(w, upstream("could not update post", err))
		return
	}
	writeJSON(w, http.StatusOK, toPostDTO(updated), "post updated successfully")
}

func (a *app) handleUpdatePostImage(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	p, err := a.store.FindPostByID(r.Context(), id)
	if errors.Is(err, errNotFound) {
		errorJSON(w, notFound("no post found"))
		return
	}
	if err != nil {
		errorJSON(w, upstream("could not update post", err))
		return
	}
	if apiErr := requireOwner(p.OwnerID, currentUser(r.Context())); apiErr != nil {
		errorJSON(w, apiErr)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		errorJSON(w, badRequest("invalid form"))
		return
	}
	url, apiErr := a.uploadFromRequest(r, "postImage")
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	if url == "" {
		errorJSON(w, badRequest("post image file is missing"))
		return
	}

	updated, err := a.store.UpdatePost(r.Context(), id, PostPatch{PostImage: &url})
	if err != nil {
		errorJSON(w, upstream("could not update post", err))
		return
	}
	writeJSON(w, http.StatusOK, toPostDTO(updated), "post image changed successfully")
}

func (a *app) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		errorJSON(w, apiErr)
		return
	}
	p, err := a.store.FindPostByID(r.Context(), id)
	if errors.Is(err, errNotFound) {
		errorJSON(w, notFound("no post found"))
		return
	}
	if err != nil {
		errorJSON(w, upstream("could not delete post", err))
		return
	}
	if apiErr := requireOwner(p.OwnerID, currentUser(r.Context())); apiErr != nil {
		errorJSON(w, apiErr)
		return
	}

	if err := a.store.DeletePost(r.Context(), id); err != nil {
		errorJSON(w, upstream("could not delete post", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{}, "post deleted successfully")
}
