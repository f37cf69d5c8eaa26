package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// storeMem is a mutex-guarded in-memory Store. The tests run against it; it
// also serves as a throwaway backend for local hacking without a MongoDB.
type storeMem struct {
	mu       sync.Mutex
	users    map[bson.ObjectID]User
	posts    map[bson.ObjectID]Post
	comments map[bson.ObjectID]Comment
}

func newStoreMem() *storeMem {
	return &storeMem{
		users:    map[bson.ObjectID]User{},
		posts:    map[bson.ObjectID]Post{},
		comments: map[bson.ObjectID]Comment{},
	}
}

func (s *storeMem) Ping(context.Context) error { return nil }

/* ===================== Users ====================== */

func (s *storeMem) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Username == u.Username || other.Email == u.Email {
			return errDuplicate
		}
	}
	now := time.Now().UTC()
	u.ID = bson.NewObjectID()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = *u
	return nil
}

func (s *storeMem) FindUserByID(_ context.Context, id bson.ObjectID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	return &u, nil
}

func (s *storeMem) FindUserByLogin(_ context.Context, login string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == login || u.Email == login {
			u := u
			return &u, nil
		}
	}
	return nil, errNotFound
}

func (s *storeMem) FindUserTaken(_ context.Context, username, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, errNotFound
}

func (s *storeMem) ListUsers(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *storeMem) UpdateUser(_ context.Context, id bson.ObjectID, patch UserPatch) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	if patch.Username != nil || patch.Email != nil {
		for oid, other := range s.users {
			if oid == id {
				continue
			}
			if patch.Username != nil && other.Username == *patch.Username {
				return nil, errDuplicate
			}
			if patch.Email != nil && other.Email == *patch.Email {
				return nil, errDuplicate
			}
		}
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.ProfileImage != nil {
		u.ProfileImage = *patch.ProfileImage
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.RefreshToken != nil {
		u.RefreshToken = *patch.RefreshToken
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return &u, nil
}

func (s *storeMem) RotateRefreshToken(_ context.Context, id bson.ObjectID, old, new string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	if u.RefreshToken != old {
		return errTokenMismatch
	}
	u.RefreshToken = new
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *storeMem) ClearRefreshToken(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errNotFound
	}
	u.RefreshToken = ""
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

/* ===================== Posts ====================== */

func (s *storeMem) CreatePost(_ context.Context, p *Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p.ID = bson.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.posts[p.ID] = *p
	return nil
}

func (s *storeMem) FindPostByID(_ context.Context, id bson.ObjectID) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, errNotFound
	}
	return &p, nil
}

func (s *storeMem) ListPosts(_ context.Context) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *storeMem) UpdatePost(_ context.Context, id bson.ObjectID, patch PostPatch) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, errNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.PostImage != nil {
		p.PostImage = *patch.PostImage
	}
	p.UpdatedAt = time.Now().UTC()
	s.posts[id] = p
	return &p, nil
}

func (s *storeMem) DeletePost(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return errNotFound
	}
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

/* ===================== Comments ====================== */

func (s *storeMem) CreateComment(_ context.Context, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c.ID = bson.NewObjectID()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.comments[c.ID] = *c
	return nil
}

func (s *storeMem) FindCommentByID(_ context.Context, id bson.ObjectID) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, errNotFound
	}
	return &c, nil
}

func (s *storeMem) FindCommentsByPost(_ context.Context, postID bson.ObjectID) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *storeMem) UpdateCommentText(_ context.Context, id bson.ObjectID, text string) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, errNotFound
	}
	c.Text = text
	c.UpdatedAt = time.Now().UTC()
	s.comments[id] = c
	return &c, nil
}

func (s *storeMem) DeleteComment(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return errNotFound
	}
	delete(s.comments, id)
	return nil
}
