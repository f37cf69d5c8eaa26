package main

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	errNotFound      = errors.New("not found")
	errDuplicate     = errors.New("duplicate key")
	errTokenMismatch = errors.New("refresh token mismatch")
)

// UserPatch carries only the fields present in an update request; nil means
// leave the stored value alone.
type UserPatch struct {
	Name         *string
	Email        *string
	Username     *string
	ProfileImage *string
	PasswordHash *string
	RefreshToken *string
}

type PostPatch struct {
	Title       *string
	Description *string
	Category    *string
	PostImage   *string
}

// Store is the document-store contract the handlers are written against.
// storeMongo backs production; storeMem backs the tests.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id bson.ObjectID) (*User, error)
	// FindUserByLogin matches login against username or email.
	FindUserByLogin(ctx context.Context, login string) (*User, error)
	// FindUserTaken reports whether username or email belongs to any user.
	FindUserTaken(ctx context.Context, username, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id bson.ObjectID, patch UserPatch) (*User, error)
	// RotateRefreshToken swaps old for new in one conditional update; if the
	// stored token is not exactly old it fails with errTokenMismatch.
	RotateRefreshToken(ctx context.Context, id bson.ObjectID, old, new string) error
	ClearRefreshToken(ctx context.Context, id bson.ObjectID) error

	CreatePost(ctx context.Context, p *Post) error
	FindPostByID(ctx context.Context, id bson.ObjectID) (*Post, error)
	ListPosts(ctx context.Context) ([]Post, error)
	UpdatePost(ctx context.Context, id bson.ObjectID, patch PostPatch) (*Post, error)
	DeletePost(ctx context.Context, id bson.ObjectID) error

	CreateComment(ctx context.Context, c *Comment) error
	FindCommentByID(ctx context.Context, id bson.ObjectID) (*Comment, error)
	FindCommentsByPost(ctx context.Context, postID bson.ObjectID) ([]Comment, error)
	UpdateCommentText(ctx context.Context, id bson.ObjectID, text string) (*Comment, error)
	DeleteComment(ctx context.Context, id bson.ObjectID) error

	Ping(ctx context.Context) error
}
