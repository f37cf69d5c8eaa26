package main

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is the persisted account record. PasswordHash and RefreshToken never
// leave the server; handlers convert to userDTO for responses.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Email        string        `bson:"email" json:"email"`
	Username     string        `bson:"username" json:"username"`
	PasswordHash string        `bson:"password" json:"-"`
	ProfileImage string        `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	RefreshToken string        `bson:"refreshToken,omitempty" json:"-"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Post owner is set at creation and never reassigned.
type Post struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Category    string        `bson:"category,omitempty" json:"category,omitempty"`
	PostImage   string        `bson:"postImage,omitempty" json:"postImage,omitempty"`
	OwnerID     bson.ObjectID `bson:"owner" json:"owner"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

type Comment struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Text      string        `bson:"commentText" json:"commentText"`
	OwnerID   bson.ObjectID `bson:"commentBy" json:"commentBy"`
	PostID    bson.ObjectID `bson:"commentOnPost" json:"commentOnPost"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}

type userDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toDTO(u *User) userDTO {
	return userDTO{
		ID:           u.ID.Hex(),
		Name:         u.Name,
		Email:        u.Email,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

// ownerSummary is the slimmed-down user embedded in post and comment reads.
type ownerSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage,omitempty"`
}

func toOwnerSummary(u *User) ownerSummary {
	return ownerSummary{
		ID:           u.ID.Hex(),
		Name:         u.Name,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}
