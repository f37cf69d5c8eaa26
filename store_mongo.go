package main

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// storeMongo implements Store on a MongoDB database.
type storeMongo struct {
	client   *mongo.Client
	users    *mongo.Collection
	posts    *mongo.Collection
	comments *mongo.Collection
}

// openStore connects, fails fast if the server is unreachable, and ensures
// the unique indexes signup conflict detection relies on.
func openStore(cfg Config) (*storeMongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(cfg.MongoDB)
	s := &storeMongo{
		client:   client,
		users:    db.Collection("users"),
		posts:    db.Collection("posts"),
		comments: db.Collection("comments"),
	}

	_, err = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return nil, err
	}

	log.Println("[DB] connected")
	return s, nil
}

func (s *storeMongo) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

/* ===================== Users ====================== */

func (s *storeMongo) CreateUser(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.ID = bson.NewObjectID()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return errDuplicate
	}
	return err
}

func (s *storeMongo) FindUserByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *storeMongo) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	var u User
	filter := bson.M{"$or": bson.A{bson.M{"username": login}, bson.M{"email": login}}}
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *storeMongo) FindUserTaken(ctx context.Context, username, email string) (*User, error) {
	var u User
	filter := bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": email}}}
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *storeMongo) ListUsers(ctx context.Context) ([]User, error) {
	cur, err := s.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var out []User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *storeMongo) UpdateUser(ctx context.Context, id bson.ObjectID, patch UserPatch) (*User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.ProfileImage != nil {
		set["profileImage"] = *patch.ProfileImage
	}
	if patch.PasswordHash != nil {
		set["password"] = *patch.PasswordHash
	}
	if patch.RefreshToken != nil {
		set["refreshToken"] = *patch.RefreshToken
	}

	var u User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, errDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RotateRefreshToken conditions the update on the stored token still being
// old, so two concurrent refresh calls cannot both succeed.
func (s *storeMongo) RotateRefreshToken(ctx context.Context, id bson.ObjectID, old, new string) error {
	filter := bson.M{"_id": id, "refreshToken": old}
	update := bson.M{"$set": bson.M{"refreshToken": new, "updatedAt": time.Now().UTC()}}
	err := s.users.FindOneAndUpdate(ctx, filter, update).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		// distinguish a vanished user from a stale token
		if _, ferr := s.FindUserByID(ctx, id); ferr != nil {
			return ferr
		}
		return errTokenMismatch
	}
	return err
}

func (s *storeMongo) ClearRefreshToken(ctx context.Context, id bson.ObjectID) error {
	update := bson.M{
		"$unset": bson.M{"refreshToken": 1},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, update).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errNotFound
	}
	return err
}

/* ===================== Posts ====================== */

func (s *storeMongo) CreatePost(ctx context.Context, p *Post) error {
	now := time.Now().UTC()
	p.ID = bson.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.posts.InsertOne(ctx, p)
	return err
}

func (s *storeMongo) FindPostByID(ctx context.Context, id bson.ObjectID) (*Post, error) {
	var p Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *storeMongo) ListPosts(ctx context.Context) ([]Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var out []Post
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *storeMongo) UpdatePost(ctx context.Context, id bson.ObjectID, patch PostPatch) (*Post, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.PostImage != nil {
		set["postImage"] = *patch.PostImage
	}

	var p Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *storeMongo) DeletePost(ctx context.Context, id bson.ObjectID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errNotFound
	}
	// orphaned comments are removed with their post
	_, err = s.comments.DeleteMany(ctx, bson.M{"commentOnPost": id})
	return err
}

/* ===================== Comments ====================== */

func (s *storeMongo) CreateComment(ctx context.Context, c *Comment) error {
	now := time.Now().UTC()
	c.ID = bson.NewObjectID()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.comments.InsertOne(ctx, c)
	return err
}

func (s *storeMongo) FindCommentByID(ctx context.Context, id bson.ObjectID) (*Comment, error) {
	var c Comment
	err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *storeMongo) FindCommentsByPost(ctx context.Context, postID bson.ObjectID) ([]Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := s.comments.Find(ctx, bson.M{"commentOnPost": postID}, opts)
	if err != nil {
		return nil, err
	}
	var out []Comment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *storeMongo) UpdateCommentText(ctx context.Context, id bson.ObjectID, text string) (*Comment, error) {
	var c Comment
	update := bson.M{"$set": bson.M{"commentText": text, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.comments.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *storeMongo) DeleteComment(ctx context.Context, id bson.ObjectID) error {
	res, err := s.comments.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errNotFound
	}
	return nil
}
