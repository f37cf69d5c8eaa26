package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type app struct {
	cfg    Config
	store  Store
	tokens *tokenService
	images ImageHost
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// ---- Routes
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/signup", a.handleSignup)
		r.Post("/login", a.handleLogin)
		r.Post("/refresh-token", a.handleRefresh)
		r.Get("/", a.handleListUsers)

		// Secured routes
		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/logout", a.handleLogout)
			r.Post("/reset-password", a.handleResetPassword)
			r.Get("/me", a.handleMe)
			r.Patch("/details", a.handleUpdateDetails)
			r.Patch("/profile-image", a.handleUpdateProfileImage)
		})
	})

	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", a.handleListPosts)
		r.Get("/{id}", a.handleGetPost)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/", a.handleCreatePost)
			r.Patch("/{id}", a.handleUpdatePost)
			r.Patch("/{id}/image", a.handleUpdatePostImage)
			r.Delete("/{id}", a.handleDeletePost)
		})
	})

	r.Route("/api/comments", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Post("/", a.handleCreateComment)
		r.Patch("/{id}", a.handleUpdateComment)
		r.Delete("/{id}", a.handleDeleteComment)
	})

	// Health
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := a.store.Ping(req.Context()); err != nil {
			errorJSON(w, upstream("store unavailable", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true}, "")
	})

	return r
}

func main() {
	mustLoadEnv()
	cfg := loadConfig()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("[DB] connect failed: %v", err)
	}

	images, err := newCloudinaryHost(cfg.CloudinaryURL)
	if err != nil {
		log.Fatalf("[images] %v", err)
	}

	a := &app{
		cfg:    cfg,
		store:  store,
		tokens: newTokenService(cfg),
		images: images,
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Println("API listening on", addr)
	log.Fatal(srv.ListenAndServe())
}
