package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and passed around as a value; nothing
// mutates it afterwards. The token secrets and cookie flags are the only
// process-wide state and they are read-only.
type Config struct {
	Port           string
	MongoURL       string
	MongoDB        string
	AccessSecret   string
	RefreshSecret  string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	CookieSecure   bool
	CookieSameSite http.SameSite
	CORSOrigins    []string
	UploadDir      string
	CloudinaryURL  string
}

func mustLoadEnv() {
	_ = godotenv.Load() // load .env if present (ok if missing in prod)
	required := []string{"MONGO_DB_URL", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"}
	for _, k := range required {
		if os.Getenv(k) == "" {
			log.Fatalf("missing required env %s", k)
		}
	}
}

func loadConfig() Config {
	return Config{
		Port:           getenv("PORT", "8080"),
		MongoURL:       os.Getenv("MONGO_DB_URL"),
		MongoDB:        getenv("MONGO_DB_NAME", "blog"),
		AccessSecret:   os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshSecret:  os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTTL:      getenvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:     getenvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		CookieSecure:   os.Getenv("COOKIE_SECURE") == "true",
		CookieSameSite: sameSiteFromEnv(),
		CORSOrigins:    splitOrigins(getenv("CORS_ORIGIN", "http://localhost:3000")),
		UploadDir:      getenv("UPLOAD_DIR", "public/temp"),
		CloudinaryURL:  os.Getenv("CLOUDINARY_URL"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("bad duration in env %s: %v", k, err)
	}
	return d
}

// let env control SameSite: "none" | "lax" | "strict"  (default: lax)
func sameSiteFromEnv() http.SameSite {
	switch strings.ToLower(os.Getenv("COOKIE_SAMESITE")) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

// allow comma-separated list of origins
func splitOrigins(s string) []string {
	var origins []string
	for _, p := range strings.Split(s, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
