package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// ImageHost turns a local file into a durable URL.
type ImageHost interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type cloudinaryHost struct {
	cld *cloudinary.Cloudinary
}

func newCloudinaryHost(url string) (*cloudinaryHost, error) {
	if url == "" {
		return nil, errors.New("CLOUDINARY_URL is not set")
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &cloudinaryHost{cld: cld}, nil
}

func (h *cloudinaryHost) Upload(ctx context.Context, localPath string) (string, error) {
	resp, err := h.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{})
	if err != nil {
		return "", err
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary: empty url for %s", filepath.Base(localPath))
	}
	return resp.SecureURL, nil
}

const maxUploadBytes = 10 << 20 // 10 MiB form is plenty for a single image

// saveUpload writes the named multipart file field to dir under a unique
// name and returns its path. A missing field is not an error; callers that
// require the file check for an empty path.
func saveUpload(r *http.Request, field, dir string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+filepath.Ext(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// uploadFromRequest is the multer-shaped plumbing shared by every endpoint
// that accepts an image: stage the file locally, push it to the image host,
// drop the temp file.
func (a *app) uploadFromRequest(r *http.Request, field string) (string, *apiError) {
	path, err := saveUpload(r, field, a.cfg.UploadDir)
	if err != nil {
		return "", badRequest("could not read uploaded file")
	}
	if path == "" {
		return "", nil
	}
	defer os.Remove(path)

	url, err := a.images.Upload(r.Context(), path)
	if err != nil {
		return "", upstream("error while uploading image", err)
	}
	return url, nil
}
