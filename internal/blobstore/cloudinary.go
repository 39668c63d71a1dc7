// Package blobstore keeps product documents in Cloudinary as raw assets
// addressed by an opaque path.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// uploadAPI is the part of the Cloudinary upload client we use.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

type Cloudinary struct {
	api    uploadAPI
	folder string
}

func NewCloudinary(cloudinaryURL, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{api: &cld.Upload, folder: strings.Trim(folder, "/")}, nil
}

func (c *Cloudinary) publicID(path string) string {
	if c.folder == "" {
		return path
	}
	return c.folder + "/" + path
}

// Upload stores r under path and returns its public URL. Existing blobs are
// never overwritten.
func (c *Cloudinary) Upload(ctx context.Context, path string, r io.Reader) (string, error) {
	if path == "" {
		return "", errors.New("blobstore: empty path")
	}
	resp, err := c.api.Upload(ctx, r, uploader.UploadParams{
		PublicID:     c.publicID(path),
		ResourceType: "raw",
		Overwrite:    api.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

func (c *Cloudinary) Delete(ctx context.Context, path string) error {
	resp, err := c.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     c.publicID(path),
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: unexpected result %q", resp.Result)
	}
	return nil
}
