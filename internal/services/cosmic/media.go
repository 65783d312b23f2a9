package cosmic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"wwfm/internal/services"
	"wwfm/internal/textutil"
)

// Media is an uploaded media item.
type Media struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	URL          string `json:"url"`
	ImgixURL     string `json:"imgix_url"`
	Folder       string `json:"folder,omitempty"`
}

// UploadMedia uploads the file content under filename, optionally into folder.
func (c *Client) UploadMedia(ctx context.Context, filename string, content io.Reader, folder string) (Media, error) {
	if err := c.requireWrite("upload"); err != nil {
		return Media{}, err
	}
	filename = textutil.MediaFileName(filename)
	if filename == "" || content == nil {
		return Media{}, services.Wrap(services.ErrValidation, "cosmic", "upload", "file name and content required", nil)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("media", filename)
	if err != nil {
		return Media{}, fmt.Errorf("cosmic upload: create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return Media{}, fmt.Errorf("cosmic upload: read content: %w", err)
	}
	if folder = strings.TrimSpace(folder); folder != "" {
		if err := form.WriteField("folder", folder); err != nil {
			return Media{}, fmt.Errorf("cosmic upload: write folder: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return Media{}, fmt.Errorf("cosmic upload: close form: %w", err)
	}

	endpoint := c.bucketURL(c.mediaURL, "media")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &body)
	if err != nil {
		return Media{}, fmt.Errorf("cosmic upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.WriteKey)

	var envelope struct {
		Media Media `json:"media"`
	}
	if err := c.do(req, "upload", &envelope); err != nil {
		return Media{}, err
	}
	return envelope.Media, nil
}
