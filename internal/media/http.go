/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package media stores dropped files and hands back durable URLs for panels.
// HTTPUploader posts to a remote media service; LocalUploader copies files into
// the project's assets folder and catalogues them in the project index.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"gocomicgrid/internal/drop"
)

// ErrNoURL is returned when the media service answers without a URL.
var ErrNoURL = errors.New("media: upload response without url")

// HTTPUploader posts files as multipart/form-data to <BaseURL>/upload and
// expects {"url": "..."} back.
type HTTPUploader struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewHTTPUploader creates an uploader. baseURL may include a trailing slash; it will be normalized.
func NewHTTPUploader(baseURL, token string, timeout time.Duration) *HTTPUploader {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPUploader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload streams f to the media service.
func (u *HTTPUploader) Upload(ctx context.Context, f drop.File) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("media: file %q has no content", f.Name)
	}
	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("media: open %q: %w", f.Name, err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(f.Name)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/upload", pr)
	if err != nil {
		_ = pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if u.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.Token)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media: upload %q: %w", f.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("media: upload %q: server %s", f.Name, resp.Status)
	}
	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("media: decode upload response: %w", err)
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", ErrNoURL
	}
	return out.URL, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
