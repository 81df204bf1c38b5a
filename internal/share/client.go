/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package share

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"refdock/internal/library"
)

// Client is a minimal HTTP client for the share API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a share client. baseURL may include a trailing
// slash; it will be normalized. An empty token disables authenticated
// calls until RequestToken is used.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// SharedImage is one image entry inside a published folder snapshot.
type SharedImage struct {
	FileName string `json:"file_name"`
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Sort     int    `json:"sort"`
}

// SharedFolder is a published folder listing.
type SharedFolder struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// FolderSnapshot is the full payload behind one shared folder.
type FolderSnapshot struct {
	ID      int64         `json:"id"`
	Name    string        `json:"name"`
	Owner   string        `json:"owner"`
	Version int64         `json:"version"`
	Images  []SharedImage `json:"images"`
}

// SnapshotImages converts library image records into the wire form used
// when publishing a folder.
func SnapshotImages(imgs []library.Image) []SharedImage {
	out := make([]SharedImage, 0, len(imgs))
	for _, img := range imgs {
		out = append(out, SharedImage{
			FileName: img.FileName,
			Format:   img.Format,
			Width:    img.Width,
			Height:   img.Height,
			Sort:     img.SortOrder,
		})
	}
	return out
}

// RequestToken obtains a bearer token from the server and remembers it
// on the client.
func (c *Client) RequestToken(ctx context.Context, subject string) (string, error) {
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	body := map[string]any{"subject": subject}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", body, &resp); err != nil {
		return "", err
	}
	c.Token = resp.Token
	return resp.Token, nil
}

// ListFolders returns the published folders visible to the caller.
func (c *Client) ListFolders(ctx context.Context) ([]SharedFolder, error) {
	var list []SharedFolder
	if err := c.doJSON(ctx, http.MethodGet, "/api/folders", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetFolder fetches the full snapshot of one published folder.
func (c *Client) GetFolder(ctx context.Context, id int64) (*FolderSnapshot, error) {
	var snap FolderSnapshot
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/folders/%d", id), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Publish uploads a folder snapshot. Re-publishing a folder with the
// same name replaces it and bumps the version.
func (c *Client) Publish(ctx context.Context, name string, images []SharedImage) (*SharedFolder, error) {
	body := map[string]any{"name": name, "images": images}
	var out SharedFolder
	if err := c.doJSON(ctx, http.MethodPost, "/api/folders", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
