package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client talks to a storage service over HTTP. No timeout is applied beyond
// what the caller's context carries.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Thumb asks /overview for thumbnails no larger than Thumb pixels.
	Thumb int
}

// NewClient returns a client for baseURL, or DefaultURL when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

// List fetches the overview.
func (c *Client) List(ctx context.Context) ([]EditorImage, error) {
	path := "/overview"
	if c.Thumb > 0 {
		path += "?" + url.Values{"thumb": {strconv.Itoa(c.Thumb)}}.Encode()
	}
	var out []EditorImage
	if err := c.do(ctx, "list", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Save posts img and returns the stored record.
func (c *Client) Save(ctx context.Context, img EditorImage) (EditorImage, error) {
	body, err := json.Marshal(img)
	if err != nil {
		return EditorImage{}, fmt.Errorf("encode record: %w", err)
	}
	var out EditorImage
	if err := c.do(ctx, "save", http.MethodPost, "/save", body, &out); err != nil {
		return EditorImage{}, err
	}
	return out, nil
}

// Load fetches one record.
func (c *Client) Load(ctx context.Context, id int64) (EditorImage, error) {
	var out EditorImage
	if err := c.do(ctx, "load", http.MethodGet, "/load/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return EditorImage{}, err
	}
	return out, nil
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, "/delete/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: errorMessage(msg)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage unwraps {"error": "..."} bodies.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
