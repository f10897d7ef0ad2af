package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// envelope mirrors the service's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// suggestions wait on two model calls
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *client) do(method, path, contentType string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		if env.Error != "" {
			return nil, fmt.Errorf("%s (status %d): %s", env.Message, resp.StatusCode, env.Error)
		}
		return nil, fmt.Errorf("%s (status %d)", env.Message, resp.StatusCode)
	}
	return &env, nil
}

func (c *client) doJSON(method, path string, payload interface{}) (*envelope, error) {
	if payload == nil {
		return c.do(method, path, "", nil)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.do(method, path, "application/json", bytes.NewReader(raw))
}

func (c *client) upload(path, folderID, description string) (*envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if folderID != "" {
		_ = mw.WriteField("folderId", folderID)
	}
	if description != "" {
		_ = mw.WriteField("description", description)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.do(http.MethodPost, "/api/files/upload", mw.FormDataContentType(), &buf)
}

// printData pretty prints the data field of env to w.
func printData(w io.Writer, env *envelope) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		_, err := fmt.Fprintln(w, env.Message)
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, env.Data, "", "  "); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, pretty.String())
	return err
}
