package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Error is a non-2xx answer from the backend.
type Error struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Message, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// Client talks to the conversion backend over HTTP.
type Client struct {
	locator Locator
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for an absolute API base URL such as
// http://localhost:8000/api.
func New(baseURL string, opts ...Option) (*Client, error) {
	loc, err := NewLocator(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		locator: loc,
		// No overall timeout: uploads and downloads may legitimately run long.
		http: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			ResponseHeaderTimeout: 60 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Locator returns the resolver for resource paths.
func (c *Client) Locator() Locator {
	return c.locator
}

// Convert uploads one audio file (and an optional background image).
func (c *Client) Convert(ctx context.Context, audioPath, imagePath string) (ConvertResponse, error) {
	files := []formFile{{field: "audio", path: audioPath}}
	if imagePath != "" {
		files = append(files, formFile{field: "image", path: imagePath})
	}
	var resp ConvertResponse
	if err := c.upload(ctx, "/convert", files, "Upload failed", &resp); err != nil {
		return ConvertResponse{}, err
	}
	return resp, nil
}

// BatchConvert uploads several audio files as one batch.
func (c *Client) BatchConvert(ctx context.Context, audioPaths []string, imagePath string) (BatchConvertResponse, error) {
	if len(audioPaths) == 0 {
		return BatchConvertResponse{}, fmt.Errorf("batch convert: no audio files")
	}
	files := make([]formFile, 0, len(audioPaths)+1)
	for _, p := range audioPaths {
		files = append(files, formFile{field: "audios", path: p})
	}
	if imagePath != "" {
		files = append(files, formFile{field: "image", path: imagePath})
	}
	var resp BatchConvertResponse
	if err := c.upload(ctx, "/batch/convert", files, "Batch upload failed", &resp); err != nil {
		return BatchConvertResponse{}, err
	}
	return resp, nil
}

// JobStatus fetches GET /jobs/{id}/status.
func (c *Client) JobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var st JobStatus
	route := "/jobs/" + url.PathEscape(jobID) + "/status"
	if err := c.getJSON(ctx, c.locator.Endpoint(route), "Failed to fetch job status", &st); err != nil {
		return JobStatus{}, err
	}
	return st, nil
}

// BatchStatus fetches GET /batch/{id}/status.
func (c *Client) BatchStatus(ctx context.Context, batchID string) (BatchStatus, error) {
	var st BatchStatus
	route := "/batch/" + url.PathEscape(batchID) + "/status"
	if err := c.getJSON(ctx, c.locator.Endpoint(route), "Failed to fetch batch status", &st); err != nil {
		return BatchStatus{}, err
	}
	return st, nil
}

// Transcript fetches the segments document behind a transcript_json_url.
func (c *Client) Transcript(ctx context.Context, transcriptURL string) (TranscriptData, error) {
	var data TranscriptData
	if err := c.getJSON(ctx, c.locator.Resolve(transcriptURL), "Failed to fetch transcript", &data); err != nil {
		return TranscriptData{}, err
	}
	return data, nil
}

// Health fetches GET /health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var h HealthResponse
	if err := c.getJSON(ctx, c.locator.Endpoint("/health"), "Health check failed", &h); err != nil {
		return HealthResponse{}, err
	}
	return h, nil
}

// Download saves the resource at resourceURL into dir. The file name comes
// from Content-Disposition when present, otherwise fallbackName. It returns
// the written path and byte count.
func (c *Client) Download(ctx context.Context, resourceURL, dir, fallbackName string) (string, int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.locator.Resolve(resourceURL), nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download %s: %w", resourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, decodeError(resp, "Download failed")
	}

	name := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fallbackName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create download dir: %w", err)
	}

	dest := filepath.Join(dir, filepath.Base(name))
	tmp, err := os.CreateTemp(dir, ".a2v-download-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if copyErr != nil {
			return "", 0, fmt.Errorf("write %s: %w", dest, copyErr)
		}
		return "", 0, fmt.Errorf("close %s: %w", dest, closeErr)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("rename download: %w", err)
	}
	return dest, n, nil
}

type formFile struct {
	field string
	path  string
}

// upload streams a multipart form so large audio files are never fully buffered.
func (c *Client) upload(ctx context.Context, route string, files []formFile, failure string, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, files))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.locator.Endpoint(route), pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, failure)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", route, err)
	}
	return nil
}

func writeForm(mw *multipart.Writer, files []formFile) error {
	for _, f := range files {
		if err := writeFormFile(mw, f); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFormFile(mw *multipart.Writer, f formFile) error {
	src, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	defer src.Close()

	part, err := mw.CreateFormFile(f.field, filepath.Base(f.path))
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", f.path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, target, failure string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, failure)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// decodeError turns a non-2xx response into *Error, using the backend's
// error body when it parses.
func decodeError(resp *http.Response, failure string) error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Message:    failure,
		Detail:     fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var er ErrorResponse
	if json.Unmarshal(body, &er) == nil {
		if er.Error != "" {
			apiErr.Message = er.Error
		}
		if er.Detail != "" {
			apiErr.Detail = er.Detail
		}
	}
	return apiErr
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}
