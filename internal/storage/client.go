package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	MediaPathPrefix = "/media/"

	defaultMaxDownload = 512 << 20
	shareExpiry        = time.Hour
)

var errNoStore = errors.New("durable storage not configured")

// Client moves media between providers, clients and the Store.
type Client struct {
	store       Store
	httpClient  *http.Client
	logger      *slog.Logger
	maxDownload int64
}

// NewClient wraps store. A nil store is allowed: Rehost then always fails
// with a RehostError and callers keep provider URLs.
func NewClient(store Store, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		store:       store,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		maxDownload: defaultMaxDownload,
	}
}

func (c *Client) Store() Store {
	return c.store
}

func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if c.store == nil {
		return "", errNoStore
	}
	return c.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}

// Rehost copies source (an http(s) URL or a data URI) into storage under key
// and returns the new reference. Failures are returned as *RehostError.
func (c *Client) Rehost(ctx context.Context, source, key, contentType string) (string, error) {
	if c.store == nil {
		return "", &RehostError{Source: source, Err: errNoStore}
	}

	data, detected, err := c.load(ctx, source)
	if err != nil {
		return "", &RehostError{Source: source, Err: err}
	}
	if contentType == "" {
		contentType = detected
	}

	ref, err := c.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return "", &RehostError{Source: source, Err: err}
	}

	if c.logger != nil {
		c.logger.Info("media rehosted", "key", key, "bytes", len(data))
	}
	return ref, nil
}

// Fetch opens any media reference recorded on a generation row: a reference
// owned by the store, a data URI, or a remote URL.
func (c *Client) Fetch(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	if c.store != nil {
		if key, ok := c.store.Owns(ref); ok {
			obj, err := c.store.Open(ctx, key)
			if err != nil {
				return nil, "", err
			}
			return obj.Body, obj.ContentType, nil
		}
	}

	if strings.HasPrefix(ref, "data:") {
		data, contentType, err := DecodeDataURI(ref)
		if err != nil {
			return nil, "", err
		}
		return io.NopCloser(bytes.NewReader(data)), contentType, nil
	}

	resp, err := c.get(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// ShareableURL turns a reference into something an external provider can
// download: a presigned URL when the store supports it, otherwise a data URI
// of the stored bytes. Remote URLs and data URIs pass through.
func (c *Client) ShareableURL(ctx context.Context, ref string) (string, error) {
	if c.store == nil {
		return ref, nil
	}
	key, ok := c.store.Owns(ref)
	if !ok {
		return ref, nil
	}

	if p, ok := c.store.(Presigner); ok {
		return p.PresignGet(ctx, key, shareExpiry)
	}

	obj, err := c.store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(io.LimitReader(obj.Body, c.maxDownload))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// PublicURL maps a stored reference to the media proxy path. Other
// references are returned unchanged.
func (c *Client) PublicURL(ref string) string {
	if c.store == nil || ref == "" {
		return ref
	}
	if key, ok := c.store.Owns(ref); ok {
		return MediaPathPrefix + key
	}
	return ref
}

func (c *Client) load(ctx context.Context, source string) ([]byte, string, error) {
	if strings.HasPrefix(source, "data:") {
		return DecodeDataURI(source)
	}

	resp, err := c.get(ctx, source)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownload+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.maxDownload {
		return nil, "", fmt.Errorf("media larger than %d bytes", c.maxDownload)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("unsupported media reference")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// DecodeDataURI decodes a base64 data URI into its bytes and media type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri")
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data uri is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data uri: %w", err)
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return data, mediaType, nil
}
