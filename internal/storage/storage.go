// Package storage keeps generated media in durable storage and resolves the
// storage references recorded on generation rows.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrNotFound = errors.New("object not found")

// Object is an open stored object.
type Object struct {
	Body        io.ReadSeekCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store is a durable object store addressed by key. Put returns the
// reference persisted on records; Owns maps such a reference back to a key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Owns(ref string) (string, bool)
}

// Presigner is implemented by stores that can hand out time-limited URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// RehostError reports that provider media could not be copied into durable
// storage. Callers keep the original URL.
type RehostError struct {
	Source string
	Err    error
}

func (e *RehostError) Error() string {
	return fmt.Sprintf("rehost %s: %v", e.Source, e.Err)
}

func (e *RehostError) Unwrap() error {
	return e.Err
}

func ImageKey(projectID string, shotIndex, n int, at time.Time) string {
	return fmt.Sprintf("projects/%s/images/%d_shot_%d_%d.png", projectID, at.UnixMilli(), shotIndex, n)
}

func VideoKey(projectID string, shotIndex int, at time.Time) string {
	return fmt.Sprintf("projects/%s/videos/shot_%d_%d.mp4", projectID, shotIndex, at.UnixMilli())
}

// AudioKey names an audio track; kind is "narration" or "music".
func AudioKey(projectID, kind string, at time.Time) string {
	return fmt.Sprintf("projects/%s/audio/%s_%d.mp3", projectID, kind, at.UnixMilli())
}
