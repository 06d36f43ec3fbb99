package drive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Credentials is an OAuth client plus a long-lived refresh token for the
// Drive account exports land in.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Uploader is the part of Google Drive the exporter needs.
type Uploader interface {
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	UploadFile(ctx context.Context, name, parentID, mimeType string, r io.Reader) (string, error)
}

type DriveUploader struct {
	svc *drive.Service
}

func NewDriveUploader(ctx context.Context, creds Credentials, opts ...option.ClientOption) (*DriveUploader, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, errors.New("google client id, client secret and refresh token are required")
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	client := conf.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &DriveUploader{svc: svc}, nil
}

func (u *DriveUploader) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	f := &drive.File{Name: name, MimeType: folderMimeType}
	if parentID != "" {
		f.Parents = []string{parentID}
	}
	created, err := u.svc.Files.Create(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return created.Id, nil
}

func (u *DriveUploader) UploadFile(ctx context.Context, name, parentID, mimeType string, r io.Reader) (string, error) {
	f := &drive.File{Name: name, MimeType: mimeType}
	if parentID != "" {
		f.Parents = []string{parentID}
	}
	created, err := u.svc.Files.Create(f).
		Media(r, googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", name, err)
	}
	return created.Id, nil
}

func FolderURL(folderID string) string {
	return "https://drive.google.com/drive/folders/" + folderID
}
