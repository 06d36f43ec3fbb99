// Package drive exports a project's edit document and selected media to a
// Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/export"
	"github.com/Maxlottie/pray-production-studio/internal/logging"
	"github.com/Maxlottie/pray-production-studio/internal/storage"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const projectFileName = "project.xml"

// ProjectSource loads everything an export needs.
type ProjectSource interface {
	GetProject(ctx context.Context, id string) (*studio.Project, error)
	ListShotMedia(ctx context.Context, projectID string) ([]*studio.ShotMedia, error)
	GetAudio(ctx context.Context, projectID string) (*studio.ProjectAudio, error)
}

type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type Result struct {
	FolderID  string        `json:"folder_id"`
	FolderURL string        `json:"folder_url"`
	Uploaded  []string      `json:"uploaded"`
	Skipped   []SkippedFile `json:"skipped"`
}

type Exporter struct {
	source   ProjectSource
	uploader Uploader
	media    *storage.Client
	logger   *slog.Logger
	now      func() time.Time
}

func NewExporter(source ProjectSource, uploader Uploader, media *storage.Client, logger *slog.Logger) *Exporter {
	return &Exporter{
		source:   source,
		uploader: uploader,
		media:    media,
		logger:   logger,
		now:      time.Now,
	}
}

type pendingFile struct {
	name     string
	folder   string
	mimeType string
	ref      string
}

// Export creates "<title> - <date>" with images, videos and audio
// subfolders, uploads project.xml and the selected media. Media that cannot
// be fetched is skipped and reported; Drive failures abort the export.
func (e *Exporter) Export(ctx context.Context, projectID string) (*Result, error) {
	project, err := e.source.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	shots, err := e.source.ListShotMedia(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list shot media: %w", err)
	}
	audio, err := e.source.GetAudio(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get audio: %w", err)
	}

	var log *slog.Logger
	if e.logger != nil {
		log = logging.WithProjectID(e.logger, projectID)
	}

	folderName := fmt.Sprintf("%s - %s", project.Title, e.now().Format("2006-01-02"))
	rootID, err := e.uploader.CreateFolder(ctx, folderName, "")
	if err != nil {
		return nil, err
	}

	folders := map[string]string{"": rootID}
	for _, name := range []string{"images", "videos", "audio"} {
		id, err := e.uploader.CreateFolder(ctx, name, rootID)
		if err != nil {
			return nil, err
		}
		folders[name] = id
	}

	result := &Result{
		FolderID:  rootID,
		FolderURL: FolderURL(rootID),
		Uploaded:  []string{},
		Skipped:   []SkippedFile{},
	}

	doc := export.GenerateXMEML(export.BuildTimeline(project, shots, audio))
	if _, err := e.uploader.UploadFile(ctx, projectFileName, rootID, "application/xml", strings.NewReader(doc)); err != nil {
		return nil, err
	}
	result.Uploaded = append(result.Uploaded, projectFileName)

	for _, f := range collectMedia(shots, audio) {
		body, _, err := e.media.Fetch(ctx, f.ref)
		if err != nil {
			if log != nil {
				log.Warn("skipping unreachable media", "file", f.name, "url", logging.SanitizeURL(f.ref), "error", err)
			}
			result.Skipped = append(result.Skipped, SkippedFile{Name: f.folder + "/" + f.name, Reason: err.Error()})
			continue
		}

		_, err = e.uploader.UploadFile(ctx, f.name, folders[f.folder], f.mimeType, body)
		body.Close()
		if err != nil {
			return nil, err
		}
		result.Uploaded = append(result.Uploaded, f.folder+"/"+f.name)
	}

	if log != nil {
		log.Info("drive export finished", "folder_id", rootID, "uploaded", len(result.Uploaded), "skipped", len(result.Skipped))
	}
	return result, nil
}

func collectMedia(shots []*studio.ShotMedia, audio *studio.ProjectAudio) []pendingFile {
	ordered := make([]*studio.ShotMedia, len(shots))
	copy(ordered, shots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Shot.Index < ordered[j].Shot.Index
	})

	var files []pendingFile
	for _, m := range ordered {
		n := m.Shot.Index + 1
		if img := m.SelectedImage(); img != nil && img.ImageURL != "" {
			files = append(files, pendingFile{fmt.Sprintf("shot_%02d.png", n), "images", "image/png", img.ImageURL})
		}
		if v := m.SelectedVideo(); v != nil {
			files = append(files, pendingFile{fmt.Sprintf("shot_%02d.mp4", n), "videos", "video/mp4", v.VideoURL})
		}
	}

	if audio != nil {
		if audio.NarrationURL != "" {
			files = append(files, pendingFile{"narration.mp3", "audio", "audio/mpeg", audio.NarrationURL})
		}
		if audio.MusicURL != "" {
			files = append(files, pendingFile{"music.mp3", "audio", "audio/mpeg", audio.MusicURL})
		}
	}
	return files
}
