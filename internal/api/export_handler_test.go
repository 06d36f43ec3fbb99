package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Maxlottie/pray-production-studio/internal/drive"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

// seedSelectedImages gives every shot one selected image.
func (e *testEnv) seedSelectedImages(t *testing.T, shots []*studio.Shot) {
	t.Helper()
	for _, s := range shots {
		rr := e.do(t, http.MethodPost, "/shots/"+s.ID+"/images/generate", GenerateImagesRequest{Count: intPtr(1)})
		assertStatus(t, rr, http.StatusCreated)
	}
}

func TestExportPremiere_XML(t *testing.T) {
	env := setupTestServer(t)
	project, shots := env.seedProject(t)
	env.seedSelectedImages(t, shots)

	rr := env.do(t, http.MethodGet, "/projects/"+project.ID+"/export/premiere", nil)
	assertStatus(t, rr, http.StatusOK)

	if got := rr.Header().Get("Content-Type"); got != "application/xml" {
		t.Errorf("Content-Type = %q, want application/xml", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="The_Flood.xml"` {
		t.Errorf("Content-Disposition = %q", got)
	}

	body := rr.Body.String()
	for _, want := range []string{
		`<xmeml version="5">`,
		`<clipitem id="shot_1">`,
		`<clipitem id="shot_2">`,
		"<pathurl>file://./images/shot_01.png</pathurl>",
		"<timebase>30</timebase>",
		// 4s + 2.5s at 30fps
		"<duration>195</duration>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("xmeml missing %q", want)
		}
	}
}

func TestExportPremiere_EDL(t *testing.T) {
	env := setupTestServer(t)
	project, shots := env.seedProject(t)
	env.seedSelectedImages(t, shots[:1])

	rr := env.do(t, http.MethodGet, "/projects/"+project.ID+"/export/premiere?format=edl", nil)
	assertStatus(t, rr, http.StatusOK)

	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "The_Flood.edl") {
		t.Errorf("Content-Disposition = %q", got)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "TITLE: The Flood") {
		t.Errorf("edl header = %q", strings.SplitN(body, "\n", 2)[0])
	}
	if strings.Count(body, "* FROM CLIP NAME:") != 1 {
		t.Errorf("edl should hold only the shot with media:\n%s", body)
	}
}

func TestExportPremiere_BadFormatAndMissingProject(t *testing.T) {
	env := setupTestServer(t)
	project, _ := env.seedProject(t)

	rr := env.do(t, http.MethodGet, "/projects/"+project.ID+"/export/premiere?format=aaf", nil)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, http.MethodGet, "/projects/missing/export/premiere", nil)
	assertStatus(t, rr, http.StatusNotFound)
}

type fakeUploader struct {
	folders []string
	files   []string
	failOn  string
}

func (f *fakeUploader) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	f.folders = append(f.folders, name)
	return "folder-" + name, nil
}

func (f *fakeUploader) UploadFile(ctx context.Context, name, parentID, mimeType string, r io.Reader) (string, error) {
	if name == f.failOn {
		return "", errors.New("quota exceeded")
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.files = append(f.files, name)
	return "file-" + name, nil
}

func TestExportDrive(t *testing.T) {
	env := setupTestServer(t)
	project, shots := env.seedProject(t)
	env.seedSelectedImages(t, shots)

	uploader := &fakeUploader{}
	cfg := env.cfg
	cfg.Drive = drive.NewExporter(env.svc, uploader, cfg.Media, cfg.Logger)
	env.router = NewRouter(cfg)

	rr := env.do(t, http.MethodPost, "/projects/"+project.ID+"/export/drive", nil)
	assertStatus(t, rr, http.StatusOK)

	var result drive.Result
	decodeInto(t, rr, &result)
	if !strings.HasPrefix(result.FolderURL, "https://drive.google.com/") {
		t.Errorf("folder_url = %q", result.FolderURL)
	}
	// project.xml plus one image per shot
	if len(result.Uploaded) != 3 {
		t.Errorf("uploaded = %v, want 3 files", result.Uploaded)
	}
	if len(uploader.folders) != 4 {
		t.Errorf("folders = %v, want root plus images, videos, audio", uploader.folders)
	}
}

func TestExportDrive_NotConfigured(t *testing.T) {
	env := setupTestServer(t)
	project, _ := env.seedProject(t)

	rr := env.do(t, http.MethodPost, "/projects/"+project.ID+"/export/drive", nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)
}
