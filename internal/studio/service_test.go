package studio

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

type fakeParser struct {
	script *ParsedScript
	err    error
}

func (f *fakeParser) ParseScript(ctx context.Context, rawText string) (*ParsedScript, error) {
	return f.script, f.err
}

func twoSceneScript() *ParsedScript {
	return &ParsedScript{Scenes: []ParsedScene{
		{Index: 1, Title: "The Flood", Location: "Ark", Shots: []ParsedShot{
			{Index: 1, Description: "Rain over the ark", CameraMovement: "zoom in", Mood: "foreboding", Duration: 4},
			{Index: 2, Description: "Animals boarding", CameraMovement: "crane", Mood: "joyful", Duration: 0},
		}},
		{Index: 2, Title: "", Shots: []ParsedShot{
			{Index: 1, Description: "Dove returns", CameraMovement: "PAN_LEFT", Mood: "PEACEFUL", Duration: 6},
		}},
	}}
}

// seedShot creates a project with a single parsed shot.
func seedShot(t *testing.T, svc *Service) *Shot {
	t.Helper()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "Genesis", "", "")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	svc.parser = &fakeParser{script: &ParsedScript{Scenes: []ParsedScene{
		{Title: "One", Shots: []ParsedShot{{Description: "A lone figure", Mood: "DRAMATIC", Duration: 4}}},
	}}}
	_, shots, err := svc.ParseScript(ctx, project.ID, "text")
	if err != nil {
		t.Fatalf("ParseScript() error = %v", err)
	}
	return shots[0]
}

func addImages(t *testing.T, repo Repository, shotID string, n int) []*ImageGeneration {
	t.Helper()
	base := time.Now()
	var images []*ImageGeneration
	for i := 0; i < n; i++ {
		img := &ImageGeneration{
			ID:        NewID(),
			ShotID:    shotID,
			Prompt:    "prompt",
			ImageURL:  "s3://studio/img.png",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.CreateImage(context.Background(), img); err != nil {
			t.Fatalf("CreateImage() error = %v", err)
		}
		images = append(images, img)
	}
	return images
}

func selectedImageIDs(t *testing.T, repo Repository, shotID string) []string {
	t.Helper()
	images, err := repo.ListImages(context.Background(), shotID)
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}
	var ids []string
	for _, img := range images {
		if img.Selected {
			ids = append(ids, img.ID)
		}
	}
	return ids
}

func TestService_CreateProject(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil, nil)

	project, err := svc.CreateProject(context.Background(), "  Exodus ", AspectPortrait, "")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if project.Title != "Exodus" {
		t.Errorf("Title = %q, want Exodus", project.Title)
	}
	if project.Status != ProjectStatusDraft {
		t.Errorf("Status = %s, want %s", project.Status, ProjectStatusDraft)
	}
	if project.VisualStyle != DefaultVisualStyle {
		t.Errorf("VisualStyle = %s, want %s", project.VisualStyle, DefaultVisualStyle)
	}

	got, err := svc.GetProject(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.AspectRatio != AspectPortrait {
		t.Errorf("AspectRatio = %s, want %s", got.AspectRatio, AspectPortrait)
	}
}

func TestService_CreateProject_Invalid(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil, nil)

	if _, err := svc.CreateProject(context.Background(), "", "", ""); !IsValidation(err) {
		t.Errorf("empty title error = %v, want ValidationError", err)
	}
	if _, err := svc.CreateProject(context.Background(), "x", "SQUARE", ""); !IsValidation(err) {
		t.Errorf("bad aspect error = %v, want ValidationError", err)
	}
}

func TestService_GetProject_NotFound(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil, nil)

	_, err := svc.GetProject(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("GetProject() error = %v, want NotFoundError", err)
	}
}

func TestService_ParseScript(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, &fakeParser{script: twoSceneScript()}, nil)

	project, err := svc.CreateProject(ctx, "Noah", AspectLandscape, StyleEpicFilmStill)
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	script, shots, err := svc.ParseScript(ctx, project.ID, "raw script")
	if err != nil {
		t.Fatalf("ParseScript() error = %v", err)
	}
	if script.Version != 1 {
		t.Errorf("Version = %d, want 1", script.Version)
	}
	if len(shots) != 3 {
		t.Fatalf("len(shots) = %d, want 3", len(shots))
	}

	for i, sh := range shots {
		if sh.Index != i {
			t.Errorf("shots[%d].Index = %d, want %d", i, sh.Index, i)
		}
		if sh.VisualStyle != StyleEpicFilmStill {
			t.Errorf("shots[%d].VisualStyle = %s, want %s", i, sh.VisualStyle, StyleEpicFilmStill)
		}
	}
	if shots[0].CameraMovement != CameraZoomIn || shots[0].Mood != MoodForeboding {
		t.Errorf("shots[0] = %s/%s, want ZOOM_IN/FOREBODING", shots[0].CameraMovement, shots[0].Mood)
	}
	if shots[1].CameraMovement != CameraStatic || shots[1].Mood != MoodDramatic {
		t.Errorf("shots[1] = %s/%s, want STATIC/DRAMATIC fallbacks", shots[1].CameraMovement, shots[1].Mood)
	}
	if shots[1].Duration != DefaultShotDuration {
		t.Errorf("shots[1].Duration = %v, want %v", shots[1].Duration, DefaultShotDuration)
	}

	updated, _ := svc.GetProject(ctx, project.ID)
	if updated.Status != ProjectStatusInProgress {
		t.Errorf("project status = %s, want %s", updated.Status, ProjectStatusInProgress)
	}

	scenes, _ := svc.ListScenes(ctx, project.ID)
	if len(scenes) != 2 || scenes[1].Title != "Scene 2" {
		t.Errorf("scenes = %+v, want 2 scenes with default title for the second", scenes)
	}
}

func TestService_ParseScript_ReplacesShots(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	parser := &fakeParser{script: twoSceneScript()}
	svc := NewService(repo, parser, nil)

	project, _ := svc.CreateProject(ctx, "Noah", "", "")
	if _, _, err := svc.ParseScript(ctx, project.ID, "v1"); err != nil {
		t.Fatalf("ParseScript(v1) error = %v", err)
	}

	parser.script = &ParsedScript{Scenes: []ParsedScene{
		{Title: "Only", Shots: []ParsedShot{{Description: "single", Duration: 3}}},
	}}
	script, _, err := svc.ParseScript(ctx, project.ID, "v2")
	if err != nil {
		t.Fatalf("ParseScript(v2) error = %v", err)
	}
	if script.Version != 2 {
		t.Errorf("Version = %d, want 2", script.Version)
	}

	shots, _ := svc.ListShots(ctx, project.ID)
	if len(shots) != 1 || shots[0].Description != "single" {
		t.Errorf("shots after reparse = %+v, want the single new shot", shots)
	}

	scripts, _ := svc.ListScripts(ctx, project.ID)
	if len(scripts) != 2 || scripts[0].Version != 2 {
		t.Errorf("scripts = %d (first v%d), want 2 newest first", len(scripts), scripts[0].Version)
	}
}

func TestService_ParseScript_ParserError(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	parseErr := errors.New("llm unavailable")
	svc := NewService(repo, &fakeParser{err: parseErr}, nil)

	project, _ := svc.CreateProject(ctx, "Noah", "", "")
	_, _, err := svc.ParseScript(ctx, project.ID, "text")
	if !errors.Is(err, parseErr) {
		t.Errorf("ParseScript() error = %v, want wrapped parser error", err)
	}

	scripts, _ := svc.ListScripts(ctx, project.ID)
	if len(scripts) != 0 {
		t.Errorf("scripts = %d, want none stored", len(scripts))
	}
}

func TestService_UpdateShot_DurationBounds(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, nil, nil)
	shot := seedShot(t, svc)

	for _, d := range []float64{0.4, 60.5, -1} {
		d := d
		if _, err := svc.UpdateShot(ctx, shot.ID, ShotUpdate{Duration: &d}); !IsValidation(err) {
			t.Errorf("UpdateShot(duration=%v) error = %v, want ValidationError", d, err)
		}
	}

	d := 2.5
	status := ShotStatusApproved
	updated, err := svc.UpdateShot(ctx, shot.ID, ShotUpdate{Duration: &d, Status: &status})
	if err != nil {
		t.Fatalf("UpdateShot() error = %v", err)
	}
	if updated.Duration != 2.5 || updated.Status != ShotStatusApproved {
		t.Errorf("updated = %v/%s, want 2.5/APPROVED", updated.Duration, updated.Status)
	}
}

func TestService_ReorderShots(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, &fakeParser{script: twoSceneScript()}, nil)
	project, _ := svc.CreateProject(ctx, "Noah", "", "")
	_, shots, _ := svc.ParseScript(ctx, project.ID, "raw")

	order := []string{shots[2].ID, shots[0].ID, shots[1].ID}
	reordered, err := svc.ReorderShots(ctx, project.ID, order)
	if err != nil {
		t.Fatalf("ReorderShots() error = %v", err)
	}
	for i, sh := range reordered {
		if sh.ID != order[i] || sh.Index != i {
			t.Errorf("reordered[%d] = %s@%d, want %s@%d", i, sh.ID, sh.Index, order[i], i)
		}
	}

	if _, err := svc.ReorderShots(ctx, project.ID, order[:2]); !IsValidation(err) {
		t.Errorf("short list error = %v, want ValidationError", err)
	}
	dup := []string{shots[0].ID, shots[0].ID, shots[1].ID}
	if _, err := svc.ReorderShots(ctx, project.ID, dup); !IsValidation(err) {
		t.Errorf("duplicate list error = %v, want ValidationError", err)
	}
}

func TestService_ApproveAllShots(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, &fakeParser{script: twoSceneScript()}, nil)
	project, _ := svc.CreateProject(ctx, "Noah", "", "")
	svc.ParseScript(ctx, project.ID, "raw")

	n, err := svc.ApproveAllShots(ctx, project.ID)
	if err != nil {
		t.Fatalf("ApproveAllShots() error = %v", err)
	}
	if n != 3 {
		t.Errorf("approved = %d, want 3", n)
	}
	n, _ = svc.ApproveAllShots(ctx, project.ID)
	if n != 0 {
		t.Errorf("second approve = %d, want 0", n)
	}
}

func TestService_SelectImage_SingleSelection(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, nil, nil)
	shot := seedShot(t, svc)
	images := addImages(t, repo, shot.ID, 3)

	for _, img := range []*ImageGeneration{images[0], images[2], images[1], images[1]} {
		if err := svc.SelectImage(ctx, shot.ID, img.ID); err != nil {
			t.Fatalf("SelectImage() error = %v", err)
		}
		got := selectedImageIDs(t, repo, shot.ID)
		if len(got) != 1 || got[0] != img.ID {
			t.Fatalf("selected = %v, want [%s]", got, img.ID)
		}
	}
}

func TestService_SelectImage_Concurrent(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, nil, nil)
	shot := seedShot(t, svc)
	images := addImages(t, repo, shot.ID, 4)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(img *ImageGeneration) {
			defer wg.Done()
			if err := svc.SelectImage(ctx, shot.ID, img.ID); err != nil {
				t.Errorf("SelectImage() error = %v", err)
			}
		}(images[i%len(images)])
	}
	wg.Wait()

	if got := selectedImageIDs(t, repo, shot.ID); len(got) != 1 {
		t.Errorf("selected = %v, want exactly one", got)
	}
}

func TestService_SelectImage_WrongShot(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, &fakeParser{script: twoSceneScript()}, nil)
	project, _ := svc.CreateProject(ctx, "Noah", "", "")
	_, shots, _ := svc.ParseScript(ctx, project.ID, "raw")

	images := addImages(t, repo, shots[0].ID, 1)
	if err := svc.SelectImage(ctx, shots[0].ID, images[0].ID); err != nil {
		t.Fatalf("SelectImage() error = %v", err)
	}

	err := svc.SelectImage(ctx, shots[1].ID, images[0].ID)
	if !IsNotFound(err) {
		t.Errorf("SelectImage(other shot) error = %v, want NotFoundError", err)
	}
	if got := selectedImageIDs(t, repo, shots[0].ID); len(got) != 1 {
		t.Errorf("selection on original shot changed: %v", got)
	}
}

func TestService_DeleteImage_PromotesEarliest(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, nil, nil)
	shot := seedShot(t, svc)
	images := addImages(t, repo, shot.ID, 3)

	if err := svc.SelectImage(ctx, shot.ID, images[1].ID); err != nil {
		t.Fatalf("SelectImage() error = %v", err)
	}
	if err := svc.DeleteImage(ctx, shot.ID, images[1].ID); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	got := selectedImageIDs(t, repo, shot.ID)
	if len(got) != 1 || got[0] != images[0].ID {
		t.Errorf("selected after delete = %v, want [%s]", got, images[0].ID)
	}

	// Deleting an unselected image leaves the selection alone.
	if err := svc.DeleteImage(ctx, shot.ID, images[2].ID); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	got = selectedImageIDs(t, repo, shot.ID)
	if len(got) != 1 || got[0] != images[0].ID {
		t.Errorf("selected = %v, want [%s]", got, images[0].ID)
	}

	if err := svc.DeleteImage(ctx, shot.ID, images[0].ID); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	if got := selectedImageIDs(t, repo, shot.ID); len(got) != 0 {
		t.Errorf("selected after last delete = %v, want none", got)
	}

	if err := svc.DeleteImage(ctx, shot.ID, images[0].ID); !IsNotFound(err) {
		t.Errorf("DeleteImage(again) error = %v, want NotFoundError", err)
	}
}

func TestService_DeleteVideo_PromotesCompleted(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, nil, nil)
	shot := seedShot(t, svc)

	base := time.Now()
	statuses := []string{GenerationCompleted, GenerationFailed, GenerationCompleted, GenerationCompleted}
	var videos []*VideoGeneration
	for i, st := range statuses {
		v := &VideoGeneration{
			ID:         NewID(),
			ShotID:     shot.ID,
			Provider:   ProviderMinimax,
			MotionType: CameraStatic,
			Prompt:     "p",
			Status:     st,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
			UpdatedAt:  base,
		}
		if err := repo.CreateVideo(ctx, v); err != nil {
			t.Fatalf("CreateVideo() error = %v", err)
		}
		videos = append(videos, v)
	}

	if err := svc.SelectVideo(ctx, shot.ID, videos[0].ID); err != nil {
		t.Fatalf("SelectVideo() error = %v", err)
	}
	if err := svc.DeleteVideo(ctx, shot.ID, videos[0].ID); err != nil {
		t.Fatalf("DeleteVideo() error = %v", err)
	}

	remaining, _ := repo.ListVideos(ctx, shot.ID)
	var selected []string
	for _, v := range remaining {
		if v.Selected {
			selected = append(selected, v.ID)
		}
	}
	if len(selected) != 1 || selected[0] != videos[2].ID {
		t.Errorf("selected = %v, want earliest completed %s", selected, videos[2].ID)
	}
}

func TestRepository_SelectImageIfNone(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, nil, nil)
	shot := seedShot(t, svc)
	images := addImages(t, repo, shot.ID, 2)

	ok, err := repo.SelectImageIfNone(ctx, shot.ID, images[0].ID)
	if err != nil || !ok {
		t.Fatalf("SelectImageIfNone(first) = %v, %v, want true", ok, err)
	}
	ok, err = repo.SelectImageIfNone(ctx, shot.ID, images[1].ID)
	if err != nil || ok {
		t.Fatalf("SelectImageIfNone(second) = %v, %v, want false", ok, err)
	}
}

func TestService_UpdateAudio(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	svc := NewService(repo, nil, nil)
	project, _ := svc.CreateProject(ctx, "Psalms", "", "")

	if err := svc.SetNarration(ctx, project.ID, "s3://studio/n.mp3", AudioSourceTTS); err != nil {
		t.Fatalf("SetNarration() error = %v", err)
	}
	music := "https://example.com/m.mp3"
	audio, err := svc.UpdateAudio(ctx, project.ID, AudioUpdate{MusicURL: &music})
	if err != nil {
		t.Fatalf("UpdateAudio() error = %v", err)
	}
	if audio.NarrationURL != "s3://studio/n.mp3" || audio.NarrationSource != AudioSourceTTS {
		t.Errorf("narration = %s/%s, want kept", audio.NarrationURL, audio.NarrationSource)
	}
	if audio.MusicURL != music || audio.MusicSource != AudioSourceUploaded {
		t.Errorf("music = %s/%s, want %s/UPLOADED", audio.MusicURL, audio.MusicSource, music)
	}
}
