package studio

import (
	"context"
	"database/sql"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/db"
)

type Repository interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProject(ctx context.Context, project *Project) error
	DeleteProject(ctx context.Context, id string) error

	ReplaceScript(ctx context.Context, script *Script, scenes []*Scene, shots []*Shot) error
	ListScripts(ctx context.Context, projectID string) ([]*Script, error)
	ListScenes(ctx context.Context, projectID string) ([]*Scene, error)

	GetShot(ctx context.Context, id string) (*Shot, error)
	ListShots(ctx context.Context, projectID string) ([]*Shot, error)
	UpdateShot(ctx context.Context, shot *Shot) error
	ApproveAllShots(ctx context.Context, projectID string) (int64, error)
	ReorderShots(ctx context.Context, projectID string, orderedIDs []string) error
	ListShotMedia(ctx context.Context, projectID string) ([]*ShotMedia, error)

	CreateImage(ctx context.Context, image *ImageGeneration) error
	GetImage(ctx context.Context, id string) (*ImageGeneration, error)
	ListImages(ctx context.Context, shotID string) ([]*ImageGeneration, error)
	CountImages(ctx context.Context, shotID string) (int, error)
	DeleteImagesByShot(ctx context.Context, shotID string) error
	SelectImage(ctx context.Context, shotID, imageID string) (bool, error)
	SelectImageIfNone(ctx context.Context, shotID, imageID string) (bool, error)
	DeleteImage(ctx context.Context, shotID, imageID string) (bool, error)

	CreateVideo(ctx context.Context, video *VideoGeneration) error
	GetVideo(ctx context.Context, id string) (*VideoGeneration, error)
	ListVideos(ctx context.Context, shotID string) ([]*VideoGeneration, error)
	UpdateVideo(ctx context.Context, video *VideoGeneration) (bool, error)
	ListInFlightVideos(ctx context.Context, projectID string) ([]*VideoGeneration, error)
	FailStaleVideos(ctx context.Context, createdBefore time.Time, reason string) (int64, error)
	SelectVideo(ctx context.Context, shotID, videoID string) (bool, error)
	SelectVideoIfNone(ctx context.Context, shotID, videoID string) (bool, error)
	DeleteVideo(ctx context.Context, shotID, videoID string) (bool, error)

	GetAudio(ctx context.Context, projectID string) (*ProjectAudio, error)
	SetNarration(ctx context.Context, projectID, url, source string) error
	SetMusic(ctx context.Context, projectID, url, source string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const projectColumns = `id, title, aspect_ratio, visual_style, status, created_at, updated_at`

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.AspectRatio, p.VisualStyle, p.Status, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(s scanner) (*Project, error) {
	var p Project
	var createdAt, updatedAt string
	if err := s.Scan(&p.ID, &p.Title, &p.AspectRatio, &p.VisualStyle, &p.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, aspect_ratio = ?, visual_style = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, p.Title, p.AspectRatio, p.VisualStyle, p.Status, formatTime(p.UpdatedAt), p.ID)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// ReplaceScript stores a new script version and swaps the project's scenes
// and shots in one transaction. The version is assigned inside the
// transaction so concurrent parses cannot reuse a number.
func (r *SQLiteRepository) ReplaceScript(ctx context.Context, script *Script, scenes []*Scene, shots []*Shot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) + 1 FROM scripts WHERE project_id = ?", script.ProjectID,
	).Scan(&script.Version); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scripts (id, project_id, version, raw_text, parsed_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, script.ID, script.ProjectID, script.Version, script.RawText, nullString(script.ParsedJSON), formatTime(script.CreatedAt)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM shots WHERE project_id = ?", script.ProjectID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM scenes WHERE project_id = ?", script.ProjectID); err != nil {
		return err
	}

	for _, sc := range scenes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (id, project_id, scene_index, title, location, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sc.ID, sc.ProjectID, sc.Index, sc.Title, nullString(sc.Location), formatTime(sc.CreatedAt)); err != nil {
			return err
		}
	}

	for _, s := range shots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shots (`+shotColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.ID, s.ProjectID, s.SceneID, s.Index, s.Description, s.Mood, s.CameraMovement, s.VisualStyle,
			s.Duration, s.Status, formatTime(s.CreatedAt), formatTime(s.UpdatedAt)); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE projects SET status = ?, updated_at = ? WHERE id = ?",
		ProjectStatusInProgress, formatTime(script.CreatedAt), script.ProjectID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepository) ListScripts(ctx context.Context, projectID string) ([]*Script, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, version, raw_text, parsed_json, created_at
		FROM scripts WHERE project_id = ? ORDER BY version DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scripts []*Script
	for rows.Next() {
		var s Script
		var parsed sql.NullString
		var createdAt string
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Version, &s.RawText, &parsed, &createdAt); err != nil {
			return nil, err
		}
		s.ParsedJSON = parsed.String
		s.CreatedAt = parseTime(createdAt)
		scripts = append(scripts, &s)
	}
	return scripts, rows.Err()
}

func (r *SQLiteRepository) ListScenes(ctx context.Context, projectID string) ([]*Scene, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, scene_index, title, location, created_at
		FROM scenes WHERE project_id = ? ORDER BY scene_index
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		var sc Scene
		var location sql.NullString
		var createdAt string
		if err := rows.Scan(&sc.ID, &sc.ProjectID, &sc.Index, &sc.Title, &location, &createdAt); err != nil {
			return nil, err
		}
		sc.Location = location.String
		sc.CreatedAt = parseTime(createdAt)
		scenes = append(scenes, &sc)
	}
	return scenes, rows.Err()
}

const shotColumns = `id, project_id, scene_id, shot_index, description, mood, camera_movement, visual_style, duration, status, created_at, updated_at`

func scanShot(s scanner) (*Shot, error) {
	var sh Shot
	var createdAt, updatedAt string
	if err := s.Scan(&sh.ID, &sh.ProjectID, &sh.SceneID, &sh.Index, &sh.Description, &sh.Mood,
		&sh.CameraMovement, &sh.VisualStyle, &sh.Duration, &sh.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sh.CreatedAt = parseTime(createdAt)
	sh.UpdatedAt = parseTime(updatedAt)
	return &sh, nil
}

func (r *SQLiteRepository) GetShot(ctx context.Context, id string) (*Shot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shotColumns+` FROM shots WHERE id = ?`, id)
	sh, err := scanShot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sh, err
}

func (r *SQLiteRepository) ListShots(ctx context.Context, projectID string) ([]*Shot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+shotColumns+` FROM shots WHERE project_id = ? ORDER BY shot_index
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shots []*Shot
	for rows.Next() {
		sh, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		shots = append(shots, sh)
	}
	return shots, rows.Err()
}

func (r *SQLiteRepository) UpdateShot(ctx context.Context, s *Shot) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE shots SET description = ?, mood = ?, camera_movement = ?, visual_style = ?,
			duration = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, s.Description, s.Mood, s.CameraMovement, s.VisualStyle, s.Duration, s.Status, formatTime(s.UpdatedAt), s.ID)
	return err
}

func (r *SQLiteRepository) ApproveAllShots(ctx context.Context, projectID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE shots SET status = ?, updated_at = ? WHERE project_id = ? AND status != ?
	`, ShotStatusApproved, formatTime(time.Now()), projectID, ShotStatusApproved)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReorderShots assigns indices 0..n-1 following orderedIDs. Indices are first
// moved to negative values so the unique (project_id, shot_index) constraint
// holds at every step.
func (r *SQLiteRepository) ReorderShots(ctx context.Context, projectID string, orderedIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE shots SET shot_index = -1 - shot_index WHERE project_id = ?", projectID,
	); err != nil {
		return err
	}

	now := formatTime(time.Now())
	for i, id := range orderedIDs {
		res, err := tx.ExecContext(ctx,
			"UPDATE shots SET shot_index = ?, updated_at = ? WHERE id = ? AND project_id = ?",
			i, now, id, projectID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return notFound("shot", id)
		}
	}

	return tx.Commit()
}

// ListShotMedia loads every shot of a project in index order together with
// its image and video generations.
func (r *SQLiteRepository) ListShotMedia(ctx context.Context, projectID string) ([]*ShotMedia, error) {
	shots, err := r.ListShots(ctx, projectID)
	if err != nil {
		return nil, err
	}

	media := make([]*ShotMedia, len(shots))
	byShot := make(map[string]*ShotMedia, len(shots))
	for i, s := range shots {
		media[i] = &ShotMedia{Shot: s}
		byShot[s.ID] = media[i]
	}

	imgRows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.shot_id, i.prompt, i.image_url, i.selected, i.created_at
		FROM image_generations i JOIN shots s ON s.id = i.shot_id
		WHERE s.project_id = ? ORDER BY i.created_at, i.rowid
	`, projectID)
	if err != nil {
		return nil, err
	}
	images, err := scanImages(imgRows)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		if m, ok := byShot[img.ShotID]; ok {
			m.Images = append(m.Images, img)
		}
	}

	vidRows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedVideoColumns+`
		FROM video_generations v JOIN shots s ON s.id = v.shot_id
		WHERE s.project_id = ? ORDER BY v.created_at, v.rowid
	`, projectID)
	if err != nil {
		return nil, err
	}
	videos, err := scanVideos(vidRows)
	if err != nil {
		return nil, err
	}
	for _, v := range videos {
		if m, ok := byShot[v.ShotID]; ok {
			m.Videos = append(m.Videos, v)
		}
	}

	return media, nil
}

func (r *SQLiteRepository) CreateImage(ctx context.Context, img *ImageGeneration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO image_generations (id, shot_id, prompt, image_url, selected, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, img.ID, img.ShotID, img.Prompt, img.ImageURL, boolToInt(img.Selected), formatTime(img.CreatedAt))
	return err
}

func (r *SQLiteRepository) GetImage(ctx context.Context, id string) (*ImageGeneration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shot_id, prompt, image_url, selected, created_at
		FROM image_generations WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	images, err := scanImages(rows)
	if err != nil || len(images) == 0 {
		return nil, err
	}
	return images[0], nil
}

func (r *SQLiteRepository) ListImages(ctx context.Context, shotID string) ([]*ImageGeneration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shot_id, prompt, image_url, selected, created_at
		FROM image_generations WHERE shot_id = ? ORDER BY created_at, rowid
	`, shotID)
	if err != nil {
		return nil, err
	}
	return scanImages(rows)
}

func scanImages(rows *sql.Rows) ([]*ImageGeneration, error) {
	defer rows.Close()

	var images []*ImageGeneration
	for rows.Next() {
		var img ImageGeneration
		var selected int
		var createdAt string
		if err := rows.Scan(&img.ID, &img.ShotID, &img.Prompt, &img.ImageURL, &selected, &createdAt); err != nil {
			return nil, err
		}
		img.Selected = selected == 1
		img.CreatedAt = parseTime(createdAt)
		images = append(images, &img)
	}
	return images, rows.Err()
}

func (r *SQLiteRepository) CountImages(ctx context.Context, shotID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM image_generations WHERE shot_id = ?", shotID).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) DeleteImagesByShot(ctx context.Context, shotID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM image_generations WHERE shot_id = ?", shotID)
	return err
}

// SelectImage makes imageID the only selected image of the shot. The
// membership check and the single-statement swap share one transaction, so
// concurrent selections never leave zero or two images selected.
func (r *SQLiteRepository) SelectImage(ctx context.Context, shotID, imageID string) (bool, error) {
	return r.selectExclusive(ctx, "image_generations", shotID, imageID)
}

func (r *SQLiteRepository) SelectVideo(ctx context.Context, shotID, videoID string) (bool, error) {
	return r.selectExclusive(ctx, "video_generations", shotID, videoID)
}

func (r *SQLiteRepository) selectExclusive(ctx context.Context, table, shotID, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ? AND shot_id = ?", id, shotID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE "+table+" SET selected = CASE WHEN id = ? THEN 1 ELSE 0 END WHERE shot_id = ?",
		id, shotID,
	); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// SelectImageIfNone selects imageID only when the shot has no selected image.
func (r *SQLiteRepository) SelectImageIfNone(ctx context.Context, shotID, imageID string) (bool, error) {
	return r.selectIfNone(ctx, "image_generations", shotID, imageID)
}

func (r *SQLiteRepository) SelectVideoIfNone(ctx context.Context, shotID, videoID string) (bool, error) {
	return r.selectIfNone(ctx, "video_generations", shotID, videoID)
}

func (r *SQLiteRepository) selectIfNone(ctx context.Context, table, shotID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE `+table+` SET selected = 1
		WHERE id = ? AND shot_id = ?
		AND NOT EXISTS (SELECT 1 FROM `+table+` WHERE shot_id = ? AND selected = 1)
	`, id, shotID, shotID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DeleteImage removes an image. When the deleted image was selected the
// earliest remaining image takes its place.
func (r *SQLiteRepository) DeleteImage(ctx context.Context, shotID, imageID string) (bool, error) {
	return r.deleteAndPromote(ctx, "image_generations", shotID, imageID, "")
}

// DeleteVideo removes a video. When the deleted video was selected the
// earliest remaining completed video takes its place.
func (r *SQLiteRepository) DeleteVideo(ctx context.Context, shotID, videoID string) (bool, error) {
	return r.deleteAndPromote(ctx, "video_generations", shotID, videoID, "AND status = 'COMPLETED'")
}

func (r *SQLiteRepository) deleteAndPromote(ctx context.Context, table, shotID, id, candidateFilter string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var selected int
	err = tx.QueryRowContext(ctx, "SELECT selected FROM "+table+" WHERE id = ? AND shot_id = ?", id, shotID).Scan(&selected)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return false, err
	}

	if selected == 1 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE `+table+` SET selected = 1
			WHERE id = (
				SELECT id FROM `+table+` WHERE shot_id = ? `+candidateFilter+`
				ORDER BY created_at, rowid LIMIT 1
			)
		`, shotID); err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}

const videoColumns = `id, shot_id, image_id, provider, motion_type, prompt, status, task_id, video_url, error, selected, created_at, updated_at`

const prefixedVideoColumns = `v.id, v.shot_id, v.image_id, v.provider, v.motion_type, v.prompt, v.status, v.task_id, v.video_url, v.error, v.selected, v.created_at, v.updated_at`

func (r *SQLiteRepository) CreateVideo(ctx context.Context, v *VideoGeneration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO video_generations (`+videoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.ShotID, nullString(v.ImageID), v.Provider, v.MotionType, v.Prompt, v.Status,
		nullString(v.TaskID), nullString(v.VideoURL), nullString(v.Error), boolToInt(v.Selected),
		formatTime(v.CreatedAt), formatTime(v.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetVideo(ctx context.Context, id string) (*VideoGeneration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM video_generations WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	videos, err := scanVideos(rows)
	if err != nil || len(videos) == 0 {
		return nil, err
	}
	return videos[0], nil
}

func (r *SQLiteRepository) ListVideos(ctx context.Context, shotID string) ([]*VideoGeneration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+videoColumns+` FROM video_generations WHERE shot_id = ? ORDER BY created_at, rowid
	`, shotID)
	if err != nil {
		return nil, err
	}
	return scanVideos(rows)
}

func scanVideos(rows *sql.Rows) ([]*VideoGeneration, error) {
	defer rows.Close()

	var videos []*VideoGeneration
	for rows.Next() {
		var v VideoGeneration
		var imageID, taskID, videoURL, errMsg sql.NullString
		var selected int
		var createdAt, updatedAt string
		if err := rows.Scan(&v.ID, &v.ShotID, &imageID, &v.Provider, &v.MotionType, &v.Prompt, &v.Status,
			&taskID, &videoURL, &errMsg, &selected, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		v.ImageID = imageID.String
		v.TaskID = taskID.String
		v.VideoURL = videoURL.String
		v.Error = errMsg.String
		v.Selected = selected == 1
		v.CreatedAt = parseTime(createdAt)
		v.UpdatedAt = parseTime(updatedAt)
		videos = append(videos, &v)
	}
	return videos, rows.Err()
}

// UpdateVideo writes v unless the stored record is already COMPLETED or
// FAILED. It reports whether the row changed.
func (r *SQLiteRepository) UpdateVideo(ctx context.Context, v *VideoGeneration) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE video_generations SET status = ?, task_id = ?, video_url = ?, error = ?, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`, v.Status, nullString(v.TaskID), nullString(v.VideoURL), nullString(v.Error), formatTime(v.UpdatedAt), v.ID,
		GenerationCompleted, GenerationFailed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListInFlightVideos returns PROCESSING videos that have a provider task id.
// An empty projectID lists across all projects.
func (r *SQLiteRepository) ListInFlightVideos(ctx context.Context, projectID string) ([]*VideoGeneration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedVideoColumns+`
		FROM video_generations v JOIN shots s ON s.id = v.shot_id
		WHERE v.status = ? AND v.task_id IS NOT NULL AND v.task_id != ''
		AND (? = '' OR s.project_id = ?)
		ORDER BY v.created_at, v.rowid
	`, GenerationProcessing, projectID, projectID)
	if err != nil {
		return nil, err
	}
	return scanVideos(rows)
}

func (r *SQLiteRepository) FailStaleVideos(ctx context.Context, createdBefore time.Time, reason string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE video_generations SET status = ?, error = ?, updated_at = ?
		WHERE status IN (?, ?) AND created_at < ?
	`, GenerationFailed, reason, formatTime(time.Now()), GenerationPending, GenerationProcessing, formatTime(createdBefore))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) GetAudio(ctx context.Context, projectID string) (*ProjectAudio, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT project_id, narration_url, narration_source, music_url, music_source, updated_at
		FROM project_audio WHERE project_id = ?
	`, projectID)

	var a ProjectAudio
	var narrationURL, narrationSource, musicURL, musicSource sql.NullString
	var updatedAt string
	err := row.Scan(&a.ProjectID, &narrationURL, &narrationSource, &musicURL, &musicSource, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.NarrationURL = narrationURL.String
	a.NarrationSource = narrationSource.String
	a.MusicURL = musicURL.String
	a.MusicSource = musicSource.String
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func (r *SQLiteRepository) SetNarration(ctx context.Context, projectID, url, source string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_audio (project_id, narration_url, narration_source, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			narration_url = excluded.narration_url,
			narration_source = excluded.narration_source,
			updated_at = excluded.updated_at
	`, projectID, nullString(url), nullString(source), formatTime(time.Now()))
	return err
}

func (r *SQLiteRepository) SetMusic(ctx context.Context, projectID, url, source string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_audio (project_id, music_url, music_source, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			music_url = excluded.music_url,
			music_source = excluded.music_source,
			updated_at = excluded.updated_at
	`, projectID, nullString(url), nullString(source), formatTime(time.Now()))
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(db.TimeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(db.TimeLayout, s)
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
