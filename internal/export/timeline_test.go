package export

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

func shotWithImage(index int, seconds float64) *studio.ShotMedia {
	return &studio.ShotMedia{
		Shot: &studio.Shot{ID: "shot-" + string(rune('a'+index)), Index: index, Duration: seconds},
		Images: []*studio.ImageGeneration{
			{ID: "img", ImageURL: "s3://studio/img.png", Selected: true},
		},
	}
}

func TestBuildTimeline_Contiguous(t *testing.T) {
	project := &studio.Project{Title: "Exodus", AspectRatio: studio.AspectLandscape}
	shots := []*studio.ShotMedia{shotWithImage(0, 4.0), shotWithImage(1, 2.5), shotWithImage(2, 6.0)}

	tl := BuildTimeline(project, shots, nil)

	want := [][2]int{{0, 120}, {120, 195}, {195, 375}}
	if len(tl.Clips) != len(want) {
		t.Fatalf("got %d clips, want %d", len(tl.Clips), len(want))
	}
	for i, w := range want {
		c := tl.Clips[i]
		if c.StartFrame != w[0] || c.EndFrame != w[1] {
			t.Errorf("clip %d = [%d,%d), want [%d,%d)", i, c.StartFrame, c.EndFrame, w[0], w[1])
		}
	}
	if tl.TotalFrames != 375 {
		t.Errorf("TotalFrames = %d, want 375", tl.TotalFrames)
	}
	if tl.Width != 1920 || tl.Height != 1080 {
		t.Errorf("dimensions = %dx%d", tl.Width, tl.Height)
	}
}

func TestBuildTimeline_OrdersByIndex(t *testing.T) {
	project := &studio.Project{Title: "Exodus", AspectRatio: studio.AspectPortrait}
	shots := []*studio.ShotMedia{shotWithImage(2, 1), shotWithImage(0, 1), shotWithImage(1, 1)}

	tl := BuildTimeline(project, shots, nil)

	for i, c := range tl.Clips {
		if c.ShotIndex != i {
			t.Errorf("clip %d has shot index %d", i, c.ShotIndex)
		}
	}
	if tl.Width != 1080 || tl.Height != 1920 {
		t.Errorf("portrait dimensions = %dx%d", tl.Width, tl.Height)
	}
}

func TestBuildTimeline_SkipPolicy(t *testing.T) {
	project := &studio.Project{Title: "Exodus", AspectRatio: studio.AspectLandscape}

	noMedia := &studio.ShotMedia{Shot: &studio.Shot{ID: "empty", Index: 1, Duration: 3}}
	pendingVideo := &studio.ShotMedia{
		Shot:   &studio.Shot{ID: "pending", Index: 2, Duration: 2},
		Videos: []*studio.VideoGeneration{{ID: "v", Status: studio.GenerationProcessing, Selected: true}},
	}
	withVideo := shotWithImage(3, 2)
	withVideo.Videos = []*studio.VideoGeneration{
		{ID: "v2", Status: studio.GenerationCompleted, VideoURL: "s3://studio/v.mp4", Selected: true},
	}

	tl := BuildTimeline(project, []*studio.ShotMedia{shotWithImage(0, 4), noMedia, pendingVideo, withVideo}, nil)

	if len(tl.Clips) != 2 {
		t.Fatalf("got %d clips, want 2", len(tl.Clips))
	}
	if got := tl.Skipped; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Skipped = %v, want [1 2]", got)
	}

	last := tl.Clips[1]
	if last.StartFrame != 120 || last.EndFrame != 180 {
		t.Errorf("clip after skipped shots = [%d,%d), want [120,180)", last.StartFrame, last.EndFrame)
	}
	if !last.IsVideo || last.MediaURL != "s3://studio/v.mp4" || last.FileName != "shot_04.mp4" {
		t.Errorf("selected video should win: %+v", last)
	}
	if tl.TotalFrames != 330 {
		t.Errorf("TotalFrames = %d, want 330 including skipped shots", tl.TotalFrames)
	}
}

func TestBuildTimeline_Empty(t *testing.T) {
	tl := BuildTimeline(&studio.Project{Title: "Nothing yet"}, nil, nil)
	if tl.TotalFrames != 0 || len(tl.Clips) != 0 {
		t.Fatalf("empty timeline = %+v", tl)
	}

	doc := GenerateXMEML(tl)
	var parsed xmemlDoc
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("empty document does not parse: %v\n%s", err, doc)
	}
	if parsed.Project.Sequence.Duration != 0 {
		t.Errorf("duration = %d", parsed.Project.Sequence.Duration)
	}
}

// xmemlDoc is the subset of xmeml the tests inspect.
type xmemlDoc struct {
	XMLName xml.Name `xml:"xmeml"`
	Version string   `xml:"version,attr"`
	Project struct {
		Name     string `xml:"name"`
		Sequence struct {
			Name     string `xml:"name"`
			Duration int    `xml:"duration"`
			Video    struct {
				Width int         `xml:"format>samplecharacteristics>width"`
				Clips []xmemlClip `xml:"track>clipitem"`
			} `xml:"media>video"`
			AudioTracks []struct {
				Clip xmemlClip `xml:"clipitem"`
			} `xml:"media>audio>track"`
		} `xml:"children>sequence"`
	} `xml:"project"`
}

type xmemlClip struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name"`
	Start    int    `xml:"start"`
	End      int    `xml:"end"`
	Out      int    `xml:"out"`
	PathURL  string `xml:"file>pathurl"`
	FileName string `xml:"file>name"`
}

func TestGenerateXMEML(t *testing.T) {
	project := &studio.Project{Title: `Cain & Abel <"Genesis 4">`, AspectRatio: studio.AspectLandscape}
	audio := &studio.ProjectAudio{NarrationURL: "s3://studio/n.mp3", MusicURL: "s3://studio/m.mp3"}
	shots := []*studio.ShotMedia{
		shotWithImage(0, 4.0),
		{Shot: &studio.Shot{ID: "skip", Index: 1, Duration: 1}},
		shotWithImage(2, 2.5),
	}

	doc := GenerateXMEML(BuildTimeline(project, shots, audio))

	if !strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing xml declaration: %q", doc[:40])
	}
	if !strings.Contains(doc, "Cain &amp; Abel &lt;&quot;Genesis 4&quot;&gt;") {
		t.Errorf("title not escaped:\n%s", doc)
	}

	var parsed xmemlDoc
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("document does not parse: %v", err)
	}
	if parsed.Version != "5" {
		t.Errorf("version = %q", parsed.Version)
	}
	if parsed.Project.Name != project.Title || parsed.Project.Sequence.Name != project.Title {
		t.Errorf("round-tripped title = %q", parsed.Project.Name)
	}
	if parsed.Project.Sequence.Duration != 225 {
		t.Errorf("sequence duration = %d, want 225", parsed.Project.Sequence.Duration)
	}
	if parsed.Project.Sequence.Video.Width != 1920 {
		t.Errorf("width = %d", parsed.Project.Sequence.Video.Width)
	}

	clips := parsed.Project.Sequence.Video.Clips
	if len(clips) != 2 {
		t.Fatalf("got %d video clips, want 2", len(clips))
	}
	if clips[0].ID != "shot_1" || clips[0].Start != 0 || clips[0].End != 120 {
		t.Errorf("clip 0 = %+v", clips[0])
	}
	if clips[1].ID != "shot_3" || clips[1].Start != 120 || clips[1].End != 195 || clips[1].Out != 75 {
		t.Errorf("clip 1 = %+v", clips[1])
	}
	if clips[1].PathURL != "file://./images/shot_03.png" {
		t.Errorf("pathurl = %q", clips[1].PathURL)
	}

	tracks := parsed.Project.Sequence.AudioTracks
	if len(tracks) != 2 {
		t.Fatalf("got %d audio tracks, want 2", len(tracks))
	}
	for _, tr := range tracks {
		if tr.Clip.Start != 0 || tr.Clip.End != 225 {
			t.Errorf("audio %s spans [%d,%d), want [0,225)", tr.Clip.ID, tr.Clip.Start, tr.Clip.End)
		}
	}
}

func TestEscapeXML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`a & b < c > d "e" 'f'`, "a &amp; b &lt; c &gt; d &quot;e&quot; &apos;f&apos;"},
		{"tab\there\nline", "tab\there\nline"},
		{"Exodus\x0b\x00end", "Exodus\uFFFD\uFFFDend"},
		{"bad \xff byte", "bad \uFFFD byte"},
	}
	for _, tt := range tests {
		if got := escapeXML(tt.in); got != tt.want {
			t.Errorf("escapeXML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateXMEML_ControlCharsInTitle(t *testing.T) {
	project := &studio.Project{Title: "Exodus\x0b<&>\"'", AspectRatio: studio.AspectPortrait}
	doc := GenerateXMEML(BuildTimeline(project, nil, nil))

	var parsed xmemlDoc
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("document does not parse: %v", err)
	}
	if parsed.Project.Name != "Exodus\uFFFD<&>\"'" {
		t.Errorf("round-tripped title = %q", parsed.Project.Name)
	}
}
