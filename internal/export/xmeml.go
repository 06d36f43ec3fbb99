package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeXML replaces runes outside the XML 1.0 Char production (including
// invalid UTF-8) with U+FFFD before entity escaping.
func escapeXML(s string) string {
	return xmlEscaper.Replace(strings.Map(xmlChar, s))
}

func xmlChar(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return r
	case r >= 0x20 && r <= 0xD7FF,
		r >= 0xE000 && r <= 0xFFFD,
		r >= 0x10000 && r <= 0x10FFFF:
		return r
	default:
		return utf8.RuneError
	}
}

// xmlWriter emits indented elements. The first write error sticks and
// later writes are dropped.
type xmlWriter struct {
	w     io.Writer
	depth int
	err   error
}

func (x *xmlWriter) line(format string, args ...any) {
	if x.err != nil {
		return
	}
	_, x.err = fmt.Fprintf(x.w, "%s%s\n", strings.Repeat("  ", x.depth), fmt.Sprintf(format, args...))
}

func (x *xmlWriter) open(tag string) {
	x.line("<%s>", tag)
	x.depth++
}

func (x *xmlWriter) openAttr(tag, attr, value string) {
	x.line(`<%s %s="%s">`, tag, attr, escapeXML(value))
	x.depth++
}

func (x *xmlWriter) close(tag string) {
	x.depth--
	x.line("</%s>", tag)
}

func (x *xmlWriter) text(tag, value string) {
	x.line("<%s>%s</%s>", tag, escapeXML(value), tag)
}

func (x *xmlWriter) num(tag string, value int) {
	x.line("<%s>%d</%s>", tag, value, tag)
}

func (x *xmlWriter) rate(fps int) {
	x.open("rate")
	x.num("timebase", fps)
	x.text("ntsc", "FALSE")
	x.close("rate")
}

// WriteXMEML renders the timeline as an FCP 7 xmeml v5 document, which
// Premiere Pro and DaVinci Resolve import.
func WriteXMEML(w io.Writer, tl *Timeline) error {
	x := &xmlWriter{w: w}
	x.line(`<?xml version="1.0" encoding="UTF-8"?>`)
	x.line(`<!DOCTYPE xmeml>`)
	x.openAttr("xmeml", "version", "5")
	x.open("project")
	x.text("name", tl.Title)
	x.open("children")
	x.openAttr("sequence", "id", "main_sequence")
	x.text("name", tl.Title)
	x.num("duration", tl.TotalFrames)
	x.rate(tl.FrameRate)

	x.open("timecode")
	x.rate(tl.FrameRate)
	x.text("string", "00:00:00:00")
	x.num("frame", 0)
	x.text("displayformat", "NDF")
	x.close("timecode")

	x.open("media")
	writeVideo(x, tl)
	writeAudio(x, tl)
	x.close("media")

	x.close("sequence")
	x.close("children")
	x.close("project")
	x.close("xmeml")
	return x.err
}

// GenerateXMEML is WriteXMEML into a string.
func GenerateXMEML(tl *Timeline) string {
	var b strings.Builder
	WriteXMEML(&b, tl)
	return b.String()
}

func writeVideo(x *xmlWriter, tl *Timeline) {
	x.open("video")
	x.open("format")
	x.open("samplecharacteristics")
	x.num("width", tl.Width)
	x.num("height", tl.Height)
	x.text("anamorphic", "FALSE")
	x.text("pixelaspectratio", "square")
	x.text("fielddominance", "none")
	x.rate(tl.FrameRate)
	x.close("samplecharacteristics")
	x.close("format")

	x.open("track")
	for _, c := range tl.Clips {
		id := fmt.Sprintf("shot_%d", c.ShotIndex+1)
		x.openAttr("clipitem", "id", id)
		x.text("name", c.Name)
		x.num("duration", c.DurationFrames)
		x.rate(tl.FrameRate)
		x.num("start", c.StartFrame)
		x.num("end", c.EndFrame)
		x.num("in", 0)
		x.num("out", c.DurationFrames)

		x.openAttr("file", "id", "file_"+id)
		x.text("name", c.FileName)
		x.text("pathurl", "file://./"+c.Folder()+"/"+c.FileName)
		x.rate(tl.FrameRate)
		x.num("duration", c.DurationFrames)
		x.open("media")
		x.open("video")
		x.open("samplecharacteristics")
		x.num("width", tl.Width)
		x.num("height", tl.Height)
		x.close("samplecharacteristics")
		x.close("video")
		x.close("media")
		x.close("file")

		x.close("clipitem")
	}
	x.close("track")
	x.close("video")
}

func writeAudio(x *xmlWriter, tl *Timeline) {
	x.open("audio")
	x.num("numOutputChannels", 2)
	x.open("format")
	x.open("samplecharacteristics")
	x.num("depth", 16)
	x.num("samplerate", 48000)
	x.close("samplecharacteristics")
	x.close("format")

	for _, track := range []*AudioTrack{tl.Narration, tl.Music} {
		if track == nil {
			continue
		}
		x.open("track")
		x.openAttr("clipitem", "id", track.ID)
		x.text("name", track.Name)
		x.num("duration", tl.TotalFrames)
		x.rate(tl.FrameRate)
		x.num("start", 0)
		x.num("end", tl.TotalFrames)
		x.num("in", 0)
		x.num("out", tl.TotalFrames)

		x.openAttr("file", "id", "file_"+track.ID)
		x.text("name", track.FileName)
		x.text("pathurl", "file://./audio/"+track.FileName)
		x.open("media")
		x.open("audio")
		x.num("channelcount", 2)
		x.close("audio")
		x.close("media")
		x.close("file")

		x.close("clipitem")
		x.close("track")
	}
	x.close("audio")
}
