// Package timeline provides the reference document model the orchestrator
// mutates: tracks, clips, a generated transcript and preview state, plus the
// built-in tool set wrapping its operations. The document guards itself with
// a mutex; ordering of mutations relative to each other and to dependent
// reads is the scheduler's job, not the document's.
package timeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/clipmesh/clipmesh/core"
)

// Domain error codes surfaced by timeline tools. The recovery engine keys
// its default policies on these.
const (
	CodeMissingTranscript = "MISSING_TRANSCRIPT"
	CodeStalePreview      = "STALE_PREVIEW"
	CodeMediaBusy         = "MEDIA_BUSY"
	CodeClipNotFound      = "CLIP_NOT_FOUND"
	CodeTrackNotFound     = "TRACK_NOT_FOUND"
	CodeInvalidRange      = "INVALID_RANGE"
)

// Track is one horizontal lane of the timeline.
type Track struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"` // video, audio or caption
}

// Clip is a placed segment of source media.
type Clip struct {
	ID      string  `json:"id"`
	TrackID string  `json:"track_id"`
	Name    string  `json:"name"`
	Start   float64 `json:"start"` // timeline position, seconds
	End     float64 `json:"end"`
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 { return c.End - c.Start }

// Segment is one transcript span. Silence spans carry no text.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text,omitempty"`
	Silence bool    `json:"silence,omitempty"`
}

// Caption is a rendered caption derived from the transcript.
type Caption struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Document is the mutable shared timeline. All methods are safe for
// concurrent use. Every mutation invalidates the rendered preview; exporting
// requires a fresh preview, and transcript-dependent edits require a
// transcript, which is how the recovery engine's bootstrap and refresh
// policies get exercised in practice.
type Document struct {
	mu           sync.RWMutex
	name         string
	tracks       []Track
	clips        []Clip
	transcript   []Segment
	captions     []Caption
	previewFresh bool
	mediaBusy    bool
	revision     int
}

// OpError is a failed document operation with a machine code.
type OpError struct {
	Code    string
	Message string
}

func (e *OpError) Error() string { return fmt.Sprintf("[%s] %s", e.Code, e.Message) }

// NewDocument creates a timeline with one video and one audio track.
func NewDocument(name string) *Document {
	return &Document{
		name: name,
		tracks: []Track{
			{ID: core.NewID(), Name: "V1", Kind: "video"},
			{ID: core.NewID(), Name: "A1", Kind: "audio"},
		},
	}
}

// Name returns the document name.
func (d *Document) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// Info summarizes the document for the model.
func (d *Document) Info() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var duration float64
	for _, c := range d.clips {
		if c.End > duration {
			duration = c.End
		}
	}
	return map[string]any{
		"name":           d.name,
		"tracks":         len(d.tracks),
		"clips":          len(d.clips),
		"duration":       duration,
		"has_transcript": d.transcript != nil,
		"preview_fresh":  d.previewFresh,
		"revision":       d.revision,
	}
}

// Tracks returns a copy of the track list.
func (d *Document) Tracks() []Track {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Track, len(d.tracks))
	copy(out, d.tracks)
	return out
}

// Clips returns a copy of the clip list sorted by timeline position.
func (d *Document) Clips() []Clip {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Clip, len(d.clips))
	copy(out, d.clips)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Clip returns the clip with the given id.
func (d *Document) Clip(id string) (Clip, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.clips {
		if c.ID == id {
			return c, nil
		}
	}
	return Clip{}, &OpError{Code: CodeClipNotFound, Message: fmt.Sprintf("clip %s not found", id)}
}

// trackByID must be called with the lock held.
func (d *Document) trackByID(id string) (int, bool) {
	for i, t := range d.tracks {
		if t.ID == id || t.Name == id {
			return i, true
		}
	}
	return 0, false
}

// mutated invalidates derived state. Must be called with the write lock held.
func (d *Document) mutated() {
	d.revision++
	d.previewFresh = false
}

// AddClip places a new clip on a track (addressed by id or name).
func (d *Document) AddClip(trackID, name string, start, end float64) (Clip, error) {
	if end <= start || start < 0 {
		return Clip{}, &OpError{Code: CodeInvalidRange, Message: fmt.Sprintf("invalid clip range [%v, %v)", start, end)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, ok := d.trackByID(trackID)
	if !ok {
		return Clip{}, &OpError{Code: CodeTrackNotFound, Message: fmt.Sprintf("track %s not found", trackID)}
	}
	clip := Clip{ID: core.NewID(), TrackID: d.tracks[idx].ID, Name: name, Start: start, End: end}
	d.clips = append(d.clips, clip)
	d.mutated()
	return clip, nil
}

// RemoveClip deletes a clip.
func (d *Document) RemoveClip(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.clips {
		if c.ID == id {
			d.clips = append(d.clips[:i], d.clips[i+1:]...)
			d.mutated()
			return nil
		}
	}
	return &OpError{Code: CodeClipNotFound, Message: fmt.Sprintf("clip %s not found", id)}
}

// SplitClip cuts a clip in two at the given timeline position.
func (d *Document) SplitClip(id string, at float64) (Clip, Clip, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.clips {
		if c.ID != id {
			continue
		}
		if at <= c.Start || at >= c.End {
			return Clip{}, Clip{}, &OpError{Code: CodeInvalidRange, Message: fmt.Sprintf("split point %v outside clip [%v, %v)", at, c.Start, c.End)}
		}
		left := c
		left.End = at
		right := Clip{ID: core.NewID(), TrackID: c.TrackID, Name: c.Name, Start: at, End: c.End}
		d.clips[i] = left
		d.clips = append(d.clips, right)
		d.mutated()
		return left, right, nil
	}
	return Clip{}, Clip{}, &OpError{Code: CodeClipNotFound, Message: fmt.Sprintf("clip %s not found", id)}
}

// MoveClip shifts a clip to a new start position, preserving its length.
func (d *Document) MoveClip(id string, start float64) (Clip, error) {
	if start < 0 {
		return Clip{}, &OpError{Code: CodeInvalidRange, Message: fmt.Sprintf("negative start %v", start)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.clips {
		if c.ID != id {
			continue
		}
		length := c.End - c.Start
		d.clips[i].Start = start
		d.clips[i].End = start + length
		d.mutated()
		return d.clips[i], nil
	}
	return Clip{}, &OpError{Code: CodeClipNotFound, Message: fmt.Sprintf("clip %s not found", id)}
}

// TrimClip adjusts a clip's in/out points.
func (d *Document) TrimClip(id string, start, end float64) (Clip, error) {
	if end <= start || start < 0 {
		return Clip{}, &OpError{Code: CodeInvalidRange, Message: fmt.Sprintf("invalid trim range [%v, %v)", start, end)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.clips {
		if c.ID != id {
			continue
		}
		d.clips[i].Start = start
		d.clips[i].End = end
		d.mutated()
		return d.clips[i], nil
	}
	return Clip{}, &OpError{Code: CodeClipNotFound, Message: fmt.Sprintf("clip %s not found", id)}
}

// GenerateTranscript derives a transcript from the current clips. The
// synthesized segments alternate speech and short silences per clip; a real
// deployment would call a speech-to-text backend here.
func (d *Document) GenerateTranscript() []Segment {
	d.mu.Lock()
	defer d.mu.Unlock()
	segs := []Segment{}
	for _, c := range d.clips {
		mid := c.Start + c.Duration()*0.8
		segs = append(segs,
			Segment{Start: c.Start, End: mid, Text: fmt.Sprintf("speech from %s", c.Name)},
			Segment{Start: mid, End: c.End, Silence: true},
		)
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	d.transcript = segs
	out := make([]Segment, len(segs))
	copy(out, segs)
	return out
}

// Transcript returns the current transcript, or an error if none exists.
func (d *Document) Transcript() ([]Segment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.transcript == nil {
		return nil, &OpError{Code: CodeMissingTranscript, Message: "no transcript has been generated"}
	}
	out := make([]Segment, len(d.transcript))
	copy(out, d.transcript)
	return out, nil
}

// CutSilences removes transcript silence spans of at least minDuration from
// the timeline by tightening the overlapping clips. Requires a transcript.
func (d *Document) CutSilences(minDuration float64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transcript == nil {
		return 0, &OpError{Code: CodeMissingTranscript, Message: "cut_silences requires a transcript; run generate_transcript first"}
	}
	removed := 0
	for _, seg := range d.transcript {
		if !seg.Silence || seg.End-seg.Start < minDuration {
			continue
		}
		for i := range d.clips {
			c := &d.clips[i]
			if seg.Start >= c.Start && seg.End <= c.End {
				c.End -= seg.End - seg.Start
				if c.End < c.Start {
					c.End = c.Start
				}
				removed++
			}
		}
	}
	if removed > 0 {
		d.mutated()
		d.transcript = nil // positions shifted; transcript must be regenerated
	}
	return removed, nil
}

// AddCaption creates a caption over the given range from transcript text.
// Requires a transcript.
func (d *Document) AddCaption(start, end float64) (Caption, error) {
	if end <= start {
		return Caption{}, &OpError{Code: CodeInvalidRange, Message: fmt.Sprintf("invalid caption range [%v, %v)", start, end)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transcript == nil {
		return Caption{}, &OpError{Code: CodeMissingTranscript, Message: "add_caption requires a transcript; run generate_transcript first"}
	}
	text := ""
	for _, seg := range d.transcript {
		if seg.Silence || seg.End <= start || seg.Start >= end {
			continue
		}
		if text != "" {
			text += " "
		}
		text += seg.Text
	}
	caption := Caption{Start: start, End: end, Text: text}
	d.captions = append(d.captions, caption)
	d.mutated()
	return caption, nil
}

// SetMediaBusy toggles the simulated media-pipeline contention flag. While
// busy, RenderPreview and ExportSegment fail with MEDIA_BUSY.
func (d *Document) SetMediaBusy(busy bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mediaBusy = busy
}

// RenderPreview refreshes the preview for the current revision.
func (d *Document) RenderPreview() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mediaBusy {
		return &OpError{Code: CodeMediaBusy, Message: "media pipeline is busy"}
	}
	d.previewFresh = true
	return nil
}

// ExportSegment writes the given range to a destination. Requires a preview
// rendered after the most recent mutation.
func (d *Document) ExportSegment(start, end float64, dest string) (string, error) {
	if end <= start {
		return "", &OpError{Code: CodeInvalidRange, Message: fmt.Sprintf("invalid export range [%v, %v)", start, end)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mediaBusy {
		return "", &OpError{Code: CodeMediaBusy, Message: "media pipeline is busy"}
	}
	if !d.previewFresh {
		return "", &OpError{Code: CodeStalePreview, Message: "preview is stale; run render_preview first"}
	}
	if dest == "" {
		dest = fmt.Sprintf("%s_%v-%v.mp4", d.name, start, end)
	}
	return dest, nil
}
