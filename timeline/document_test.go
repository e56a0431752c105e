package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWithClip(t *testing.T) (*Document, Clip) {
	t.Helper()
	d := NewDocument("test")
	c, err := d.AddClip("V1", "intro", 0, 10)
	require.NoError(t, err)
	return d, c
}

func opCode(t *testing.T, err error) string {
	t.Helper()
	var oe *OpError
	require.ErrorAs(t, err, &oe)
	return oe.Code
}

func TestNewDocument_DefaultTracks(t *testing.T) {
	d := NewDocument("demo")
	tracks := d.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, "V1", tracks[0].Name)
	assert.Equal(t, "A1", tracks[1].Name)
	assert.Equal(t, "demo", d.Name())
}

func TestAddClip(t *testing.T) {
	d := NewDocument("test")

	c, err := d.AddClip("V1", "a", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, c.Duration())

	_, err = d.AddClip("V9", "b", 0, 5)
	assert.Equal(t, CodeTrackNotFound, opCode(t, err))

	_, err = d.AddClip("V1", "c", 5, 5)
	assert.Equal(t, CodeInvalidRange, opCode(t, err))

	_, err = d.AddClip("V1", "d", -1, 5)
	assert.Equal(t, CodeInvalidRange, opCode(t, err))
}

func TestSplitClip(t *testing.T) {
	d, c := docWithClip(t)

	left, right, err := d.SplitClip(c.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, left.Start)
	assert.Equal(t, 4.0, left.End)
	assert.Equal(t, 4.0, right.Start)
	assert.Equal(t, 10.0, right.End)
	assert.Len(t, d.Clips(), 2)

	_, _, err = d.SplitClip(c.ID, 0)
	assert.Equal(t, CodeInvalidRange, opCode(t, err))

	_, _, err = d.SplitClip("missing", 2)
	assert.Equal(t, CodeClipNotFound, opCode(t, err))
}

func TestMoveAndTrimClip(t *testing.T) {
	d, c := docWithClip(t)

	moved, err := d.MoveClip(c.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 20.0, moved.Start)
	assert.Equal(t, 30.0, moved.End, "move preserves length")

	trimmed, err := d.TrimClip(c.ID, 22, 25)
	require.NoError(t, err)
	assert.Equal(t, 3.0, trimmed.Duration())

	_, err = d.MoveClip(c.ID, -1)
	assert.Equal(t, CodeInvalidRange, opCode(t, err))
}

func TestRemoveClip(t *testing.T) {
	d, c := docWithClip(t)
	require.NoError(t, d.RemoveClip(c.ID))
	assert.Empty(t, d.Clips())
	assert.Equal(t, CodeClipNotFound, opCode(t, d.RemoveClip(c.ID)))
}

func TestTranscriptLifecycle(t *testing.T) {
	d, _ := docWithClip(t)

	_, err := d.Transcript()
	assert.Equal(t, CodeMissingTranscript, opCode(t, err))

	segs := d.GenerateTranscript()
	require.Len(t, segs, 2, "one speech and one silence segment per clip")
	assert.False(t, segs[0].Silence)
	assert.True(t, segs[1].Silence)

	got, err := d.Transcript()
	require.NoError(t, err)
	assert.Equal(t, segs, got)
}

func TestCutSilences(t *testing.T) {
	d, c := docWithClip(t)

	_, err := d.CutSilences(0.5)
	assert.Equal(t, CodeMissingTranscript, opCode(t, err))

	d.GenerateTranscript()
	// The synthesized silence covers the last 20% of the clip: 2 seconds.
	removed, err := d.CutSilences(0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := d.Clip(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 8.0, got.End)

	// Cutting invalidates the transcript; positions have shifted.
	_, err = d.Transcript()
	assert.Equal(t, CodeMissingTranscript, opCode(t, err))
}

func TestCutSilences_ThresholdSkipsShortGaps(t *testing.T) {
	d, _ := docWithClip(t)
	d.GenerateTranscript()

	removed, err := d.CutSilences(5)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	// Nothing changed, so the transcript is still valid.
	_, err = d.Transcript()
	assert.NoError(t, err)
}

func TestAddCaption(t *testing.T) {
	d, _ := docWithClip(t)

	_, err := d.AddCaption(0, 5)
	assert.Equal(t, CodeMissingTranscript, opCode(t, err))

	d.GenerateTranscript()
	caption, err := d.AddCaption(0, 5)
	require.NoError(t, err)
	assert.Contains(t, caption.Text, "intro")

	_, err = d.AddCaption(5, 5)
	assert.Equal(t, CodeInvalidRange, opCode(t, err))
}

func TestPreviewAndExport(t *testing.T) {
	d, _ := docWithClip(t)

	// Export before any preview: stale.
	_, err := d.ExportSegment(0, 5, "")
	assert.Equal(t, CodeStalePreview, opCode(t, err))

	require.NoError(t, d.RenderPreview())
	dest, err := d.ExportSegment(0, 5, "")
	require.NoError(t, err)
	assert.Equal(t, "test_0-5.mp4", dest)

	// Any mutation invalidates the preview again.
	_, err = d.AddClip("V1", "b", 10, 12)
	require.NoError(t, err)
	_, err = d.ExportSegment(0, 5, "out.mp4")
	assert.Equal(t, CodeStalePreview, opCode(t, err))
}

func TestMediaBusy(t *testing.T) {
	d, _ := docWithClip(t)
	d.SetMediaBusy(true)

	assert.Equal(t, CodeMediaBusy, opCode(t, d.RenderPreview()))
	_, err := d.ExportSegment(0, 5, "")
	assert.Equal(t, CodeMediaBusy, opCode(t, err))

	d.SetMediaBusy(false)
	assert.NoError(t, d.RenderPreview())
}

func TestInfo_TracksRevision(t *testing.T) {
	d := NewDocument("test")
	info := d.Info()
	assert.Equal(t, 0, info["revision"])
	assert.Equal(t, false, info["has_transcript"])

	_, err := d.AddClip("V1", "a", 0, 5)
	require.NoError(t, err)
	info = d.Info()
	assert.Equal(t, 1, info["revision"])
	assert.Equal(t, 5.0, info["duration"])
}
