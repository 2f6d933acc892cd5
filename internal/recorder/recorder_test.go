package recorder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	client "tankdown/client"
	"tankdown/client/internal/replay"
)

func TestCapturedStreamLoadsAsReplay(t *testing.T) {
	rec := New()
	rec.Note([]byte(`{"t": 0, "type": "MapCrt", "width": 10, "height": 10}`))
	rec.Note([]byte(`{"t": 500, "type": "EleCrt", "uid": 3, "name": "Tk", "x": 1, "y": 2}`))
	require.Equal(t, 2, rec.Count())

	var buf bytes.Buffer
	require.NoError(t, rec.Flush(&buf))

	records, err := replay.Load(buf.Bytes(), client.DefaultRegistry())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 500.0, records[1].T)
}

func TestNoteAfterFlushIsDropped(t *testing.T) {
	rec := New()
	rec.Note([]byte(`{"t": 0, "type": "MapCrt", "width": 1, "height": 1}`))

	var buf bytes.Buffer
	require.NoError(t, rec.Flush(&buf))

	rec.Note([]byte(`{"t": 100, "type": "GameOvr"}`))
	require.Equal(t, 1, rec.Count())
}

func TestEmptyFlushWritesEmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Flush(&buf))

	records, err := replay.Load(buf.Bytes(), client.DefaultRegistry())
	require.NoError(t, err)
	require.Empty(t, records)
}
