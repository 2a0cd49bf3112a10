package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/docmark/internal/metadata"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestOpenZip_ListsDeclaredMetadata(t *testing.T) {
	data := buildZip(t, map[string]string{
		"docs/index.html": "<html><body>hello</body></html>",
		"README.md":       "# readme",
	})

	members, aerr := OpenZip(bytes.NewReader(data), int64(len(data)))
	require.Nil(t, aerr)
	require.Len(t, members, 2)

	byName := make(map[string]Member)
	for _, m := range members {
		byName[m.Name] = m
	}
	require.Contains(t, byName, "docs/index.html")
	assert.Equal(t, uint64(len("<html><body>hello</body></html>")), byName["docs/index.html"].UncompressedSize)
}

func TestOpenZip_TruncatedContainer(t *testing.T) {
	data := buildZip(t, map[string]string{"a.txt": "content"})
	truncated := data[:len(data)/2]

	_, aerr := OpenZip(bytes.NewReader(truncated), int64(len(truncated)))
	require.NotNil(t, aerr)
	assert.Equal(t, ArchiveErrorCause(ErrCauseUnreadableContainer), aerr.Cause)
	assert.False(t, aerr.Retryable)
}

func TestOpenZip_EndToEndValidation(t *testing.T) {
	data := buildZip(t, map[string]string{
		"../escape.txt": "hostile",
		"fine.txt":      "ok",
	})

	members, aerr := OpenZip(bytes.NewReader(data), int64(len(data)))
	require.Nil(t, aerr)

	v := NewValidator(metadata.NewRecorder())
	report := v.Validate(members, testLimits())

	require.False(t, report.Clean())
	assert.Equal(t, PathTraversalDetected, report.Violations[0].Kind)
}
