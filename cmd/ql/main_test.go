package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotaline/internal/domain"
)

func TestParseDeadline(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"2024-03-05T09:30:00Z":      time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
		"2024-03-05T11:30:00+02:00": time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
		"72h":                       now.Add(72 * time.Hour),
		"+90m":                      now.Add(90 * time.Minute),
	}
	for in, want := range cases {
		got, err := parseDeadline(in, now)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}
	_, err := parseDeadline("next friday", now)
	assert.Error(t, err)
}

func TestReadContentFile(t *testing.T) {
	dir := t.TempDir()
	wrapped := filepath.Join(dir, "wrapped.yml")
	require.NoError(t, os.WriteFile(wrapped, []byte(`records:
  - kind: single
    uploaded_by: Uma
    created_at: 2024-03-01T13:00:00Z
    download_links:
      - url: https://cdn.example/a
  - kind: series
    uploaded_by: Uma
    created_at: 2024-03-01T14:00:00Z
    season_downloads:
      - label: s1
        url: https://cdn.example/s1
`), 0o644))
	records, err := readContentFile(wrapped)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.ContentKindSeries, records[1].Kind)
	assert.True(t, domain.IsCompletedUpload(records[1]))

	bare := filepath.Join(dir, "bare.yml")
	require.NoError(t, os.WriteFile(bare, []byte(`- kind: single
  uploaded_by: Ravi
  created_at: 2024-03-02T08:00:00Z
`), 0o644))
	records, err = readContentFile(bare)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ravi", records[0].UploadedBy)
	assert.False(t, domain.IsCompletedUpload(records[0]))
}
