package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshare/internal/eventbus"
	"fileshare/internal/filestore"
	"fileshare/internal/model"
)

func TestTotalsReflectStoreState(t *testing.T) {
	fs := filestore.New(eventbus.New(), nil)
	agg := New(fs)
	ctx := context.Background()

	assert.Equal(t, model.Stats{}, agg.Totals())

	rec, err := fs.PutFile(ctx, "docs", "a.txt", []byte("12345"), "text/plain", "k")
	require.NoError(t, err)
	_, err = fs.RecordDownload(ctx, rec.ID)
	require.NoError(t, err)

	got := agg.Totals()
	assert.Equal(t, 1, got.FileCount)
	assert.Equal(t, int64(5), got.TotalSizeBytes)
	assert.Equal(t, int64(1), got.TotalDownloads)

	// No caching: a delete is visible immediately.
	_, err = fs.DeleteFile(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{}, agg.Totals())
}

func TestTotalSizeMB(t *testing.T) {
	assert.Equal(t, 0.0, TotalSizeMB(model.Stats{}))
	assert.Equal(t, 1.0, TotalSizeMB(model.Stats{TotalSizeBytes: 1024 * 1024}))
	assert.Equal(t, 2.5, TotalSizeMB(model.Stats{TotalSizeBytes: 5 * 1024 * 1024 / 2}))
}
