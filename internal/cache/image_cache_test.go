package cache

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImageCache(t *testing.T) *ImageCache {
	t.Helper()
	ic, err := NewImageCache(&config.ImagesConfig{
		CacheDir:  filepath.Join(t.TempDir(), "images"),
		MaxWidth:  340,
		MaxHeight: 500,
		Quality:   85,
	})
	require.NoError(t, err)
	return ic
}

func TestImageCache_PathDownloadsAndScales(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, imaging.New(680, 1000, color.White))
	}))
	defer server.Close()

	ic := newTestImageCache(t)
	ctx := context.Background()

	path, err := ic.Path(ctx, server.URL+"/poster.png")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(path))

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(340, 500), img.Bounds().Size())

	again, err := ic.Path(ctx, server.URL+"/poster.png")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(1), hits.Load(), "second lookup is served from disk")
}

func TestImageCache_RejectsNonImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	ic := newTestImageCache(t)
	_, err := ic.Path(context.Background(), server.URL+"/poster.jpg")
	assert.ErrorContains(t, err, "invalid content type")

	_, err = ic.Path(context.Background(), "")
	assert.Error(t, err)
}

func TestImageCache_ScaledDimensions(t *testing.T) {
	ic := &ImageCache{maxWidth: 340, maxHeight: 500}

	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{w: 300, h: 450, wantW: 300, wantH: 450},
		{w: 680, h: 1000, wantW: 340, wantH: 500},
		{w: 1000, h: 500, wantW: 340, wantH: 170},
		{w: 100, h: 2000, wantW: 25, wantH: 500},
	}
	for _, tt := range tests {
		w, h := ic.scaledDimensions(tt.w, tt.h)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestImageCache_Prune(t *testing.T) {
	ic := newTestImageCache(t)

	oldFile := filepath.Join(ic.cacheDir, "old.jpg")
	newFile := filepath.Join(ic.cacheDir, "new.jpg")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("x"), 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	removed, err := ic.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
}
