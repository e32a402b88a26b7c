package cache

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/mediashelf/mediashelf/internal/config"
)

// ImageCache downloads posters once, scales them down and keeps them on disk.
type ImageCache struct {
	cacheDir  string
	client    *http.Client
	maxWidth  int
	maxHeight int
	quality   int // JPEG quality (1-100)
}

// NewImageCache creates the cache directory and returns an image cache.
func NewImageCache(cfg *config.ImagesConfig) (*ImageCache, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image cache directory: %w", err)
	}
	return &ImageCache{
		cacheDir:  cfg.CacheDir,
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		quality:   cfg.Quality,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (ic *ImageCache) cacheKey(imageURL string) string {
	hash := md5.Sum([]byte(imageURL))
	return fmt.Sprintf("%x", hash)
}

// Every cached poster is re-encoded as JPEG.
func (ic *ImageCache) cacheFilePath(imageURL string) string {
	return filepath.Join(ic.cacheDir, ic.cacheKey(imageURL)+".jpg")
}

// Path returns the local path of a poster, downloading it on first use.
func (ic *ImageCache) Path(ctx context.Context, imageURL string) (string, error) {
	if imageURL == "" {
		return "", errors.New("image URL is empty")
	}

	path := ic.cacheFilePath(imageURL)
	if _, err := os.Stat(path); err == nil {
		log.Debug("Using cached image", "path", path)
		return path, nil
	}

	log.Debug("Downloading image", "url", imageURL)
	return path, ic.downloadAndCache(ctx, imageURL, path)
}

func (ic *ImageCache) downloadAndCache(ctx context.Context, imageURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := ic.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if contentType := resp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("invalid content type: %s", contentType)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if w, h := ic.scaledDimensions(bounds.Dx(), bounds.Dy()); w != bounds.Dx() || h != bounds.Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
		log.Debug("Resized image", "url", imageURL, "from", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()), "to", fmt.Sprintf("%dx%d", w, h))
	}

	// write next to the final file and rename so readers never see a partial image
	tmpPath := filepath.Join(ic.cacheDir, "tmp_"+filepath.Base(path))
	defer os.Remove(tmpPath)

	if err := imaging.Save(img, tmpPath, imaging.JPEGQuality(ic.quality)); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move image into cache: %w", err)
	}

	log.Info("Cached image", "url", imageURL, "path", path)
	return nil
}

// scaledDimensions keeps the aspect ratio while fitting into the configured bounds.
func (ic *ImageCache) scaledDimensions(width, height int) (int, int) {
	if width <= ic.maxWidth && height <= ic.maxHeight {
		return width, height
	}

	ratio := min(float64(ic.maxWidth)/float64(width), float64(ic.maxHeight)/float64(height))
	return max(1, int(float64(width)*ratio)), max(1, int(float64(height)*ratio))
}

// Prune removes cached images older than maxAge and returns how many were removed.
func (ic *ImageCache) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.WalkDir(ic.cacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			log.Debug("Removing old cached image", "path", path)
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
