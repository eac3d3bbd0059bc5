package gis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/katastar-hr/katastar/internal/config"
	"github.com/katastar-hr/katastar/internal/core/domain"
)

// AtomDownloader fetches municipality boundary archives from the public
// INSPIRE Atom download service. One archive per municipality, named
// ko-<code>.zip.
type AtomDownloader struct {
	client  *http.Client
	baseURL string
}

func NewAtomDownloader(cfg *config.Config) *AtomDownloader {
	return &AtomDownloader{
		client: &http.Client{
			Timeout: cfg.DownloadTimeout,
		},
		baseURL: strings.TrimRight(cfg.OSSAtomBaseURL, "/"),
	}
}

// Download fetches the archive for one municipality into destPath. The
// body lands in a .part file first and is renamed only after a complete
// copy, so an interrupted download never looks cached.
func (d *AtomDownloader) Download(ctx context.Context, municipalityCode, destPath string) error {
	url := fmt.Sprintf("%s/ko-%s.zip", d.baseURL, municipalityCode)

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": municipalityCode,
		}, fmt.Errorf("failed to create cache dir: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": municipalityCode,
			"url":          url,
		}, fmt.Errorf("failed to download: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.NewError(domain.ErrGeometryNotFound, map[string]string{
			"municipality": municipalityCode,
			"reason":       "no boundary archive published",
		})
	}
	if resp.StatusCode != http.StatusOK {
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": municipalityCode,
			"url":          url,
		}, fmt.Errorf("bad status: %s", resp.Status))
	}

	partPath := destPath + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": municipalityCode,
		}, fmt.Errorf("failed to create file: %w", err))
	}

	// Progress goes to stderr: stdout carries exported data or the MCP
	// protocol stream depending on the binary.
	bar := progressbar.NewOptions64(
		resp.ContentLength,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading ko-%s.zip", municipalityCode)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	)

	_, err = io.Copy(io.MultiWriter(out, bar), resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": municipalityCode,
		}, fmt.Errorf("failed to save file: %w", err))
	}

	if err := os.Rename(partPath, destPath); err != nil {
		os.Remove(partPath)
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": municipalityCode,
		}, fmt.Errorf("failed to finalize download: %w", err))
	}
	return nil
}
