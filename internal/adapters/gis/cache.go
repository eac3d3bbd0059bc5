package gis

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/katastar-hr/katastar/internal/core/domain"
	"github.com/katastar-hr/katastar/internal/core/ports"
)

// boundaryFileName is the canonical parcel layer inside every archive.
const boundaryFileName = "katastarske_cestice.gml"

// Cache keeps one directory per municipality under root, holding the
// downloaded archive and the extracted boundary file:
//
//	<root>/ko-334979/ko-334979.zip
//	<root>/ko-334979/katastarske_cestice.gml
//
// Entries never expire on their own; cadastral boundaries change rarely
// and invalidation is an explicit call.
type Cache struct {
	root       string
	downloader ports.ArchiveDownloader
}

func NewCache(root string, downloader ports.ArchiveDownloader) *Cache {
	return &Cache{root: root, downloader: downloader}
}

func (c *Cache) entryDir(code string) string {
	return filepath.Join(c.root, "ko-"+code)
}

func (c *Cache) zipPath(code string) string {
	return filepath.Join(c.entryDir(code), "ko-"+code+".zip")
}

func (c *Cache) boundaryPath(code string) string {
	return filepath.Join(c.entryDir(code), boundaryFileName)
}

// EnsureAvailable returns the path of the extracted boundary file for one
// municipality, downloading and extracting on first use. Subsequent calls
// are pure filesystem checks. With autoDownload off a cold entry fails
// instead of touching the network.
func (c *Cache) EnsureAvailable(ctx context.Context, municipalityCode string, autoDownload bool) (string, error) {
	gmlPath := c.boundaryPath(municipalityCode)
	if _, err := os.Stat(gmlPath); err == nil {
		return gmlPath, nil
	}

	zipPath := c.zipPath(municipalityCode)
	if _, err := os.Stat(zipPath); err != nil {
		if !autoDownload {
			return "", domain.NewError(domain.ErrCache, map[string]string{
				"municipality": municipalityCode,
				"reason":       "not cached and download disabled",
			})
		}
		if err := c.downloader.Download(ctx, municipalityCode, zipPath); err != nil {
			return "", err
		}
	}

	if err := c.extractBoundary(municipalityCode, zipPath, gmlPath); err != nil {
		return "", err
	}
	return gmlPath, nil
}

// extractBoundary pulls the parcel layer out of the archive under its
// canonical name. Extraction goes through a .part file so a crash mid-copy
// leaves no half-written boundary behind.
func (c *Cache) extractBoundary(code, zipPath, gmlPath string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": code,
		}, fmt.Errorf("failed to open zip: %w", err))
	}
	defer reader.Close()

	member := pickBoundaryMember(reader.File)
	if member == nil {
		return domain.NewError(domain.ErrCache, map[string]string{
			"municipality": code,
			"reason":       "archive contains no usable boundary file",
		})
	}

	rc, err := member.Open()
	if err != nil {
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": code,
		}, fmt.Errorf("failed to open %s in zip: %w", member.Name, err))
	}
	defer rc.Close()

	partPath := gmlPath + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": code,
		}, fmt.Errorf("failed to create output file: %w", err))
	}

	_, err = io.Copy(out, rc)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": code,
		}, fmt.Errorf("failed to extract %s: %w", member.Name, err))
	}

	if err := os.Rename(partPath, gmlPath); err != nil {
		os.Remove(partPath)
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": code,
		}, fmt.Errorf("failed to finalize extraction: %w", err))
	}
	log.Printf("Extracted: %s", gmlPath)
	return nil
}

// pickBoundaryMember prefers the canonical file name and falls back to the
// only GML member when the archive uses a different one. Directories count
// for nothing; two candidate layers is as unusable as none.
func pickBoundaryMember(files []*zip.File) *zip.File {
	var gmlMembers []*zip.File
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		base := filepath.Base(f.Name)
		if base == boundaryFileName {
			return f
		}
		if strings.EqualFold(filepath.Ext(base), ".gml") {
			gmlMembers = append(gmlMembers, f)
		}
	}
	if len(gmlMembers) == 1 {
		return gmlMembers[0]
	}
	return nil
}

// IsCached reports whether the archive has been downloaded. The boundary
// file may still need extraction; EnsureAvailable handles that lazily.
func (c *Cache) IsCached(municipalityCode string) bool {
	_, err := os.Stat(c.zipPath(municipalityCode))
	return err == nil
}

// Invalidate removes one municipality's entry, archive included. Removing
// an absent entry is not an error.
func (c *Cache) Invalidate(municipalityCode string) error {
	if err := os.RemoveAll(c.entryDir(municipalityCode)); err != nil {
		return domain.WrapError(domain.ErrCache, map[string]string{
			"municipality": municipalityCode,
		}, err)
	}
	return nil
}

// InvalidateAll wipes the whole cache root and recreates it empty.
func (c *Cache) InvalidateAll() error {
	if err := os.RemoveAll(c.root); err != nil {
		return domain.WrapError(domain.ErrCache, nil, err)
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return domain.WrapError(domain.ErrCache, nil, err)
	}
	return nil
}

// List enumerates municipality codes with a downloaded archive, sorted
// for stable output.
func (c *Cache) List() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCache, nil, err)
	}
	var codes []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "ko-") {
			continue
		}
		code := strings.TrimPrefix(e.Name(), "ko-")
		if c.IsCached(code) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}
