package ports

import "context"

// ArchiveDownloader fetches one municipality's boundary archive into
// destPath. Implementations only promise byte content and an error signal.
type ArchiveDownloader interface {
	Download(ctx context.Context, municipalityCode, destPath string) error
}

// BoundaryProvider maps municipality codes to local boundary files.
type BoundaryProvider interface {
	// EnsureAvailable returns the path of the extracted boundary file,
	// downloading the archive first when autoDownload allows it.
	EnsureAvailable(ctx context.Context, municipalityCode string, autoDownload bool) (string, error)

	// IsCached checks archive existence only, no network or extraction.
	IsCached(municipalityCode string) bool

	Invalidate(municipalityCode string) error
	InvalidateAll() error
}
