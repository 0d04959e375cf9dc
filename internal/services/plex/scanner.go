package plex

import "context"

// ScanResult names the library section that was asked to rescan a path.
type ScanResult struct {
	Library string
	Path    string
}

// Scanner requests rescans of library paths.
type Scanner interface {
	Scan(ctx context.Context, paths []string) ([]ScanResult, error)
}

// NopScanner satisfies Scanner without a configured server.
type NopScanner struct{}

// NewNopScanner returns a scanner that does nothing.
func NewNopScanner() NopScanner { return NopScanner{} }

// Scan reports no results.
func (NopScanner) Scan(ctx context.Context, paths []string) ([]ScanResult, error) {
	return nil, nil
}
