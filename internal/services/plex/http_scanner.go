package plex

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"shuttle/internal/logging"
)

const userAgent = "Shuttle-Go/0.1.0"

type section struct {
	key       string
	title     string
	locations []string
}

type httpScanner struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger

	mu       sync.Mutex
	sections []section
}

// NewHTTPScanner returns a scanner backed by a Plex server. Section
// locations are fetched once and cached for the scanner's lifetime.
func NewHTTPScanner(baseURL, token string, client *http.Client, logger *slog.Logger) Scanner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpScanner{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  client,
		logger:  logging.NewComponentLogger(logger, "plex"),
	}
}

// Scan asks the owning section of each path to refresh it. A path outside
// every section location is skipped. Per-path refresh failures do not stop
// the batch; they are joined into the returned error alongside any
// successful results.
func (s *httpScanner) Scan(ctx context.Context, paths []string) ([]ScanResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	sections, err := s.ensureSections(ctx)
	if err != nil {
		return nil, err
	}

	var (
		results []ScanResult
		errs    []error
	)
	for _, scanPath := range paths {
		owner, ok := owningSection(sections, scanPath)
		if !ok {
			s.logger.Debug("path outside all library sections; skipping",
				logging.String("path", scanPath),
			)
			continue
		}
		if err := s.refresh(ctx, owner.key, scanPath); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", scanPath, err))
			continue
		}
		results = append(results, ScanResult{Library: owner.title, Path: scanPath})
	}
	return results, errors.Join(errs...)
}

func (s *httpScanner) refresh(ctx context.Context, key, scanPath string) error {
	refreshURL := fmt.Sprintf("%s/library/sections/%s/refresh?path=%s",
		s.baseURL, key, url.QueryEscape(scanPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, refreshURL, nil)
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("X-Plex-Token", s.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh library section: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("refresh returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *httpScanner) ensureSections(ctx context.Context) ([]section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sections != nil {
		return s.sections, nil
	}

	sectionsURL := s.baseURL + "/library/sections"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sectionsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build sections request: %w", err)
	}
	req.Header.Set("X-Plex-Token", s.token)
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch library sections: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("sections returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	type location struct {
		Path string `xml:"path,attr"`
	}
	type directory struct {
		Key       string     `xml:"key,attr"`
		Title     string     `xml:"title,attr"`
		Locations []location `xml:"Location"`
	}
	type mediaContainer struct {
		Directories []directory `xml:"Directory"`
	}

	var container mediaContainer
	if err := xml.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("decode library sections: %w", err)
	}

	sections := make([]section, 0, len(container.Directories))
	for _, dir := range container.Directories {
		if dir.Key == "" || dir.Title == "" {
			continue
		}
		locations := make([]string, 0, len(dir.Locations))
		for _, loc := range dir.Locations {
			if trimmed := strings.TrimRight(loc.Path, "/"); trimmed != "" {
				locations = append(locations, trimmed)
			}
		}
		sections = append(sections, section{key: dir.Key, title: dir.Title, locations: locations})
	}
	s.sections = sections
	return sections, nil
}

// owningSection matches a path to the section holding its longest location
// prefix, so nested library roots resolve to the most specific section.
func owningSection(sections []section, scanPath string) (section, bool) {
	var (
		best    section
		bestLen = -1
	)
	for _, candidate := range sections {
		for _, loc := range candidate.locations {
			if scanPath != loc && !strings.HasPrefix(scanPath, loc+"/") {
				continue
			}
			if len(loc) > bestLen {
				best = candidate
				bestLen = len(loc)
			}
		}
	}
	return best, bestLen >= 0
}
