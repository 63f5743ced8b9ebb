package loader

import (
	"context"
	"fmt"

	"cts/internal/discovery"
)

// Crawler builds a Listing from a suite directory on disk. Test bodies
// are not compiled or loaded.
type Crawler struct {
	scanner *discovery.Scanner
	parser  *discovery.Parser
}

// NewCrawler creates a Crawler that ignores the given directory names
func NewCrawler(skipDirs []string) *Crawler {
	return &Crawler{
		scanner: discovery.NewScanner(skipDirs),
		parser:  discovery.NewParser(),
	}
}

// Crawl walks dir and returns its listing
func (c *Crawler) Crawl(ctx context.Context, dir string) (Listing, error) {
	files, err := c.scanner.Scan(ctx, dir)
	if err != nil {
		return nil, err
	}

	listing := make(Listing, 0, len(files))
	for _, f := range files {
		entry := Entry{File: f.Segments()}
		switch f.Kind {
		case discovery.KindModule:
			desc, err := c.parser.FindDescription(f.Path)
			if err != nil {
				return nil, fmt.Errorf("crawl %s: %w", dir, err)
			}
			entry.Description = &desc
		case discovery.KindReadme:
			readme, err := c.parser.ReadReadme(f.Path)
			if err != nil {
				return nil, fmt.Errorf("crawl %s: %w", dir, err)
			}
			entry.Readme = &readme
		}
		listing = append(listing, entry)
	}
	listing.sort()
	return listing, nil
}
