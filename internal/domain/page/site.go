package page

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/bearcattt/scramjet/internal/domain/window"
)

// ErrNotInSite is returned when a page is not part of the scanned set.
var ErrNotInSite = errors.New("page not in site")

// siteOrigin is the synthetic origin local documents resolve against, so
// relative frame sources behave exactly as they would over HTTP.
const siteOrigin = "site://local/"

// maxFrameDepth bounds recursive frame loading for local sites.
const maxFrameDepth = 5

// Site is a scanned local directory of HTML documents, used for fixture
// content and offline snapshots.
type Site struct {
	root  string
	pages map[string]string // relative slash path to absolute path
}

// ScanSite walks a directory and indexes every HTML document in it.
// Symlinks are not followed.
func ScanSite(root string) (*Site, error) {
	root = filepath.Clean(root)
	pages := make(map[string]string)
	var mu sync.Mutex

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".html" && ext != ".htm" {
			return nil
		}
		if mt, err := mimetype.DetectFile(p); err != nil || !mt.Is("text/html") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}

		// Walk callbacks run concurrently.
		mu.Lock()
		pages[filepath.ToSlash(rel)] = p
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", root, err)
	}

	return &Site{root: root, pages: pages}, nil
}

// SiteURL returns the synthetic URL a site page is addressed by.
func SiteURL(rel string) string {
	return siteOrigin + path.Clean(rel)
}

// Root returns the scanned directory.
func (s *Site) Root() string { return s.root }

// Len returns the number of indexed pages.
func (s *Site) Len() int { return len(s.pages) }

// Has reports whether the relative path is part of the site.
func (s *Site) Has(rel string) bool {
	_, ok := s.pages[rel]
	return ok
}

// Pages returns the indexed relative paths, sorted.
func (s *Site) Pages() []string {
	out := make([]string, 0, len(s.pages))
	for rel := range s.pages {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// Read returns the raw bytes of an indexed page.
func (s *Site) Read(rel string) ([]byte, error) {
	abs, ok := s.pages[rel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInSite, rel)
	}
	return os.ReadFile(abs)
}

// LoadSiteTree loads a site entry page into the window and then loads each
// frame whose source resolves to another page of the site into that frame's
// content window, recursively. Frames pointing outside the site are left
// unloaded. Self-embedding cycles are cut, as is recursion past a fixed
// depth.
func (l *Loader) LoadSiteTree(win *window.Window, site *Site, entry string) (*window.Document, error) {
	entry = path.Clean(entry)
	raw, err := site.Read(entry)
	if err != nil {
		return nil, err
	}
	return l.loadSitePage(win, site, entry, raw, maxFrameDepth, map[string]bool{})
}

func (l *Loader) loadSitePage(win *window.Window, site *Site, rel string, raw []byte, depth int, ancestors map[string]bool) (*window.Document, error) {
	doc, err := l.Load(win, siteOrigin+rel, raw)
	if err != nil {
		return nil, err
	}
	if depth <= 1 {
		return doc, nil
	}

	ancestors[rel] = true
	defer delete(ancestors, rel)

	for _, frame := range doc.Frames() {
		src := frame.AttrOr("src", "")
		sub := sitePath(src)
		if sub == "" || ancestors[sub] || !site.Has(sub) {
			continue
		}
		subRaw, err := site.Read(sub)
		if err != nil {
			continue
		}
		if _, err := l.loadSitePage(frame.ContentWindow(), site, sub, subRaw, depth-1, ancestors); err != nil {
			l.logger.Warn("frame load failed",
				zap.String("page", rel),
				zap.String("frame", sub),
				zap.Error(err))
		}
	}
	return doc, nil
}

// sitePath extracts the site-relative path from a resolved frame source, or
// returns empty when the source points outside the site origin.
func sitePath(src string) string {
	if !strings.HasPrefix(src, "site://") {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
