package page

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/bearcattt/scramjet/internal/domain/window"
	"github.com/bearcattt/scramjet/internal/infrastructure/logging"
	"github.com/bearcattt/scramjet/internal/infrastructure/monitoring"
)

var (
	// ErrNotHTML is returned when the payload is not an HTML document.
	ErrNotHTML = errors.New("payload is not html")

	// ErrNoWindow is returned when loading into a nil window.
	ErrNoWindow = errors.New("no window to load into")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader parses fetched markup into a window's document and materializes
// its frame elements.
type Loader struct {
	browser *window.Browser
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewLoader creates a page loader for the given browser.
func NewLoader(b *window.Browser, logger *logging.Logger) *Loader {
	return &Loader{browser: b, logger: logger}
}

// WithMetrics adds metrics tracking to the loader.
func (l *Loader) WithMetrics(m *monitoring.Metrics) *Loader {
	l.metrics = m
	return l
}

// Load parses raw markup into the window's current document. The document
// title, base URL, and raw bytes are set, and one frame element plus content
// window is created per iframe or frame tag. Frame sources are resolved
// against the effective base URL. Subframe documents are not fetched here.
func (l *Loader) Load(win *window.Window, baseURL string, raw []byte) (*window.Document, error) {
	if win == nil {
		return nil, ErrNoWindow
	}

	var timer *monitoring.Timer
	if l.metrics != nil {
		timer = monitoring.NewTimer(l.metrics, "page", "load")
	}

	doc, err := l.load(win, baseURL, raw)
	if timer != nil {
		if err != nil {
			timer.Stop("error")
		} else {
			timer.Stop("success")
		}
	}
	return doc, err
}

func (l *Loader) load(win *window.Window, baseURL string, raw []byte) (*window.Document, error) {
	// Decode before sniffing: the markup detector cannot see tags through
	// UTF-16 or legacy encodings.
	decoded, encoding := decodeBytes(raw)
	decoded = bytes.TrimPrefix(decoded, utf8BOM)

	if mt := mimetype.Detect(decoded); !mt.Is("text/html") && !mt.Is("application/xhtml+xml") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotHTML, mt.String())
	}

	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base := baseURL
	if href, ok := parsed.Find("base[href]").First().Attr("href"); ok {
		base = resolveRef(baseURL, strings.TrimSpace(href))
	}

	title := extractTitle(parsed)

	doc := win.Document()
	doc.SetBaseURL(base)
	doc.SetTitle(title)
	doc.SetRaw(raw)

	frameCount := 0
	parsed.Find("iframe, frame").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Nodes[0]
		attrs := make(map[string]string, len(node.Attr))
		for _, a := range node.Attr {
			attrs[a.Key] = a.Val
		}
		if src, ok := attrs["src"]; ok && src != "" {
			attrs["src"] = resolveRef(base, src)
		}
		l.browser.NewFrame(win, node.Data, attrs)
		frameCount++
	})

	l.logger.Debug("page loaded",
		zap.String("window", win.Name()),
		zap.String("title", title),
		zap.String("encoding", encoding),
		zap.Int("frames", frameCount),
		zap.Int("bytes", len(raw)))

	return doc, nil
}

// extractTitle pulls the first title element's text from the parse tree.
func extractTitle(parsed *goquery.Document) string {
	if len(parsed.Nodes) == 0 {
		return ""
	}
	node, err := htmlquery.Query(parsed.Nodes[0], "//title")
	if err != nil || node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(node))
}

// decodeBytes sniffs the payload encoding and converts it to UTF-8.
// Unknown or already-UTF-8 content passes through untouched.
func decodeBytes(raw []byte) ([]byte, string) {
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil {
		return raw, "utf-8"
	}

	label := strings.ToLower(result.Charset)
	if label == "" || label == "utf-8" || label == "ascii" {
		return raw, "utf-8"
	}
	reader, err := charset.NewReaderLabel(label, bytes.NewReader(raw))
	if err != nil {
		return raw, label
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return raw, label
	}
	return decoded, label
}

// resolveRef resolves ref against base, tolerating malformed input by
// handing back ref unchanged.
func resolveRef(base, ref string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}
