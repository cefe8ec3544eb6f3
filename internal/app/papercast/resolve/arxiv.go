// Package resolve looks up paper metadata for a paper identifier.
package resolve

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
)

// Paper is the resolved metadata for one research paper.
type Paper struct {
	ID     string
	Title  string
	PDFURL string
}

const defaultBaseURL = "http://export.arxiv.org/api/query"

var reAbsURL = regexp.MustCompile(`arxiv\.org/abs/(\d+\.\d+)`)

// Arxiv resolves identifiers against the arXiv export API. Accepts bare
// ids like "2412.14689" as well as arxiv.org/abs URLs.
type Arxiv struct {
	Client  *http.Client
	BaseURL string
}

// NewArxiv makes a resolver with a sane request timeout.
func NewArxiv() *Arxiv {
	return &Arxiv{Client: &http.Client{Timeout: 30 * time.Second}, BaseURL: defaultBaseURL}
}

type atomFeed struct {
	Entries []struct {
		Title string `xml:"title"`
	} `xml:"entry"`
}

// Resolve fetches the paper's title from the export API.
func (a *Arxiv) Resolve(ctx context.Context, idOrURL string) (*Paper, error) {
	id, err := parseID(idOrURL)
	if err != nil {
		return nil, err
	}

	base := a.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	reqURL := base + "?id_list=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request for %s: %w", id, err)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query arxiv for %s: %w", id, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("[WARN] can't close arxiv response body, %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query arxiv for %s: unexpected status %s", id, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read arxiv response for %s: %w", id, err)
	}

	var parsed atomFeed
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse arxiv response for %s: %w", id, err)
	}
	if len(parsed.Entries) == 0 {
		return nil, fmt.Errorf("no arxiv entry found for %s", id)
	}

	// arXiv wraps long titles across lines, collapse the whitespace
	title := strings.Join(strings.Fields(parsed.Entries[0].Title), " ")
	if title == "" {
		return nil, fmt.Errorf("arxiv entry for %s has no title", id)
	}

	return &Paper{
		ID:     id,
		Title:  title,
		PDFURL: fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", id),
	}, nil
}

func parseID(idOrURL string) (string, error) {
	if !strings.Contains(idOrURL, "arxiv.org") {
		return idOrURL, nil
	}
	m := reAbsURL.FindStringSubmatch(idOrURL)
	if m == nil {
		return "", fmt.Errorf("invalid arxiv url %q", idOrURL)
	}
	return m[1], nil
}
