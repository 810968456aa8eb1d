package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

func (l *Loader) client() *http.Client {
	if l.HTTP != nil {
		return l.HTTP
	}
	return &http.Client{Timeout: FetchTimeout}
}

func (l *Loader) loadURL(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "parrot/1.0 (text-to-speech reader)")

	resp, err := l.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to fetch %s: %s", rawURL, resp.Status)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, MaxSize), u)
	if err != nil {
		return nil, fmt.Errorf("unable to extract article: %w", err)
	}

	return &Document{
		Kind:  KindURL,
		Title: strings.TrimSpace(article.Title),
		Pages: []Page{{Number: 1, Text: article.TextContent}},
	}, nil
}
