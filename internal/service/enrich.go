package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/arashthr/markcentral/internal/validations"
)

// TitleEnricher resolves real page titles for bookmarks imported without
// one.
type TitleEnricher struct {
	Client  *http.Client
	Timeout time.Duration
}

func NewTitleEnricher() *TitleEnricher {
	return &TitleEnricher{
		Client:  &http.Client{},
		Timeout: 5 * time.Second,
	}
}

// Title fetches the page and extracts its readable title.
func (e *TitleEnricher) Title(ctx context.Context, link string) (string, error) {
	if !validations.IsURLValid(link) {
		return "", fmt.Errorf("invalid link: %s", link)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	finalURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	article, err := readability.FromReader(resp.Body, finalURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	title := strings.TrimSpace(validations.CleanUpText(article.Title))
	if title == "" {
		return "", fmt.Errorf("page has no readable title")
	}
	return title, nil
}
