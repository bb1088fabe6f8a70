package tools

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/firebase/genkit/go/ai"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/mediblaze/mediblaze/internal/config"
	"github.com/mediblaze/mediblaze/internal/security"
)

// Genkit tool names for web operations.
const (
	WebSearchName = "medical_web_search"
	FetchPageName = "fetch_medical_page"
)

const searchUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

const duckduckgoHTML = "https://html.duckduckgo.com/html/"

type searchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearch searches trusted health sites via the DuckDuckGo HTML endpoint.
type WebSearch struct {
	cfg    config.WebSearchConfig
	logger *slog.Logger
}

// NewWebSearch creates a WebSearch tool handler.
func NewWebSearch(cfg config.WebSearchConfig, logger *slog.Logger) (*WebSearch, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &WebSearch{cfg: cfg, logger: logger}, nil
}

// Search runs a site-restricted web search and returns up to MaxResults hits.
func (w *WebSearch) Search(ctx *ai.ToolContext, input WebSearchInput) (Result, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return errorResult(ErrCodeValidation, "query is required"), nil
	}

	w.logger.Info("web search", "query", query)

	c := colly.NewCollector(
		colly.UserAgent(searchUserAgent),
		colly.AllowedDomains("html.duckduckgo.com", "duckduckgo.com"),
	)
	c.SetRequestTimeout(time.Duration(w.cfg.TimeoutMs) * time.Millisecond)

	var hits []searchHit
	c.OnHTML("div.result", func(e *colly.HTMLElement) {
		if len(hits) >= w.cfg.MaxResults {
			return
		}
		hit, ok := parseSearchHit(e.DOM, w.cfg.AllowedSites)
		if !ok {
			return
		}
		hits = append(hits, hit)
	})

	var visitErr error
	c.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})

	searchQuery := query
	if siteClause := siteRestriction(w.cfg.AllowedSites); siteClause != "" {
		searchQuery = query + " " + siteClause
	}
	if err := c.Visit(duckduckgoHTML + "?q=" + url.QueryEscape(searchQuery)); err != nil {
		visitErr = err
	}
	if visitErr != nil {
		w.logger.Warn("web search failed", "query", query, "error", visitErr)
		return errorResult(ErrCodeNetwork, fmt.Sprintf("searching the web: %v", visitErr)), nil
	}

	if len(hits) == 0 {
		return Result{
			Status:  StatusSuccess,
			Message: "No results from trusted health sites for this query.",
			Data: map[string]any{
				"query":        query,
				"result_count": 0,
			},
		}, nil
	}

	w.logger.Info("web search succeeded", "query", query, "result_count", len(hits))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"query":        query,
			"result_count": len(hits),
			"results":      hits,
		},
	}, nil
}

// parseSearchHit extracts one result from a DuckDuckGo result block,
// rejecting links that resolve outside the trusted-site allowlist.
func parseSearchHit(sel *goquery.Selection, allowedSites []string) (searchHit, bool) {
	link := sel.Find("a.result__a")
	href, ok := link.Attr("href")
	if !ok {
		return searchHit{}, false
	}
	target := resolveRedirect(href)
	if target == "" || !siteAllowed(target, allowedSites) {
		return searchHit{}, false
	}
	return searchHit{
		Title:   strings.TrimSpace(link.Text()),
		URL:     target,
		Snippet: strings.TrimSpace(sel.Find(".result__snippet").Text()),
	}, true
}

// siteRestriction builds a "(site:a OR site:b)" clause from the allowlist.
func siteRestriction(sites []string) string {
	if len(sites) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sites))
	for _, s := range sites {
		parts = append(parts, "site:"+s)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links into the
// final article URL. Plain links pass through unchanged.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	return href
}

// siteAllowed reports whether the URL's host matches the allowlist. When the
// allowlist is empty every site passes.
func siteAllowed(rawURL string, sites []string) bool {
	if len(sites) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, s := range sites {
		s = strings.ToLower(s)
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// PageFetch downloads an article and extracts its readable text.
type PageFetch struct {
	validator *security.URL
	client    *http.Client
	maxBody   int64
	logger    *slog.Logger
}

// NewPageFetch creates a PageFetch tool handler with SSRF-safe transport.
func NewPageFetch(cfg config.PageFetchConfig, validator *security.URL, logger *slog.Logger) (*PageFetch, error) {
	if validator == nil {
		return nil, fmt.Errorf("URL validator is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	client := &http.Client{
		Transport:     validator.SafeTransport(),
		CheckRedirect: validator.ValidateRedirect,
		Timeout:       time.Duration(cfg.TimeoutMs) * time.Millisecond,
	}
	return &PageFetch{
		validator: validator,
		client:    client,
		maxBody:   cfg.MaxBodyBytes,
		logger:    logger,
	}, nil
}

// Fetch retrieves a page and returns its title and extracted text.
func (p *PageFetch) Fetch(ctx *ai.ToolContext, input FetchPageInput) (Result, error) {
	rawURL := strings.TrimSpace(input.URL)
	if rawURL == "" {
		return errorResult(ErrCodeValidation, "url is required"), nil
	}
	if err := p.validator.Validate(rawURL); err != nil {
		return errorResult(ErrCodeSecurity, fmt.Sprintf("url rejected: %v", err)), nil
	}

	p.logger.Info("page fetch", "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errorResult(ErrCodeValidation, fmt.Sprintf("building request: %v", err)), nil
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("page fetch failed", "url", rawURL, "error", err)
		return errorResult(ErrCodeNetwork, fmt.Sprintf("fetching page: %v", err)), nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errorResult(ErrCodeNetwork, fmt.Sprintf("fetching page: HTTP %d", resp.StatusCode)), nil
	}

	body := io.LimitReader(resp.Body, p.maxBody)
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return errorResult(ErrCodeValidation, fmt.Sprintf("parsing url: %v", err)), nil
	}
	article, err := readability.FromReader(body, pageURL)
	if err != nil {
		return errorResult(ErrCodeExecution, fmt.Sprintf("extracting article text: %v", err)), nil
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return Result{
			Status:  StatusSuccess,
			Message: "The page contained no readable article text.",
			Data:    map[string]any{"url": rawURL},
		}, nil
	}

	p.logger.Info("page fetch succeeded", "url", rawURL, "chars", len(text))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"url":     rawURL,
			"title":   article.Title,
			"content": text,
		},
	}, nil
}
