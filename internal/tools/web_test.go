package tools

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/mediblaze/mediblaze/internal/config"
)

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{
			name: "duckduckgo redirect unwrapped",
			href: "//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.mayoclinic.org%2Fdengue&rut=abc",
			want: "https://www.mayoclinic.org/dengue",
		},
		{
			name: "plain link passes through",
			href: "https://www.cdc.gov/dengue/index.html",
			want: "https://www.cdc.gov/dengue/index.html",
		},
		{
			name: "redirect without target dropped",
			href: "https://duckduckgo.com/l/?rut=abc",
			want: "",
		},
		{
			name: "unparseable dropped",
			href: "://bad",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveRedirect(tt.href); got != tt.want {
				t.Errorf("resolveRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func TestSiteAllowed(t *testing.T) {
	sites := []string{"who.int", "mayoclinic.org", "cdc.gov"}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "exact host", url: "https://who.int/news", want: true},
		{name: "www prefix stripped", url: "https://www.mayoclinic.org/dengue", want: true},
		{name: "subdomain allowed", url: "https://wwwnc.cdc.gov/travel", want: true},
		{name: "unlisted host rejected", url: "https://example.com/health", want: false},
		{name: "suffix spoof rejected", url: "https://notcdc.gov.evil.com/", want: false},
		{name: "invalid url rejected", url: "://bad", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := siteAllowed(tt.url, sites); got != tt.want {
				t.Errorf("siteAllowed(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}

	if !siteAllowed("https://anything.example.com/", nil) {
		t.Error("empty allowlist should allow every site")
	}
}

func TestSiteRestriction(t *testing.T) {
	got := siteRestriction([]string{"who.int", "cdc.gov"})
	want := "(site:who.int OR site:cdc.gov)"
	if got != want {
		t.Errorf("siteRestriction = %q, want %q", got, want)
	}
	if siteRestriction(nil) != "" {
		t.Error("empty allowlist should produce no clause")
	}
}

func TestParseSearchHit(t *testing.T) {
	const block = `<div class="result">
		<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.who.int%2Fnews%2Fdengue&amp;rut=abc">Dengue fact sheet</a>
		<a class="result__snippet">Dengue is a mosquito-borne viral infection.</a>
	</div>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(block))
	if err != nil {
		t.Fatal(err)
	}
	sel := doc.Find("div.result")

	hit, ok := parseSearchHit(sel, []string{"who.int"})
	if !ok {
		t.Fatal("expected a hit from allowlisted result")
	}
	if hit.Title != "Dengue fact sheet" {
		t.Errorf("title = %q", hit.Title)
	}
	if hit.URL != "https://www.who.int/news/dengue" {
		t.Errorf("url = %q", hit.URL)
	}
	if !strings.Contains(hit.Snippet, "mosquito-borne") {
		t.Errorf("snippet = %q", hit.Snippet)
	}

	if _, ok := parseSearchHit(sel, []string{"cdc.gov"}); ok {
		t.Error("result outside the allowlist should be rejected")
	}
}

func TestWebSearchEmptyQuery(t *testing.T) {
	ws, err := NewWebSearch(config.WebSearchConfig{MaxResults: 3, TimeoutMs: 1000}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	result, err := ws.Search(toolCtx(), WebSearchInput{Query: ""})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusError || result.Error.Code != ErrCodeValidation {
		t.Errorf("expected validation error, got %+v", result)
	}
}

func TestDefaultTrustedSitesCoverAllowlist(t *testing.T) {
	cfg := config.WebSearchConfig{AllowedSites: []string{
		"who.int", "mayoclinic.org", "cdc.gov", "nih.gov",
		"medlineplus.gov", "healthline.com", "webmd.com",
	}}
	clause := siteRestriction(cfg.AllowedSites)
	for _, site := range cfg.AllowedSites {
		if !strings.Contains(clause, "site:"+site) {
			t.Errorf("site clause missing %s", site)
		}
	}
}
