package markdown

import (
	"strings"
	"testing"
)

func TestRenderBasicMarkdown(t *testing.T) {
	r := New()

	got, err := r.Render("## Assessment\n\n- rest\n- **hydrate**\n")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"<h2", "Assessment", "<li>", "<strong>hydrate</strong>"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderStripsScript(t *testing.T) {
	r := New()

	got, err := r.Render("hello <script>alert(1)</script> world")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(got, "<script") || strings.Contains(got, "alert(1)") {
		t.Errorf("script survived sanitization: %s", got)
	}
}

func TestRenderTable(t *testing.T) {
	r := New()

	got, err := r.Render("| Test | Result |\n|---|---|\n| CBC | normal |\n")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "<table") {
		t.Errorf("GFM table not rendered: %s", got)
	}
}

func TestRenderStripsEventHandlers(t *testing.T) {
	r := New()

	got, err := r.Render(`<a href="https://who.int" onclick="steal()">WHO</a>`)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(got, "onclick") {
		t.Errorf("event handler survived sanitization: %s", got)
	}
}
