package security

import (
	"regexp"
	"strings"
	"unicode"
)

// promptPattern pairs a short label with the expression that detects it.
// Labels are what gets logged; the raw regex stays out of responses.
type promptPattern struct {
	name string
	re   *regexp.Regexp
}

// Prompt screens chat input for instruction-injection attempts before it
// reaches the model. Pattern matching is a coarse first line of defense:
// the system prompt and tool allowlists still carry the real weight.
type Prompt struct {
	patterns []promptPattern
}

// NewPrompt returns a screen with the default pattern set.
func NewPrompt() *Prompt {
	specs := []struct{ name, expr string }{
		{"override", `(?i)(ignore|disregard|forget|override)\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?|context)`},
		{"roleplay", `(?i)^(pretend|act|behave|imagine)\s+(you\s+are|to\s+be|as\s+if|like)`},
		{"roleplay", `(?i)^you\s+are\s+now\s+a`},
		{"roleplay", `(?i)^from\s+now\s+on,?\s+you\s+(are|will|must)`},
		{"directive", `(?i)^new\s+(instruction|task|rule)\s*:`},
		{"directive", `(?i)^admin\s*(mode|override|command)\s*:`},
		{"delimiter", `(?i)</?(system|instruction|prompt)>`},
		{"delimiter", `(?i)\]\s*\[\s*(system|assistant|instruction)`},
		{"jailbreak", `(?i)do\s+anything\s+now`},
		{"jailbreak", `(?i)bypass\s+(safety|filter|restrictions?)`},
	}

	p := &Prompt{patterns: make([]promptPattern, 0, len(specs))}
	for _, s := range specs {
		p.patterns = append(p.patterns, promptPattern{name: s.name, re: regexp.MustCompile(s.expr)})
	}
	return p
}

// Check returns the labels of every pattern the input matches, nil when
// the input is clean. Labels may repeat across distinct patterns.
func (p *Prompt) Check(input string) []string {
	normalized := normalizePromptInput(input)

	var hits []string
	seen := make(map[string]bool, len(p.patterns))
	for _, pat := range p.patterns {
		if seen[pat.name] || !pat.re.MatchString(normalized) {
			continue
		}
		seen[pat.name] = true
		hits = append(hits, pat.name)
	}
	return hits
}

// normalizePromptInput strips zero-width and combining characters and
// collapses whitespace so spacing tricks cannot dodge the patterns.
func normalizePromptInput(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
