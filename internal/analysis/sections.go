// Package analysis turns raw model output into persisted analysis
// records and triggers notification and search side effects. The model
// emits six labeled sections; everything here tolerates partial or
// missing sections because the text contract is owned by a prompt, not
// a schema.
package analysis

import (
	"bufio"
	"strings"
)

// Placeholder values substituted when the model omits a section.
const (
	NoSummary       = "No summary available."
	NoInsights      = "No insights available."
	NoActionType    = "No action type available."
	NoActionData    = "No action data available."
	NoThreadContext = "No thread context available."
)

const sectionMarker = "### "

// Sections holds the raw body text of each labeled section of a model
// response. Missing sections carry their placeholder, except
// SearchRequired which stays empty.
type Sections struct {
	Summary        string
	Insights       string
	ActionType     string
	ActionData     string
	ThreadContext  string
	SearchRequired string
}

// Split tokenizes a model response on "### NAME" markers and returns
// the section bodies. Unknown section names are ignored.
func Split(raw string) Sections {
	bodies := splitSections(raw)

	return Sections{
		Summary:        orPlaceholder(bodies["SUMMARY"], NoSummary),
		Insights:       orPlaceholder(bodies["INSIGHTS"], NoInsights),
		ActionType:     orPlaceholder(bodies["ACTION_TYPE"], NoActionType),
		ActionData:     orPlaceholder(bodies["ACTION_DATA"], NoActionData),
		ThreadContext:  orPlaceholder(bodies["THREAD_CONTEXT"], NoThreadContext),
		SearchRequired: bodies["SEARCH_REQUIRED"],
	}
}

// CombinedInsights renders the insight fields into the single text
// column the analysis table stores.
func (s Sections) CombinedInsights() string {
	return "INSIGHTS:\n" + s.Insights +
		"\n\nACTION_DATA:\n" + s.ActionData +
		"\n\nTHREAD_CONTEXT:\n" + s.ThreadContext
}

func splitSections(raw string) map[string]string {
	bodies := make(map[string]string)

	var (
		current string
		body    strings.Builder
	)
	flush := func() {
		if current != "" {
			bodies[current] = strings.TrimSpace(body.String())
		}
		body.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := parseSectionHeader(line); ok {
			flush()
			current = name
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	return bodies
}

func parseSectionHeader(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, sectionMarker) {
		return "", false
	}
	name := strings.TrimSpace(strings.TrimPrefix(trimmed, sectionMarker))
	if name == "" {
		return "", false
	}
	return strings.ToUpper(name), true
}

func orPlaceholder(body, placeholder string) string {
	if strings.TrimSpace(body) == "" {
		return placeholder
	}
	return body
}

// SearchDirective is the parsed SEARCH_REQUIRED section.
type SearchDirective struct {
	Required      bool
	Query         string
	ContextNeeded string
}

// ParseSearchDirective reads the key: value lines of the
// SEARCH_REQUIRED section. An absent or malformed section means no
// search.
func ParseSearchDirective(body string) SearchDirective {
	var d SearchDirective
	for key, value := range parsePairs(body) {
		switch key {
		case "required":
			d.Required = strings.Contains(strings.ToLower(value), "true")
		case "search_query":
			d.Query = value
		case "context_needed":
			d.ContextNeeded = value
		}
	}
	if d.Query == "" {
		d.Required = false
	}
	return d
}

// parsePairs reads newline-separated "key: value" lines into a map.
// Lines without a colon are skipped.
func parsePairs(body string) map[string]string {
	pairs := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		pairs[key] = value
	}
	return pairs
}
