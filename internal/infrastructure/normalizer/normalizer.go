// Package normalizer turns raw completion text into clean code or structured extraction data.
package normalizer

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"archie/internal/domain/entity"
)

const (
	fence = "```"

	// SnippetLength bounds raw_snippet in degraded extraction results.
	SnippetLength = 200

	ParseFailureMessage = "Failed to parse AI response into JSON"
)

var fenceRe = regexp.MustCompile("```[A-Za-z0-9_+.-]*")

// CleanCode strips code fences and their language tags, then trims surrounding whitespace.
// CleanCode(CleanCode(x)) == CleanCode(x) for every x.
func CleanCode(raw string) string {
	out := raw
	for strings.Contains(out, fence) {
		out = fenceRe.ReplaceAllString(out, "")
	}
	return strings.TrimSpace(out)
}

// Extraction is the outcome of ExtractStructured. Degraded is set when the completion could not
// be parsed and Result carries the fallback payload.
type Extraction struct {
	Result   entity.ProjectStructure
	Degraded bool
	ParseErr error
}

// ExtractStructured parses raw as the class-extraction JSON shape. A parse failure is absorbed
// into a degraded result; it is never returned as an error.
func ExtractStructured(raw, projectName string) Extraction {
	cleaned := CleanCode(raw)

	if !strings.HasPrefix(cleaned, "{") {
		return degraded(raw, projectName, errNotObject)
	}

	var parsed entity.ProjectStructure
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return degraded(raw, projectName, err)
	}
	if parsed.ProjectName == "" {
		parsed.ProjectName = projectName
	}
	if parsed.Classes == nil {
		parsed.Classes = []entity.ClassModel{}
	}
	parsed.Error = ""
	parsed.RawSnippet = nil
	return Extraction{Result: parsed}
}

var errNotObject = errors.New("completion is not a JSON object")

func degraded(raw, projectName string, err error) Extraction {
	snippet := Snippet(raw, SnippetLength)
	return Extraction{
		Result: entity.ProjectStructure{
			ProjectName: projectName,
			Classes:     []entity.ClassModel{},
			Error:       ParseFailureMessage,
			RawSnippet:  &snippet,
		},
		Degraded: true,
		ParseErr: err,
	}
}

// Snippet returns the first n characters of s without splitting a UTF-8 sequence.
func Snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
