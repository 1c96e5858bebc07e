package ai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Pre-compiled patterns: compiling per parse is an order of magnitude slower.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex         = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// ParseJSON decodes a model response into T, tolerating the usual LLM
// formatting quirks. Strategy sequence:
//  1. direct parse
//  2. strip markdown code fences and retry
//  3. drop trailing commas and retry
//  4. extract the first JSON object or array from mixed prose and retry
//
// The context string labels log lines and the returned error.
func ParseJSON[T any](text, context string) (T, error) {
	var zero T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("%s: empty response", context)
	}

	if v, err := tryUnmarshal[T](trimmed); err == nil {
		return v, nil
	}

	slog.Debug("direct JSON parse failed, trying cleanup strategies",
		"context", context, "preview", truncate(trimmed, 100))

	unfenced := stripCodeFences(trimmed)
	if v, err := tryUnmarshal[T](unfenced); err == nil {
		return v, nil
	}

	cleaned := trailingCommaRegex.ReplaceAllString(unfenced, "$1")
	if v, err := tryUnmarshal[T](cleaned); err == nil {
		return v, nil
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if v, err := tryUnmarshal[T](extracted); err == nil {
			return v, nil
		}
	}

	return zero, fmt.Errorf("%s: no parsing strategy produced valid JSON (response: %s)",
		context, truncate(text, 200))
}

func tryUnmarshal[T any](text string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(text), &v)
	return v, err
}

// stripCodeFences removes ```json ... ``` wrappers and bare backtick wraps.
func stripCodeFences(text string) string {
	cleaned := codeFenceRegex.ReplaceAllString(text, "$1")
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}

// extractJSON pulls the outermost object or array out of mixed content.
// The first-character check keeps arrays from degrading into their first
// element.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return arrayRegex.FindString(trimmed)
	}
	if m := objectRegex.FindString(trimmed); m != "" {
		return m
	}
	return arrayRegex.FindString(trimmed)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
