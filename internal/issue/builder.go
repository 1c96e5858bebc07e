// Package issue builds the proposed issue from a classified conversation and
// operator enrichment, following a fixed markdown template.
package issue

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/supportops/triage/internal/types"
)

// Build assembles a ProposedIssue from the conversation, the classifier's
// verdict, and operator enrichment. The body follows a fixed template so
// filed issues stay uniform and searchable.
func Build(conv *types.Conversation, classification *types.Classification, enrichment *types.EnrichmentContext) (*types.ProposedIssue, error) {
	if conv == nil {
		return nil, types.NewValidationError("conversation is required")
	}
	if classification == nil || !classification.IsBug {
		return nil, types.NewValidationError("only bug classifications can be filed")
	}
	if enrichment == nil {
		enrichment = &types.EnrichmentContext{}
	}

	title := classification.InitialAnalysis.Title
	if title == "" {
		title = conv.Title
	}

	proposed := &types.ProposedIssue{
		Title:     title,
		Body:      renderBody(conv, classification, enrichment),
		Labels:    deriveLabels(classification, conv.Priority),
		Priority:  conv.Priority,
		ErrorText: enrichment.ErrorText,
		AppID:     enrichment.AppID,
	}
	if err := proposed.Validate(); err != nil {
		return nil, types.NewValidationError("building issue: %v", err)
	}
	return proposed, nil
}

// renderBody fills the fixed issue template.
func renderBody(conv *types.Conversation, classification *types.Classification, enrichment *types.EnrichmentContext) string {
	var b strings.Builder

	b.WriteString("## Summary\n\n")
	description := classification.InitialAnalysis.Description
	if description == "" {
		description = classification.Reasoning
	}
	b.WriteString(description + "\n")

	b.WriteString("\n## Customer\n\n")
	fmt.Fprintf(&b, "- Name: %s\n", orDash(conv.CustomerName))
	fmt.Fprintf(&b, "- Email: %s\n", orDash(conv.CustomerEmail))
	fmt.Fprintf(&b, "- Priority: %s\n", conv.Priority)

	if enrichment.ReproductionSteps != "" {
		b.WriteString("\n## Reproduction Steps\n\n")
		b.WriteString(enrichment.ReproductionSteps + "\n")
	}
	if enrichment.TechnicalDetails != "" {
		b.WriteString("\n## Technical Details\n\n")
		b.WriteString(enrichment.TechnicalDetails + "\n")
	}
	if enrichment.ErrorText != "" {
		b.WriteString("\n## Error Output\n\n")
		b.WriteString("```\n" + enrichment.ErrorText + "\n```\n")
	}
	if enrichment.AppID != "" {
		fmt.Fprintf(&b, "\n## App\n\n- App ID: `%s`\n", enrichment.AppID)
	}

	impact := enrichment.CustomerImpact
	if impact == "" {
		impact = classification.InitialAnalysis.CustomerImpact
	}
	if impact != "" {
		b.WriteString("\n## Customer Impact\n\n")
		b.WriteString(impact + "\n")
	}

	if len(enrichment.Screenshots) > 0 {
		b.WriteString("\n## Screenshots\n\n")
		for _, url := range enrichment.Screenshots {
			fmt.Fprintf(&b, "- %s\n", url)
		}
	}

	if len(classification.KeyIndicators) > 0 {
		b.WriteString("\n## Key Indicators\n\n")
		for _, ind := range classification.KeyIndicators {
			fmt.Fprintf(&b, "- %s\n", ind)
		}
	}

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "Source conversation: %s\n", conv.ID)

	return b.String()
}

// deriveLabels maps classification fields onto tracker labels.
func deriveLabels(classification *types.Classification, priority types.Priority) []string {
	labels := []string{"bug", "customer-reported"}
	if classification.BugType != "" {
		labels = append(labels, "type:"+slugify(classification.BugType))
	}
	if classification.Severity != "" {
		labels = append(labels, "severity:"+slugify(classification.Severity))
	}
	if priority == types.PriorityHigh {
		labels = append(labels, "priority:high")
	}
	return labels
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// markdown renders GitHub-flavored markdown for previews.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderPreviewHTML converts the issue body markdown to HTML so the operator
// can preview exactly what will be filed.
func RenderPreviewHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering preview: %w", err)
	}
	return buf.String(), nil
}
