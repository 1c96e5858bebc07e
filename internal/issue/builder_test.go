package issue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportops/triage/internal/types"
)

func bugClassification() *types.Classification {
	return &types.Classification{
		IsBug:      true,
		Confidence: 0.9,
		BugType:    "UI Rendering",
		Severity:   "High",
		Reasoning:  "Customer reports a blank widget with a console error.",
		KeyIndicators: []string{
			"widget renders blank",
			"TypeError in console",
		},
		InitialAnalysis: types.InitialAnalysis{
			Title:          "Chat widget renders blank on checkout",
			Description:    "The embedded chat widget loads but renders an empty frame.",
			CustomerImpact: "Customers cannot reach support during checkout.",
		},
	}
}

func testConversation() *types.Conversation {
	return &types.Conversation{
		ID:            "12345",
		Title:         "Widget problem",
		CustomerName:  "Dana Smith",
		CustomerEmail: "dana@example.com",
		Status:        types.ConversationOpen,
		Priority:      types.PriorityHigh,
	}
}

func TestBuildProducesTemplatedBody(t *testing.T) {
	enrichment := &types.EnrichmentContext{
		ReproductionSteps: "1. Open checkout\n2. Click the chat bubble",
		TechnicalDetails:  "Only reproduces on Safari 17",
		ErrorText:         "TypeError: undefined is not a function",
		AppID:             "app_42x",
		Screenshots:       []string{"https://files.example.com/shot.png"},
	}

	proposed, err := Build(testConversation(), bugClassification(), enrichment)
	require.NoError(t, err)

	assert.Equal(t, "Chat widget renders blank on checkout", proposed.Title)
	assert.Equal(t, types.PriorityHigh, proposed.Priority)
	assert.Equal(t, "TypeError: undefined is not a function", proposed.ErrorText)
	assert.Equal(t, "app_42x", proposed.AppID)

	for _, section := range []string{
		"## Summary",
		"## Customer",
		"## Reproduction Steps",
		"## Technical Details",
		"## Error Output",
		"## Customer Impact",
		"## Screenshots",
		"Source conversation: 12345",
	} {
		assert.Contains(t, proposed.Body, section)
	}
	assert.Contains(t, proposed.Body, "- Name: Dana Smith")
	assert.Contains(t, proposed.Body, "```\nTypeError: undefined is not a function\n```")
}

func TestBuildOmitsEmptySections(t *testing.T) {
	proposed, err := Build(testConversation(), bugClassification(), nil)
	require.NoError(t, err)

	assert.NotContains(t, proposed.Body, "## Reproduction Steps")
	assert.NotContains(t, proposed.Body, "## Error Output")
	assert.NotContains(t, proposed.Body, "## Screenshots")
	assert.Contains(t, proposed.Body, "## Summary")
}

func TestBuildLabels(t *testing.T) {
	proposed, err := Build(testConversation(), bugClassification(), nil)
	require.NoError(t, err)

	assert.Contains(t, proposed.Labels, "bug")
	assert.Contains(t, proposed.Labels, "customer-reported")
	assert.Contains(t, proposed.Labels, "type:ui-rendering")
	assert.Contains(t, proposed.Labels, "severity:high")
	assert.Contains(t, proposed.Labels, "priority:high")
}

func TestBuildRejectsNonBug(t *testing.T) {
	classification := bugClassification()
	classification.IsBug = false

	_, err := Build(testConversation(), classification, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrKindValidation, types.KindOf(err))
}

func TestBuildFallsBackToConversationTitle(t *testing.T) {
	classification := bugClassification()
	classification.InitialAnalysis.Title = ""

	proposed, err := Build(testConversation(), classification, nil)
	require.NoError(t, err)
	assert.Equal(t, "Widget problem", proposed.Title)
}

func TestRenderPreviewHTML(t *testing.T) {
	proposed, err := Build(testConversation(), bugClassification(), &types.EnrichmentContext{
		ErrorText: "boom",
	})
	require.NoError(t, err)

	html, err := RenderPreviewHTML(proposed.Body)
	require.NoError(t, err)
	assert.Contains(t, html, "<h2")
	assert.True(t, strings.Contains(html, "Summary"))
}
