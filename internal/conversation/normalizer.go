package conversation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/supportops/triage/internal/types"
)

// lowSatisfactionThreshold: a customer-experience rating at or below this
// value escalates priority to high.
const lowSatisfactionThreshold = 2

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// ErrMalformedPayload is returned when a payload is structurally unusable:
// no thread-opening message and no contacts to resolve a customer from.
// Callers must not attempt analysis on a failed normalization.
var ErrMalformedPayload = types.NewValidationError("conversation payload has no source message and no contacts")

// Normalize converts a raw conversation payload into the canonical
// Conversation. Pure transform: no I/O, no mutation of the input.
func Normalize(raw *RawConversation) (*types.Conversation, error) {
	if raw == nil {
		return nil, types.NewValidationError("conversation payload is nil")
	}
	if raw.Source == nil && len(raw.Contacts.Contacts) == 0 {
		return nil, ErrMalformedPayload
	}

	conv := &types.Conversation{
		ID:         raw.ID,
		Title:      resolveTitle(raw),
		CreatedAt:  time.Unix(raw.CreatedAt, 0).UTC(),
		UpdatedAt:  time.Unix(raw.UpdatedAt, 0).UTC(),
		Status:     resolveState(raw.State),
		Messages:   assembleMessages(raw),
		Tags:       assembleTags(raw),
		Attributes: flattenAttributes(raw.CustomAttributes),
	}
	conv.Priority = inferPriority(raw, conv.Tags)

	name, email := resolveCustomer(raw, conv.Messages)
	conv.CustomerName = name
	conv.CustomerEmail = email

	return conv, nil
}

// resolveCustomer picks the customer identity in order of reliability:
// the first substantive customer message, then the first listed contact,
// then the thread-opening author. The nominal contact field is sometimes
// stale or missing while the first real customer message is reliable.
func resolveCustomer(raw *RawConversation, messages []types.Message) (name, email string) {
	for _, m := range messages {
		if m.Author.Role == types.RoleCustomer && strings.TrimSpace(m.Body) != "" {
			return m.Author.Name, m.Author.Email
		}
	}
	if len(raw.Contacts.Contacts) > 0 {
		c := raw.Contacts.Contacts[0]
		return c.Name, c.Email
	}
	if raw.Source != nil && raw.Source.Author != nil {
		return raw.Source.Author.Name, raw.Source.Author.Email
	}
	return "", ""
}

// assembleMessages builds the ordered message list: the thread-opening
// message when it has a body, then every downstream part that is a visible
// comment with a non-empty body. Notes and non-comment parts are excluded.
func assembleMessages(raw *RawConversation) []types.Message {
	var messages []types.Message

	if raw.Source != nil && strings.TrimSpace(StripHTML(raw.Source.Body)) != "" {
		messages = append(messages, types.Message{
			ID:          raw.Source.ID,
			Author:      normalizeAuthor(raw.Source.Author),
			Body:        StripHTML(raw.Source.Body),
			CreatedAt:   time.Unix(raw.CreatedAt, 0).UTC(),
			Attachments: normalizeAttachments(raw.Source.Attachments),
		})
	}

	for _, part := range raw.ConversationParts.ConversationParts {
		if part.PartType != "comment" {
			continue
		}
		body := StripHTML(part.Body)
		if strings.TrimSpace(body) == "" {
			continue
		}
		messages = append(messages, types.Message{
			ID:          part.ID,
			Author:      normalizeAuthor(part.Author),
			Body:        body,
			CreatedAt:   time.Unix(part.CreatedAt, 0).UTC(),
			Attachments: normalizeAttachments(part.Attachments),
		})
	}

	return messages
}

// normalizeAuthor maps platform author types onto the three canonical roles.
// Anything not recognized as admin or bot is treated as customer.
func normalizeAuthor(a *RawAuthor) types.Author {
	if a == nil {
		return types.Author{Name: "Unknown", Role: types.RoleCustomer}
	}
	role := types.RoleCustomer
	switch a.Type {
	case "admin", "team":
		role = types.RoleAdmin
	case "bot":
		role = types.RoleBot
	}
	return types.Author{Name: a.Name, Email: a.Email, Role: role}
}

func normalizeAttachments(raw []RawAttachment) []types.Attachment {
	if len(raw) == 0 {
		return nil
	}
	out := make([]types.Attachment, 0, len(raw))
	for _, a := range raw {
		out = append(out, types.Attachment{Name: a.Name, URL: a.URL, ContentType: a.ContentType})
	}
	return out
}

// assembleTags concatenates native tags with tags synthesized from
// recognized custom attributes.
func assembleTags(raw *RawConversation) []string {
	var tags []string
	for _, t := range raw.Tags.Tags {
		tags = append(tags, t.Name)
	}

	if v, ok := stringAttribute(raw.CustomAttributes, "Query type"); ok {
		tags = append(tags, "Query: "+v)
	}
	if _, ok := stringAttribute(raw.CustomAttributes, "AI Summary"); ok {
		tags = append(tags, "Has AI Summary")
	}
	if v, ok := stringAttribute(raw.CustomAttributes, "Brand"); ok {
		tags = append(tags, "Brand: "+v)
	}

	return tags
}

func stringAttribute(attrs map[string]any, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func flattenAttributes(attrs map[string]any) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

// inferPriority evaluates the priority chain in order, first match wins:
// explicit platform flag, low satisfaction rating, urgent/critical tags,
// low tags, then medium.
func inferPriority(raw *RawConversation, tags []string) types.Priority {
	if raw.Priority == "priority" {
		return types.PriorityHigh
	}
	if raw.Rating != nil && raw.Rating.Rating > 0 && raw.Rating.Rating <= lowSatisfactionThreshold {
		return types.PriorityHigh
	}
	for _, t := range tags {
		lower := strings.ToLower(t)
		if strings.Contains(lower, "urgent") || strings.Contains(lower, "critical") {
			return types.PriorityHigh
		}
	}
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), "low") {
			return types.PriorityLow
		}
	}
	return types.PriorityMedium
}

func resolveTitle(raw *RawConversation) string {
	if raw.Title != "" {
		return raw.Title
	}
	if raw.Source != nil && raw.Source.Subject != "" {
		return StripHTML(raw.Source.Subject)
	}
	return "Conversation " + raw.ID
}

func resolveState(state string) types.ConversationState {
	if state == "closed" {
		return types.ConversationClosed
	}
	return types.ConversationOpen
}

// StripHTML removes markup from a message body, leaving plain text for
// analysis. Block-level closers become newlines so paragraphs stay separated.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	replaced := strings.NewReplacer(
		"</p>", "\n", "</div>", "\n", "<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ",
	).Replace(s)
	return strings.TrimSpace(htmlTagRegex.ReplaceAllString(replaced, ""))
}
