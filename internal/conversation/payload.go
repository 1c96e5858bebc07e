// Package conversation fetches raw helpdesk conversations and normalizes
// them into the canonical analysis-ready form.
package conversation

// RawConversation mirrors the helpdesk platform's conversation payload.
// Only the fields the normalizer consumes are modeled; the rest of the
// payload is ignored on decode.
type RawConversation struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	State            string             `json:"state"`
	CreatedAt        int64              `json:"created_at"`
	UpdatedAt        int64              `json:"updated_at"`
	Priority         string             `json:"priority"`
	Source           *RawSource         `json:"source"`
	Contacts         RawContactList     `json:"contacts"`
	ConversationParts RawPartList       `json:"conversation_parts"`
	Tags             RawTagList         `json:"tags"`
	CustomAttributes map[string]any     `json:"custom_attributes"`
	Statistics       *RawStatistics     `json:"statistics"`
	Rating           *RawRating         `json:"conversation_rating"`
}

// RawSource is the thread-opening message of the conversation.
type RawSource struct {
	ID          string          `json:"id"`
	Subject     string          `json:"subject"`
	Body        string          `json:"body"`
	Author      *RawAuthor      `json:"author"`
	Attachments []RawAttachment `json:"attachments"`
}

// RawAuthor is a platform author reference on a source or part.
type RawAuthor struct {
	Type  string `json:"type"` // "user", "contact", "lead", "admin", "bot", "team"
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RawContactList wraps the contact references attached to a conversation.
type RawContactList struct {
	Contacts []RawContact `json:"contacts"`
}

// RawContact is a customer reference on the conversation.
type RawContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RawPartList wraps the downstream thread parts.
type RawPartList struct {
	ConversationParts []RawPart `json:"conversation_parts"`
}

// RawPart is a downstream thread entry: comments, notes, state changes.
type RawPart struct {
	ID          string          `json:"id"`
	PartType    string          `json:"part_type"` // "comment", "note", "assignment", ...
	Body        string          `json:"body"`
	CreatedAt   int64           `json:"created_at"`
	Author      *RawAuthor      `json:"author"`
	Attachments []RawAttachment `json:"attachments"`
}

// RawAttachment is a file attached to a source or part.
type RawAttachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// RawTagList wraps the platform's native tags.
type RawTagList struct {
	Tags []RawTag `json:"tags"`
}

// RawTag is a single native tag.
type RawTag struct {
	Name string `json:"name"`
}

// RawStatistics carries timing and rating metadata.
type RawStatistics struct {
	FirstContactReplyAt int64 `json:"first_contact_reply_at"`
}

// RawRating is the customer-experience rating, when present.
type RawRating struct {
	Rating int `json:"rating"` // 1 (worst) .. 5 (best)
}
