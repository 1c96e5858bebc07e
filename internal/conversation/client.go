package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/supportops/triage/internal/types"
)

const defaultBaseURL = "https://api.intercom.io"

var conversationIDRegex = regexp.MustCompile(`^\d+$`)

// Client fetches raw conversations from the helpdesk platform.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a conversation source client. The token is passed
// through as a bearer credential; baseURL defaults to the platform API root
// when empty.
func NewClient(token, baseURL string) (*Client, error) {
	if token == "" {
		return nil, types.NewValidationError("conversation source token is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// ValidateConversationID checks the purely numeric id format. Called before
// any network traffic so malformed ids never reach the wire.
func ValidateConversationID(id string) error {
	if !conversationIDRegex.MatchString(id) {
		return types.NewValidationError("conversation id must be numeric (got %q)", id)
	}
	return nil
}

// Fetch retrieves a raw conversation payload by id. The id is validated
// locally first; remote failures are mapped onto the error taxonomy.
func (c *Client) Fetch(ctx context.Context, id string) (*RawConversation, error) {
	if err := ValidateConversationID(id); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/conversations/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewTimeoutError("conversation fetch timed out", err)
		}
		return nil, types.NewUnknownError("conversation fetch failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, types.NewAuthError("conversation source rejected the credential", nil)
	case http.StatusNotFound:
		return nil, types.NewNotFoundError(fmt.Sprintf("conversation %s not found", id), nil)
	case http.StatusTooManyRequests:
		return nil, types.NewRateLimitError("conversation source rate limit exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, types.NewUnknownError(
			fmt.Sprintf("conversation source returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var raw RawConversation
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, types.NewParseError("decoding conversation payload", err)
	}
	if raw.ID == "" {
		raw.ID = id
	}
	return &raw, nil
}

// FetchNormalized fetches and normalizes a conversation in one step.
func (c *Client) FetchNormalized(ctx context.Context, id string) (*types.Conversation, error) {
	raw, err := c.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return Normalize(raw)
}
