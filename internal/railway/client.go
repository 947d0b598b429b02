package railway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultEndpoint is Railway's public GraphQL API.
const DefaultEndpoint = "https://backboard.railway.com/graphql/v2"

// Client sends GraphQL operations to Railway. It holds no state beyond its
// connection configuration and is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	endpoint string
	base     *http.Client
}

// WithEndpoint overrides the GraphQL endpoint URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(o *clientOptions) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the client whose transport carries authenticated requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.base = c
	}
}

// NewClient creates a client authenticating every request with a static
// bearer token.
func NewClient(token string, opts ...ClientOption) *Client {
	o := clientOptions{endpoint: DefaultEndpoint}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	if o.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.base)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	return &Client{
		endpoint:   o.endpoint,
		httpClient: oauth2.NewClient(ctx, ts),
	}
}

// Request is a single GraphQL operation.
type Request struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors GraphQLErrors   `json:"errors"`
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return strings.Join(msgs, "; ")
}

// Do executes req and decodes the "data" member into out. out may be nil for
// mutations whose result is not needed.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet(payload))
	}

	var decoded response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return decoded.Errors
	}

	if out == nil || len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
