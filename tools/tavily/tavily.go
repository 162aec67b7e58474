package tavily

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/encoding"
	"github.com/effective-security/felix/pkg/schema"
	"github.com/effective-security/felix/tools"
)

const (
	ToolName = "web_search"

	// DefaultMaxResults is the number of results returned to the model
	DefaultMaxResults = 5
)

// SearchRequest is the tool input.
type SearchRequest struct {
	Query string `json:"query" yaml:"query" jsonschema:"title=Search Query,description=The query to search the web for."`
}

// SearchResult is the search answer and the top results
type SearchResult struct {
	Answer  string                      `json:"answer,omitempty" yaml:"answer,omitempty"`
	Results []tavilyModels.SearchResult `json:"results" yaml:"results"`
}

// Tool searches the web with Tavily
type Tool struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

var _ tools.Tool[SearchRequest, SearchResult] = (*Tool)(nil)

// New returns the tool authorized by the Tavily API key
func New(apiKey string) (*Tool, error) {
	if apiKey == "" {
		return nil, chatmodel.ConfigError("Tavily API key is not configured")
	}

	return &Tool{
		apiKey:     apiKey,
		maxResults: DefaultMaxResults,
		httpClient: http.DefaultClient,
	}, nil
}

func (t *Tool) WithBaseURL(baseURL string) *Tool {
	t.baseURL = baseURL
	return t
}

func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

// WithMaxResults limits the results passed to the model, values less than 1 are ignored.
func (t *Tool) WithMaxResults(n int) *Tool {
	if n > 0 {
		t.maxResults = n
	}
	return t
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Searches the web for recent or factual information, args: {\"query\": \"...\"}."
}

func (t *Tool) Parameters() any {
	return schema.Parameters[SearchRequest]()
}

func (t *Tool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	client := tavilygo.NewClient(t.apiKey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}
	if t.httpClient != nil {
		client.HTTPClient = t.httpClient
	}

	searchResp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	res := &SearchResult{
		Answer:  searchResp.Answer,
		Results: searchResp.Results,
	}
	if len(res.Results) > t.maxResults {
		res.Results = res.Results[:t.maxResults]
	}
	return res, nil
}

// Call returns the results as text, the model reads it in the next turn.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	req, err := encoding.DecodeInput[SearchRequest](input)
	if err != nil {
		return "", err
	}
	out, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	if out.Answer == "" && len(out.Results) == 0 {
		return "no results found for: " + req.Query, nil
	}
	return out.String(), nil
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}
	for i, result := range r.Results {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, result.Title)
		fmt.Fprintf(&buf, "   URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "   %s\n", strings.TrimSpace(result.Content))
	}
	return buf.String()
}
