package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/observability"
	"github.com/otherjamesbrown/confab/pkg/session"
)

// Default HTTP client settings for the analysis collaborators.
const (
	DefaultTimeout    = 2 * time.Minute
	DefaultMaxRetries = 2
)

// HTTPClientConfig configures one analysis collaborator client.
type HTTPClientConfig struct {
	// BaseURL is the collaborator's base URL, e.g. "http://nlp.internal:9100".
	BaseURL string

	// Timeout bounds a single call including retries.
	Timeout time.Duration

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int
}

// facetClient is the shared HTTP JSON plumbing for the three facet
// clients. Each facet gets its own endpoint and response shape; the
// request is always {"text": ...}.
type facetClient struct {
	facet   cferrors.Facet
	baseURL string
	client  *retryablehttp.Client
	timeout time.Duration
	logger  logging.Logger
	tracer  *observability.Tracer
}

func newFacetClient(facet cferrors.Facet, cfg HTTPClientConfig, logger logging.Logger) facetClient {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.Logger = nil // zerolog handles our logging
	rc.HTTPClient.Timeout = timeout

	return facetClient{
		facet:   facet,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  rc,
		timeout: timeout,
		logger:  logger.With(logging.F("component", string(facet)+"_client")),
		tracer:  observability.NewTracer(),
	}
}

type analysisRequest struct {
	Text string `json:"text"`
}

// call posts the transcript to the facet endpoint and decodes the reply
// into out. Any failure comes back as an AnalysisError for this facet.
func (c *facetClient) call(ctx context.Context, endpoint, text string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.StartAnalysisSpan(ctx, string(c.facet), len(text))
	defer span.End()

	body, err := json.Marshal(analysisRequest{Text: text})
	if err != nil {
		return cferrors.NewAnalysisError(c.facet, fmt.Errorf("encoding request: %w", err))
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return cferrors.NewAnalysisError(c.facet, fmt.Errorf("building request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		observability.RecordSpanError(span, err)
		return cferrors.NewAnalysisError(c.facet, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return cferrors.NewAnalysisError(c.facet, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		err := cferrors.NewAnalysisError(c.facet, fmt.Errorf("collaborator returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw))))
		observability.RecordSpanError(span, err)
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return cferrors.NewAnalysisError(c.facet, fmt.Errorf("decoding response: %w", err))
	}

	c.logger.Debug("analysis call completed",
		logging.F("duration", time.Since(start)),
		logging.F("endpoint", endpoint))
	return nil
}

// SummaryClient calls a remote summarization collaborator.
type SummaryClient struct {
	facetClient
}

// NewSummaryClient creates a summarization client for the given collaborator.
func NewSummaryClient(cfg HTTPClientConfig, logger logging.Logger) *SummaryClient {
	return &SummaryClient{newFacetClient(cferrors.FacetSummary, cfg, logger)}
}

// Summarize asks the collaborator for a summary of the transcript.
func (c *SummaryClient) Summarize(ctx context.Context, text string) (*session.SummaryResult, error) {
	var out struct {
		TLDR      string   `json:"tldr"`
		KeyPoints []string `json:"key_points"`
		Topics    []string `json:"topics"`
		Error     string   `json:"error,omitempty"`
	}
	if err := c.call(ctx, "/v1/summaries", text, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, cferrors.NewAnalysisError(c.facet, fmt.Errorf("%s", out.Error))
	}
	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	return &session.SummaryResult{
		TLDR:      out.TLDR,
		KeyPoints: out.KeyPoints,
		Topics:    out.Topics,
	}, nil
}

// ActionItemsClient calls a remote action item extraction collaborator.
type ActionItemsClient struct {
	facetClient
}

// NewActionItemsClient creates an action item client for the given collaborator.
func NewActionItemsClient(cfg HTTPClientConfig, logger logging.Logger) *ActionItemsClient {
	return &ActionItemsClient{newFacetClient(cferrors.FacetActionItems, cfg, logger)}
}

// Extract asks the collaborator for the transcript's action items.
func (c *ActionItemsClient) Extract(ctx context.Context, text string) (*session.ActionItemsResult, error) {
	var out struct {
		Items []session.ActionItem `json:"items"`
		Note  string               `json:"note,omitempty"`
		Error string               `json:"error,omitempty"`
	}
	if err := c.call(ctx, "/v1/action-items", text, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, cferrors.NewAnalysisError(c.facet, fmt.Errorf("%s", out.Error))
	}
	if out.Items == nil {
		out.Items = []session.ActionItem{}
	}
	result := &session.ActionItemsResult{Items: out.Items, Note: out.Note}
	if len(result.Items) == 0 && result.Note == "" {
		result.Note = NoActionItemsNote
	}
	return result, nil
}

// SentimentClient calls a remote sentiment scoring collaborator.
type SentimentClient struct {
	facetClient
}

// NewSentimentClient creates a sentiment client for the given collaborator.
func NewSentimentClient(cfg HTTPClientConfig, logger logging.Logger) *SentimentClient {
	return &SentimentClient{newFacetClient(cferrors.FacetSentiment, cfg, logger)}
}

// Analyze asks the collaborator to score the transcript.
func (c *SentimentClient) Analyze(ctx context.Context, text string) (*session.SentimentResult, error) {
	var out struct {
		Sentiments []session.SentimentPoint `json:"sentiments"`
		Error      string                   `json:"error,omitempty"`
	}
	if err := c.call(ctx, "/v1/sentiments", text, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, cferrors.NewAnalysisError(c.facet, fmt.Errorf("%s", out.Error))
	}
	if out.Sentiments == nil {
		out.Sentiments = []session.SentimentPoint{}
	}
	return &session.SentimentResult{Sentiments: out.Sentiments}, nil
}
