package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/observability"
)

// Default HTTP client settings for the transcription collaborator.
const (
	DefaultTimeout    = 2 * time.Minute
	DefaultMaxRetries = 2
)

// HTTPClient calls a remote transcription service over HTTP JSON.
// Transient failures are retried with backoff by the underlying
// retryablehttp client; anything that still fails surfaces as
// ErrTranscription.
type HTTPClient struct {
	baseURL string
	client  *retryablehttp.Client
	timeout time.Duration
	logger  logging.Logger
	tracer  *observability.Tracer
}

// HTTPClientConfig configures the transcription HTTP client.
type HTTPClientConfig struct {
	// BaseURL is the collaborator's base URL, e.g. "http://stt.internal:9000".
	BaseURL string

	// Timeout bounds a single call including retries.
	Timeout time.Duration

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int
}

// NewHTTPClient creates a transcription client for the given collaborator.
func NewHTTPClient(cfg HTTPClientConfig, logger logging.Logger) *HTTPClient {
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

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  rc,
		timeout: timeout,
		logger:  logger.With(logging.F("component", "transcribe_client")),
		tracer:  observability.NewTracer(),
	}
}

// transcribeRequest is the wire format for both entry points.
type transcribeRequest struct {
	AudioBase64 string `json:"audio_base64"`
	Format      string `json:"format,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// transcribeResponse is the collaborator's reply.
type transcribeResponse struct {
	Text            string  `json:"text"`
	Speaker         string  `json:"speaker,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// TranscribeFile transcribes a stored audio file in one pass.
func (c *HTTPClient) TranscribeFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", cferrors.ErrTranscription, path, err)
	}

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	return c.call(ctx, transcribeRequest{
		AudioBase64: base64.StdEncoding.EncodeToString(data),
		Format:      format,
		Filename:    filepath.Base(path),
	})
}

// TranscribeChunk transcribes a raw audio segment.
func (c *HTTPClient) TranscribeChunk(ctx context.Context, audio []byte, format string) (*Result, error) {
	return c.call(ctx, transcribeRequest{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		Format:      format,
	})
}

func (c *HTTPClient) call(ctx context.Context, req transcribeRequest) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.StartTranscribeSpan(ctx, req.Format, len(req.AudioBase64))
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", cferrors.ErrTranscription, err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/transcriptions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", cferrors.ErrTranscription, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		observability.RecordSpanError(span, err)
		return nil, fmt.Errorf("%w: %v", cferrors.ErrTranscription, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", cferrors.ErrTranscription, err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: collaborator returned %d: %s",
			cferrors.ErrTranscription, resp.StatusCode, strings.TrimSpace(string(raw)))
		observability.RecordSpanError(span, err)
		return nil, err
	}

	var out transcribeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", cferrors.ErrTranscription, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", cferrors.ErrTranscription, out.Error)
	}

	c.logger.Debug("transcription call completed",
		logging.F("duration", time.Since(start)),
		logging.F("text_len", len(out.Text)))

	return &Result{
		Text:            strings.TrimSpace(out.Text),
		Speaker:         out.Speaker,
		Confidence:      out.Confidence,
		DurationSeconds: out.DurationSeconds,
	}, nil
}
