// Package transcribe converts finished audio clips into text via the
// Azure Cognitive Services speech-to-text REST endpoint.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/aide/internal/domain"
	"github.com/hammamikhairi/aide/internal/logger"
	"github.com/hammamikhairi/aide/internal/resilience"
)

// Option configures the Client.
type Option func(*Client)

// WithLanguage sets the recognition language (default en-US).
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithHTTPTimeout sets the HTTP client timeout per attempt.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetry replaces the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithEndpoint overrides the service URL. Used by tests.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// Client is a speech-to-text client. A failed or empty recognition is
// reported as an empty Transcription, not an error; errors mean the
// service itself was unreachable.
type Client struct {
	subscriptionKey string
	region          string
	language        string
	endpoint        string
	httpClient      *http.Client
	retry           resilience.RetryConfig
	log             *logger.Logger
}

// Compile-time interface check.
var _ domain.Transcriber = (*Client)(nil)

// NewClient creates a speech-to-text client with the given credentials.
func NewClient(key, region string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		subscriptionKey: key,
		region:          region,
		language:        "en-US",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
		log:   log,
	}
	c.retry.IsRetryable = isRetryable
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoint == "" {
		c.endpoint = fmt.Sprintf(
			"https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1",
			c.region,
		)
	}
	if c.retry.IsRetryable == nil {
		c.retry.IsRetryable = isRetryable
	}
	return c
}

// recognitionResponse is the service's detailed-format payload.
type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	NBest             []struct {
		Confidence float64 `json:"Confidence"`
		Display    string  `json:"Display"`
	} `json:"NBest"`
}

// statusError marks an HTTP-level failure so the retry policy can tell
// transient service trouble from a bad request.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("speech-to-text error %d: %s", e.code, e.body)
}

func isRetryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true // network-level failure
}

// Transcribe sends the clip's WAV bytes to the service and returns the
// best recognition. "NoMatch" and silent clips come back as an empty
// Transcription with a nil error.
func (c *Client) Transcribe(ctx context.Context, clip *domain.AudioClip) (domain.Transcription, error) {
	if clip.Empty() {
		return domain.Transcription{}, nil
	}

	c.log.Debug("stt: transcribing %d bytes (%s)", len(clip.WAV), clip.Duration)

	var result domain.Transcription
	err := resilience.Retry(ctx, c.retry, func() error {
		tr, err := c.recognize(ctx, clip.WAV)
		if err != nil {
			return err
		}
		result = tr
		return nil
	})
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("transcribing clip: %w", err)
	}

	c.log.Debug("stt: heard %q (confidence=%.2f)", result.Text, result.Confidence)
	return result, nil
}

// recognize performs a single service call.
func (c *Client) recognize(ctx context.Context, wav []byte) (domain.Transcription, error) {
	url := fmt.Sprintf("%s?language=%s&format=detailed", c.endpoint, c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(wav))
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Transcription{}, fmt.Errorf("stt request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domain.Transcription{}, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var rec recognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return domain.Transcription{}, fmt.Errorf("decoding recognition: %w", err)
	}

	if rec.RecognitionStatus != "Success" {
		// NoMatch, InitialSilenceTimeout, etc. — heard nothing.
		return domain.Transcription{}, nil
	}

	tr := domain.Transcription{Text: rec.DisplayText, Confidence: 1}
	if len(rec.NBest) > 0 {
		tr.Confidence = rec.NBest[0].Confidence
		if tr.Text == "" {
			tr.Text = rec.NBest[0].Display
		}
	}
	return tr, nil
}
