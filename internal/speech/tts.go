// Package speech provides text-to-speech synthesis, audio playback,
// and the serializing speaker the rest of the pipeline talks through.
package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/aide/internal/logger"
)

// TTSOption configures the TTS client.
type TTSOption func(*TTSClient)

// WithVoice sets the synthesis voice.
func WithVoice(voice string) TTSOption {
	return func(c *TTSClient) { c.voice = voice }
}

// WithAudioFormat sets the audio output format.
func WithAudioFormat(format string) TTSOption {
	return func(c *TTSClient) { c.format = format }
}

// WithHTTPTimeout sets the HTTP client timeout for synthesis requests.
func WithHTTPTimeout(d time.Duration) TTSOption {
	return func(c *TTSClient) { c.httpClient.Timeout = d }
}

// WithTTSEndpoint overrides the service URL. Used by tests.
func WithTTSEndpoint(url string) TTSOption {
	return func(c *TTSClient) { c.endpoint = url }
}

// TTSClient synthesizes text to WAV audio via the Azure Cognitive
// Services text-to-speech REST endpoint.
type TTSClient struct {
	subscriptionKey string
	region          string
	voice           string
	format          string
	endpoint        string
	httpClient      *http.Client
	log             *logger.Logger
}

// NewTTSClient creates a synthesis client with the given credentials.
func NewTTSClient(key, region string, log *logger.Logger, opts ...TTSOption) *TTSClient {
	c := &TTSClient{
		subscriptionKey: key,
		region:          region,
		voice:           DefaultVoice,
		format:          DefaultAudioFormat,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoint == "" {
		c.endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", c.region)
	}
	return c
}

// Voice returns the configured voice name.
func (c *TTSClient) Voice() string { return c.voice }

// Synthesize converts text to WAV bytes.
func (c *TTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ssml := c.buildSSML(text)
	c.log.Debug("tts: synthesizing %d chars with voice %s", len(text), c.voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "Aide/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tts error %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}

	c.log.Debug("tts: got %d bytes of audio", len(audio))
	return audio, nil
}

// buildSSML wraps the text in the synthesis request markup. Text is
// escaped so user-derived responses can't break the envelope.
func (c *TTSClient) buildSSML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return fmt.Sprintf(
		`<speak version='1.0' xml:lang='en-US'><voice xml:lang='en-US' name='%s'>%s</voice></speak>`,
		c.voice, r.Replace(text),
	)
}
