// Package deepgram implements sentence synthesis on top of deepgram's
// aura REST endpoint.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/koscakluka/duplex-core/core/audio"
)

const speakEndpoint = "https://api.deepgram.com/v1/speak"

// Synthesizer renders one sentence per request. Sentence-sized requests keep
// cancellation cheap; there is never more than one sentence of audio in
// flight.
type Synthesizer struct {
	apiKey       string
	voice        Voice
	encodingInfo audio.EncodingInfo
	httpClient   *http.Client
}

type SynthesizerOption func(*Synthesizer)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) SynthesizerOption {
	return func(s *Synthesizer) { s.apiKey = apiKey }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesizerOption {
	return func(s *Synthesizer) {
		if encodingInfo.IsZero() {
			return
		}
		s.encodingInfo = encodingInfo
	}
}

func NewSynthesizer(voice Voice, opts ...SynthesizerOption) (*Synthesizer, error) {
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	synthesizer := &Synthesizer{
		apiKey:       os.Getenv("DEEPGRAM_API_KEY"),
		voice:        voice,
		encodingInfo: audio.GetDefaultEncodingInfo(),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(synthesizer)
	}

	if synthesizer.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	return synthesizer, nil
}

func (s *Synthesizer) EncodingInfo() audio.EncodingInfo {
	return s.encodingInfo
}

// Synthesize renders text as raw audio in the synthesizer's encoding.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speak request: %w", err)
	}

	queryParams := url.Values{}
	queryParams.Set("model", string(s.voice))
	queryParams.Set("encoding", s.encodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(s.encodingInfo.SampleRate))
	queryParams.Set("container", "none")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		speakEndpoint+"?"+queryParams.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call deepgram speak endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("deepgram speak request failed (status %d): %s", resp.StatusCode, message)
	}

	synthesized, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	return synthesized, nil
}
