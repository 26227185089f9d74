// Package deepgram implements the recognition engine boundary on top of
// Deepgram's live transcription websocket.
package deepgram

import (
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultModel    = "nova-3"
	defaultLanguage = "en-US"
)

// Client streams microphone audio to Deepgram and turns the websocket
// message stream into recognition callbacks. One Client runs at most one
// listening session at a time.
type Client struct {
	apiKey   string
	model    string
	language string

	connMu sync.Mutex
	conn   *websocket.Conn
	closed bool

	lastAudioTs time.Time
}

type ClientOption func(*Client)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithLanguage(language string) ClientOption {
	return func(c *Client) { c.language = language }
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		apiKey:   os.Getenv("DEEPGRAM_API_KEY"),
		model:    defaultModel,
		language: defaultLanguage,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}
