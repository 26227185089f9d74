package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/duplex-core/core/audio"
	"github.com/koscakluka/duplex-core/core/speechinput"
	"github.com/koscakluka/duplex-core/internal/utils"
)

// Listen opens the live transcription websocket and starts delivering
// recognition callbacks until Stop is called or the connection drops.
func (c *Client) Listen(ctx context.Context, opts ...speechinput.RecognitionOption) error {
	options := &speechinput.RecognitionOptions{
		Profile:      speechinput.NormalProfile(),
		EncodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if c.apiKey == "" {
		return fmt.Errorf("deepgram api key not found")
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	listenURL := buildListenURL(listenParams{
		sampleRate: encoding.SampleRate,
		encoding:   encoding.Format.Name(),
		model:      c.model,
		language:   c.language,
		profile:    options.Profile,
	})

	conn, resp, err := websocket.DefaultDialer.Dial(listenURL,
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("deepgram rejected credentials (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.closed = false
	c.lastAudioTs = time.Now()
	c.connMu.Unlock()

	if options.StartedCallback != nil {
		options.StartedCallback()
	}

	go c.readAndProcessMessages(ctx, conn, *options)

	return nil
}

// Stop asks deepgram to flush and close the stream. Callbacks from the
// session may still race Stop briefly; consumers gate on their own session
// state.
func (c *Client) Stop() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil || c.closed {
		return nil
	}
	c.closed = true

	if err := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

func (c *Client) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil || c.closed {
		return fmt.Errorf("no active deepgram connection")
	}

	c.lastAudioTs = time.Now()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

type listenParams struct {
	sampleRate int
	encoding   string
	model      string
	language   string
	profile    speechinput.Profile
}

func buildListenURL(params listenParams) string {
	listenURL, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenURL.Query()
	queryParams.Set("encoding", params.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(params.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", params.model)
	queryParams.Set("language", params.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("endpointing", strconv.Itoa(int(params.profile.PauseThreshold.Milliseconds())))
	if params.profile.InterimResults {
		queryParams.Set("interim_results", "true")
		queryParams.Set("utterance_end_ms", "1000")
	}
	if params.profile.Continuous {
		queryParams.Set("vad_events", "true")
	}

	listenURL.RawQuery = queryParams.Encode()
	return listenURL.String()
}

func (c *Client) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, options speechinput.RecognitionOptions) {
	keepAliveCtx, keepAliveCancel := context.WithCancel(ctx)
	defer keepAliveCancel()

	go c.generateSilence(keepAliveCtx, options.EncodingInfo)

	session := &listenSession{client: c, options: options}

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			c.connMu.Lock()
			closed := c.closed
			c.conn = nil
			c.connMu.Unlock()
			conn.Close()

			if closed {
				return
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				if options.EndedCallback != nil {
					options.EndedCallback()
				}
			} else if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if options.ErrorCallback != nil {
					options.ErrorCallback(speechinput.ErrorCodeAborted, err.Error())
				}
			} else {
				if options.ErrorCallback != nil {
					options.ErrorCallback(speechinput.ErrorCodeNetwork, err.Error())
				}
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			session.processMessage(msg)
		}
	}
}

// listenSession accumulates per-session transcript state; deepgram delivers
// an utterance as a sequence of is_final fragments that only become one
// transcript at the speech_final boundary.
type listenSession struct {
	client  *Client
	options speechinput.RecognitionOptions

	accumulatedTranscript string
	unendedSegment        bool
}

func (s *listenSession) processMessage(msg []byte) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram message", "error", err)
			return
		}
		s.processTranscript(msgResp)

	case api.TypeUtteranceEndResponse:
		if s.unendedSegment {
			s.finishUtterance()
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true
		if s.options.SpeechStartedCallback != nil {
			s.options.SpeechStartedCallback()
		}

	case api.TypeResponse(api.TypeErrorResponse):
		var msgResp api.ErrorResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram error", "error", err)
			return
		}
		if s.options.ErrorCallback != nil {
			s.options.ErrorCallback(speechinput.ErrorCodeAborted, msgResp.Description)
		}
	}
}

func (s *listenSession) processTranscript(msgResp api.MessageResponse) {
	if len(msgResp.Channel.Alternatives) == 0 {
		return
	}
	transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)

	if msgResp.IsFinal {
		if len(transcript) > 0 {
			s.accumulatedTranscript = strings.TrimSpace(s.accumulatedTranscript + " " + transcript)
		}
		if msgResp.SpeechFinal {
			s.finishUtterance()
		}
		return
	}

	if len(transcript) > 0 && s.options.Profile.InterimResults && s.options.ResultCallback != nil {
		s.options.ResultCallback(strings.TrimSpace(s.accumulatedTranscript+" "+transcript), false)
	}
}

// finishUtterance flushes the accumulated transcript as a final result. For
// non-continuous profiles the session ends here, mirroring one-shot
// recognition engines.
func (s *listenSession) finishUtterance() {
	s.unendedSegment = false

	fullTranscript := strings.TrimSpace(s.accumulatedTranscript)
	s.accumulatedTranscript = ""
	if len(fullTranscript) > 0 && s.options.ResultCallback != nil {
		s.options.ResultCallback(fullTranscript, true)
	}
	if s.options.SpeechEndedCallback != nil {
		s.options.SpeechEndedCallback()
	}

	if !s.options.Profile.Continuous {
		if err := s.client.Stop(); err != nil {
			logger.Warn("failed to close one-shot deepgram session", "error", err)
		}
		if s.options.EndedCallback != nil {
			s.options.EndedCallback()
		}
	}
}

func (c *Client) sendKeepAlive() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil || c.closed {
		return
	}
	if err := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "KeepAlive"}); err != nil {
		logger.Warn("failed to write keepalive to deepgram client", "error", err)
	}
}

func (c *Client) sendSilence(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil || c.closed {
		return nil
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// generateSilence keeps deepgram's endpointing timers running when the
// capture source goes quiet, then downgrades to keepalives so an idle
// connection isn't reaped.
func (c *Client) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type generatorState string
	const (
		stateWaiting   generatorState = "waiting"
		stateSilence   generatorState = "silence"
		stateKeepAlive generatorState = "keepAlive"
	)

	const chunkDuration = 50 * time.Millisecond
	ticker := time.NewTicker(chunkDuration)
	defer ticker.Stop()

	chunk := make([]byte, encoding.Samples(chunkDuration)*encoding.Format.ByteSize())
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	state := stateWaiting
	var firstSilenceTime *time.Time
	var lastKeepAliveTime *time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			lastAudioTs := c.lastAudioTs
			c.connMu.Unlock()

			switch state {
			case stateWaiting:
				if time.Since(lastAudioTs) > chunkDuration {
					state = stateSilence
					firstSilenceTime = utils.Ptr(time.Now())
				}

			case stateSilence:
				if time.Since(lastAudioTs) < chunkDuration {
					state = stateWaiting
					firstSilenceTime = nil
					continue
				}
				if time.Since(*firstSilenceTime) >= time.Second {
					state = stateKeepAlive
					lastKeepAliveTime = utils.Ptr(time.Now())
					firstSilenceTime = nil
					continue
				}

				if err := c.sendSilence(chunk); err != nil {
					logger.Warn("failed to send silence chunk", "error", err)
				}

			case stateKeepAlive:
				if time.Since(lastAudioTs) < chunkDuration {
					state = stateWaiting
					continue
				}

				if time.Since(*lastKeepAliveTime) >= 5*time.Second {
					lastKeepAliveTime = utils.Ptr(time.Now())
					c.sendKeepAlive()
				}
			}
		}
	}
}
