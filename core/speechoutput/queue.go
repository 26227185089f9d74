package speechoutput

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Synthesizer turns one sentence of text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays raw audio, blocking until playback finishes or ctx is
// cancelled. Cancellation must cut playback off immediately.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

type entry struct {
	id        string
	text      string
	sentences []string
	callbacks speakCallbacks

	ctx    context.Context
	cancel context.CancelFunc
}

// Queue plays utterances strictly in order, one sentence at a time. Each
// sentence is synthesized right before it plays so an interruption never
// wastes more than one sentence of synthesis.
type Queue struct {
	synthesizer Synthesizer
	player      Player

	delimiters            string
	pauseBetweenSentences time.Duration

	mu              sync.Mutex
	pending         []*entry
	current         *entry
	currentSentence string
	draining        bool
	closed          bool
}

type QueueOption func(*Queue)

// WithSentenceDelimiters overrides the runes that end a sentence.
func WithSentenceDelimiters(delimiters string) QueueOption {
	return func(q *Queue) { q.delimiters = delimiters }
}

// WithPauseBetweenSentences inserts a beat of silence between consecutive
// sentences of the same utterance.
func WithPauseBetweenSentences(pause time.Duration) QueueOption {
	return func(q *Queue) { q.pauseBetweenSentences = pause }
}

func NewQueue(synthesizer Synthesizer, player Player, opts ...QueueOption) *Queue {
	queue := &Queue{
		synthesizer:           synthesizer,
		player:                player,
		delimiters:            defaultSentenceDelimiters,
		pauseBetweenSentences: 50 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(queue)
	}

	return queue
}

// Speak enqueues an utterance and returns its id. Playback starts
// immediately if nothing else is queued.
func (q *Queue) Speak(ctx context.Context, text string, opts ...SpeakOption) (string, error) {
	var callbacks speakCallbacks
	for _, opt := range opts {
		opt(&callbacks)
	}

	sentences := splitSentences(text, q.delimiters)
	if len(sentences) == 0 {
		return "", fmt.Errorf("nothing to speak")
	}

	entryCtx, cancel := context.WithCancel(ctx)
	queuedEntry := &entry{
		id:        uuid.NewString(),
		text:      text,
		sentences: sentences,
		callbacks: callbacks,
		ctx:       entryCtx,
		cancel:    cancel,
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()
		return "", fmt.Errorf("speech queue closed")
	}

	q.pending = append(q.pending, queuedEntry)
	startDrain := !q.draining
	if startDrain {
		q.draining = true
	}
	q.mu.Unlock()

	if startDrain {
		go q.drain()
	}

	return queuedEntry.id, nil
}

// Interrupt cuts off the current utterance and clears everything queued
// behind it. It reports the sentence that was playing, if any. Interrupting
// an idle queue is a no-op.
func (q *Queue) Interrupt() (string, bool) {
	q.mu.Lock()
	interrupted := q.current
	sentence := q.currentSentence
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range pending {
		p.cancel()
	}
	if interrupted == nil {
		return "", false
	}

	interrupted.cancel()
	if interrupted.callbacks.onInterrupted != nil {
		interrupted.callbacks.onInterrupted(sentence)
	}
	return sentence, true
}

// Speaking reports whether an utterance is currently being played.
func (q *Queue) Speaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.current != nil
}

// CurrentSentence reports the sentence currently being played, if any.
func (q *Queue) CurrentSentence() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.currentSentence, q.currentSentence != ""
}

// Close interrupts playback and rejects further Speak calls.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.Interrupt()
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.current = next
		q.mu.Unlock()

		q.playEntry(next)

		q.mu.Lock()
		q.current = nil
		q.currentSentence = ""
		q.mu.Unlock()

		next.cancel()
	}
}

func (q *Queue) playEntry(e *entry) {
	if e.ctx.Err() != nil {
		return
	}

	if e.callbacks.onStarted != nil {
		e.callbacks.onStarted()
	}

	for i, sentence := range e.sentences {
		audio, err := q.synthesizer.Synthesize(e.ctx, sentence)
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}

			logger.Warn("failed to synthesize sentence", "error", err, "utterance_id", e.id)
			if e.callbacks.onError != nil {
				e.callbacks.onError(fmt.Errorf("failed to synthesize sentence: %w", err))
			}
			return
		}

		// Interruptions that landed during synthesis must not reach the
		// speaker.
		if e.ctx.Err() != nil {
			return
		}

		q.mu.Lock()
		q.currentSentence = sentence
		q.mu.Unlock()
		if e.callbacks.onSentenceStarted != nil {
			e.callbacks.onSentenceStarted(sentence, i)
		}

		err = q.player.Play(e.ctx, audio)

		q.mu.Lock()
		q.currentSentence = ""
		q.mu.Unlock()

		if e.ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("failed to play sentence", "error", err, "utterance_id", e.id)
			if e.callbacks.onError != nil {
				e.callbacks.onError(fmt.Errorf("failed to play sentence: %w", err))
			}
			return
		}

		if e.callbacks.onSentenceEnded != nil {
			e.callbacks.onSentenceEnded(sentence, i)
		}

		if i < len(e.sentences)-1 && q.pauseBetweenSentences > 0 {
			select {
			case <-e.ctx.Done():
				return
			case <-time.After(q.pauseBetweenSentences):
			}
		}
	}

	if e.callbacks.onEnded != nil {
		e.callbacks.onEnded(e.text)
	}
}
