package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/logger"
)

// Config holds synthesis tunables.
type Config struct {
	// OpenTimeout bounds the time to the first chunk, covering both opening
	// the stream and the first Recv.
	OpenTimeout time.Duration
	// RetryBackoff is the pause before retrying a failure that happened
	// before any chunk was produced. Mid-stream failures are never retried.
	RetryBackoff time.Duration
}

// DefaultConfig returns the synthesis defaults.
func DefaultConfig() Config {
	return Config{
		OpenTimeout:  10 * time.Second,
		RetryBackoff: 200 * time.Millisecond,
	}
}

// Outcome reports how the stream ended.
type Outcome struct {
	// Narrative is the concatenation of every chunk that was forwarded.
	Narrative string
	// ChunksSent counts forwarded chunks.
	ChunksSent int
	// Partial is set when the stream failed after chunks were already
	// forwarded; the chunks sent so far remain valid output.
	Partial bool
	// Failure is the absorbed error when Partial is set, or the final error
	// when no chunk was ever produced.
	Failure error
}

// Service adapts the synthesizer's stream to the orchestrator: it forwards
// chunks one at a time, in order, with no buffering beyond one chunk.
type Service struct {
	synth Synthesizer
	cfg   Config
}

// New creates a synthesis adapter.
func New(synth Synthesizer, cfg Config) *Service {
	return &Service{synth: synth, cfg: cfg}
}

// Stream opens the narrative stream and forwards each chunk to emit as soon
// as it is received. A failure before the first chunk is retried once; after
// that, or on any mid-stream failure, the outcome degrades rather than
// failing the workflow. Cancellation aborts the in-flight call and returns
// ctx.Err.
func (s *Service) Stream(
	ctx context.Context, q domain.Query, records []domain.AdjudicatedRecord, emit func(string),
) (Outcome, error) {
	var out Outcome

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			logger.FromContext(ctx).Warn("retrying synthesis before first chunk",
				zap.Error(out.Failure))
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(s.cfg.RetryBackoff):
			}
		}

		err := s.streamOnce(ctx, q, records, emit, &out)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		if out.ChunksSent > 0 {
			// Caller already received output: keep it, never retry.
			out.Partial = true
			out.Failure = err
			return out, nil
		}
		out.Failure = err
	}

	return out, fmt.Errorf("synthesis failed before first chunk: %w", out.Failure)
}

// streamOnce runs one producer/consumer pass over a fresh stream. The
// producer goroutine feeds a single-chunk channel; the consumer forwards in
// order and observes cancellation at every hop.
func (s *Service) streamOnce(
	ctx context.Context, q domain.Query, records []domain.AdjudicatedRecord, emit func(string), out *Outcome,
) error {
	// The provider stream lives on streamCtx for its whole lifetime, so the
	// open timeout must not be a context deadline on the open call: that would
	// tear down the stream it just returned. A timer cancels streamCtx only
	// when no chunk has arrived in time.
	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	openTimer := time.AfterFunc(s.cfg.OpenTimeout, cancelStream)
	defer openTimer.Stop()

	stream, err := s.synth.Synthesize(streamCtx, q.Describe(), records)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	type chunkMsg struct {
		text string
		err  error
	}
	chunks := make(chan chunkMsg, 1)

	go func() {
		defer close(chunks)
		for {
			text, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					select {
					case chunks <- chunkMsg{err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
			select {
			case chunks <- chunkMsg{text: text}:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	var narrative strings.Builder
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-chunks:
			if !ok {
				out.Narrative = narrative.String()
				return nil
			}
			if msg.err != nil {
				out.Narrative = narrative.String()
				if out.ChunksSent == 0 && streamCtx.Err() != nil && ctx.Err() == nil {
					return fmt.Errorf("no chunk within %s: %w", s.cfg.OpenTimeout, domain.ErrProviderTransient)
				}
				return fmt.Errorf("recv chunk: %w", msg.err)
			}
			openTimer.Stop()
			emit(msg.text)
			narrative.WriteString(msg.text)
			out.ChunksSent++
		}
	}
}
