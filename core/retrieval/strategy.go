// Package retrieval holds the single source retrieval strategies.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/grounder/model"
)

// Retriever is one single source retrieval strategy
type Retriever interface {
	Strategy() model.PolicyType
	Retrieve(ctx context.Context, query model.Query, config model.Config) (*model.RetrievalResult, error)
}

// Option configures a retriever
type Option func(*base)

// WithLogger sets the logger of a retriever
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

type base struct {
	logger *slog.Logger
}

func newBase(opts []Option) base {
	b := base{logger: slog.Default()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

type outcome struct {
	result *model.RetrievalResult
	err    error
}

// Run executes r bounded by config.RetrieverTimeout. A failing or slow backend
// yields a degraded empty result instead of an error. The error is only set
// when ctx itself is done, the caller then has to abandon the query.
// Run returns on timeout even if r does not watch its context, the late
// result of r is dropped.
func Run(ctx context.Context, r Retriever, query model.Query, config model.Config, logger *slog.Logger) (*model.RetrievalResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var runCtx context.Context
	var cancel context.CancelFunc
	if config.RetrieverTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, config.RetrieverTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		result, err := r.Retrieve(runCtx, query, config)
		done <- outcome{result: result, err: err}
	}()

	var result *model.RetrievalResult
	var err error
	select {
	case o := <-done:
		result, err = o.result, o.err
	case <-runCtx.Done():
		err = runCtx.Err()
	}
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if err == nil && result == nil {
		err = errors.New("retriever returned no result")
	}
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, model.ErrSourceTimeout) {
			err = fmt.Errorf("%w: %v", model.ErrSourceTimeout, err)
		} else if !errors.Is(err, model.ErrSourceUnavailable) && !errors.Is(err, model.ErrSourceTimeout) {
			err = fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
		}
		logger.Warn("Retriever degraded", "strategy", r.Strategy(), "elapsed", elapsed, "error", err)
		return model.DegradedResult(r.Strategy(), elapsed, err), nil
	}

	result.Strategy = r.Strategy()
	result.Elapsed = elapsed
	if result.Units == nil {
		result.Units = []*model.EvidenceUnit{}
	}
	logger.Info("Retriever finished", "strategy", r.Strategy(), "elapsed", elapsed, "candidates", result.CandidateCount, "returned", len(result.Units))

	return result, nil
}

func unavailable(trace string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrSourceUnavailable, trace, err)
}
