package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryMiddleware retries the downstream handler per policy.
func RetryMiddleware(policy RetryPolicy) Middleware {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		return Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
			return next(ctx, req)
		})
	}
}

// TimeoutMiddleware bounds each downstream call. A zero duration disables it.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		if d <= 0 {
			return next(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		resp, err := next(ctx, req)
		if err != nil && ctx.Err() == context.DeadlineExceeded {
			return nil, &RequestTimeoutError{SDKError: SDKError{Message: "llm request timed out", Cause: err}}
		}
		return resp, err
	}
}

// LoggingMiddleware records each call with its latency and usage.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		fields := []zap.Field{
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.Int("messages", len(req.Messages)),
			zap.Int("tools", len(req.Tools)),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			logger.Warn("llm call failed", append(fields, zap.Error(err))...)
			return nil, err
		}
		logger.Debug("llm call",
			append(fields,
				zap.String("finish_reason", resp.FinishReason.Reason),
				zap.Int("tool_calls", len(resp.ToolCalls())),
				zap.Int("total_tokens", resp.Usage.TotalTokens),
			)...)
		return resp, nil
	}
}
