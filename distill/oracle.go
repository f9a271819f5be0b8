package distill

import (
	"context"
	"strings"
	"time"
)

// Request is one generation request to the external oracle.
type Request struct {
	// Instructions is an optional system-level steering message.
	Instructions string

	// Prompt is the user-facing payload.
	Prompt string

	// WantProfile asks the provider to constrain output to the profile JSON
	// schema where the backend supports it. Responses are still
	// salvage-parsed: constrained output is a hint, not a guarantee.
	WantProfile bool
}

// Generation is raw oracle output plus observed usage.
type Generation struct {
	Text       string
	TokensUsed int64
}

// Oracle is the external text-generation service. Implementations block until
// the response arrives or fails; the pipeline never aborts an in-flight call.
type Oracle interface {
	Complete(ctx context.Context, req Request) (Generation, error)
}

// IsRateLimit reports whether err looks like a rate-limit-class failure.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

const defaultCooldown = 30 * time.Second

// completeWithCooldown issues one request; on a rate-limit-class failure it
// sleeps the fixed cooldown and retries exactly once. Any other failure, or a
// failed retry, propagates to the caller.
func completeWithCooldown(ctx context.Context, o Oracle, req Request, cooldown time.Duration) (Generation, error) {
	gen, err := o.Complete(ctx, req)
	if err == nil || !IsRateLimit(err) {
		return gen, err
	}

	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	select {
	case <-time.After(cooldown):
	case <-ctx.Done():
		return Generation{}, ctx.Err()
	}
	return o.Complete(ctx, req)
}
