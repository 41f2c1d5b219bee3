package fetcher

import (
	"context"

	"github.com/rohmanhakim/prompt-loader/pkg/failure"
	"github.com/rohmanhakim/prompt-loader/pkg/retry"
)

// Fetcher retrieves the raw text of a template resource.
// A nil error means the origin answered with a success status.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)
}
