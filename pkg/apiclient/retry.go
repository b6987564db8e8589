package apiclient

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

type noRetryKey struct{}

// withoutRetry marks ctx so the retry policy never repeats the request.
func withoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

// retryPolicy is the default policy, except that requests marked with
// withoutRetry are sent exactly once.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if v, _ := ctx.Value(noRetryKey{}).(bool); v {
		return false, err
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
