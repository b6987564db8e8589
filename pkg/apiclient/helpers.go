package apiclient

import "context"

// getResource fetches a single resource by path.
func getResource[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var result T
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// postAction triggers a body-less action and decodes its result.
func postAction[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var result T
	if err := c.post(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
