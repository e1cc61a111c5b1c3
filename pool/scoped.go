package pool

import "context"

// WithClient acquires the client for key, passes it to fn, and releases it on
// every exit path, including panics and fn errors. This is the recommended
// entry point for tool handlers; direct Get callers who forget to Release
// leak the refcount until a forced shutdown.
func (m *Manager) WithClient(ctx context.Context, key string, fn func(ctx context.Context, c Client) error) error {
	c, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	defer m.Release(key)
	return fn(ctx, c)
}
