package llm

import "context"

// MockCompleter for testing.
type MockCompleter struct {
	Response *Response
	Error    error
	// Func, when set, overrides Response/Error and receives each request.
	Func func(ctx context.Context, messages []Message) (*Response, error)

	Calls [][]Message
}

var _ Completer = (*MockCompleter)(nil)

func (m *MockCompleter) Complete(ctx context.Context, messages []Message) (*Response, error) {
	m.Calls = append(m.Calls, messages)
	if m.Func != nil {
		return m.Func(ctx, messages)
	}
	return m.Response, m.Error
}
