package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockResponse configures a single reply from Mock.
type MockResponse struct {
	Content string
	Err     error
}

// Call records one Invoke on Mock.
type Call struct {
	System string
	Prompt string
}

// Mock is a scripted Generator for tests. Responses are returned in order;
// once exhausted, the last one repeats.
type Mock struct {
	mu        sync.Mutex
	responses []MockResponse
	next      int
	calls     []Call
	hook      func(Call)
}

// NewMock creates a mock with a sequence of responses.
func NewMock(responses ...MockResponse) *Mock {
	return &Mock{responses: responses}
}

// OnInvoke registers fn to run inside every Invoke before it returns.
func (m *Mock) OnInvoke(fn func(Call)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
}

// Invoke returns the next configured response.
func (m *Mock) Invoke(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	call := Call{System: system, Prompt: prompt}
	m.calls = append(m.calls, call)
	hook := m.hook

	if len(m.responses) == 0 {
		m.mu.Unlock()
		return "", fmt.Errorf("mock: no responses configured")
	}
	idx := m.next
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	} else {
		m.next++
	}
	resp := m.responses[idx]
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Content, nil
}

// Calls returns all invocations made so far.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Echo is the generator behind LLM_PROVIDER=mock. It serves local runs
// without credentials as well as tests, numbering drafts and quoting the
// prompt back.
type Echo struct {
	mu sync.Mutex
	n  int
}

// NewEcho creates an Echo generator.
func NewEcho() *Echo {
	return &Echo{}
}

// Invoke builds a deterministic draft from the prompt.
func (e *Echo) Invoke(_ context.Context, _ string, prompt string) (string, error) {
	e.mu.Lock()
	e.n++
	n := e.n
	e.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Draft %d\n\n", n)
	for _, line := range strings.Split(strings.TrimSpace(prompt), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
