package chat

import (
	"context"
	"errors"
	"testing"

	"devops-pulse/internal/registry"
)

type scriptedCompleter struct {
	turns []Message
	calls int
}

func (s *scriptedCompleter) Complete(ctx context.Context, history []Message, tools []registry.Tool) (*Message, error) {
	if s.calls >= len(s.turns) {
		return nil, errors.New("no scripted turn left")
	}
	msg := s.turns[s.calls]
	s.calls++
	return &msg, nil
}

type mockDispatcher struct {
	tools    []registry.Tool
	dispatch func(ctx context.Context, name string, args map[string]any) (any, error)
}

func (m *mockDispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	if m.dispatch != nil {
		return m.dispatch(ctx, name, args)
	}
	return nil, nil
}

func (m *mockDispatcher) ListAllTools() []registry.Tool { return m.tools }

func toolCallMsg(calls ...ToolCall) Message {
	return Message{Role: "assistant", ToolCalls: calls}
}

func TestLoop_FinalAnswerWithoutTools(t *testing.T) {
	completer := &scriptedCompleter{turns: []Message{
		{Role: "assistant", Content: "done"},
	}}
	loop := NewLoop(completer, &mockDispatcher{}, 5)

	history, err := loop.Run(context.Background(), []Message{UserMessage("hi")})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[1].Content != "done" {
		t.Errorf("final message = %+v", history[1])
	}
}

func TestLoop_ExecutesRequestedTools(t *testing.T) {
	completer := &scriptedCompleter{turns: []Message{
		toolCallMsg(
			ToolCall{ID: "call-1", Type: "function", Function: FunctionCall{Name: "list_sprints", Arguments: `{"project":"VAIDMS"}`}},
			ToolCall{ID: "call-2", Type: "function", Function: FunctionCall{Name: "list_prs", Arguments: `{}`}},
		),
		{Role: "assistant", Content: "here you go"},
	}}

	var dispatched []string
	d := &mockDispatcher{
		dispatch: func(ctx context.Context, name string, args map[string]any) (any, error) {
			dispatched = append(dispatched, name)
			return map[string]any{"tool": name}, nil
		},
	}

	loop := NewLoop(completer, d, 5)
	history, err := loop.Run(context.Background(), []Message{UserMessage("metrics please")})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// user, assistant(tool calls), 2 tool results, final assistant
	if len(history) != 5 {
		t.Fatalf("expected 5 messages, got %d: %+v", len(history), history)
	}
	if len(dispatched) != 2 {
		t.Errorf("dispatched = %v", dispatched)
	}

	// Exactly one tool-result per invocation id, in request order.
	if history[2].Role != "tool" || history[2].ToolCallID != "call-1" {
		t.Errorf("first result = %+v", history[2])
	}
	if history[3].Role != "tool" || history[3].ToolCallID != "call-2" {
		t.Errorf("second result = %+v", history[3])
	}
	if history[4].Content != "here you go" {
		t.Errorf("final = %+v", history[4])
	}
}

func TestLoop_DispatchFailureRecordedNotFatal(t *testing.T) {
	completer := &scriptedCompleter{turns: []Message{
		toolCallMsg(ToolCall{ID: "call-1", Function: FunctionCall{Name: "broken", Arguments: `{}`}}),
		{Role: "assistant", Content: "sorry about that"},
	}}

	d := &mockDispatcher{
		dispatch: func(ctx context.Context, name string, args map[string]any) (any, error) {
			return nil, errors.New("connection reset")
		},
	}

	loop := NewLoop(completer, d, 5)
	history, err := loop.Run(context.Background(), []Message{UserMessage("go")})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	result := history[2]
	if result.Role != "tool" || result.ToolCallID != "call-1" {
		t.Fatalf("tool result = %+v", result)
	}
	if result.Content == "" {
		t.Error("expected error text in tool result")
	}
	if history[len(history)-1].Content != "sorry about that" {
		t.Error("model did not get a chance to react")
	}
}

func TestLoop_InvalidArgumentsRecorded(t *testing.T) {
	completer := &scriptedCompleter{turns: []Message{
		toolCallMsg(ToolCall{ID: "call-1", Function: FunctionCall{Name: "x", Arguments: `{not json`}}),
		{Role: "assistant", Content: "ok"},
	}}

	dispatched := false
	d := &mockDispatcher{
		dispatch: func(ctx context.Context, name string, args map[string]any) (any, error) {
			dispatched = true
			return nil, nil
		},
	}

	loop := NewLoop(completer, d, 5)
	history, err := loop.Run(context.Background(), []Message{UserMessage("go")})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if dispatched {
		t.Error("malformed arguments must not reach dispatch")
	}
	if history[2].ToolCallID != "call-1" || history[2].Content == "" {
		t.Errorf("expected error result, got %+v", history[2])
	}
}

func TestLoop_RoundTripLimit(t *testing.T) {
	// The model keeps requesting tools forever.
	endless := make([]Message, 10)
	for i := range endless {
		endless[i] = toolCallMsg(ToolCall{ID: "c", Function: FunctionCall{Name: "t", Arguments: `{}`}})
	}
	completer := &scriptedCompleter{turns: endless}

	loop := NewLoop(completer, &mockDispatcher{}, 3)
	history, err := loop.Run(context.Background(), []Message{UserMessage("go")})
	if !errors.Is(err, ErrLoopExceeded) {
		t.Fatalf("expected ErrLoopExceeded, got %v", err)
	}
	// Conversation state is preserved for inspection.
	if len(history) == 0 {
		t.Error("expected accumulated history alongside the error")
	}
	if completer.calls != 3 {
		t.Errorf("completer called %d times, want 3", completer.calls)
	}
}

func TestLoop_ContentStringification(t *testing.T) {
	completer := &scriptedCompleter{turns: []Message{
		toolCallMsg(ToolCall{ID: "c1", Function: FunctionCall{Name: "t", Arguments: `{}`}}),
		{Role: "assistant", Content: "fin"},
	}}

	d := &mockDispatcher{
		dispatch: func(ctx context.Context, name string, args map[string]any) (any, error) {
			return []any{map[string]any{"type": "text", "text": "raw"}}, nil
		},
	}

	loop := NewLoop(completer, d, 5)
	history, err := loop.Run(context.Background(), []Message{UserMessage("go")})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if history[2].Content != `[{"text":"raw","type":"text"}]` {
		t.Errorf("stringified content = %q", history[2].Content)
	}
}
