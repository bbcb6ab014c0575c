// Package chat drives a tool-calling conversation with a completion model:
// the model is offered the full registered tool catalog, requested
// invocations are dispatched through the registry, and their results are fed
// back until the model answers without further tool requests.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"devops-pulse/internal/registry"

	"github.com/rs/zerolog/log"
)

// ErrLoopExceeded is returned when the conversation exceeds its round-trip
// bound. The history accumulated so far is returned alongside it for
// inspection.
var ErrLoopExceeded = errors.New("tool-invocation loop exceeded round-trip limit")

// Completer is the external completion model: given the conversation history
// and the tool catalog it returns either a final assistant message or one
// carrying requested tool invocations.
type Completer interface {
	Complete(ctx context.Context, history []Message, tools []registry.Tool) (*Message, error)
}

// Dispatcher is the subset of the tool registry the loop needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) (any, error)
	ListAllTools() []registry.Tool
}

type loopState int

const (
	stateAwaitModel loopState = iota
	stateExecuteTools
	stateDone
)

// Loop is the conversation state machine.
type Loop struct {
	completer     Completer
	dispatcher    Dispatcher
	maxRoundTrips int
}

// NewLoop creates a Loop. maxRoundTrips bounds the number of model turns;
// values below 1 fall back to 10.
func NewLoop(completer Completer, dispatcher Dispatcher, maxRoundTrips int) *Loop {
	if maxRoundTrips < 1 {
		maxRoundTrips = 10
	}
	return &Loop{completer: completer, dispatcher: dispatcher, maxRoundTrips: maxRoundTrips}
}

// Run executes the conversation until the model emits a final answer with no
// tool requests. The returned history always includes every assistant action
// and exactly one tool-result message per requested invocation id, so it
// stays consistent even when individual dispatches fail: a failed dispatch
// becomes a tool-result carrying the error text and the model may react to
// it on the next turn.
func (l *Loop) Run(ctx context.Context, history []Message) ([]Message, error) {
	tools := l.dispatcher.ListAllTools()

	state := stateAwaitModel
	trips := 0
	var pending []ToolCall

	for state != stateDone {
		switch state {
		case stateAwaitModel:
			if trips >= l.maxRoundTrips {
				return history, fmt.Errorf("%w (%d round-trips)", ErrLoopExceeded, trips)
			}
			trips++

			msg, err := l.completer.Complete(ctx, history, tools)
			if err != nil {
				return history, fmt.Errorf("model completion: %w", err)
			}

			// The assistant turn is appended before any execution so the
			// history is consistent even if a dispatch later fails.
			history = append(history, *msg)

			if len(msg.ToolCalls) == 0 {
				state = stateDone
				continue
			}
			pending = msg.ToolCalls
			state = stateExecuteTools

		case stateExecuteTools:
			for _, call := range pending {
				history = append(history, l.execute(ctx, call))
			}
			pending = nil
			state = stateAwaitModel
		}
	}

	return history, nil
}

// execute dispatches a single requested invocation and wraps its outcome as
// a tool-result message tied to the invocation id.
func (l *Loop) execute(ctx context.Context, call ToolCall) Message {
	result := Message{Role: "tool", ToolCallID: call.ID}

	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			result.Content = fmt.Sprintf("invalid tool arguments: %v", err)
			return result
		}
	}

	content, err := l.dispatcher.Dispatch(ctx, call.Function.Name, args)
	if err != nil {
		log.Warn().Err(err).Str("tool", call.Function.Name).Msg("Tool dispatch failed")
		result.Content = fmt.Sprintf("tool call failed: %v", err)
		return result
	}

	log.Debug().Str("tool", call.Function.Name).Msg("Tool call completed")
	result.Content = stringifyContent(content)
	return result
}

func stringifyContent(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
