// Package agent drives the multi-turn movie-matching dialogue. Each
// conversation owns one Agent instance; the language model either asks a
// clarifying question (suspending the session), resolves a search, or
// replies with plain text (terminating the session).
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/autogenz/movieai/ai"
	"github.com/autogenz/movieai/catalog"
	"github.com/autogenz/movieai/internal/metrics"
)

// Protocol errors terminate the session; they are never retried.
var (
	ErrNoToolCallNoText  = errors.New("llm response has neither tool call nor text")
	ErrNoPendingToolCall = errors.New("no pending tool call to answer")
	ErrToolCallMismatch  = errors.New("answered tool call id does not match the pending one")
	ErrSessionResolved   = errors.New("session already resolved")
)

// IsProtocolError reports whether err is a dialogue protocol violation,
// as opposed to an upstream failure such as an LLM transport error.
func IsProtocolError(err error) bool {
	for _, sentinel := range []error{ErrNoToolCallNoText, ErrNoPendingToolCall, ErrToolCallMismatch, ErrSessionResolved} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// EventType discriminates agent events.
type EventType string

const (
	// EventQuestion asks the user a clarifying question; the session is
	// suspended until Answer is called with the matching tool-call id.
	EventQuestion EventType = "question"
	// EventSearch carries the resolved search request; terminal.
	EventSearch EventType = "search"
	// EventMessage is a plain-text reply to the user; terminal.
	EventMessage EventType = "message"
)

// Event is the single outcome of one agent turn.
type Event struct {
	Type       EventType      `json:"type"`
	Question   string         `json:"question,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Message    string         `json:"message,omitempty"`
	Search     *SearchRequest `json:"search,omitempty"`
}

// SearchRequest is the structured search resolved by the dialogue.
type SearchRequest struct {
	Query           string   `json:"query"`
	Genres          []string `json:"genres,omitempty"`
	Cast            []string `json:"cast,omitempty"`
	Directors       []string `json:"directors,omitempty"`
	StartYear       int      `json:"start_year,omitempty"`
	EndYear         int      `json:"end_year,omitempty"`
	SuggestedTitles []string `json:"suggested_titles,omitempty"`
}

// Agent is the per-conversation state machine. Not safe for concurrent
// use; one conversation is a single logical flow.
type Agent struct {
	llm      ai.LLMService
	tools    []ai.ToolDescriptor
	locale   catalog.Locale
	id       string
	messages []ai.Message

	// pendingToolCallID is the id of the single outstanding clarifying
	// question, empty when none. At most one tool call is pending at a time.
	pendingToolCallID string
	resolved          bool
}

// New creates an agent for one conversation in the given locale.
func New(llm ai.LLMService, locale catalog.Locale) *Agent {
	return &Agent{
		llm:    llm,
		tools:  movieTools(),
		locale: locale,
		id:     shortuuid.New(),
		messages: []ai.Message{
			ai.SystemPrompt(systemPrompt(locale)),
		},
	}
}

// ID returns the session identifier.
func (a *Agent) ID() string {
	return a.id
}

// Run advances the dialogue with the user's latest input and returns the
// resulting event. A question event suspends the session; search and
// message events are terminal.
func (a *Agent) Run(ctx context.Context, userInput string) (*Event, error) {
	if a.resolved {
		return nil, ErrSessionResolved
	}
	if a.pendingToolCallID != "" {
		return nil, errors.Errorf("session %s has an unanswered question", a.id)
	}
	if userInput != "" {
		a.messages = append(a.messages, ai.UserMessage(userInput))
	}
	return a.loop(ctx)
}

// Answer supplies the user's reply to the pending clarifying question and
// resumes the dialogue. The tool-call id must match the outstanding one.
func (a *Agent) Answer(ctx context.Context, toolCallID, answer string) (*Event, error) {
	if a.pendingToolCallID == "" {
		return nil, ErrNoPendingToolCall
	}
	if toolCallID != a.pendingToolCallID {
		return nil, errors.Wrapf(ErrToolCallMismatch, "got %q, pending %q", toolCallID, a.pendingToolCallID)
	}

	payload, _ := json.Marshal(map[string]string{"answer": answer})
	a.messages = append(a.messages, ai.ToolResult(toolCallID, string(payload)))
	a.pendingToolCallID = ""

	return a.loop(ctx)
}

func (a *Agent) loop(ctx context.Context) (*Event, error) {
	resp, err := a.llm.ChatWithTools(ctx, a.messages, a.tools)
	if err != nil {
		return nil, fmt.Errorf("agent turn failed: %w", err)
	}

	switch {
	case len(resp.ToolCalls) > 0:
		a.messages = append(a.messages, ai.Message{
			Role:      "assistant",
			ToolCalls: resp.ToolCalls,
		})
		event, err := a.handleToolCall(resp.ToolCalls[0])
		if err != nil {
			return nil, err
		}
		metrics.AgentTurns.WithLabelValues(string(event.Type)).Inc()
		return event, nil

	case resp.Content != "":
		a.messages = append(a.messages, ai.AssistantMessage(resp.Content))
		a.resolved = true
		metrics.AgentTurns.WithLabelValues(string(EventMessage)).Inc()
		return &Event{Type: EventMessage, Message: resp.Content}, nil

	default:
		metrics.AgentTurns.WithLabelValues("protocol_error").Inc()
		return nil, ErrNoToolCallNoText
	}
}

func (a *Agent) handleToolCall(call ai.ToolCall) (*Event, error) {
	switch call.Function.Name {
	case toolAskQuestion:
		var args struct {
			Question string `json:"question"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, errors.Wrap(err, "malformed ask_user_question arguments")
		}
		a.pendingToolCallID = call.ID
		return &Event{Type: EventQuestion, Question: args.Question, ToolCallID: call.ID}, nil

	case toolSearchMovies:
		var args struct {
			Query       string   `json:"query"`
			Genres      []string `json:"genres"`
			Atmospheres []string `json:"atmospheres"`
			Cast        []string `json:"cast"`
			Directors   []string `json:"directors"`
			StartYear   int      `json:"start_year"`
			EndYear     int      `json:"end_year"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, errors.Wrap(err, "malformed search_movies_by_vector arguments")
		}
		a.resolved = true
		return &Event{Type: EventSearch, Search: &SearchRequest{
			Query:     expandAtmospheres(args.Query, args.Atmospheres),
			Genres:    args.Genres,
			Cast:      args.Cast,
			Directors: args.Directors,
			StartYear: args.StartYear,
			EndYear:   args.EndYear,
		}}, nil

	case toolSuggestTitles:
		var args struct {
			Titles []string `json:"titles"`
			Genres []string `json:"genres"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, errors.Wrap(err, "malformed suggest_movies arguments")
		}
		a.resolved = true
		return &Event{Type: EventSearch, Search: &SearchRequest{
			Genres:          args.Genres,
			SuggestedTitles: args.Titles,
		}}, nil

	default:
		slog.Warn("agent: unknown tool call", "session", a.id, "tool", call.Function.Name)
		return nil, errors.Errorf("unknown tool %q", call.Function.Name)
	}
}
