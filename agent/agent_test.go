package agent

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogenz/movieai/ai"
	"github.com/autogenz/movieai/catalog"
)

// scriptedLLM replays canned responses in order.
type scriptedLLM struct {
	responses []*ai.ChatResponse
	calls     int
}

func (s *scriptedLLM) ChatWithTools(_ context.Context, _ []ai.Message, _ []ai.ToolDescriptor) (*ai.ChatResponse, error) {
	if s.calls >= len(s.responses) {
		return nil, errors.New("no scripted response left")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedLLM) ChatStream(_ context.Context, _ []ai.Message) (<-chan string, <-chan error) {
	content := make(chan string)
	errCh := make(chan error, 1)
	close(content)
	return content, errCh
}

func questionCall(id, question string) *ai.ChatResponse {
	return &ai.ChatResponse{ToolCalls: []ai.ToolCall{{
		ID:   id,
		Type: "function",
		Function: ai.FunctionCall{
			Name:      toolAskQuestion,
			Arguments: `{"question": "` + question + `"}`,
		},
	}}}
}

func searchCall(query string) *ai.ChatResponse {
	return &ai.ChatResponse{ToolCalls: []ai.ToolCall{{
		ID:   "call-search",
		Type: "function",
		Function: ai.FunctionCall{
			Name:      toolSearchMovies,
			Arguments: `{"query": "` + query + `", "genres": ["драма"], "start_year": 2000, "end_year": 2020}`,
		},
	}}}
}

func TestAgent_QuestionThenSearch(t *testing.T) {
	llm := &scriptedLLM{responses: []*ai.ChatResponse{
		questionCall("call-1", "Какое настроение?"),
		searchCall("мрачная космическая драма"),
	}}
	a := New(llm, catalog.LocaleRu)

	event, err := a.Run(context.Background(), "посоветуй фильм")
	require.NoError(t, err)
	require.Equal(t, EventQuestion, event.Type)
	assert.Equal(t, "call-1", event.ToolCallID)
	assert.Equal(t, "Какое настроение?", event.Question)

	event, err = a.Answer(context.Background(), "call-1", "мрачное")
	require.NoError(t, err)
	require.Equal(t, EventSearch, event.Type)
	require.NotNil(t, event.Search)
	assert.Equal(t, "мрачная космическая драма", event.Search.Query)
	assert.Equal(t, []string{"драма"}, event.Search.Genres)
	assert.Equal(t, 2000, event.Search.StartYear)
	assert.Equal(t, 2020, event.Search.EndYear)
}

func TestAgent_AnswerWithoutPendingQuestion(t *testing.T) {
	a := New(&scriptedLLM{}, catalog.LocaleRu)

	_, err := a.Answer(context.Background(), "call-1", "да")
	assert.ErrorIs(t, err, ErrNoPendingToolCall)
}

func TestAgent_AnswerWithWrongID(t *testing.T) {
	llm := &scriptedLLM{responses: []*ai.ChatResponse{
		questionCall("call-1", "Жанр?"),
	}}
	a := New(llm, catalog.LocaleRu)

	_, err := a.Run(context.Background(), "подбери фильм")
	require.NoError(t, err)

	_, err = a.Answer(context.Background(), "call-other", "комедия")
	assert.ErrorIs(t, err, ErrToolCallMismatch)
}

func TestAgent_AtMostOnePendingQuestion(t *testing.T) {
	llm := &scriptedLLM{responses: []*ai.ChatResponse{
		questionCall("call-1", "Жанр?"),
		questionCall("call-2", "Год?"),
	}}
	a := New(llm, catalog.LocaleRu)

	_, err := a.Run(context.Background(), "подбери фильм")
	require.NoError(t, err)

	// A second Run without an intervening answer must be rejected.
	_, err = a.Run(context.Background(), "ещё что-то")
	require.Error(t, err)

	event, err := a.Answer(context.Background(), "call-1", "комедия")
	require.NoError(t, err)
	assert.Equal(t, EventQuestion, event.Type)
	assert.Equal(t, "call-2", event.ToolCallID)
}

func TestAgent_PlainTextIsTerminal(t *testing.T) {
	llm := &scriptedLLM{responses: []*ai.ChatResponse{
		{Content: "Я подбираю только фильмы."},
	}}
	a := New(llm, catalog.LocaleRu)

	event, err := a.Run(context.Background(), "какая погода?")
	require.NoError(t, err)
	assert.Equal(t, EventMessage, event.Type)
	assert.Equal(t, "Я подбираю только фильмы.", event.Message)

	_, err = a.Run(context.Background(), "а всё же")
	assert.ErrorIs(t, err, ErrSessionResolved)
}

func TestAgent_ProtocolError(t *testing.T) {
	llm := &scriptedLLM{responses: []*ai.ChatResponse{{}}}
	a := New(llm, catalog.LocaleRu)

	_, err := a.Run(context.Background(), "подбери фильм")
	assert.ErrorIs(t, err, ErrNoToolCallNoText)
}

func TestAgent_SuggestTitlesResolves(t *testing.T) {
	llm := &scriptedLLM{responses: []*ai.ChatResponse{
		{ToolCalls: []ai.ToolCall{{
			ID:   "call-s",
			Type: "function",
			Function: ai.FunctionCall{
				Name:      toolSuggestTitles,
				Arguments: `{"titles": ["Интерстеллар", "Гравитация"], "genres": ["фантастика"]}`,
			},
		}}},
	}}
	a := New(llm, catalog.LocaleRu)

	event, err := a.Run(context.Background(), "что-то как Марсианин")
	require.NoError(t, err)
	require.Equal(t, EventSearch, event.Type)
	assert.Equal(t, []string{"Интерстеллар", "Гравитация"}, event.Search.SuggestedTitles)
	assert.Equal(t, []string{"фантастика"}, event.Search.Genres)
}

func TestIsProtocolError(t *testing.T) {
	assert.True(t, IsProtocolError(ErrNoToolCallNoText))
	assert.True(t, IsProtocolError(ErrNoPendingToolCall))
	assert.True(t, IsProtocolError(ErrSessionResolved))
	// Wrapped sentinels still count.
	assert.True(t, IsProtocolError(errors.Wrap(ErrToolCallMismatch, "turn failed")))

	assert.False(t, IsProtocolError(errors.New("connection reset")))
	assert.False(t, IsProtocolError(nil))
}

func TestExpandAtmospheres(t *testing.T) {
	expanded := expandAtmospheres("космическая драма", []string{"мрачный и атмосферный"})
	assert.Contains(t, expanded, "космическая драма")
	assert.Contains(t, expanded, "гнетущей")

	// Unknown labels are kept verbatim.
	kept := expandAtmospheres("драма", []string{"неизвестное настроение"})
	assert.Contains(t, kept, "неизвестное настроение")
}
