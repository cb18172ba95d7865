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

// streamingLLM replays canned stream chunks, then the given error.
type streamingLLM struct {
	chunks []string
	err    error
}

func (s *streamingLLM) ChatWithTools(_ context.Context, _ []ai.Message, _ []ai.ToolDescriptor) (*ai.ChatResponse, error) {
	return nil, errors.New("not scripted")
}

func (s *streamingLLM) ChatStream(_ context.Context, _ []ai.Message) (<-chan string, <-chan error) {
	content := make(chan string, len(s.chunks))
	errCh := make(chan error, 1)
	for _, c := range s.chunks {
		content <- c
	}
	close(content)
	errCh <- s.err
	return content, errCh
}

func collectOrder(t *testing.T, order <-chan int) []int {
	t.Helper()
	var out []int
	for i := range order {
		out = append(out, i)
	}
	return out
}

func TestRerankStream_ReordersAndAppendsRemainder(t *testing.T) {
	titles := []string{"Солярис", "Сталкер", "Зеркало"}
	llm := &streamingLLM{chunks: []string{"3, 1"}}

	order := collectOrder(t, RerankStream(context.Background(), llm, "медитативная фантастика", titles, catalog.LocaleRu))

	assert.Equal(t, []int{2, 0, 1}, order)
}

func TestRerankStream_NumbersSplitAcrossChunks(t *testing.T) {
	titles := make([]string, 12)
	for i := range titles {
		titles[i] = "t"
	}
	// "2", then "10" arriving as "1" + "0", then "1" closed by end of stream.
	llm := &streamingLLM{chunks: []string{"2, 1", "0, 1"}}

	order := collectOrder(t, RerankStream(context.Background(), llm, "q", titles, catalog.LocaleRu))

	require.GreaterOrEqual(t, len(order), 3)
	assert.Equal(t, []int{1, 9, 0}, order[:3])
	assert.Len(t, order, len(titles), "every index is delivered exactly once")
}

func TestRerankStream_IgnoresDuplicatesAndOutOfRange(t *testing.T) {
	titles := []string{"a", "b", "c"}
	llm := &streamingLLM{chunks: []string{"1, 1, 99, 3"}}

	order := collectOrder(t, RerankStream(context.Background(), llm, "q", titles, catalog.LocaleRu))

	assert.Equal(t, []int{0, 2, 1}, order)
}

func TestRerankStream_FallsBackToOriginalOrderOnError(t *testing.T) {
	titles := []string{"a", "b", "c"}
	llm := &streamingLLM{err: errors.New("stream broke")}

	order := collectOrder(t, RerankStream(context.Background(), llm, "q", titles, catalog.LocaleRu))

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestRerankMessages_NumbersTitlesForLocale(t *testing.T) {
	messages := rerankMessages("dark sci-fi", []string{"Solaris", "Stalker"}, catalog.LocaleEn)

	require.Len(t, messages, 2)
	assert.Equal(t, rerankPromptEn, messages[0].Content)
	assert.Contains(t, messages[1].Content, "Request: dark sci-fi")
	assert.Contains(t, messages[1].Content, "1. Solaris")
	assert.Contains(t, messages[1].Content, "2. Stalker")
}
