package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/autogenz/movieai/ai"
	"github.com/autogenz/movieai/catalog"
)

const rerankPromptRu = `Ты ранжируешь фильмы по соответствию запросу пользователя. Тебе даны запрос и нумерованный список фильмов. Выведи номера фильмов от наиболее к наименее подходящему, через запятую. Только номера, без пояснений.`

const rerankPromptEn = `You rank movies by how well they fit the user's request. Given the request and a numbered list of movies, output the movie numbers from best to worst fit, comma-separated. Numbers only, no explanations.`

// RerankStream orders candidate titles by fit to the query. Indices into
// titles are sent as soon as the model emits each number, so callers can
// surface the best matches before the model finishes. Every index is sent
// exactly once: whatever the model skips or garbles follows in the
// original order, and the channel always closes with all indices
// delivered (or the context cancelled).
func RerankStream(ctx context.Context, llm ai.LLMService, query string, titles []string, locale catalog.Locale) <-chan int {
	out := make(chan int)
	go func() {
		defer close(out)

		emitted := make([]bool, len(titles))
		emit := func(i int) bool {
			if i < 0 || i >= len(titles) || emitted[i] {
				return true
			}
			emitted[i] = true
			select {
			case out <- i:
				return true
			case <-ctx.Done():
				return false
			}
		}

		content, errs := llm.ChatStream(ctx, rerankMessages(query, titles, locale))

		var number strings.Builder
		flush := func() bool {
			if number.Len() == 0 {
				return true
			}
			n, err := strconv.Atoi(number.String())
			number.Reset()
			if err != nil {
				return true
			}
			return emit(n - 1) // the list shown to the model is 1-based
		}

		cancelled := false
		for chunk := range content {
			if cancelled {
				continue // drain so the producer can finish
			}
			for _, r := range chunk {
				if r >= '0' && r <= '9' {
					number.WriteRune(r)
					continue
				}
				if !flush() {
					cancelled = true
					break
				}
			}
		}
		if err := <-errs; err != nil {
			slog.Warn("rerank stream failed, keeping retrieval order", "error", err)
		}
		if cancelled || !flush() {
			return
		}

		for i := range titles {
			if !emit(i) {
				return
			}
		}
	}()
	return out
}

func rerankMessages(query string, titles []string, locale catalog.Locale) []ai.Message {
	prompt := rerankPromptRu
	requestLabel, moviesLabel := "Запрос", "Фильмы"
	if locale == catalog.LocaleEn {
		prompt = rerankPromptEn
		requestLabel, moviesLabel = "Request", "Movies"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n%s:\n", requestLabel, query, moviesLabel)
	for i, title := range titles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}

	return []ai.Message{
		ai.SystemPrompt(prompt),
		ai.UserMessage(b.String()),
	}
}
