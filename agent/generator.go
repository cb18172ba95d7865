package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/autogenz/movieai/ai"
	"github.com/autogenz/movieai/catalog"
)

const titlesPerAttempt = 10

const titleGenPromptRu = `Ты подбираешь фильмы. Верни JSON-объект вида {"titles": ["Название 1", "Название 2"]} с точными оригинальными названиями фильмов, подходящих под запрос пользователя. До %d названий. Никогда не повторяй уже предложенные названия.`

const titleGenPromptEn = `You pick movies. Return a JSON object of the form {"titles": ["Title 1", "Title 2"]} with exact original titles of movies matching the user's request. Up to %d titles. Never repeat a title you already proposed.`

// TitleGenerator asks the LLM for batches of concrete titles matching a
// resolved search. Each batch excludes everything proposed so far, so
// repeated calls explore further into the taste cluster.
type TitleGenerator struct {
	llm      ai.LLMService
	messages []ai.Message
	proposed []string
}

func NewTitleGenerator(llm ai.LLMService, req *SearchRequest, locale catalog.Locale) *TitleGenerator {
	prompt := titleGenPromptRu
	if locale == catalog.LocaleEn {
		prompt = titleGenPromptEn
	}

	var sb strings.Builder
	sb.WriteString(req.Query)
	if len(req.Genres) > 0 {
		fmt.Fprintf(&sb, "\nGenres: %s", strings.Join(req.Genres, ", "))
	}
	if len(req.Cast) > 0 {
		fmt.Fprintf(&sb, "\nCast: %s", strings.Join(req.Cast, ", "))
	}
	if len(req.Directors) > 0 {
		fmt.Fprintf(&sb, "\nDirectors: %s", strings.Join(req.Directors, ", "))
	}
	if req.StartYear > 0 || req.EndYear > 0 {
		fmt.Fprintf(&sb, "\nYears: %d-%d", req.StartYear, req.EndYear)
	}

	return &TitleGenerator{
		llm: llm,
		messages: []ai.Message{
			ai.SystemPrompt(fmt.Sprintf(prompt, titlesPerAttempt)),
			ai.UserMessage(sb.String()),
		},
	}
}

type titleBatch struct {
	Titles []string `json:"titles"`
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// GenerateTitles runs one generation attempt and returns the parsed
// batch. Previously proposed titles are appended to the conversation so
// the model does not repeat itself.
func (g *TitleGenerator) GenerateTitles(ctx context.Context) ([]string, error) {
	messages := g.messages
	if len(g.proposed) > 0 {
		messages = append(messages, ai.UserMessage(
			"Already proposed, do not repeat: "+strings.Join(g.proposed, ", ")))
	}

	resp, err := g.llm.ChatWithTools(ctx, messages, nil)
	if err != nil {
		return nil, err
	}

	raw := jsonObjectPattern.FindString(resp.Content)
	if raw == "" {
		return nil, nil
	}
	var batch titleBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return nil, nil
	}

	titles := make([]string, 0, len(batch.Titles))
	for _, title := range batch.Titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		titles = append(titles, title)
		g.proposed = append(g.proposed, title)
	}
	return titles, nil
}
