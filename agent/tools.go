package agent

import "github.com/autogenz/movieai/ai"

// Tool names the language model may call. The schema is fixed: a
// clarifying question, a resolved vector search, or concrete title
// suggestions.
const (
	toolAskQuestion   = "ask_user_question"
	toolSearchMovies  = "search_movies_by_vector"
	toolSuggestTitles = "suggest_movies"
)

func movieTools() []ai.ToolDescriptor {
	return []ai.ToolDescriptor{
		{
			Name:        toolAskQuestion,
			Description: "Ask the user one short clarifying question about what kind of movie they want. Use when the request is too vague to search.",
			Parameters: `{
				"type": "object",
				"properties": {
					"question": {"type": "string", "description": "The question to ask the user, in the user's language."}
				},
				"required": ["question"]
			}`,
		},
		{
			Name:        toolSearchMovies,
			Description: "Run a semantic movie search once the user's taste is clear. Prefer a rich descriptive query over bare keywords.",
			Parameters: `{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Free-text description of the desired movie."},
					"genres": {"type": "array", "items": {"type": "string"}},
					"atmospheres": {"type": "array", "items": {"type": "string"}, "description": "Mood labels such as 'мрачный и атмосферный'."},
					"cast": {"type": "array", "items": {"type": "string"}},
					"directors": {"type": "array", "items": {"type": "string"}},
					"start_year": {"type": "integer"},
					"end_year": {"type": "integer"}
				},
				"required": ["query"]
			}`,
		},
		{
			Name:        toolSuggestTitles,
			Description: "Suggest up to five concrete movie titles matching the user's taste. Use when specific well-known movies fit better than a descriptive search.",
			Parameters: `{
				"type": "object",
				"properties": {
					"titles": {"type": "array", "items": {"type": "string"}, "description": "Concrete movie titles, original or localized."},
					"genres": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["titles"]
			}`,
		},
	}
}
