package agent

import (
	"strings"

	"github.com/autogenz/movieai/catalog"
)

const systemPromptRu = `Ты — подборщик фильмов MovieAI. Твоя задача — понять вкус пользователя и запустить поиск.

Правила:
- Если запрос расплывчатый, задай ОДИН уточняющий вопрос через ask_user_question. Не задавай больше двух вопросов за диалог.
- Когда вкус понятен, вызови search_movies_by_vector с подробным описанием, жанрами и диапазоном лет.
- Если пользователю подойдут конкретные известные фильмы, вызови suggest_movies со списком названий.
- Отвечай текстом только если пользователь спрашивает не про подбор фильмов.`

const systemPromptEn = `You are MovieAI, a movie matchmaker. Your job is to understand the user's taste and launch a search.

Rules:
- If the request is vague, ask ONE clarifying question via ask_user_question. Never ask more than two questions per conversation.
- Once the taste is clear, call search_movies_by_vector with a rich description, genres, and a year range.
- If a few specific well-known movies fit best, call suggest_movies with their titles.
- Reply with plain text only when the user asks about something other than movie matching.`

func systemPrompt(locale catalog.Locale) string {
	if locale == catalog.LocaleEn {
		return systemPromptEn
	}
	return systemPromptRu
}

// atmosphereDescriptions expands mood labels into descriptive query text.
// The labels are what the model emits; the values are what embeds well.
var atmosphereDescriptions = map[string]string{
	"про любовь":               "история о сильных чувствах, романтических отношениях и эмоциональной близости между героями",
	"душевный и трогательный":  "добрый эмоциональный фильм, заставляющий переживать за героев, с тёплой неспешной атмосферой",
	"динамичный и напряжённый": "интенсивная захватывающая история с быстрым развитием событий, экшеном и сильным напряжением",
	"жизнеутверждающий":        "вдохновляющий фильм о надежде, вере в добро и преодолении трудностей",
	"мрачный и атмосферный":    "сюжет с гнетущей тёмной атмосферой, элементами драмы, нуара, триллера или хоррора",
	"сюрреалистичный":          "необычный абстрактный фильм, напоминающий сон или философскую притчу, с символизмом и абсурдом",
	"психологический":          "глубокий фильм, исследующий внутренний мир персонажей, их страхи и травмы, с плотной тревожной атмосферой",
	"медитативный":             "спокойный созерцательный фильм с минимумом диалогов и визуально насыщенными сценами",
	"депрессивный":             "мрачная тяжёлая история об одиночестве, утрате и безысходности",

	"about love":            "a story of strong feelings, romance, and emotional intimacy between the leads",
	"touching":              "a kind emotional film with a warm unhurried atmosphere that makes you root for the characters",
	"dynamic and intense":   "an intense gripping story with fast pacing, action, and high tension",
	"uplifting":             "an inspiring film about hope, belief in good, and overcoming hardship",
	"dark and atmospheric":  "a plot with an oppressive dark atmosphere, elements of drama, noir, thriller, or horror",
	"surreal":               "an unusual abstract film resembling a dream or a philosophical parable, full of symbolism",
	"psychological":         "a deep film exploring the characters' inner world, fears, and traumas, with a dense anxious atmosphere",
	"meditative":            "a calm contemplative film with sparse dialogue and visually rich scenes",
	"depressive":            "a bleak heavy story about loneliness, loss, and hopelessness",
}

// expandAtmospheres appends the descriptive text of known mood labels to
// the query so they contribute to the embedding. Unknown labels are kept
// verbatim; they still carry signal.
func expandAtmospheres(query string, atmospheres []string) string {
	if len(atmospheres) == 0 {
		return query
	}
	parts := make([]string, 0, len(atmospheres)+1)
	if query != "" {
		parts = append(parts, query)
	}
	for _, a := range atmospheres {
		key := strings.ToLower(strings.TrimSpace(a))
		if desc, ok := atmosphereDescriptions[key]; ok {
			parts = append(parts, desc)
		} else if key != "" {
			parts = append(parts, key)
		}
	}
	return strings.Join(parts, ", ")
}
