package telegram

var buttonText = map[string]string{
	"ru": "Открыть мини-приложение",
	"en": "Open Mini App",
}

var welcomeMessage = map[string]string{
	"ru": "🎬 *Добро пожаловать в MovieAI!*\n\n" +
		"Подберите фильм по описанию, настроению или жанру — с помощью приложения.\n\n" +
		"Отправьте /help, чтобы узнать обо всех возможностях.\n\n" +
		"Нажмите кнопку ниже, чтобы начать.\n\n",
	"en": "🎬 *Welcome to MovieAI!*\n\n" +
		"Find a movie by description, mood, or genre — using the app.\n\n" +
		"Send /help to learn all the features.\n\n" +
		"Tap the button below to get started.\n\n",
}

var helpMessage = map[string]string{
	"ru": "❓ *Что умеет MovieAI*\n\n" +
		"Вы можете выбрать удобный способ поиска фильмов:\n" +
		"•  По жанру, атмосфере, году и другим фильтрам\n" +
		"•  По вашему описанию — в интерактивном чате\n" +
		"•  По понравившемуся фильму — найдёт похожие\n\n" +
		"❤️ В подборе — добавляйте фильмы в избранное, чтобы не потерять лучшие находки.\n\n" +
		"У вас есть идея, вопрос или предложение? \nПросто напишите в сообщении боту — он всё читает!\n\n" +
		"Нажмите /start, чтобы открыть мини-приложение\n\n",
	"en": "❓ *What MovieAI can do*\n\n" +
		"You can search for movies in a way that suits you:\n" +
		"• By genre, atmosphere, year, and other filters\n" +
		"• By your description — in an interactive chat\n" +
		"• By similar movies — find more like the ones you like\n\n" +
		"❤️ In matching — add movies to your favorites so you don't lose great finds.\n\n" +
		"Have an idea, question, or suggestion?\nJust send a message — we read everything!\n\n" +
		"Tap /start to open the mini-app\n\n",
}

var feedbackMessage = map[string]string{
	"ru": "Спасибо за обратную связь! Мы всё учтём 🙌",
	"en": "Thanks for the feedback! We'll take it into account 🙌",
}
