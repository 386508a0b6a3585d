package questions

import "github.com/kai9kono/Kuiz/internal/engine"

// SampleQuestions seeds a playable bank when no database is configured.
func SampleQuestions() []engine.Question {
	return []engine.Question{
		{ID: 1, Text: "What is the capital of Japan?", Answer: "Tokyo"},
		{ID: 2, Text: "What is the largest planet in the solar system?", Answer: "Jupiter"},
		{ID: 3, Text: "Which language is the Go standard library written in?", Answer: "Go"},
		{ID: 4, Text: "How many prefectures does Japan have?", Answer: "47"},
		{ID: 5, Text: "What is the chemical symbol for gold?", Answer: "Au"},
		{ID: 6, Text: "Which ocean lies between Japan and the United States?", Answer: "Pacific"},
		{ID: 7, Text: "What is the tallest mountain in Japan?", Answer: "Mount Fuji"},
		{ID: 8, Text: "What year did the first Shinkansen run?", Answer: "1964"},
		{ID: 9, Text: "What is the smallest prime number?", Answer: "2"},
		{ID: 10, Text: "Which planet is known as the red planet?", Answer: "Mars"},
	}
}
