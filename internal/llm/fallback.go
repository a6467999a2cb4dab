package llm

import (
	"fmt"
	"strings"
	"unicode"
)

var greetingWords = map[string]bool{
	"hello": true,
	"hi":    true,
	"hey":   true,
}

var setupPhrases = []string{"api key", "configure", "setup"}

const setupInstructions = `To enable full AI capabilities with OpenAI's ChatGPT:

1. Get an API key from https://platform.openai.com/api-keys
2. Create a .env file in the directory you start the server from
3. Add: OPENAI_API_KEY=your_actual_api_key_here
4. Restart the server

Optional configuration:
- OPENAI_MODEL=gpt-4 (for GPT-4, requires access)
- OPENAI_BASE_URL=your_custom_endpoint (for OpenAI-compatible endpoints)

Security note: the key stays on the server and is never sent to the browser.`

// FallbackResponse is the reply used when no model endpoint is available.
// It depends only on its arguments.
func FallbackResponse(assistant, prompt string) string {
	lower := strings.ToLower(prompt)

	// Whole words only: "this" is not "hi". Substring matching used to send
	// "this configure thing" to the greeting instead of the setup steps.
	if isGreeting(lower) {
		return fmt.Sprintf("Hello! I'm %s, your intelligent assistant. To enable full AI capabilities, "+
			"please configure your OpenAI API key in the environment variables. For now, I'm running in demo mode. "+
			"What can I help you with today?", assistant)
	}

	for _, phrase := range setupPhrases {
		if strings.Contains(lower, phrase) {
			return setupInstructions
		}
	}

	return fmt.Sprintf(`I'm currently running in demo mode. To unlock my full AI capabilities powered by OpenAI's ChatGPT, please configure your API key.

Your message: "%s"

I would normally provide a detailed, intelligent response here, but I need an OpenAI API key to access the language model. Once configured, I can help with coding, writing, analysis, creative projects, and much more!`, prompt)
}

// WelcomeMessage is the greeting shown in the conversation a session starts with.
func WelcomeMessage(assistant string, configured bool) string {
	if configured {
		return fmt.Sprintf("Hello! I'm %s, your advanced AI assistant powered by OpenAI's ChatGPT. "+
			"I'm here to help you with coding, creative projects, analysis, problem-solving, and much more. "+
			"What would you like to explore today?", assistant)
	}
	return fmt.Sprintf("Hello! I'm %s, your AI assistant. I'm currently running in demo mode. "+
		"To unlock my full capabilities with OpenAI's ChatGPT, please configure your API key. "+
		"What would you like to explore today?", assistant)
}

func isGreeting(lower string) bool {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if greetingWords[w] {
			return true
		}
	}
	return false
}
