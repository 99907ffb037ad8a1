package translator

import "fmt"

const systemPrompt = "You are a translator. Only output the translated text - no explanations, no additional text, no quotes."

func createTranslationPrompt(content, source, target string) string {
	return fmt.Sprintf("Translate this %s text to %s: %s", source, target, content)
}
