package chatbot

import (
	"strings"
	"unicode"
)

// DefaultChatTitle is used when no prompt word survives filtering.
const DefaultChatTitle = "New Conversation"

const (
	titleMaxWords = 4
	titleMaxChars = 35
	titleMinLen   = 4
)

var titleStopWords = map[string]struct{}{
	"what": {}, "how": {}, "when": {}, "where": {}, "why": {},
	"who": {}, "which": {}, "the": {}, "and": {}, "but": {},
	"for": {}, "with": {}, "a": {}, "an": {}, "is": {}, "are": {},
	"can": {}, "could": {}, "would": {}, "should": {},
}

// GenerateChatTitle derives a short display title from the first prompt of a
// conversation. Pure and deterministic: lowercase the prompt, drop short
// words, stop words and anything non-alphabetic, keep the first four
// survivors, title-case them and cut at 35 characters.
func GenerateChatTitle(prompt string) string {
	words := make([]string, 0, titleMaxWords)
	for _, raw := range strings.Fields(strings.ToLower(prompt)) {
		word := strings.TrimRightFunc(raw, func(r rune) bool {
			return unicode.IsPunct(r)
		})
		if len(word) < titleMinLen {
			continue
		}
		if _, stop := titleStopWords[word]; stop {
			continue
		}
		if !isAlphabetic(word) {
			continue
		}
		words = append(words, capitalize(word))
		if len(words) == titleMaxWords {
			break
		}
	}

	title := strings.Join(words, " ")
	if len(title) > titleMaxChars {
		title = title[:titleMaxChars]
	}
	if title == "" {
		return DefaultChatTitle
	}
	return title
}

// isAlphabetic admits ASCII letters only. Words are already lowercased, and
// keeping the title ASCII makes the 35-byte cut safe on rune boundaries.
func isAlphabetic(word string) bool {
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func capitalize(word string) string {
	return strings.ToUpper(word[:1]) + word[1:]
}
