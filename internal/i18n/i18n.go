// Package i18n holds the user-facing message tables for schoolwijzer.
//
// All text that can end up inside an assistant message (error notices,
// the off-topic redirect, the validation substitute) lives here so the
// error taxonomy maps 1:1 onto localized strings.
package i18n

import (
	"fmt"
	"os"
	"strings"
)

// Supported languages. Dutch is the product default.
const (
	LangNL = "nl"
	LangEN = "en"
)

// currentLang holds the current language setting
var currentLang = LangNL

// messages stores all translations
var messages = make(map[string]map[string]string)

// Init initializes the i18n system with the specified language.
func Init(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))

	switch lang {
	case "nl", "nl-nl", "dutch", "nederlands":
		currentLang = LangNL
	case "en", "en-us", "english":
		currentLang = LangEN
	default:
		if envLang := os.Getenv("SCHOOLWIJZER_LANG"); envLang != "" && !strings.EqualFold(envLang, lang) {
			Init(envLang)
			return
		}
		currentLang = LangNL
	}

	loadMessages()
}

// SetLanguage changes the current language.
func SetLanguage(lang string) {
	Init(lang)
}

// GetLanguage returns the current language.
func GetLanguage() string {
	return currentLang
}

// T returns the translated message for the given key.
// Falls back to Dutch, then to the key itself.
func T(key string) string {
	if msg, ok := messages[currentLang][key]; ok {
		return msg
	}

	if msg, ok := messages[LangNL][key]; ok {
		return msg
	}

	return key
}

// Sprintf returns the translated and formatted message.
func Sprintf(key string, args ...any) string {
	return fmt.Sprintf(T(key), args...)
}

// loadMessages initializes the message maps.
func loadMessages() {
	messages[LangNL] = make(map[string]string)
	messages[LangEN] = make(map[string]string)

	loadDutchMessages()
	loadEnglishMessages()
}

// GetSupportedLanguages returns a list of supported language codes.
func GetSupportedLanguages() []string {
	return []string{LangNL, LangEN}
}

// IsLanguageSupported checks if a language is supported.
func IsLanguageSupported(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, supported := range GetSupportedLanguages() {
		if strings.EqualFold(lang, supported) {
			return true
		}
	}
	return false
}

func init() {
	if envLang := os.Getenv("SCHOOLWIJZER_LANG"); envLang != "" {
		Init(envLang)
	} else {
		Init(LangNL)
	}
}
