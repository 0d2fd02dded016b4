package i18n

// loadEnglishMessages loads all English translations
func loadEnglishMessages() {
	messages[LangEN] = map[string]string{
		// Common
		"app.name":        "Schoolwijzer",
		"app.description": "Your guide to school choice and enrollment",

		// Off-topic redirect (assembler short-circuit)
		"chat.offtopic_redirect": "I'm afraid I can't help with that. I'm here to answer your questions about schools, enrollment, and education. What can I help you with?",

		// Validation substitute
		"chat.validation_rejected": "Sorry, I couldn't come up with a good answer. Could you rephrase your question?",

		// Empty model response fallback
		"chat.empty_response": "Sorry, no answer came back. Please try asking your question again.",

		// Provider error taxonomy (one key per kind)
		"error.rate_limited": "It's very busy at the moment. Please wait a moment and try again.",
		"error.timeout":      "The response is taking too long. Please try again shortly.",
		"error.connection":   "Something went wrong. Please try again later.",
		"error.auth":         "There is a configuration problem. Please contact the administrator.",
		"error.provider":     "Something went wrong. Please try again later.",
	}
}
