package i18n

// loadDutchMessages loads all Dutch translations
func loadDutchMessages() {
	messages[LangNL] = map[string]string{
		// Common
		"app.name":        "Schoolwijzer",
		"app.description": "Jouw hulp bij schoolkeuze en inschrijving",

		// Off-topic redirect (assembler short-circuit)
		"chat.offtopic_redirect": "Daar kan ik je helaas niet mee helpen. Ik ben er om je vragen over scholen, inschrijven en onderwijs te beantwoorden. Waar kan ik je mee helpen?",

		// Validation substitute
		"chat.validation_rejected": "Sorry, ik kon geen goed antwoord formuleren. Kun je je vraag anders verwoorden?",

		// Empty model response fallback
		"chat.empty_response": "Sorry, er kwam geen antwoord terug. Probeer je vraag nog een keer te stellen.",

		// Provider error taxonomy (one key per kind)
		"error.rate_limited": "Het is op dit moment erg druk. Wacht even en probeer het dan opnieuw.",
		"error.timeout":      "Het antwoord duurt te lang. Probeer het zo nog een keer.",
		"error.connection":   "Er ging iets mis. Probeer het later opnieuw.",
		"error.auth":         "Er is een probleem met de configuratie. Neem contact op met de beheerder.",
		"error.provider":     "Er ging iets mis. Probeer het later opnieuw.",
	}
}
