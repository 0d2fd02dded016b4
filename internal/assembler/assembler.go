// Package assembler builds the provider-ready message list for one chat
// turn: policy preamble, profile directives, retrieved knowledge, bounded
// history, and the current user turn, in that order. It also runs the
// off-topic gate so clearly unrelated questions never reach the provider.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"schoolwijzer/internal/conversation"
	"schoolwijzer/internal/knowledge"
	"schoolwijzer/internal/provider"
)

// ErrOffTopic signals the short-circuit: the input is out of domain and the
// caller must answer with the static redirect instead of calling a provider.
var ErrOffTopic = errors.New("input is off-topic")

// DefaultHistoryWindow is the number of prior turns included per request
// when no window is configured. Error messages are excluded from the window.
const DefaultHistoryWindow = 10

// offTopicWordLimit is the word count at or below which input always passes
// the gate. Greetings and short follow-ups are assumed on-topic.
const offTopicWordLimit = 5

const policyPreamble = `Je bent Schoolwijzer, een assistent voor schoolkeuze en inschrijving in het voortgezet onderwijs.

Regels:
- Beantwoord alleen vragen over scholen, inschrijven, aanmelden, plaatsing, onderwijsniveaus en schoolkeuze.
- Baseer je antwoord uitsluitend op de aangeleverde context en het gesprek.
- Verzin geen regelingen, data of voorrangsregels.
- Weet je iets niet zeker, zeg dat dan expliciet en verwijs naar de school of de gemeente.
- Krijg je een vraag buiten dit onderwerp, verwijs dan vriendelijk terug naar schoolkeuze.`

const knowledgeInstruction = `Gebruik uitsluitend de onderstaande context om de vraag te beantwoorden. Staat het antwoord er niet in, zeg dan expliciet dat de informatie ontbreekt. Meng geen eigen kennis door de context.`

const noContextNotice = `Er is geen context gevonden voor deze vraag. Geef eerlijk aan dat je het antwoord niet zeker weet en verwijs waar mogelijk naar de school of de gemeente.`

const retrievalFailedNotice = `Het ophalen van context is mislukt. Geef eerlijk aan dat je het antwoord nu niet kunt onderbouwen en stel voor het later opnieuw te proberen.`

// Domain keywords that mark input as on-topic regardless of length.
var domainKeywords = []string{
	"school", "scholen", "inschrijv", "aanmeld", "onderwijs", "klas",
	"brugklas", "vmbo", "havo", "vwo", "gymnasium", "atheneum",
	"loting", "plaatsing", "voorrang", "wijk", "leerling", "docent",
	"open dag", "schooladvies", "niveau", "profiel", "leraar", "les",
}

// Blocklist of clearly unrelated topics. Only input that is longer than the
// word limit, matches none of the domain keywords, and hits one of these is
// short-circuited.
var offTopicBlocklist = []string{
	"weer", "voetbal", "recept", "koken", "film", "serie", "muziek",
	"vakantie", "bitcoin", "crypto", "aandelen", "politiek", "verkiezing",
	"auto", "benzine", "horoscoop", "loterij", "casino", "game",
}

// Assembler merges policy, profile, knowledge, and history into one
// provider-ready message list.
type Assembler struct {
	retriever knowledge.Retriever
	window    int
	logger    *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithHistoryWindow sets the number of prior messages included per request.
// Values below 1 keep the default.
func WithHistoryWindow(n int) Option {
	return func(a *Assembler) {
		if n >= 1 {
			a.window = n
		}
	}
}

// New creates an Assembler. retriever may not be nil.
func New(retriever knowledge.Retriever, logger *slog.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Assembler{
		retriever: retriever,
		window:    DefaultHistoryWindow,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the message list for input. Returns ErrOffTopic when the
// gate short-circuits; every other outcome produces a message list, even
// when retrieval fails.
func (a *Assembler) Assemble(ctx context.Context, conv *conversation.Conversation, profile *Profile, input string) ([]provider.Message, error) {
	if offTopic(input) {
		a.logger.Debug("off-topic gate short-circuit", "words", wordCount(input))
		return nil, fmt.Errorf("%w: %q", ErrOffTopic, input)
	}

	msgs := []provider.Message{
		{Role: provider.RoleSystem, Content: policyPreamble},
	}

	if directives := profile.Directives(); directives != "" {
		msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: directives})
	}

	msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: a.knowledgeBlock(ctx, input)})

	for _, m := range conv.Window(a.window) {
		role := provider.RoleUser
		if m.Role == conversation.RoleAssistant {
			role = provider.RoleAssistant
		}
		msgs = append(msgs, provider.Message{Role: role, Content: m.Content})
	}

	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: input})
	return msgs, nil
}

// knowledgeBlock queries the retriever and renders its outcome. The model
// is always told which of the three states applies: context found, no
// context, or retrieval failure.
func (a *Assembler) knowledgeBlock(ctx context.Context, input string) string {
	snip, err := a.retriever.Query(ctx, input)
	if err != nil {
		a.logger.Warn("knowledge retrieval failed", "error", err)
		return retrievalFailedNotice
	}
	if snip.Relevance <= 0 {
		return noContextNotice
	}
	return knowledgeInstruction + "\n\nContext:\n" + snip.Text
}

// offTopic implements the gate: short input passes, domain keywords pass,
// and only a blocklist hit on keyword-free long input short-circuits.
func offTopic(input string) bool {
	if wordCount(input) <= offTopicWordLimit {
		return false
	}

	lower := strings.ToLower(input)
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, blocked := range offTopicBlocklist {
		if strings.Contains(lower, blocked) {
			return true
		}
	}
	return false
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
