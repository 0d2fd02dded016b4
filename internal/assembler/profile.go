package assembler

import "strings"

// Formality is the tone the assistant should use toward this user.
type Formality int

const (
	FormalityDefault Formality = iota
	FormalityInformal
	FormalityNeutral
	FormalityFormal
)

// formalityDirectives is the fixed mapping from formality level to
// instruction text. Tone is never derived from free text.
var formalityDirectives = map[Formality]string{
	FormalityInformal: "Spreek de gebruiker aan met je/jij, in een informele en toegankelijke toon.",
	FormalityNeutral:  "Gebruik een neutrale, vriendelijke toon.",
	FormalityFormal:   "Spreek de gebruiker aan met u, in een formele en zakelijke toon.",
}

// Profile holds the structured user-profile fields the assembler translates
// into natural-language directives. The zero value produces no directives.
type Profile struct {
	EducationLevel string   // e.g. "vmbo-t", "havo", "vwo"
	District       string   // Residential district, used for placement rules
	Interests      []string // Subjects or activities the student cares about
	Goals          []string // What the student wants to improve or achieve
	Formality      Formality
}

// Directives renders the profile as one system block. Empty fields are
// skipped; an entirely empty profile yields "".
func (p *Profile) Directives() string {
	if p == nil {
		return ""
	}

	var lines []string
	if p.EducationLevel != "" {
		lines = append(lines, "De leerling heeft schooladvies "+p.EducationLevel+". Stem voorbeelden en schoolsuggesties hierop af.")
	}
	if p.District != "" {
		lines = append(lines, "De leerling woont in "+p.District+". Houd rekening met voorrangsregels voor deze wijk.")
	}
	if len(p.Interests) > 0 {
		lines = append(lines, "Interesses van de leerling: "+strings.Join(p.Interests, ", ")+".")
	}
	if len(p.Goals) > 0 {
		lines = append(lines, "De leerling wil werken aan: "+strings.Join(p.Goals, ", ")+".")
	}
	if d, ok := formalityDirectives[p.Formality]; ok {
		lines = append(lines, d)
	}

	if len(lines) == 0 {
		return ""
	}
	return "Profiel van de gebruiker:\n" + strings.Join(lines, "\n")
}
