package domain

import "strings"

type ProjectIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SpokenText is what a card reads aloud.
func (p ProjectIdea) SpokenText() string {
	return p.Title + ". " + p.Description
}

func (p ProjectIdea) Complete() bool {
	return strings.TrimSpace(p.Title) != "" && strings.TrimSpace(p.Description) != ""
}

// GenerationRequest is built per invocation and never retained. The locale is
// captured at construction, so later locale changes do not affect it.
type GenerationRequest struct {
	Passions string
	Skills   string
	Locale   Locale
}

// NewGenerationRequest trims the user input and rejects it with ErrEmptyInput
// when either field is blank.
func NewGenerationRequest(passions, skills string, locale Locale) (GenerationRequest, error) {
	passions = strings.TrimSpace(passions)
	skills = strings.TrimSpace(skills)
	if passions == "" || skills == "" {
		return GenerationRequest{}, ErrEmptyInput
	}
	if !locale.Valid() {
		locale = DefaultLocale
	}
	return GenerationRequest{
		Passions: passions,
		Skills:   skills,
		Locale:   locale,
	}, nil
}

// Field identifies a dictation target.
type Field string

const (
	FieldPassions Field = "passions"
	FieldSkills   Field = "skills"
)

func (f Field) Valid() bool {
	return f == FieldPassions || f == FieldSkills
}

// AppendTranscript joins dictated text onto an existing field value.
func AppendTranscript(current, transcript string) string {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return current
	}
	if current == "" {
		return transcript
	}
	return current + " " + transcript
}
