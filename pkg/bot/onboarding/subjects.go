package onboarding

import "strings"

// SubjectOptions controls both the offered subjects and their display order.
// Code is what gets stored on the profile.
var SubjectOptions = []Subject{
	{Code: "maths", Label: "📐 Maths"},
	{Code: "english", Label: "📖 English"},
	{Code: "irish", Label: "☘️ Irish"},
	{Code: "biology", Label: "🧬 Biology"},
	{Code: "chemistry", Label: "⚗️ Chemistry"},
	{Code: "physics", Label: "🔭 Physics"},
	{Code: "french", Label: "🇫🇷 French"},
	{Code: "german", Label: "🇩🇪 German"},
	{Code: "spanish", Label: "🇪🇸 Spanish"},
	{Code: "history", Label: "🏛 History"},
	{Code: "geography", Label: "🌍 Geography"},
	{Code: "business", Label: "💼 Business"},
	{Code: "economics", Label: "📈 Economics"},
	{Code: "accounting", Label: "🧾 Accounting"},
}

type Subject struct {
	Code  string
	Label string
}

var subjectByCode = buildSubjectByCode()

func buildSubjectByCode() map[string]Subject {
	out := make(map[string]Subject, len(SubjectOptions))
	for _, option := range SubjectOptions {
		out[option.Code] = option
	}
	return out
}

func IsSupportedSubject(code string) bool {
	_, ok := subjectByCode[code]
	return ok
}

// LabelForSubject falls back to the raw name for subjects typed with
// /subjects.
func LabelForSubject(code string) string {
	option, ok := subjectByCode[strings.ToLower(code)]
	if !ok {
		return code
	}
	return option.Label
}
