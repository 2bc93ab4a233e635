package generator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLanguage is returned for a language code with no prompt template.
var ErrUnknownLanguage = errors.New("unknown language")

// DefaultSentencesPerCall is the per-request sentence count hint.
const DefaultSentencesPerCall = 50

// Prompt 表示发送给 LLM 的消息。
type Prompt struct {
	System string
	User   string
}

// languageNames maps supported language codes to the name used inside prompts.
var languageNames = map[string]string{
	"ar": "Arabic",
	"bg": "Bulgarian",
	"de": "German",
	"en": "English",
	"it": "Italian",
}

// Languages returns the supported language codes.
func Languages() []string {
	return []string{"ar", "bg", "de", "en", "it"}
}

// LanguageName returns the display name for a language code.
func LanguageName(code string) (string, error) {
	name, ok := languageNames[strings.ToLower(code)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	return name, nil
}

var labelGuidance = map[Label]struct {
	kind     string
	rules    []string
	examples []string
}{
	Objective: {
		kind: "objective",
		rules: []string{
			"Each sentence must state verifiable facts, statistics or attributed quotes.",
			"Use the neutral register of news reports or encyclopedias.",
			"Do not express opinions, judgments or emotions.",
		},
		examples: []string{
			"The Pacific Ocean is the largest and deepest of Earth's oceanic divisions.",
			"The European Union introduced new rules for digital services in 2024.",
		},
	},
	Subjective: {
		kind: "subjective",
		rules: []string{
			"Each sentence must express a personal opinion, evaluation or feeling.",
			"Use the register of opinion columns or blogs.",
			"Vary the viewpoints and the evaluative language.",
		},
		examples: []string{
			"Investing in education is clearly the wisest choice a developing country can make.",
			"That franchise has sadly devolved into nothing more than a cash grab.",
		},
	},
}

// BuildBatchPrompt 根据语言、标签和话题生成单批次提示词。
func BuildBatchPrompt(req GenerationRequest, perCall int) (Prompt, error) {
	lang, err := LanguageName(req.Language)
	if err != nil {
		return Prompt{}, err
	}
	guide, ok := labelGuidance[req.Label]
	if !ok {
		return Prompt{}, fmt.Errorf("no prompt for label %q", req.Label)
	}
	if perCall <= 0 {
		perCall = DefaultSentencesPerCall
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write %d %s sentences in %s", perCall, guide.kind, lang))
	if len(req.Topics) > 0 {
		sb.WriteString(" covering the following topics: ")
		sb.WriteString(strings.Join(req.Topics, ", "))
	}
	sb.WriteString(".\n\nRules:\n")
	for i, r := range guide.rules {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, r))
	}
	n := len(guide.rules)
	sb.WriteString(fmt.Sprintf("%d. Every sentence must stand on its own.\n", n+1))
	sb.WriteString(fmt.Sprintf("%d. End every sentence with: | %s\n", n+2, req.Label))
	sb.WriteString(fmt.Sprintf("%d. Put each sentence on its own line.\n", n+3))
	sb.WriteString("\nExamples (translate the style, not the content):\n")
	for _, ex := range guide.examples {
		sb.WriteString(fmt.Sprintf("%s | %s\n", ex, req.Label))
	}

	return Prompt{
		System: "You generate training data for a subjectivity classifier. Output only the sentences.",
		User:   sb.String(),
	}, nil
}

// PromptSpec is one entry of a fixed prompt list. An empty Label means the
// prompt asks for both labels in one response.
type PromptSpec struct {
	Name   string
	Label  Label
	Prompt Prompt
}

// EnglishPromptSet 返回英文固定提示词列表（基础、话题、风格、边界样例、混合领域）。
func EnglishPromptSet() []PromptSpec {
	mk := func(name string, label Label, count int, body string) PromptSpec {
		user := fmt.Sprintf("Generate %d %s\nLabel each statement as '%s' at the end.\nFormat: Statement | %s\n",
			count, body, label, label)
		return PromptSpec{Name: name, Label: label, Prompt: Prompt{User: user}}
	}
	return []PromptSpec{
		mk("basic-obj", Objective, 50, "objective statements that present verifiable facts, statistics, or direct quotations."),
		mk("basic-subj", Subjective, 50, "subjective statements that express opinions, judgments, or evaluations."),
		mk("policy-obj", Objective, 25, "objective statements about government, economics, and public policy without opinions."),
		mk("policy-subj", Subjective, 25, "subjective statements about government, economics, and public policy with clear opinions."),
		mk("journalistic-obj", Objective, 25, "objective statements using journalistic formats: statistics, attributions, event descriptions."),
		mk("rhetoric-subj", Subjective, 25, "subjective statements using rhetorical questions, value-laden adjectives, and collective 'we'."),
		mk("edge-subj", Subjective, 15, "statements that look objective but carry subtle subjective markers."),
		mk("edge-obj", Objective, 5, "statements that report others' opinions or cite facts that might be mistaken for opinions."),
		{
			Name: "domains-mixed",
			Prompt: Prompt{User: "Generate 30 statements equally distributed across politics, healthcare, economics, social issues and legal matters.\n" +
				"Make half of them objective statements labeled 'OBJ' and half subjective statements labeled 'SUBJ'.\n" +
				"Format each line as: Statement | LABEL (where LABEL is either OBJ or SUBJ)\n"},
		},
	}
}
