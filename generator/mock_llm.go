package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
// It answers every prompt with Lines sentences tagged with the label the prompt asks for.
type MockLLM struct {
	Lines int
}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	n := m.Lines
	if n <= 0 {
		n = 5
	}
	label := Objective
	if strings.Contains(prompt.User, "| "+string(Subjective)) {
		label = Subjective
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if label == Objective {
			sb.WriteString(fmt.Sprintf("Placeholder fact number %d was recorded in the archive. | %s\n", i+1, label))
		} else {
			sb.WriteString(fmt.Sprintf("I honestly think placeholder number %d is underrated. | %s\n", i+1, label))
		}
	}
	return sb.String(), nil
}
