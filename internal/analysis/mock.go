package analysis

import (
	"context"
	"strings"
	"time"
)

const summaryPrefixRunes = 30

// MockAnalyzer returns a fixed analysis that quotes the start of the
// conversation.
type MockAnalyzer struct {
	Now func() time.Time
}

func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{Now: time.Now}
}

func (m *MockAnalyzer) Mode() string { return ModeMock }

func (m *MockAnalyzer) Analyze(_ context.Context, req Request) (*Result, error) {
	text := []rune(strings.TrimSpace(req.ConversationText))
	if len(text) > summaryPrefixRunes {
		text = text[:summaryPrefixRunes]
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}

	return &Result{
		Summary: `대화 초반부를 보면 "` + string(text) + `..." 와 같은 흐름이 보입니다.`,
		KeyPoints: []string{
			"상대방의 입장을 이해하고 있음을 표현하는 것이 중요합니다",
			"명확하고 구체적인 의사소통이 필요합니다",
			"감정적 공감과 논리적 설명의 균형이 중요합니다",
		},
		SuggestedApproach: "먼저 상대방의 입장을 이해하고 있음을 표현한 후, 구체적인 해결 방안을 제시하는 것이 효과적입니다.",
		EmotionalContext:  "대화 전반에 걸쳐 상호 이해를 높이려는 의도가 느껴집니다.",
		PotentialIssues: []string{
			"감정적 표현이 부족할 수 있습니다",
			"명확한 해결책 제시가 필요할 수 있습니다",
		},
		Metadata: metadataFor(req, now()),
	}, nil
}

func metadataFor(req Request, at time.Time) Metadata {
	return Metadata{
		AnalyzedAt:       at.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		RelationshipType: req.RelationshipType,
		UserGoal:         req.UserGoal,
		ToneBaseline:     req.ToneBaseline,
	}
}
