// Package analysis validates conversation-analysis requests, runs an
// Analyzer and checks the reply shape before it is returned.
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
)

// ModeHeader tells clients whether a reply came from a mock or a real
// backend. It is informational only.
const ModeHeader = "X-AI-Mode"

const (
	ModeMock = "MOCK"
	ModeReal = "REAL"
)

// DefaultToneBaseline applies when the request omits toneBaseline.
const DefaultToneBaseline = "unknown"

const minConversationRunes = 5

var (
	RelationshipTypes = []string{"colleague", "friend", "family", "client", "partner", "other"}
	UserGoals         = []string{
		"reduce-misunderstanding",
		"apologize",
		"express-needs",
		"set-boundaries",
		"close-conversation",
		"understand-my-feelings",
	}
	ToneBaselines = []string{"formal", "casual", "professional", "friendly", "neutral", "unknown"}
)

// Request is a validated analysis request.
type Request struct {
	ConversationText string `json:"conversationText"`
	RelationshipType string `json:"relationshipType"`
	UserGoal         string `json:"userGoal"`
	ToneBaseline     string `json:"toneBaseline"`
}

// Metadata echoes the request classification back with the analysis time.
type Metadata struct {
	AnalyzedAt       string `json:"analyzedAt"`
	RelationshipType string `json:"relationshipType"`
	UserGoal         string `json:"userGoal"`
	ToneBaseline     string `json:"toneBaseline"`
}

// Result is the success body.
type Result struct {
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"keyPoints"`
	SuggestedApproach string   `json:"suggestedApproach,omitempty"`
	EmotionalContext  string   `json:"emotionalContext,omitempty"`
	PotentialIssues   []string `json:"potentialIssues,omitempty"`
	Metadata          Metadata `json:"metadata"`
}

// Error codes
const (
	CodeMissingField          = "MISSING_FIELD"
	CodeInvalidValue          = "INVALID_VALUE"
	CodeInvalidEnum           = "INVALID_ENUM"
	CodeParseError            = "PARSE_ERROR"
	CodeSchemaValidationError = "SCHEMA_VALIDATION_ERROR"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Error is the failure body. Status is the HTTP status it is sent with.
type Error struct {
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func missingField(field string) *Error {
	return &Error{Message: "필수 필드가 누락되었습니다: " + field, Field: field, Code: CodeMissingField, Status: http.StatusBadRequest}
}

func invalidValue(field, msg string) *Error {
	return &Error{Message: msg, Field: field, Code: CodeInvalidValue, Status: http.StatusBadRequest}
}

func invalidEnum(field string, value any) *Error {
	return &Error{Message: fmt.Sprintf("허용되지 않은 값입니다: %v", value), Field: field, Code: CodeInvalidEnum, Status: http.StatusBadRequest}
}

var (
	ErrParse            = &Error{Message: "요청 바디 파싱 실패", Code: CodeParseError, Status: http.StatusBadRequest}
	ErrSchemaValidation = &Error{Message: "응답 스키마 검증 실패", Code: CodeSchemaValidationError, Status: http.StatusInternalServerError}
	ErrInternal         = &Error{Message: "분석 처리 중 오류가 발생했습니다", Code: CodeInternalError, Status: http.StatusInternalServerError}
)

// ParseRequest decodes and validates body. Checks run in a fixed order:
// parse, conversationText presence then length, relationshipType and
// userGoal presence, then enum membership of relationshipType, userGoal and
// toneBaseline.
func ParseRequest(body []byte) (Request, *Error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Request{}, ErrParse
	}
	// the whole body must be one JSON value
	if _, err := dec.Token(); err != io.EOF {
		return Request{}, ErrParse
	}

	text, present := raw["conversationText"]
	if !present || text == nil {
		return Request{}, missingField("conversationText")
	}
	s, ok := text.(string)
	if !ok || len([]rune(strings.TrimSpace(s))) < minConversationRunes {
		return Request{}, invalidValue("conversationText", "대화 내용은 5자 이상 입력해주세요")
	}

	if isBlank(raw["relationshipType"]) {
		return Request{}, missingField("relationshipType")
	}
	if isBlank(raw["userGoal"]) {
		return Request{}, missingField("userGoal")
	}

	rel, ok := raw["relationshipType"].(string)
	if !ok || !slices.Contains(RelationshipTypes, rel) {
		return Request{}, invalidEnum("relationshipType", raw["relationshipType"])
	}
	goal, ok := raw["userGoal"].(string)
	if !ok || !slices.Contains(UserGoals, goal) {
		return Request{}, invalidEnum("userGoal", raw["userGoal"])
	}

	tone := DefaultToneBaseline
	if v := raw["toneBaseline"]; v != nil {
		t, ok := v.(string)
		if !ok || !slices.Contains(ToneBaselines, t) {
			return Request{}, invalidEnum("toneBaseline", v)
		}
		tone = t
	}

	return Request{ConversationText: s, RelationshipType: rel, UserGoal: goal, ToneBaseline: tone}, nil
}

// isBlank treats absent, null, empty-string, false and zero values as missing.
func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	}
	return false
}

// ValidateResult checks the reply shape: summary, keyPoints and every
// metadata field except toneBaseline must be present.
func ValidateResult(r *Result) bool {
	if r == nil || r.Summary == "" || r.KeyPoints == nil {
		return false
	}
	m := r.Metadata
	return m.AnalyzedAt != "" && m.RelationshipType != "" && m.UserGoal != ""
}
