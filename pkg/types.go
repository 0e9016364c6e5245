package pkg

import "time"

// MessageRole describes who authored a chat message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// ChatMessage is one entry of a chat log. Entries are never modified once
// appended.
type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// ChatRequest carries a user message.
type ChatRequest struct {
	Content string `json:"content"`
}

// ChatMessageView is a chat message with its formatted body.
type ChatMessageView struct {
	ChatMessage
	HTML string `json:"html"`
}

// ChatSessionResponse is returned by the chat endpoints.
type ChatSessionResponse struct {
	SessionID string            `json:"session_id"`
	Pending   bool              `json:"pending"`
	Messages  []ChatMessageView `json:"messages"`
}

// SymptomRequest carries the free-text symptom description.
type SymptomRequest struct {
	Symptoms string `json:"symptoms"`
}

// SymptomResponse is the symptom checker answer. Department is empty when no
// automatic suggestion is available.
type SymptomResponse struct {
	Analysis     string `json:"analysis"`
	AnalysisHTML string `json:"analysis_html"`
	Department   string `json:"department"`
}

// DraftRequest opens a draft. An empty RecordID opens a blank "new" draft.
type DraftRequest struct {
	RecordID string `json:"record_id"`
}

// DraftFieldsRequest edits draft fields. Nil fields are left unchanged.
type DraftFieldsRequest struct {
	PatientID   *string `json:"patient_id"`
	PatientName *string `json:"patient_name"`
	Name        *string `json:"name"`
	OrderDate   *string `json:"order_date"`
	Status      *string `json:"status"`
	ResultText  *string `json:"result_text"`
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
