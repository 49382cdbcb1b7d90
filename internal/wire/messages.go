// Package wire defines the WebSocket protocol of the condition editor.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
	"github.com/matthewbaird/condexpr/internal/options"
)

// ── Client → Server messages ────────────────────────────────────────────────

// Client message types.
const (
	TypeSelectEntity = "select_entity"
	TypeLoad         = "load"
	TypeAdd          = "add"
	TypeUpdate       = "update"
	TypeRemove       = "remove"
	TypeSetConnector = "set_connector"
	TypeClear        = "clear"
	TypeChoices      = "choices"
	TypeOptions      = "options"
	TypeValidate     = "validate"
	TypePing         = "ping"
)

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"` // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// SelectEntityData is the payload for "select_entity" messages.
type SelectEntityData struct {
	Entity string `json:"entity"`
}

// LoadData is the payload for "load" messages.
type LoadData struct {
	Entity     string `json:"entity"`
	Expression string `json:"expression"`
}

// AddData is the payload for "add" messages.
type AddData struct {
	Condition condition.Input `json:"condition"`
}

// UpdateData is the payload for "update" messages.
type UpdateData struct {
	ConditionID string          `json:"condition_id"`
	Condition   condition.Input `json:"condition"`
}

// RemoveData is the payload for "remove" messages.
type RemoveData struct {
	ConditionID string `json:"condition_id"`
}

// SetConnectorData is the payload for "set_connector" messages.
type SetConnectorData struct {
	ConditionID string `json:"condition_id"`
	Connector   string `json:"connector"`
}

// ChoicesData is the payload for "choices" messages.
type ChoicesData struct {
	Field string `json:"field"`
}

// OptionsData is the payload for "options" messages. Kind is one of
// "entities", "fields", "operators" or "values"; operators and values need
// Field.
type OptionsData struct {
	Kind     string             `json:"kind"`
	Field    string             `json:"field,omitempty"`
	Operator condition.Operator `json:"operator,omitempty"`
	Partial  string             `json:"partial,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// Server message types.
const (
	TypeSession    = "session"
	TypeState      = "state"
	TypeFields     = "fields"
	TypeValidation = "validation"
	TypeError      = "error"
	TypePong       = "pong"
)

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
	Resumed   bool   `json:"resumed"`
}

// FieldsData lists the selected entity's fields.
type FieldsData struct {
	Entity string                    `json:"entity"`
	Fields []catalog.FieldDescriptor `json:"fields"`
}

// ChoiceList carries a choice-list field's values.
type ChoiceList struct {
	Field   string           `json:"field"`
	Choices []catalog.Choice `json:"choices"`
}

// OptionList carries dropdown options.
type OptionList struct {
	Kind  string         `json:"kind"`
	Items []options.Item `json:"items"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
