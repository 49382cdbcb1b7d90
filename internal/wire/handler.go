package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
	"github.com/matthewbaird/condexpr/internal/editor"
	"github.com/matthewbaird/condexpr/internal/options"
	"github.com/matthewbaird/condexpr/internal/session"
)

// Handler manages WebSocket connections for the condition editor.
type Handler struct {
	sessions         *session.Manager
	options          *options.Engine
	validateOnChange bool
	logger           *slog.Logger
}

// Config holds the handler's dependencies.
type Config struct {
	Sessions *session.Manager
	Options  *options.Engine
	// ValidateOnChange sends a validation result after every edit.
	ValidateOnChange bool
	Logger           *slog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(cfg Config) *Handler {
	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		sessions:         cfg.Sessions,
		options:          cfg.Options,
		validateOnChange: cfg.ValidateOnChange,
		logger:           l.With("component", "wire"),
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. A "session"
// query parameter resumes a live session; otherwise a new one is created.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	resumed := false
	var sess *session.Session
	if id := r.URL.Query().Get("session"); id != "" {
		sess = h.sessions.Get(id)
		resumed = sess != nil
	}
	if sess == nil {
		sess = h.sessions.Create()
	}

	h.send(ctx, conn, ServerMessage{
		Type: TypeSession,
		Data: SessionData{SessionID: sess.ID, Resumed: resumed},
	})
	if resumed {
		h.sendState(ctx, conn, "", sess.Editor)
	}

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("connection closed", "session", sess.ID, "status", websocket.CloseStatus(err))
			}
			return
		}
		if h.sessions.Get(sess.ID) == nil {
			h.sendError(ctx, conn, msg.ID, "session_expired", "session expired")
			conn.Close(websocket.StatusNormalClosure, "session expired")
			return
		}
		h.dispatch(ctx, conn, sess.Editor, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, msg ClientMessage) {
	switch msg.Type {
	case TypeSelectEntity:
		h.handleSelectEntity(ctx, conn, ed, msg)
	case TypeLoad:
		h.handleLoad(ctx, conn, ed, msg)
	case TypeAdd:
		var data AddData
		if !h.decode(ctx, conn, msg, &data) {
			return
		}
		_, err := ed.Add(data.Condition)
		h.afterEdit(ctx, conn, ed, msg.ID, err)
	case TypeUpdate:
		var data UpdateData
		if !h.decode(ctx, conn, msg, &data) {
			return
		}
		_, err := ed.Update(data.ConditionID, data.Condition)
		h.afterEdit(ctx, conn, ed, msg.ID, err)
	case TypeRemove:
		var data RemoveData
		if !h.decode(ctx, conn, msg, &data) {
			return
		}
		h.afterEdit(ctx, conn, ed, msg.ID, ed.Remove(data.ConditionID))
	case TypeSetConnector:
		var data SetConnectorData
		if !h.decode(ctx, conn, msg, &data) {
			return
		}
		connector, err := condition.ParseConnector(data.Connector)
		if err == nil {
			err = ed.SetConnector(data.ConditionID, connector)
		}
		h.afterEdit(ctx, conn, ed, msg.ID, err)
	case TypeClear:
		ed.Clear()
		h.afterEdit(ctx, conn, ed, msg.ID, nil)
	case TypeChoices:
		h.handleChoices(ctx, conn, ed, msg)
	case TypeOptions:
		h.handleOptions(ctx, conn, ed, msg)
	case TypeValidate:
		h.validate(ctx, conn, msg.ID, ed, false)
	case TypePing:
		h.send(ctx, conn, ServerMessage{Type: TypePong, RequestID: msg.ID})
	default:
		h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleSelectEntity(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, msg ClientMessage) {
	var data SelectEntityData
	if !h.decode(ctx, conn, msg, &data) {
		return
	}
	h.afterSelect(ctx, conn, ed, msg.ID, ed.SelectEntity(ctx, data.Entity))
}

func (h *Handler) handleLoad(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, msg ClientMessage) {
	var data LoadData
	if !h.decode(ctx, conn, msg, &data) {
		return
	}
	h.afterSelect(ctx, conn, ed, msg.ID, ed.Load(ctx, data.Entity, data.Expression))
}

// afterSelect sends the fields and state of a new selection. A catalog
// failure is reported first; the state still goes out with empty fields.
// A superseded selection sends nothing, the newer one reports.
func (h *Handler) afterSelect(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, requestID string, err error) {
	if errors.Is(err, editor.ErrSuperseded) {
		return
	}
	if err != nil {
		h.sendErr(ctx, conn, requestID, err)
		if errors.Is(err, editor.ErrNoEntity) {
			return
		}
	}
	state := ed.State()
	h.send(ctx, conn, ServerMessage{
		Type:      TypeFields,
		RequestID: requestID,
		Data:      FieldsData{Entity: state.Entity, Fields: state.Fields},
	})
	h.send(ctx, conn, ServerMessage{Type: TypeState, RequestID: requestID, Data: state})
}

func (h *Handler) handleChoices(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, msg ClientMessage) {
	var data ChoicesData
	if !h.decode(ctx, conn, msg, &data) {
		return
	}
	choices, err := ed.ChoiceValues(ctx, data.Field)
	if err != nil {
		h.sendErr(ctx, conn, msg.ID, err)
		return
	}
	if choices == nil {
		choices = []catalog.Choice{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      TypeChoices,
		RequestID: msg.ID,
		Data:      ChoiceList{Field: data.Field, Choices: choices},
	})
}

func (h *Handler) handleOptions(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, msg ClientMessage) {
	var data OptionsData
	if !h.decode(ctx, conn, msg, &data) {
		return
	}

	var items []options.Item
	var err error
	switch data.Kind {
	case "entities":
		items, err = h.options.Entities(ctx, data.Partial)
	case "fields":
		items = options.FieldItems(ed.State().Fields, data.Partial)
	case "operators", "values":
		fd, ok := ed.Field(data.Field)
		if !ok {
			err = fmt.Errorf("%w: %s", editor.ErrUnknownField, data.Field)
			break
		}
		if data.Kind == "operators" {
			items = h.options.Operators(condition.Classify(fd.DataType))
			break
		}
		if fd.DataType.IsChoiceList() && (data.Operator == "" || data.Operator.TakesValue()) {
			var choices []catalog.Choice
			choices, err = ed.ChoiceValues(ctx, fd.APIName)
			items = options.ChoiceItems(choices, data.Partial)
			break
		}
		items, err = h.options.Values(ctx, ed.Entity(), fd, data.Operator, data.Partial)
	default:
		err = fmt.Errorf("unknown options kind %q", data.Kind)
	}
	if err != nil {
		h.sendErr(ctx, conn, msg.ID, err)
		return
	}
	if items == nil {
		items = []options.Item{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      TypeOptions,
		RequestID: msg.ID,
		Data:      OptionList{Kind: data.Kind, Items: items},
	})
}

// afterEdit reports an edit's error, or the new state.
func (h *Handler) afterEdit(ctx context.Context, conn *websocket.Conn, ed *editor.Editor, requestID string, err error) {
	if err != nil {
		h.sendErr(ctx, conn, requestID, err)
		return
	}
	h.sendState(ctx, conn, requestID, ed)
	if h.validateOnChange {
		h.validate(ctx, conn, requestID, ed, true)
	}
}

func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn, requestID string, ed *editor.Editor) {
	h.send(ctx, conn, ServerMessage{Type: TypeState, RequestID: requestID, Data: ed.State()})
}

// validate sends the editor's validation result. An automatic run after an
// edit stays silent when no validator is configured.
func (h *Handler) validate(ctx context.Context, conn *websocket.Conn, requestID string, ed *editor.Editor, auto bool) {
	res, err := ed.Validate(ctx)
	if auto && errors.Is(err, editor.ErrNoValidator) {
		return
	}
	if err != nil {
		h.sendErr(ctx, conn, requestID, err)
		return
	}
	h.send(ctx, conn, ServerMessage{Type: TypeValidation, RequestID: requestID, Data: res})
}

func (h *Handler) decode(ctx context.Context, conn *websocket.Conn, msg ClientMessage, v any) bool {
	if len(msg.Data) == 0 {
		h.sendError(ctx, conn, msg.ID, "invalid_data", fmt.Sprintf("missing %s data", msg.Type))
		return false
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", fmt.Sprintf("invalid %s data", msg.Type))
		return false
	}
	return true
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug("write failed", "type", msg.Type, "error", err)
	}
}

func (h *Handler) sendErr(ctx context.Context, conn *websocket.Conn, requestID string, err error) {
	h.sendError(ctx, conn, requestID, ErrorCode(err), err.Error())
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}

// ErrorCode maps an editor error to a protocol error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, editor.ErrNoEntity):
		return "no_entity"
	case errors.Is(err, editor.ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, editor.ErrUnknownCondition):
		return "unknown_condition"
	case errors.Is(err, editor.ErrRawExpression):
		return "raw_expression"
	case errors.Is(err, editor.ErrNoValidator):
		return "no_validator"
	case errors.Is(err, editor.ErrSuperseded):
		return "superseded"
	case errors.Is(err, condition.ErrIllegalOperator):
		return "illegal_operator"
	case errors.Is(err, condition.ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, condition.ErrInvalidConnector):
		return "invalid_connector"
	case errors.Is(err, catalog.ErrUnknownEntity):
		return "unknown_entity"
	case errors.Is(err, catalog.ErrUnknownField):
		return "unknown_field"
	}
	return "request_failed"
}
