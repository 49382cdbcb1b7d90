package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
	"github.com/matthewbaird/condexpr/internal/expr"
	"github.com/matthewbaird/condexpr/internal/options"
	"github.com/matthewbaird/condexpr/internal/validate"
)

type apiHandler struct {
	catalog   catalog.Adapter
	validator validate.Validator
	options   *options.Engine
}

// BuildRequest is the body of POST /api/expressions/build.
type BuildRequest struct {
	Entity     string            `json:"entity"`
	Conditions []condition.Input `json:"conditions"`
}

// BuildResponse carries the built expression and the conditions it was
// built from.
type BuildResponse struct {
	Expression string                `json:"expression"`
	Conditions []condition.Condition `json:"conditions"`
}

// ParseRequest is the body of POST /api/expressions/parse and
// /api/expressions/validate.
type ParseRequest struct {
	Entity     string `json:"entity"`
	Expression string `json:"expression"`
}

// ParseResponse is the recovered condition list. Raw is set when the
// expression fell back to a single raw condition.
type ParseResponse struct {
	Conditions []condition.Condition `json:"conditions"`
	Raw        bool                  `json:"raw"`
	Reason     string                `json:"reason,omitempty"`
}

func (h *apiHandler) listEntities(w http.ResponseWriter, r *http.Request) {
	items, err := h.options.Entities(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadGateway, "CATALOG_ERROR", err.Error())
		return
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Value)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": names})
}

func (h *apiHandler) listFields(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	fields, ok := h.fields(w, r, entity)
	if !ok {
		return
	}
	type fieldView struct {
		catalog.FieldDescriptor
		Category  condition.Category         `json:"category"`
		Operators []condition.OperatorOption `json:"operators"`
	}
	out := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		cat := condition.Classify(f.DataType)
		out = append(out, fieldView{FieldDescriptor: f, Category: cat, Operators: condition.OperatorsFor(cat)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entity": entity, "fields": out})
}

func (h *apiHandler) listChoices(w http.ResponseWriter, r *http.Request) {
	entity, field := chi.URLParam(r, "entity"), chi.URLParam(r, "field")
	choices, err := h.catalog.ChoiceValues(r.Context(), entity, field)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if choices == nil {
		choices = []catalog.Choice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": field, "choices": choices})
}

func (h *apiHandler) listOperators(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "category")
	cat, ok := condition.ParseCategory(raw)
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_CATEGORY", "unknown category: "+raw)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": cat, "operators": condition.OperatorsFor(cat)})
}

func (h *apiHandler) listDateLiterals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"date_literals": condition.DateLiterals()})
}

func (h *apiHandler) buildExpression(w http.ResponseWriter, r *http.Request) {
	var req BuildRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}
	fields, ok := h.fields(w, r, req.Entity)
	if !ok {
		return
	}
	fs := catalog.NewFieldSet(fields)

	list := condition.NewList()
	for i, in := range req.Conditions {
		fd, ok := fs.Lookup(in.Field)
		if !ok {
			writeError(w, http.StatusBadRequest, "UNKNOWN_FIELD", fmt.Sprintf("condition %d: unknown field %q on %s", i+1, in.Field, req.Entity))
			return
		}
		c, err := condition.FromInput(fd, in)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_CONDITION", fmt.Sprintf("condition %d: %v", i+1, err))
			return
		}
		list.Append(expr.Render(c))
	}
	list.Normalize()

	items := list.Items()
	if items == nil {
		items = []condition.Condition{}
	}
	writeJSON(w, http.StatusOK, BuildResponse{Expression: expr.Build(items), Conditions: items})
}

func (h *apiHandler) parseExpression(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}
	fields, ok := h.fields(w, r, req.Entity)
	if !ok {
		return
	}
	res := expr.Parse(req.Expression, catalog.NewFieldSet(fields))
	out := ParseResponse{Conditions: res.Conditions, Raw: res.Raw}
	if out.Conditions == nil {
		out.Conditions = []condition.Condition{}
	}
	if res.Err != nil {
		out.Reason = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *apiHandler) validateExpression(w http.ResponseWriter, r *http.Request) {
	if h.validator == nil {
		writeError(w, http.StatusNotImplemented, "NO_VALIDATOR", "no validator configured")
		return
	}
	var req ParseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Entity) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "entity is required")
		return
	}
	res, err := h.validator.Validate(r.Context(), req.Entity, req.Expression)
	if err != nil {
		writeError(w, http.StatusBadGateway, "VALIDATION_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// fields loads an entity's fields, writing the error response on failure.
func (h *apiHandler) fields(w http.ResponseWriter, r *http.Request, entity string) ([]catalog.FieldDescriptor, bool) {
	if strings.TrimSpace(entity) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "entity is required")
		return nil, false
	}
	fields, err := h.catalog.Fields(r.Context(), entity)
	if err != nil {
		writeCatalogError(w, err)
		return nil, false
	}
	return fields, true
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownEntity):
		writeError(w, http.StatusNotFound, "UNKNOWN_ENTITY", err.Error())
	case errors.Is(err, catalog.ErrUnknownField):
		writeError(w, http.StatusNotFound, "UNKNOWN_FIELD", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "CATALOG_ERROR", err.Error())
	}
}
