package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/ctxlog"
	"github.com/ssargent/dynattr/pkg/dyncol"
	"github.com/ssargent/dynattr/pkg/metrics"
	"github.com/ssargent/dynattr/pkg/record"
	"github.com/ssargent/dynattr/pkg/storage"
)

// maxBodySize caps request bodies for record and attribute writes
const maxBodySize = 1 << 20

// Server holds the API server state
type Server struct {
	store   IRecordStore
	config  ServerConfig
	metrics *metrics.Metrics
}

// NewServer creates a new API server
func NewServer(store IRecordStore, config ServerConfig) *Server {
	return &Server{
		store:   store,
		config:  config,
		metrics: config.Metrics,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleCreateRecord godoc
//
//	@Summary		Create a record
//	@Description	Store a new row. Top-level keys naming fixed columns fill those columns; every other key becomes a dynamic attribute.
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object	true	"Record fields and attributes"
//	@Success		201		{object}	map[string]string
//	@Failure		400		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records [post]
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	body, ok := readValue(w, r)
	if !ok {
		return
	}
	if body.Kind() != attr.KindTree {
		sendError(w, "Request body must be a JSON object", http.StatusBadRequest)
		return
	}

	rec := s.store.NewRecord()
	var setErr error
	body.Tree().Range(func(key string, v attr.Value) bool {
		setErr = rec.Set(key, v)
		return setErr == nil
	})
	if setErr != nil {
		s.sendRecordError(w, r, setErr)
		return
	}

	id, err := s.store.Create(rec)
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}

	ctxlog.FromContext(r.Context()).Info("created record", slog.String("id", id.String()))
	sendCreated(w, map[string]string{"id": id.String()})
}

// handleListRecords godoc
//
//	@Summary		List records
//	@Description	List the ids of every stored record in creation order
//	@Tags			records
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Failure		500	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records [get]
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List()
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	sendSuccess(w, map[string][]string{"ids": out})
}

// handleGetRecord godoc
//
//	@Summary		Get a record
//	@Description	Return the fixed columns and the decoded attribute tree of a record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	RecordResponse
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records/{id} [get]
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(id)
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}

	fields := make(map[string]any)
	for _, name := range rec.Fixed().FieldNames() {
		v, err := rec.Get(name)
		if err != nil {
			s.sendRecordError(w, r, err)
			return
		}
		fields[name] = v.Interface()
	}

	sendSuccess(w, RecordResponse{
		ID:         id.String(),
		Fields:     fields,
		Attributes: rec.Attributes(),
	})
}

// handleDeleteRecord godoc
//
//	@Summary		Delete a record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records/{id} [delete]
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(id); err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Record deleted"})
}

// handleGetAttribute godoc
//
//	@Summary		Get an attribute
//	@Description	Resolve a dotted path against the fixed columns first, then the attribute tree
//	@Tags			attributes
//	@Produce		json
//	@Param			id		path		string	true	"Record id"
//	@Param			path	path		string	true	"Dotted attribute path"
//	@Success		200		{object}	AttributeResponse
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records/{id}/attributes/{path} [get]
func (s *Server) handleGetAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	path := chi.URLParam(r, "path")

	rec, err := s.store.Get(id)
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	set, err := rec.IsSet(path)
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	if !set {
		sendError(w, "Attribute not set", http.StatusNotFound)
		return
	}
	v, err := rec.Get(path)
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	sendSuccess(w, AttributeResponse{Path: path, Value: v})
}

// handlePutAttribute godoc
//
//	@Summary		Set an attribute
//	@Description	Assign a JSON value at a dotted path, creating intermediate containers
//	@Tags			attributes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string	true	"Record id"
//	@Param			path	path		string	true	"Dotted attribute path"
//	@Param			body	body		object	true	"Value"
//	@Success		200		{object}	AttributeResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records/{id}/attributes/{path} [put]
func (s *Server) handlePutAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	path := chi.URLParam(r, "path")
	v, ok := readValue(w, r)
	if !ok {
		return
	}

	_, err := s.store.Update(id, func(rec *record.Record) error {
		return rec.Set(path, v)
	})
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	sendSuccess(w, AttributeResponse{Path: path, Value: v})
}

// handleDeleteAttribute godoc
//
//	@Summary		Unset an attribute
//	@Description	Null a fixed column, or drop a dynamic attribute from the next saved column value
//	@Tags			attributes
//	@Produce		json
//	@Param			id		path		string	true	"Record id"
//	@Param			path	path		string	true	"Dotted attribute path"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records/{id}/attributes/{path} [delete]
func (s *Server) handleDeleteAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	path := chi.URLParam(r, "path")

	_, err := s.store.Update(id, func(rec *record.Record) error {
		return rec.Unset(path)
	})
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Attribute unset"})
}

// handleFields godoc
//
//	@Summary		List field names
//	@Description	Fixed columns followed by top-level attribute keys. With deep=true every attribute path is listed, prefixed by the dynamic column name.
//	@Tags			attributes
//	@Produce		json
//	@Param			id		path		string	true	"Record id"
//	@Param			deep	query		bool	false	"List every nested path"
//	@Success		200		{object}	map[string][]string
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records/{id}/fields [get]
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	deep, _ := strconv.ParseBool(r.URL.Query().Get("deep"))

	rec, err := s.store.Get(id)
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}

	names := rec.FieldNames()
	if deep {
		if names, err = rec.AllFieldNames(); err != nil {
			s.sendRecordError(w, r, err)
			return
		}
	}
	sendSuccess(w, map[string][]string{"fields": names})
}

// handleExpression godoc
//
//	@Summary		Show the column expression
//	@Description	Build the COLUMN_CREATE expression and parameter bindings a save of this record would send
//	@Tags			attributes
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	ExpressionResponse
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/records/{id}/expression [get]
func (s *Server) handleExpression(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(id)
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	expr, err := rec.OnBeforeSave()
	if err != nil {
		s.sendRecordError(w, r, err)
		return
	}
	sendSuccess(w, newExpressionResponse(expr))
}

func newExpressionResponse(expr dyncol.Expression) ExpressionResponse {
	params := make([]ParameterBinding, len(expr.Params))
	for i, p := range expr.Params {
		params[i] = ParameterBinding{Name: p.Name, Value: p.Value}
	}
	return ExpressionResponse{SQL: expr.SQL, Params: params}
}

func parseID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid record id", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

// readValue parses the request body as an order-preserving JSON value
func readValue(w http.ResponseWriter, r *http.Request) (attr.Value, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return attr.Null(), false
	}
	if len(body) > maxBodySize {
		sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return attr.Null(), false
	}
	v, err := attr.ParseJSON(body)
	if err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return attr.Null(), false
	}
	return v, true
}

// sendRecordError maps engine and store errors onto HTTP statuses
func (s *Server) sendRecordError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrRowNotFound):
		sendError(w, "Record not found", http.StatusNotFound)
	case errors.Is(err, attr.ErrInvalidPath), errors.Is(err, record.ErrNestedFixedValue):
		sendError(w, err.Error(), http.StatusBadRequest)
	default:
		ctxlog.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		sendError(w, "Internal server error", http.StatusInternalServerError)
	}
}
