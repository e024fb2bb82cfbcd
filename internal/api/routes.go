package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mvp-joe/neobridge/internal/entity"
	mcputils "github.com/mvp-joe/neobridge/internal/mcp-utils"
	"github.com/mvp-joe/neobridge/internal/protocol"
	"github.com/mvp-joe/neobridge/internal/schema"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 10 << 20

// errorEnvelope is the body of non-query failures.
type errorEnvelope struct {
	Error *protocol.ErrorBody `json:"error"`
}

// validationEnvelope is the body of a 400 response.
type validationEnvelope struct {
	Errors []string `json:"errors"`
}

// PathResponse is the body of a schema path lookup.
type PathResponse struct {
	From string       `json:"from"`
	To   string       `json:"to"`
	Hops []schema.Hop `json:"hops"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/info", s.handleInfo)

	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/cursor/query", s.handleCursorQuery)

	mux.HandleFunc("GET /api/schema", s.handleSchema)
	mux.HandleFunc("GET /api/schema/path", s.handleSchemaPath)

	mux.HandleFunc("POST /api/transactions", s.handleBegin)
	mux.HandleFunc("POST /api/transactions/{id}/query", s.handleTransactionQuery)
	mux.HandleFunc("POST /api/transactions/{id}/commit", s.handleCommit)
	mux.HandleFunc("POST /api/transactions/{id}/rollback", s.handleRollback)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleRollback)

	mux.HandleFunc("POST /api/relationship", s.handleCreateRelationship)
	mux.HandleFunc("GET /api/{label}/{id}", s.handleGetNode)
	mux.HandleFunc("POST /api/{label}", s.handleCreateNode)
	mux.HandleFunc("PUT /api/{label}/{id}", s.handleUpdateNode)
	mux.HandleFunc("DELETE /api/{label}/{id}", s.handleDeleteNode)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Database.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Database.ServerInfo(r.Context())
	if err != nil {
		s.writeError(w, protocol.Wrap(protocol.CodeNeo4j, err), protocol.CodeNeo4j)
		return
	}
	writeJSON(w, http.StatusOK, protocol.NewInfo(info))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req protocol.QueryRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	result, err := s.deps.Queries.Execute(r.Context(), req.Query, req.Params)
	if err != nil {
		writeJSON(w, statusFor(err), protocol.NewQueryFailure(err, ""))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCursorQuery(w http.ResponseWriter, r *http.Request) {
	var req protocol.QueryRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	var opts protocol.CursorOptions
	if req.CursorOptions != nil {
		opts = *req.CursorOptions
	}
	result, err := s.deps.Queries.ExecutePaginated(r.Context(), req.Query, req.Params, opts)
	if err != nil {
		writeJSON(w, statusFor(err), protocol.NewQueryFailure(err, ""))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Schema.Inspect(r.Context())
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, schema.NewResponse(d, err))
}

func (s *Server) handleSchemaPath(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	var msgs []string
	msgs = append(msgs, s.validate.Identifier("from", from)...)
	msgs = append(msgs, s.validate.Identifier("to", to)...)
	if len(msgs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationEnvelope{Errors: msgs})
		return
	}

	d, err := s.deps.Schema.Inspect(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, schema.NewResponse(nil, err))
		return
	}
	hops, err := schema.Path(d, from, to)
	if err != nil {
		s.writeError(w, err, protocol.CodeSchema)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{From: from, To: to, Hops: hops})
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Transactions.Begin(r.Context())
	env := protocol.NewTransactionEnvelope(id, protocol.StatusActive, err, protocol.CodeTransaction)
	writeJSON(w, statusFor(err), env)
}

func (s *Server) handleTransactionQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req protocol.QueryRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	result, err := s.deps.Transactions.Query(r.Context(), id, req.Query, req.Params)
	if err != nil {
		writeJSON(w, statusFor(err), protocol.NewQueryFailure(err, id))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deps.Transactions.Commit(r.Context(), id)
	writeJSON(w, statusFor(err), protocol.NewTransactionEnvelope(id, protocol.StatusCommitted, err, protocol.CodeCommit))
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deps.Transactions.Rollback(r.Context(), id)
	writeJSON(w, statusFor(err), protocol.NewTransactionEnvelope(id, protocol.StatusRolledBack, err, protocol.CodeRollback))
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	label, id := r.PathValue("label"), r.PathValue("id")
	if !s.checkLabel(w, label) {
		return
	}
	row, err := s.deps.Entities.GetNode(r.Context(), label, id)
	if err != nil {
		s.writeError(w, err, protocol.CodeNeo4j)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")
	if !s.checkLabel(w, label) {
		return
	}
	var props map[string]any
	if !s.decodeBody(w, r, &props) {
		return
	}
	if msgs := s.validate.Node(label, props); len(msgs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationEnvelope{Errors: msgs})
		return
	}
	row, err := s.deps.Entities.CreateNode(r.Context(), label, props)
	if err != nil {
		s.writeError(w, err, protocol.CodeNeo4j)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	label, id := r.PathValue("label"), r.PathValue("id")
	if !s.checkLabel(w, label) {
		return
	}
	var props map[string]any
	if !s.decodeBody(w, r, &props) {
		return
	}
	if msgs := s.validate.Node(label, props); len(msgs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationEnvelope{Errors: msgs})
		return
	}
	row, err := s.deps.Entities.UpdateNode(r.Context(), label, id, props)
	if err != nil {
		s.writeError(w, err, protocol.CodeNeo4j)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	label, id := r.PathValue("label"), r.PathValue("id")
	if !s.checkLabel(w, label) {
		return
	}
	if err := s.deps.Entities.DeleteNode(r.Context(), label, id); err != nil {
		s.writeError(w, err, protocol.CodeNeo4j)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateRelationship(w http.ResponseWriter, r *http.Request) {
	var rel entity.Relationship
	if !s.decodeRequest(w, r, &rel) {
		return
	}
	row, err := s.deps.Entities.CreateRelationship(r.Context(), rel)
	if err != nil {
		s.writeError(w, err, protocol.CodeNeo4j)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// decodeRequest decodes and validates a JSON body, writing a 400 response
// and returning false on failure.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if !s.decodeBody(w, r, v) {
		return false
	}
	if msgs := s.validate.Struct(v); len(msgs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationEnvelope{Errors: msgs})
		return false
	}
	return true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		msg := fmt.Sprintf("invalid JSON body: %v", err)
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		writeJSON(w, http.StatusBadRequest, validationEnvelope{Errors: []string{msg}})
		return false
	}
	bindNumbers(v)
	return true
}

// bindNumbers converts the json.Number values left by UseNumber in
// parameter and property maps, so JSON integers reach Neo4j as integers.
func bindNumbers(v any) {
	switch t := v.(type) {
	case *map[string]any:
		*t = numberMap(*t)
	case *protocol.QueryRequest:
		t.Params = numberMap(t.Params)
	case *entity.Relationship:
		t.Properties = numberMap(t.Properties)
	}
}

func numberMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return mcputils.Numbers(m).(map[string]any)
}

func (s *Server) checkLabel(w http.ResponseWriter, label string) bool {
	if msgs := s.validate.Identifier("label", label); len(msgs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationEnvelope{Errors: msgs})
		return false
	}
	return true
}

// writeError writes err as an error envelope, or as a validation list when
// it carries VALIDATION_ERROR.
func (s *Server) writeError(w http.ResponseWriter, err error, fallback protocol.Code) {
	body := protocol.Body(err, fallback)
	if body.Code == protocol.CodeValidation {
		writeJSON(w, http.StatusBadRequest, validationEnvelope{Errors: []string{body.Message}})
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "code", body.Code, "error", err)
	}
	writeJSON(w, status, errorEnvelope{Error: body})
}

// statusFor maps an error to its HTTP status. A nil error is 200.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch protocol.CodeOf(err, "") {
	case protocol.CodeInvalidTransaction, protocol.CodeNotFound:
		return http.StatusNotFound
	case protocol.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
