package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/internal/errs"
	"github.com/koustreak/rowx/internal/schema"
)

// commandRequest is the body of /query, /one and /all.
type commandRequest struct {
	Text string `json:"text"`
	Args []any  `json:"args"`
}

type rowResponse struct {
	Row  database.Row      `json:"row"`
	Meta database.Metadata `json:"meta"`
}

type rowsResponse struct {
	Rows []database.Row    `json:"rows"`
	Meta database.Metadata `json:"meta"`
}

type metaResponse struct {
	Meta database.Metadata `json:"meta"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	d, ok := s.decodeCommand(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	res, err := s.helpers.Query(ctx, s.db, d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Rows: res.Rows, Meta: res.Meta})
}

func (s *Server) handleOne(w http.ResponseWriter, r *http.Request) {
	d, ok := s.decodeCommand(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	row, meta, err := s.helpers.One(ctx, s.db, d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowResponse{Row: row, Meta: meta})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	d, ok := s.decodeCommand(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	rows, meta, err := s.helpers.All(ctx, s.db, d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Rows: rows, Meta: meta})
}

// handleTables serves GET /tables.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	tables, err := schema.New(s.db, s.helpers).ListTables(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tables": tables})
}

// handleTable serves GET /tables/{table} with the table's columns.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	info, err := schema.New(s.db, s.helpers).InspectTable(ctx, chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleSel serves GET /tables/{table}/{column}/{value}. With ?one=true it
// behaves like Get and answers 404 when nothing matched.
func (s *Server) handleSel(w http.ResponseWriter, r *http.Request) {
	table, column, value := chi.URLParam(r, "table"), chi.URLParam(r, "column"), chi.URLParam(r, "value")
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	if one, _ := strconv.ParseBool(r.URL.Query().Get("one")); one {
		row, meta, err := s.helpers.Get(ctx, s.db, table, column, value)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if row == nil {
			s.writeError(w, r, errs.New(errs.ErrKindNotFound, "no row where "+column+" = "+value))
			return
		}
		writeJSON(w, http.StatusOK, rowResponse{Row: row, Meta: meta})
		return
	}

	rows, meta, err := s.helpers.Sel(ctx, s.db, table, column, value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Rows: rows, Meta: meta})
}

func (s *Server) handleIns(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	meta, err := s.helpers.Ins(ctx, s.db, chi.URLParam(r, "table"), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, metaResponse{Meta: meta})
}

func (s *Server) handleUpd(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	meta, err := s.helpers.Upd(ctx, s.db, chi.URLParam(r, "table"), chi.URLParam(r, "column"), chi.URLParam(r, "value"), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metaResponse{Meta: meta})
}

func (s *Server) handleDel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.dbContext(r.Context())
	defer cancel()

	meta, err := s.helpers.Del(ctx, s.db, chi.URLParam(r, "table"), chi.URLParam(r, "column"), chi.URLParam(r, "value"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metaResponse{Meta: meta})
}

func (s *Server) decodeCommand(w http.ResponseWriter, r *http.Request) (database.Descriptor, bool) {
	var req commandRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err))
		return database.Descriptor{}, false
	}
	if req.Text == "" {
		s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "text is required"))
		return database.Descriptor{}, false
	}
	for i, a := range req.Args {
		req.Args[i] = database.FromJSONNumber(a)
	}
	return database.Command(req.Text, req.Args...), true
}

func (s *Server) decodeRecord(w http.ResponseWriter, r *http.Request) (database.Record, bool) {
	var rec database.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err))
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
