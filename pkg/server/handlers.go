package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	cerrors "github.com/vango-dev/cells/internal/errors"
	"github.com/vango-dev/cells/pkg/sheet"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// cellView is the JSON form of a cell.
type cellView struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Formula string `json:"formula,omitempty"`
	Value   any    `json:"value"`
}

// errorBody is the JSON form of a failed request.
type errorBody struct {
	Error *cerrors.CellsError `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	views, err := s.viewAll()
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	view, err := s.view(chi.URLParam(r, "name"))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body map[string]any
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	v, ok := body["value"]
	if !ok {
		s.writeError(w, cerrors.New("C042").WithDetail(`body must be {"value": ...}`))
		return
	}

	s.mu.Lock()
	err := s.sheet.Set(name, v)
	var view cellView
	if err == nil {
		view, err = s.view(name)
	}
	s.mu.Unlock()

	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeBody(r, &values); err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	err := s.sheet.Update(values)
	var views []cellView
	if err == nil {
		views, err = s.viewAll()
	}
	s.mu.Unlock()

	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// view must be called with s.mu held.
func (s *Server) view(name string) (cellView, error) {
	kind, err := s.sheet.Kind(name)
	if err != nil {
		return cellView{}, err
	}
	src, err := s.sheet.Formula(name)
	if err != nil {
		return cellView{}, err
	}
	v, err := s.sheet.Get(name)
	if err != nil {
		return cellView{}, err
	}
	return cellView{Name: name, Kind: kind.String(), Formula: src, Value: v}, nil
}

// viewAll must be called with s.mu held.
func (s *Server) viewAll() ([]cellView, error) {
	names := s.sheet.Names()
	views := make([]cellView, 0, len(names))
	for _, name := range names {
		v, err := s.view(name)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// decodeBody reads a JSON body into dst, turning integral numbers into ints
// so that they behave like the integers of a sheet file.
func decodeBody(r *http.Request, dst *map[string]any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return cerrors.New("C042").WithDetail("cannot read body").Wrap(err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return cerrors.New("C042").WithDetail("body is not a JSON object").Wrap(err)
	}
	for k, v := range raw {
		raw[k] = normalize(v)
	}
	*dst = raw
	return nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil && n == int64(int(n)) {
			return int(n)
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for k, e := range v {
			v[k] = normalize(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = normalize(e)
		}
		return v
	default:
		return v
	}
}

// statusOf maps sheet errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, sheet.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheet.ErrReadOnly):
		return http.StatusConflict
	case cerrors.HasCode(err, "C042"):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	ce := cerrors.FromError(err, "C042")
	s.logger.Debug("request failed", "status", status, "error", err)
	writeJSON(w, status, errorBody{Error: ce})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
