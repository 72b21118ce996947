package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/organizational/pkg/organizational"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

const maxBodyBytes = 1 << 20

// itemRequest is the body of POST and PUT /api/items. Assign maps slot
// names ("projects", "lead_people") to the full list of unique ids.
type itemRequest struct {
	Type   string              `json:"type"`
	Title  *string             `json:"title"`
	Slug   *string             `json:"slug"`
	Status *string             `json:"status"`
	Fields map[string]string   `json:"fields"`
	Assign map[string][]string `json:"assign"`
}

// itemResponse is an item with its unique id and profile fields.
type itemResponse struct {
	*types.Item
	UniqueID types.StableID    `json:"unique_id,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrTypeDisabled):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrUnknownType),
		errors.Is(err, types.ErrInvalidStatus),
		errors.Is(err, types.ErrInvalidTitle),
		errors.Is(err, types.ErrUnknownSlot):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotRelated):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", RequestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	respondError(w, status, err.Error())
}

func pathType(r *http.Request) (types.ObjectType, error) {
	return types.ParseType(mux.Vars(r)["type"])
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidID, mux.Vars(r)["id"])
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": organizational.Version,
	})
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Types())
}

func (s *Server) handleTypeObjects(w http.ResponseWriter, r *http.Request) {
	t, err := pathType(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dir, ok, err := s.svc.GetAllObjectData(r.Context(), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", types.ErrTypeDisabled, t))
		return
	}
	respondJSON(w, http.StatusOK, dir)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	t, err := pathType(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.svc.Archive(r.Context(), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// handleListItems lists items of ?type=, optionally restricted to those
// associated with the published item named by a related-type query
// variable such as ?org_project=<slug>.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := types.ListQuery{OrderBy: q.Get("order")}
	if v := q.Get("type"); v != "" {
		t, err := types.ParseType(v)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		query.Type = t
	}
	if v := q.Get("status"); v != "" {
		query.Statuses = strings.Split(v, ",")
	}
	for _, name := range []string{"limit", "offset"} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, v))
			return
		}
		if name == "limit" {
			query.Limit = n
		} else {
			query.Offset = n
		}
	}

	items, err := s.svc.List(ctx, query)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if query.Type != types.TypeUnknown {
		for _, related := range s.svc.GetObjectTypeSlugs() {
			slug := q.Get(related.QueryVar())
			if slug == "" {
				continue
			}
			ids, err := s.svc.FilterByRelated(ctx, query.Type, related, slug)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			items = keepIDs(items, ids)
		}
	}
	respondJSON(w, http.StatusOK, items)
}

func keepIDs(items []*types.Item, ids []int64) []*types.Item {
	keep := make(map[int64]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := make([]*types.Item, 0, len(items))
	for _, it := range items {
		if keep[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

func (s *Server) decodeItem(w http.ResponseWriter, r *http.Request) (*itemRequest, bool) {
	var req itemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return nil, false
	}
	return &req, true
}

// saveRequest merges req into base and converts slot assignments to form
// fields.
func (s *Server) saveRequest(base types.Item, req *itemRequest) (organizational.SaveRequest, error) {
	if req.Title != nil {
		base.Title = *req.Title
	}
	if req.Slug != nil {
		base.Slug = *req.Slug
	}
	if req.Status != nil {
		base.Status = *req.Status
	}
	out := organizational.SaveRequest{Item: base, Fields: req.Fields}
	if len(req.Assign) > 0 {
		out.Form = make(map[string]string, len(req.Assign))
		for name, ids := range req.Assign {
			slot, err := s.svc.Registry().LookupSlot(name)
			if err != nil {
				return out, err
			}
			out.Form[slot.FormField()] = strings.Join(ids, ",")
		}
	}
	return out, nil
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeItem(w, r)
	if !ok {
		return
	}
	t, err := types.ParseType(req.Type)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sr, err := s.saveRequest(types.Item{Type: t}, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Save(r.Context(), sr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondItem(w, r, http.StatusCreated, res.Item.ID)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, ok := s.decodeItem(w, r)
	if !ok {
		return
	}
	item, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sr, err := s.saveRequest(*item, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.svc.Save(r.Context(), sr); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondItem(w, r, http.StatusOK, id)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondItem(w, r, http.StatusOK, id)
}

func (s *Server) respondItem(w http.ResponseWriter, r *http.Request, status int, id int64) {
	ctx := r.Context()
	item, err := s.svc.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	uid, err := s.svc.StableID(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	fields, err := s.svc.Fields(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, status, itemResponse{Item: item, UniqueID: uid, Fields: fields})
}

// handleDeleteItem trashes the item, or deletes it with ?force=true.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if force, _ := strconv.ParseBool(r.URL.Query().Get("force")); force {
		if err := s.svc.Delete(r.Context(), id); err != nil {
			s.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
		return
	}
	item, err := s.svc.Trash(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleItemObjects(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	slot := mux.Vars(r)["slot"]
	dir, ok, err := s.svc.GetSlotObjects(r.Context(), id, slot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: item %d and %s", types.ErrNotRelated, id, slot))
		return
	}
	respondJSON(w, http.StatusOK, dir)
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	widget, err := s.svc.Widget(r.Context(), id, mux.Vars(r)["slot"], r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, widget)
}
