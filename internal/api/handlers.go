package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/export"
	"shareit/internal/models"
	"shareit/internal/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type bookingRequest struct {
	ItemID int64  `json:"item_id" validate:"required,gt=0"`
	Start  string `json:"start" validate:"required"`
	End    string `json:"end" validate:"required"`
}

type itemRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Available   *bool  `json:"available" validate:"required"`
	RequestID   *int64 `json:"request_id" validate:"omitempty,gt=0"`
}

type commentRequest struct {
	Text string `json:"text" validate:"required"`
}

type itemRequestRequest struct {
	Description string `json:"description" validate:"required"`
}

// actingUser reads the id of the calling user from the configured header.
func (s *HTTPServer) actingUser(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(s.userHeader))
	if raw == "" {
		return 0, fmt.Errorf("%w: header %s is required", domain.ErrBadRequest, s.userHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: header %s must be a positive integer", domain.ErrBadRequest, s.userHeader)
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", domain.ErrBadRequest, r.PathValue("id"))
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrBadRequest)
	}
	return nil
}

// decodeValid decodes the body and checks it against its validate tags.
func decodeValid(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return validation.Struct(dst)
}

// parseTimestamp accepts RFC 3339 or a zone-less timestamp read as UTC.
func parseTimestamp(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrBadRequest, field)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(models.TimestampLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s %q", domain.ErrBadRequest, field, raw)
	}
	return t, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrBadRequest, name, raw)
	}
	return v, nil
}

// Users

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := decodeJSON(r, &user); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	created, err := s.deps.Users.CreateUser(r.Context(), &models.User{Name: user.Name, Email: user.Email})
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Users.GetAllUsers(r.Context())
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	user, err := s.deps.Users.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	var update models.UserUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	user, err := s.deps.Users.UpdateUser(r.Context(), id, update)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	if err := s.deps.Users.DeleteUser(r.Context(), id); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Items

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	var req itemRequest
	if err := decodeValid(r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	item, err := s.deps.Items.CreateItem(r.Context(), ownerID, &models.Item{
		Name:        req.Name,
		Description: req.Description,
		Available:   *req.Available,
		RequestID:   req.RequestID,
	})
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	var update models.ItemUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	item, err := s.deps.Items.UpdateItem(r.Context(), ownerID, itemID, update)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	details, err := s.deps.Items.GetItem(r.Context(), itemID, userID)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *HTTPServer) handleOwnerItems(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	items, err := s.deps.Items.GetOwnerItems(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	size, err := queryInt(r, "size", models.DefaultSearchPageSize)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	items, err := s.deps.Items.SearchItems(r.Context(), r.URL.Query().Get("text"), from, size)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	if err := s.deps.Items.DeleteItem(r.Context(), ownerID, itemID); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	var req commentRequest
	if err := decodeValid(r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	comment, err := s.deps.Items.AddComment(r.Context(), userID, itemID, req.Text)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// Bookings

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	bookerID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	var req bookingRequest
	if err := decodeValid(r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	start, err := parseTimestamp("start", req.Start)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	end, err := parseTimestamp("end", req.End)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	booking, err := s.deps.Bookings.CreateBooking(r.Context(), bookerID, req.ItemID, start, end)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	bookingID, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	approved, err := strconv.ParseBool(r.URL.Query().Get("approved"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "approved must be true or false")
		return
	}

	booking, err := s.deps.Bookings.SetStatus(r.Context(), bookingID, userID, approved)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	bookingID, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	booking, err := s.deps.Bookings.GetBooking(r.Context(), bookingID, userID)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBookerBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	bookings, err := s.deps.Bookings.ListForUser(r.Context(), userID, r.URL.Query().Get("state"))
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleOwnerBookings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	bookings, err := s.deps.Bookings.ListForOwner(r.Context(), ownerID, r.URL.Query().Get("state"))
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleOwnerExport(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	bookings, err := s.deps.Bookings.ListForOwner(r.Context(), ownerID, r.URL.Query().Get("state"))
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, s.deps.ExportSheet, bookings); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"bookings_owner_%d.xlsx\"", ownerID))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Item requests

func (s *HTTPServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	var req itemRequestRequest
	if err := decodeValid(r, &req); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	request, err := s.deps.Requests.CreateRequest(r.Context(), userID, req.Description)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (s *HTTPServer) handleOwnRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	requests, err := s.deps.Requests.GetOwnRequests(r.Context(), userID)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (s *HTTPServer) handleOtherRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	from, err := queryInt(r, "from", 0)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	size, err := queryInt(r, "size", models.DefaultRequestPageSize)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	requests, err := s.deps.Requests.GetOtherRequests(r.Context(), userID, from, size)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (s *HTTPServer) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	requestID, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	request, err := s.deps.Requests.GetRequest(r.Context(), userID, requestID)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (s *HTTPServer) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.actingUser(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	requestID, err := pathID(r)
	if err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	if err := s.deps.Requests.DeleteRequest(r.Context(), userID, requestID); err != nil {
		writeDomainError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
