/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tomoncle/unitwork/manager"
	"github.com/tomoncle/unitwork/models"
	"github.com/tomoncle/unitwork/types"
	"github.com/tomoncle/unitwork/uow"
)

type studentHandlers struct {
	students manager.Manager[models.Student]
}

// studentInput is the writable part of a student. EnrolledOn is dd-mm-yyyy.
type studentInput struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Age        int      `json:"age"`
	Status     string   `json:"status"`
	Tags       []string `json:"tags"`
	EnrolledOn string   `json:"enrolled_on"`
}

func (in studentInput) apply(s *models.Student) error {
	if in.Name == "" {
		return errors.New("name is required")
	}
	status := models.StudentEnrolled
	if in.Status != "" {
		parsed, err := models.StudentStatuses.Parse(in.Status)
		if err != nil {
			return err
		}
		status = parsed
	}
	enrolledAt, err := types.ParseDate(in.EnrolledOn)
	if err != nil {
		return errors.New("enrolled_on must be dd-mm-yyyy")
	}
	s.Name = in.Name
	s.Email = in.Email
	s.Age = in.Age
	s.Status = status
	s.Tags = types.NewJSON(in.Tags)
	s.EnrolledAt = enrolledAt
	return nil
}

func (h *studentHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	size := queryInt(q.Get("size"), 20)
	req := types.NewPageRequest(page, size).OrderBy("id", q.Get("desc") == "")

	var clauses []string
	var args []interface{}
	if name := q.Get("name"); name != "" {
		clauses = append(clauses, "name LIKE ?")
		args = append(args, name+"%")
	}
	if status := q.Get("status"); status != "" {
		value, ok := models.StudentStatuses.TryParse(status)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		clauses = append(clauses, "status = ?")
		args = append(args, value)
	}
	if len(clauses) > 0 {
		req.WithFilter(types.NewQueryFilter(strings.Join(clauses, " AND "), args...))
	}

	pagination, err := h.students.PageAsync(r.Context(), req).Await(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagination)
}

func (h *studentHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	student, err := h.students.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *studentHandlers) create(w http.ResponseWriter, r *http.Request) {
	var in studentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	student := &models.Student{}
	if err := in.apply(student); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.students.SaveAndCommit(r.Context(), student); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (h *studentHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in studentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	student := &models.Student{}
	if err := in.apply(student); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	student.ID = id
	if _, err := h.students.SaveAndCommit(r.Context(), student); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *studentHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := h.students.DeleteByIDAndCommit(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, uow.ErrConcurrencyConflict) {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	log.Error("Request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
