package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// sortColumns whitelists the task fields a listing may be ordered by,
// keeping user input out of the ORDER BY clause.
var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"created_at":  "created_at",
	"description": "description",
	"completed":   "is_completed",
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	input.Description = strings.TrimSpace(input.Description)

	v := newValidator()
	v.checkDescription(input.Description)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	u := getUserFromRequest(r)
	t := &task{
		UserID:      u.ID,
		Description: input.Description,
		IsCompleted: input.Completed,
	}
	err = app.store.insertTask(t)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, t, http.StatusCreated)
}

// getTasksHandler lists the requester's tasks. Query parameters:
// completed=true|false, sort=field:asc|desc, limit, skip. Values that
// do not parse are ignored rather than rejected.
func (app *application) getTasksHandler(w http.ResponseWriter, r *http.Request) {
	var f taskFilters

	q := r.URL.Query()
	if c := q.Get("completed"); c == "true" || c == "false" {
		completed := c == "true"
		f.completed = &completed
	}
	if s := q.Get("sort"); s != "" {
		field, direction, _ := strings.Cut(s, ":")
		if column, ok := sortColumns[field]; ok {
			f.sortColumn = column
			f.sortDesc = direction == "desc"
		}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		f.limit = limit
	}
	if skip, err := strconv.Atoi(q.Get("skip")); err == nil && skip > 0 {
		f.skip = skip
	}

	u := getUserFromRequest(r)
	tasks, err := app.store.getTasks(u.ID, f)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, tasks, http.StatusOK)
}

func (app *application) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, errors.New("task not found"), http.StatusNotFound)
		return
	}
	u := getUserFromRequest(r)
	t, err := app.store.getTask(id, u.ID)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if t == nil {
		writeError(w, errors.New("task not found"), http.StatusNotFound)
		return
	}
	writeJSON(w, t, http.StatusOK)
}

// updateTaskHandler enforces the same wholesale allow-list policy as
// the profile update: one disallowed field rejects the whole request.
// The lookup is owner-scoped, so another user's task id reads as
// nonexistent.
func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, errors.New("task not found"), http.StatusNotFound)
		return
	}
	var updates map[string]json.RawMessage
	err = json.NewDecoder(r.Body).Decode(&updates)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	allowed := map[string]bool{"description": true, "completed": true}
	for field := range updates {
		if !allowed[field] {
			writeError(w, errors.New("invalid update"), http.StatusBadRequest)
			return
		}
	}

	u := getUserFromRequest(r)
	t, err := app.store.getTask(id, u.ID)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if t == nil {
		writeError(w, errors.New("task not found"), http.StatusNotFound)
		return
	}

	v := newValidator()
	if raw, ok := updates["description"]; ok {
		var description string
		if err := json.Unmarshal(raw, &description); err != nil {
			writeError(w, errors.New("description must be a string"), http.StatusBadRequest)
			return
		}
		t.Description = strings.TrimSpace(description)
		v.checkDescription(t.Description)
	}
	if raw, ok := updates["completed"]; ok {
		var completed bool
		if err := json.Unmarshal(raw, &completed); err != nil {
			writeError(w, errors.New("completed must be a boolean"), http.StatusBadRequest)
			return
		}
		t.IsCompleted = completed
	}
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	err = app.store.updateTask(t)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, t, http.StatusOK)
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, errors.New("task not found"), http.StatusNotFound)
		return
	}
	u := getUserFromRequest(r)
	t, err := app.store.deleteTask(id, u.ID)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if t == nil {
		writeError(w, errors.New("task not found"), http.StatusNotFound)
		return
	}
	writeJSON(w, t, http.StatusOK)
}
