package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

type userWithToken struct {
	User  *user  `json:"user"`
	Token string `json:"token"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (app *application) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Age      int    `json:"age"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)

	v := newValidator()
	v.checkName(input.Name)
	v.checkEmail(input.Email)
	v.checkPassword(input.Password)
	v.checkAge(input.Age)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		writeServerError(w, err)
		return
	}
	u := &user{
		Name:         input.Name,
		Email:        input.Email,
		Age:          input.Age,
		PasswordHash: hash,
	}
	err = app.store.insertUser(u)
	if err != nil {
		if errors.Is(err, errDuplicateEmail) {
			writeError(w, errDuplicateEmail, http.StatusBadRequest)
			return
		}
		writeServerError(w, err)
		return
	}

	app.notifyWelcome(u.Email, u.Name)

	token, err := app.issueToken(u)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, userWithToken{User: u, Token: token}, http.StatusCreated)
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	u, err := app.verifyCredentials(normalizeEmail(input.Email), input.Password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			writeError(w, errInvalidCredentials, http.StatusBadRequest)
			return
		}
		writeServerError(w, err)
		return
	}
	token, err := app.issueToken(u)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, userWithToken{User: u, Token: token}, http.StatusOK)
}

// logoutUserHandler revokes just the token the request was made with.
// Sessions on other devices stay live.
func (app *application) logoutUserHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	err := app.store.deleteToken(u.ID, getTokenFromRequest(r))
	if err != nil {
		writeServerError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *application) logoutAllUserHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	err := app.store.deleteAllTokens(u.ID)
	if err != nil {
		writeServerError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *application) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, getUserFromRequest(r), http.StatusOK)
}

func (app *application) getUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, errors.New("user not found"), http.StatusNotFound)
		return
	}
	u, err := app.store.getUserByID(id)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if u == nil {
		writeError(w, errors.New("user not found"), http.StatusNotFound)
		return
	}
	writeJSON(w, u, http.StatusOK)
}

// updateProfileHandler applies an allow-listed partial update. A body
// containing any field outside the allow-list is rejected before any
// store access, so no field from that request is ever applied.
func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var updates map[string]json.RawMessage
	err := json.NewDecoder(r.Body).Decode(&updates)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	allowed := map[string]bool{"name": true, "age": true, "email": true, "password": true}
	for field := range updates {
		if !allowed[field] {
			writeError(w, errors.New("invalid update"), http.StatusBadRequest)
			return
		}
	}

	u := getUserFromRequest(r)
	v := newValidator()

	if raw, ok := updates["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			writeError(w, errors.New("name must be a string"), http.StatusBadRequest)
			return
		}
		u.Name = strings.TrimSpace(name)
		v.checkName(u.Name)
	}
	if raw, ok := updates["age"]; ok {
		var age int
		if err := json.Unmarshal(raw, &age); err != nil {
			writeError(w, errors.New("age must be an integer"), http.StatusBadRequest)
			return
		}
		u.Age = age
		v.checkAge(u.Age)
	}
	if raw, ok := updates["email"]; ok {
		var email string
		if err := json.Unmarshal(raw, &email); err != nil {
			writeError(w, errors.New("email must be a string"), http.StatusBadRequest)
			return
		}
		u.Email = normalizeEmail(email)
		v.checkEmail(u.Email)
	}
	if raw, ok := updates["password"]; ok {
		var password string
		if err := json.Unmarshal(raw, &password); err != nil {
			writeError(w, errors.New("password must be a string"), http.StatusBadRequest)
			return
		}
		v.checkPassword(password)
		if !v.hasErrors() {
			hash, err := hashPassword(password)
			if err != nil {
				writeServerError(w, err)
				return
			}
			u.PasswordHash = hash
		}
	}
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	err = app.store.updateUser(u)
	if err != nil {
		if errors.Is(err, errDuplicateEmail) {
			writeError(w, errDuplicateEmail, http.StatusBadRequest)
			return
		}
		writeServerError(w, err)
		return
	}
	writeJSON(w, u, http.StatusOK)
}

func (app *application) deleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	err := app.store.deleteUser(u)
	if err != nil {
		writeServerError(w, err)
		return
	}
	app.notifyFarewell(u.Email, u.Name)
	writeJSON(w, u, http.StatusOK)
}
