package main

import (
	"net/http"
)

func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthcheck", app.healthCheckHandler)

	mux.HandleFunc("POST /users", app.createUserHandler)
	mux.HandleFunc("POST /users/login", app.loginUserHandler)
	mux.HandleFunc("POST /users/logout", app.requireAuth(app.logoutUserHandler))
	mux.HandleFunc("POST /users/logoutAll", app.requireAuth(app.logoutAllUserHandler))
	mux.HandleFunc("GET /users/me", app.requireAuth(app.getProfileHandler))
	mux.HandleFunc("GET /users/{id}", app.getUserHandler)
	mux.HandleFunc("PATCH /users/me", app.requireAuth(app.updateProfileHandler))
	mux.HandleFunc("DELETE /users/me", app.requireAuth(app.deleteProfileHandler))

	mux.HandleFunc("POST /users/me/avatar", app.requireAuth(app.uploadAvatarHandler))
	mux.HandleFunc("DELETE /users/me/avatar", app.requireAuth(app.deleteAvatarHandler))
	mux.HandleFunc("GET /users/{id}/avatar", app.getAvatarHandler)

	mux.HandleFunc("POST /tasks", app.requireAuth(app.createTaskHandler))
	mux.HandleFunc("GET /tasks", app.requireAuth(app.getTasksHandler))
	mux.HandleFunc("GET /tasks/{id}", app.requireAuth(app.getTaskHandler))
	mux.HandleFunc("PATCH /tasks/{id}", app.requireAuth(app.updateTaskHandler))
	mux.HandleFunc("DELETE /tasks/{id}", app.requireAuth(app.deleteTaskHandler))

	var handler http.Handler = mux
	if len(app.config.cors.trustedOrigins) > 0 {
		handler = app.enableCORS(handler)
	}
	if app.config.limiter.enabled {
		handler = app.rateLimit(handler)
	}
	return handler
}
