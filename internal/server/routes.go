package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tsuitodo/tasklist-backend/internal/auth"
	"github.com/tsuitodo/tasklist-backend/internal/domain"
	"github.com/tsuitodo/tasklist-backend/internal/logger"
	"github.com/tsuitodo/tasklist-backend/internal/service"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.rootHandler)
	r.Get("/health", s.healthHandler)

	r.Post("/register", s.registerHandler)
	r.Post("/login", s.loginHandler)
	r.Post("/logout", s.logoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/me", s.meHandler)

		r.Route("/todos", func(r chi.Router) {
			r.Post("/", s.createTodoHandler)
			r.Get("/{id}", s.getTodoHandler)
			r.Put("/{id}", s.renameTodoHandler)
			r.Delete("/{id}", s.deleteTodoHandler)
			r.Post("/{id}/tasks", s.addTaskHandler)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Put("/{id}", s.editTaskHandler)
			r.Post("/{id}/star", s.toggleStarHandler)
			r.Delete("/{id}", s.deleteTaskHandler)
		})
	})

	return r
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Task List Backend"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := s.identityService.Register(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err, "Register")
		return
	}

	// Registration signs the new user in immediately.
	if !s.establishSession(w, user) {
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := s.identityService.Login(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err, "Login")
		return
	}

	if !s.establishSession(w, user) {
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"user": user})
}

// logoutHandler destroys the session cookie. Safe to call without one.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Sign in required")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	var req service.CreateTodoRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	view, err := s.todoService.CreateTodoWithFirstTask(r.Context(), user.ID, req)
	if err != nil {
		s.respondServiceError(w, err, "CreateTodoWithFirstTask")
		return
	}

	respondWithJSON(w, http.StatusCreated, view)
}

func (s *Server) getTodoHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := s.userAndID(w, r)
	if !ok {
		return
	}

	view, err := s.todoService.GetTodoView(r.Context(), user.ID, id)
	if err != nil {
		s.respondServiceError(w, err, "GetTodoView")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (s *Server) renameTodoHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := s.userAndID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	view, err := s.todoService.RenameTodo(r.Context(), user.ID, id, req.Title)
	if err != nil {
		s.respondServiceError(w, err, "RenameTodo")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := s.userAndID(w, r)
	if !ok {
		return
	}

	if err := s.todoService.DeleteTodo(r.Context(), user.ID, id); err != nil {
		s.respondServiceError(w, err, "DeleteTodo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addTaskHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := s.userAndID(w, r)
	if !ok {
		return
	}

	var req service.TaskRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	task, err := s.todoService.AddTask(r.Context(), user.ID, id, req)
	if err != nil {
		s.respondServiceError(w, err, "AddTask")
		return
	}

	respondWithJSON(w, http.StatusCreated, task)
}

func (s *Server) editTaskHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := s.userAndID(w, r)
	if !ok {
		return
	}

	var req service.TaskRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	task, err := s.todoService.EditTask(r.Context(), user.ID, id, req)
	if err != nil {
		s.respondServiceError(w, err, "EditTask")
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

func (s *Server) toggleStarHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := s.userAndID(w, r)
	if !ok {
		return
	}

	task, err := s.todoService.ToggleStar(r.Context(), user.ID, id)
	if err != nil {
		s.respondServiceError(w, err, "ToggleStar")
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := s.userAndID(w, r)
	if !ok {
		return
	}

	if err := s.todoService.DeleteTask(r.Context(), user.ID, id); err != nil {
		s.respondServiceError(w, err, "DeleteTask")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// userAndID pulls the session user and the {id} route parameter, writing the
// error response itself when either is missing.
func (s *Server) userAndID(w http.ResponseWriter, r *http.Request) (*service.UserResponse, uint, bool) {
	user, ok := currentUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Sign in required")
		return nil, 0, false
	}

	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid ID provided")
		return nil, 0, false
	}

	return user, uint(id), true
}

// establishSession mints a session token for the user and sets the cookie.
func (s *Server) establishSession(w http.ResponseWriter, user *service.UserResponse) bool {
	token, err := auth.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		logger.Logger.WithError(err).Error("Failed to generate session token")
		respondWithError(w, http.StatusInternalServerError, "Failed to establish session")
		return false
	}
	setSessionCookie(w, token)
	return true
}

// respondServiceError maps the domain error taxonomy onto HTTP statuses.
// Identity and input errors are user-visible; anything else is logged and
// hidden behind a 500.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrUnknownEmail),
		errors.Is(err, domain.ErrBadPassword),
		errors.Is(err, domain.ErrInvalidDate):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case strings.Contains(err.Error(), "cannot be empty"),
		strings.Contains(err.Error(), "required"):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Logger.WithError(err).Errorf("%s failed", op)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSONBody decodes a JSON request body into dst, writing a descriptive
// 400 and returning false on any malformed input.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)
	if err == nil {
		return true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	case errors.Is(err, io.ErrUnexpectedEOF):
		respondWithError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Request body contains unknown field %s", fieldName))
	case errors.Is(err, io.EOF):
		respondWithError(w, http.StatusBadRequest, "Request body must not be empty")
	default:
		logger.Logger.WithError(err).Error("Error decoding request body")
		respondWithError(w, http.StatusInternalServerError, "Error processing request")
	}
	return false
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Logger.WithError(err).Error("Error marshaling JSON response")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
