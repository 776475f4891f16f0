package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsuitodo/tasklist-backend/internal/auth"
	"github.com/tsuitodo/tasklist-backend/internal/logger"
	"github.com/tsuitodo/tasklist-backend/internal/service"
)

type contextKey string

const sessionUserKey contextKey = "sessionUser"

const sessionCookieName = "session"

const sessionCookieMaxAge = 60 * 60 * 24 * 7

// requireSession guards every route that needs an authenticated user. It
// verifies the session cookie and reloads the user row so a stale session
// cannot outlive its account; the resolved user is stashed in the request
// context for handlers.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondWithError(w, http.StatusUnauthorized, "Sign in required")
			return
		}

		userID, err := auth.VerifySessionToken(cookie.Value)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		user, err := s.identityService.CurrentUser(r.Context(), userID)
		if err != nil {
			// The account behind this session is gone; invalidate it.
			clearSessionCookie(w)
			respondWithError(w, http.StatusUnauthorized, "Session is no longer valid")
			return
		}

		ctx := context.WithValue(r.Context(), sessionUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the session user requireSession resolved for this
// request.
func currentUser(r *http.Request) (*service.UserResponse, bool) {
	user, ok := r.Context().Value(sessionUserKey).(*service.UserResponse)
	return user, ok
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// requestLogger emits one structured log line per completed request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   r.RemoteAddr,
		}).Info("request completed")
	})
}
