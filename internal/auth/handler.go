package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Handler serves the auth routes under bookapi.AuthPrefix. The paths it
// matches include the prefix, so it is mounted without stripping.
func (s *Service) Handler(secureCookies bool) http.Handler {
	h := &handler{svc: s, log: s.log, secure: secureCookies}

	router := httprouter.New()
	router.HandlerFunc(bookapi.SignUpEmail.Method, bookapi.SignUpEmail.Path, h.signUp)
	router.HandlerFunc(bookapi.SignInEmail.Method, bookapi.SignInEmail.Path, h.signIn)
	router.HandlerFunc(bookapi.SignOut.Method, bookapi.SignOut.Path, h.signOut)
	router.HandlerFunc(bookapi.GetSession.Method, bookapi.GetSession.Path, h.getSession)
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusNotFound, bookapi.ErrorResponse{Error: "Not found"})
	})
	return router
}

type handler struct {
	svc    *Service
	log    *zap.Logger
	secure bool
}

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req bookapi.SignUpRequest
	if !h.readValid(w, r, &req) {
		return
	}

	identity, token, err := h.svc.SignUp(r.Context(), req, clientMeta(r))
	switch {
	case errors.Is(err, ErrEmailTaken):
		h.writeJSON(w, http.StatusUnprocessableEntity, bookapi.ErrorResponse{Error: "User already exists"})
		return
	case err != nil:
		h.writeJSON(w, http.StatusInternalServerError, bookapi.ErrorResponse{Error: "Failed to create user"})
		return
	}

	h.startSession(w, identity, token)
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req bookapi.SignInRequest
	if !h.readValid(w, r, &req) {
		return
	}

	identity, token, err := h.svc.SignIn(r.Context(), req, clientMeta(r))
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		h.writeJSON(w, http.StatusUnauthorized, bookapi.ErrorResponse{Error: "Invalid email or password"})
		return
	case err != nil:
		h.log.Error("Failed to sign in", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, bookapi.ErrorResponse{Error: "Failed to sign in"})
		return
	}

	h.startSession(w, identity, token)
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SignOut(r.Context(), TokenFromHeader(r.Header)); err != nil {
		h.log.Error("Failed to revoke session", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, bookapi.ErrorResponse{Error: "Failed to sign out"})
		return
	}

	http.SetCookie(w, h.cookie("", time.Unix(0, 0)))
	h.writeJSON(w, http.StatusOK, bookapi.SuccessResponse{Success: true})
}

// getSession answers with the current session, or JSON null when there is none.
func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	identity, err := h.svc.Resolve(r.Context(), r.Header)
	if err != nil {
		h.log.Error("Failed to resolve session", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, bookapi.ErrorResponse{Error: "Failed to get session"})
		return
	}

	var resp *bookapi.SessionResponse
	if identity != nil {
		resp = &bookapi.SessionResponse{User: identity.User, Session: identity.Session}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) startSession(w http.ResponseWriter, identity *Identity, token string) {
	http.SetCookie(w, h.cookie(token, identity.Session.ExpiresAt))
	h.writeJSON(w, http.StatusOK, bookapi.SessionResponse{
		Token:   token,
		User:    identity.User,
		Session: identity.Session,
	})
}

func (h *handler) cookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     bookapi.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	return cookie
}

// readValid decodes and validates a JSON body, answering 400 on failure.
func (h *handler) readValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, bookapi.ErrorResponse{Error: "Invalid JSON body"})
		return false
	}

	if err := bookapi.Validate(dst); err != nil {
		var verrs bookapi.ValidationErrors
		if errors.As(err, &verrs) {
			h.writeJSON(w, http.StatusBadRequest, bookapi.ErrorResponse{Error: verrs})
			return false
		}
		h.writeJSON(w, http.StatusBadRequest, bookapi.ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func clientMeta(r *http.Request) ClientMeta {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return ClientMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}
