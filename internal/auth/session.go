package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const cookieName = "mayabook_session"

// SessionStore keeps the signed-in Session in an encrypted, signed cookie.
type SessionStore struct {
	sc     *securecookie.SecureCookie
	maxAge time.Duration
}

func NewSessionStore(hashKey, blockKey []byte, maxAge time.Duration) *SessionStore {
	if maxAge <= 0 {
		maxAge = 14 * 24 * time.Hour
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(maxAge.Seconds()))
	// JWTs push gob-encoded values past the default 4096 byte limit
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &SessionStore{sc: sc, maxAge: maxAge}
}

func (s *SessionStore) Set(w http.ResponseWriter, r *http.Request, sess Session) error {
	encoded, err := s.sc.Encode(cookieName, sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(s.maxAge.Seconds()),
	})
	return nil
}

func (s *SessionStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Get decodes the session cookie. Sessions whose token has expired count as absent.
func (s *SessionStore) Get(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := s.sc.Decode(cookieName, c.Value, &sess); err != nil {
		return Session{}, false
	}
	if sess.Token == "" || Expired(sess.Token) {
		return Session{}, false
	}
	return sess, true
}

// Middleware puts the cookie session, when there is one, on the request context.
func (s *SessionStore) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := s.Get(r); ok {
			r = r.WithContext(NewContext(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests that carry no session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "you need to sign in first")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose session does not belong to an administrator.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, _ := SessionFromContext(r.Context()); !sess.User.IsAdmin() {
			writeError(w, http.StatusForbidden, "administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
