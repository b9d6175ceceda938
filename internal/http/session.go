package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const sessionCookieName = "cuotas_session"

// sessionStore keeps the operator's login sessions in memory. Sessions are
// opaque random tokens with a TTL; a restart logs everyone out.
type sessionStore struct {
	mu           sync.Mutex
	sessions     map[string]time.Time
	ttl          time.Duration
	user         string
	passwordHash string
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

func newSessionStore(user, passwordHash string, ttl time.Duration) *sessionStore {
	st := &sessionStore{
		sessions:     make(map[string]time.Time),
		ttl:          ttl,
		user:         user,
		passwordHash: passwordHash,
		stopCleanup:  make(chan struct{}),
	}
	go st.startCleanup()
	return st
}

// enabled reports whether login is required. With no password hash configured
// the panel runs open, which is the expected mode for local use.
func (st *sessionStore) enabled() bool {
	return st.passwordHash != ""
}

// login checks the credentials and returns a fresh session token.
func (st *sessionStore) login(user, password string) (string, bool) {
	if !st.enabled() {
		return "", false
	}
	if user != st.user {
		// Burn a comparison anyway so the timing is the same for wrong
		// user and wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte(st.passwordHash), []byte(password))
		return "", false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(st.passwordHash), []byte(password)); err != nil {
		return "", false
	}

	token := generateSessionToken()
	st.mu.Lock()
	st.sessions[token] = time.Now().Add(st.ttl)
	st.mu.Unlock()
	return token, true
}

// valid reports whether the token belongs to a live session.
func (st *sessionStore) valid(token string) bool {
	if token == "" {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	expiresAt, ok := st.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(st.sessions, token)
		return false
	}
	return true
}

// destroy removes a session token. Unknown tokens are ignored.
func (st *sessionStore) destroy(token string) {
	st.mu.Lock()
	delete(st.sessions, token)
	st.mu.Unlock()
}

func (st *sessionStore) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.cleanupExpired()
		case <-st.stopCleanup:
			return
		}
	}
}

func (st *sessionStore) cleanupExpired() {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	for token, expiresAt := range st.sessions {
		if now.After(expiresAt) {
			delete(st.sessions, token)
		}
	}
}

func (st *sessionStore) stop() {
	st.shutdownOnce.Do(func() {
		if st.stopCleanup != nil {
			close(st.stopCleanup)
		}
	})
}

func generateSessionToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "sess_" + hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(bytes)
}

// withSession gates a handler behind the operator login. Unauthenticated
// requests are redirected to the login form.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.enabled() {
			next(w, r)
			return
		}
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || !s.sessions.valid(cookie.Value) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
