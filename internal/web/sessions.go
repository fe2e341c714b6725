package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/schema"
)

const sessionCookie = "inspection_session"

// formEntry guards one form session. Handlers hold mu only while they touch
// the session; report composition runs outside it.
type formEntry struct {
	mu       sync.Mutex
	form     *form.Session
	lastSeen time.Time
}

// sessionStore keeps form sessions in memory, keyed by cookie value.
type sessionStore struct {
	mu       sync.Mutex
	schema   *schema.Schema
	sessions map[string]*formEntry
	idle     time.Duration
}

func newSessionStore(sch *schema.Schema, idle time.Duration) *sessionStore {
	return &sessionStore{
		schema:   sch,
		sessions: make(map[string]*formEntry),
		idle:     idle,
	}
}

// get returns the session named by the request cookie, creating one and
// setting the cookie when the request has none or an unknown one.
func (st *sessionStore) get(c *fiber.Ctx) *formEntry {
	now := time.Now()
	id := c.Cookies(sessionCookie)

	st.mu.Lock()
	defer st.mu.Unlock()

	if e, ok := st.sessions[id]; ok && id != "" {
		e.lastSeen = now
		return e
	}

	st.expireLocked(now)

	id = uuid.NewString()
	e := &formEntry{form: form.NewSession(st.schema), lastSeen: now}
	st.sessions[id] = e

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return e
}

// expireLocked drops sessions idle for longer than st.idle.
func (st *sessionStore) expireLocked(now time.Time) {
	if st.idle <= 0 {
		return
	}
	for id, e := range st.sessions {
		if now.Sub(e.lastSeen) > st.idle {
			delete(st.sessions, id)
		}
	}
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
