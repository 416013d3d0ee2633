package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/google/uuid"
)

const sessionCookie = "advisory_session"

// State is everything one browser sees. Only one value of each field is
// live at a time; results of backend calls overwrite the previous ones.
type State struct {
	Authenticated bool
	Username      string

	AuthMode     domain.AuthMode
	AuthUsername string
	Notice       string

	Lang domain.Language

	District   string
	Weather    *domain.WeatherReport
	WeatherErr string

	Crop       string
	MandiPrice *float64
	MandiErr   string

	Inputs          domain.SoilInputs
	RecommendedCrop string
	RecommendErr    string

	ChatQuery    string
	ChatReply    string
	ChatAudioURL string
	ChatErr      string

	VoiceQueryText string
	VoiceReplyText string
	VoiceAudioURL  string
	VoiceErr       string
}

func DefaultState(lang domain.Language) State {
	if lang == "" {
		lang = domain.LanguageEnglish
	}

	return State{
		AuthMode: domain.AuthModeLogin,
		Lang:     lang,
		District: domain.DefaultDistrict,
		Crop:     domain.DefaultCrop,
		Inputs:   domain.DefaultSoilInputs(),
	}
}

type Session struct {
	Id string

	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

// Snapshot copies the state. Pointer fields are replaced, never mutated,
// so sharing them is safe.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) Update(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
}

// Render snapshots the state and consumes the auth notice, so a notice is
// shown exactly once.
func (s *Session) Render() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	s.state.Notice = ""
	return st
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return now.Sub(s.lastSeen)
}

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	defaults State
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration, defaults State) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		defaults: defaults,
		now:      time.Now,
	}
}

// Get returns the session named by the request cookie, if it is still live.
func (st *SessionStore) Get(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}

	st.mu.RLock()
	s, ok := st.sessions[c.Value]
	st.mu.RUnlock()

	if ok {
		s.touch(st.now())
	}
	return s, ok
}

// Ensure returns the request's session, starting a new one (and setting
// its cookie) when there is none.
func (st *SessionStore) Ensure(w http.ResponseWriter, r *http.Request) *Session {
	if s, ok := st.Get(r); ok {
		return s
	}

	s := &Session{Id: uuid.New().String(), state: st.defaults, lastSeen: st.now()}

	st.mu.Lock()
	st.sessions[s.Id] = s
	st.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.Id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return s
}

// Sweep drops sessions idle longer than the store's ttl and reports how
// many went.
func (st *SessionStore) Sweep() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.sessions)
}
