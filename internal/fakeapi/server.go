// Package fakeapi provides an in-memory QuizWhiz backend for tests and
// offline development.
//
// It serves the same HTTP+JSON routes as the real backend, keeps users,
// lessons and flashcards in memory, issues opaque bearer tokens, and can
// inject failures (status codes, malformed bodies, delays) per route. Every
// request is counted so tests can assert how many network calls a flow
// made.
package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/five82/quizwhiz/internal/api"
)

// Fault describes an injected failure for requests matching a route.
type Fault struct {
	// Status is the HTTP status to answer with. Zero lets the request through
	// after Delay.
	Status int
	// Message becomes the body's "detail" field.
	Message string
	// Raw replaces the body verbatim, e.g. to send malformed JSON with a 200.
	Raw string
	// Delay is applied before answering.
	Delay time.Duration
	// Times limits how often the fault fires; zero means always.
	Times int
}

type account struct {
	user     api.User
	password string
}

// Server is a fake QuizWhiz backend.
type Server struct {
	router *mux.Router

	mu       sync.Mutex
	accounts map[int64]*account
	lessons  map[int64]api.Lesson
	cards    map[int64]api.Flashcard
	access   map[string]int64
	refresh  map[string]int64
	nextID   int64
	faults   map[string][]*Fault
	calls    map[string]int
	now      func() time.Time

	listener net.Listener
	http     *http.Server
}

// NewServer returns an empty backend.
func NewServer() *Server {
	s := &Server{
		accounts: make(map[int64]*account),
		lessons:  make(map[int64]api.Lesson),
		cards:    make(map[int64]api.Flashcard),
		access:   make(map[string]int64),
		refresh:  make(map[string]int64),
		faults:   make(map[string][]*Fault),
		calls:    make(map[string]int),
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/users/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc(api.RefreshPath, s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/users/user/{id:[0-9]+}", s.authed(s.handleGetUser)).Methods(http.MethodGet)
	r.HandleFunc("/users/list", s.authed(s.handleListUsers)).Methods(http.MethodGet)
	r.HandleFunc("/users/update", s.authed(s.handleUpdateUser)).Methods(http.MethodPatch)
	r.HandleFunc("/users/delete", s.authed(s.handleDeleteUser)).Methods(http.MethodDelete)

	r.HandleFunc("/lessons/public", s.authed(s.handlePublicLessons)).Methods(http.MethodGet)
	r.HandleFunc("/lessons/user/{id:[0-9]+}", s.authed(s.handleUserLessons)).Methods(http.MethodGet)
	r.HandleFunc("/lessons/keywords/{q}", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/lessons/top-categories", s.handleTopCategories).Methods(http.MethodGet)
	r.HandleFunc("/lessons/new", s.authed(s.handleCreateLesson)).Methods(http.MethodPost)
	r.HandleFunc("/lessons/update", s.authed(s.handleUpdateLesson)).Methods(http.MethodPatch)
	r.HandleFunc("/lessons/delete", s.authed(s.handleDeleteLesson)).Methods(http.MethodDelete)

	r.HandleFunc("/flashcards/by-lesson/{id:[0-9]+}", s.handleCardsByLesson).Methods(http.MethodGet)
	r.HandleFunc("/flashcards/public/", s.handlePublicCards).Methods(http.MethodGet)
	r.HandleFunc("/flashcards/", s.handleCreateCard).Methods(http.MethodPost)
	return r
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr. Use "127.0.0.1:0" for a random port.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.http = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("fakeapi: serve: %v", err)
		}
	}()
	return nil
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// Stop shuts a started server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// AddUser registers an account and returns it with its assigned id.
func (s *Server) AddUser(u api.User, password string) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.allocID()
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	u.Role = u.Role.Normalize()
	s.accounts[u.ID] = &account{user: u, password: password}
	return u
}

// AddLesson stores a lesson and returns it with id and timestamps filled.
func (s *Server) AddLesson(l api.Lesson) api.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.allocID()
	} else if l.ID > s.nextID {
		s.nextID = l.ID
	}
	stamp := s.stamp()
	if l.CreatedAt == "" {
		l.CreatedAt = stamp
	}
	if l.UpdatedAt == "" {
		l.UpdatedAt = stamp
	}
	s.lessons[l.ID] = l
	return l
}

// AddFlashcard stores a card and returns it with id and timestamps filled.
func (s *Server) AddFlashcard(c api.Flashcard) api.Flashcard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.allocID()
	} else if c.ID > s.nextID {
		s.nextID = c.ID
	}
	stamp := s.stamp()
	c.CreatedAt, c.UpdatedAt = stamp, stamp
	s.cards[c.ID] = c
	return c
}

// IssueToken signs uid in without a login call and returns the access token.
func (s *Server) IssueToken(uid int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.access[token] = uid
	return token
}

// ExpireTokens invalidates every access token; refresh tokens stay valid.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]int64)
}

// Inject registers a fault for method and route. route is either a literal
// path ("/users/user/42") or a route template ("/users/user/{id:[0-9]+}").
func (s *Server) Inject(method, route string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + route
	s.faults[key] = append(s.faults[key], &f)
}

// ClearFaults removes every injected fault.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string][]*Fault)
}

// Calls returns how many requests hit method and literal path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) allocID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		literal := r.Method + " " + r.URL.Path
		var template string
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				template = r.Method + " " + tpl
			}
		}

		s.mu.Lock()
		s.calls[literal]++
		fault := s.takeFault(literal)
		if fault == nil && template != "" {
			fault = s.takeFault(template)
		}
		s.mu.Unlock()

		if fault != nil {
			if fault.Delay > 0 {
				select {
				case <-time.After(fault.Delay):
				case <-r.Context().Done():
					return
				}
			}
			if fault.Raw != "" {
				status := fault.Status
				if status == 0 {
					status = http.StatusOK
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(fault.Raw))
				return
			}
			if fault.Status != 0 {
				respondError(w, fault.Status, fault.Message)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// takeFault must be called with s.mu held.
func (s *Server) takeFault(key string) *Fault {
	list := s.faults[key]
	if len(list) == 0 {
		return nil
	}
	f := list[0]
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			s.faults[key] = list[1:]
		}
	}
	return f
}

type authedHandler func(w http.ResponseWriter, r *http.Request, me *account)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		s.mu.Lock()
		uid, known := s.access[token]
		me := s.accounts[uid]
		s.mu.Unlock()
		if !known || me == nil {
			respondError(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}
		h(w, r, me)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.Username == creds.Username && acc.password == creds.Password {
			access, refresh := uuid.NewString(), uuid.NewString()
			s.access[access] = acc.user.ID
			s.refresh[refresh] = acc.user.ID
			respondJSON(w, http.StatusOK, api.LoginResponse{AccessToken: access, RefreshToken: refresh, User: acc.user})
			return
		}
	}
	respondError(w, http.StatusUnauthorized, "Invalid credentials")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.refresh[body.RefreshToken]
	if !ok {
		respondError(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	access := uuid.NewString()
	s.access[access] = uid
	respondJSON(w, http.StatusOK, api.TokenPair{AccessToken: access})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, _ *account) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	acc := s.accounts[id]
	s.mu.Unlock()
	if acc == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, acc.user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request, me *account) {
	if !me.user.IsAdmin() {
		respondError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	s.mu.Lock()
	users := make([]api.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		users = append(users, acc.user)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, me *account) {
	var patch api.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	target := me.user.ID
	if patch.UserID != 0 && patch.UserID != me.user.ID {
		if !me.user.IsAdmin() {
			respondError(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		target = patch.UserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[target]
	if acc == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if patch.Username != "" {
		for id, other := range s.accounts {
			if id != target && other.user.Username == patch.Username {
				respondError(w, http.StatusBadRequest, "A user with that username already exists.")
				return
			}
		}
		acc.user.Username = patch.Username
	}
	if patch.Email != "" {
		acc.user.Email = patch.Email
	}
	if patch.Bio != "" {
		acc.user.Bio = patch.Bio
	}
	if patch.Password != "" {
		acc.password = patch.Password
	}
	respondJSON(w, http.StatusOK, acc.user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, me *account) {
	var body struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if body.UserID != me.user.ID && !me.user.IsAdmin() {
		respondError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[body.UserID]; !ok {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.accounts, body.UserID)
	for token, uid := range s.access {
		if uid == body.UserID {
			delete(s.access, token)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublicLessons(w http.ResponseWriter, _ *http.Request, _ *account) {
	respondJSON(w, http.StatusOK, s.selectLessons(func(l api.Lesson) bool { return l.IsPublic }))
}

func (s *Server) handleUserLessons(w http.ResponseWriter, r *http.Request, _ *account) {
	uid, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	lessons := s.selectLessons(func(l api.Lesson) bool { return l.CreatedBy == uid })
	if len(lessons) == 0 {
		respondError(w, http.StatusNotFound, "No lessons found for this user")
		return
	}
	respondJSON(w, http.StatusOK, lessons)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(mux.Vars(r)["q"]))
	lessons := s.selectLessons(func(l api.Lesson) bool {
		return strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q) ||
			strings.Contains(strings.ToLower(l.Category), q)
	})
	respondJSON(w, http.StatusOK, lessons)
}

func (s *Server) handleTopCategories(w http.ResponseWriter, _ *http.Request) {
	counts := map[string]int{}
	for _, l := range s.selectLessons(func(l api.Lesson) bool { return l.IsPublic }) {
		counts[l.Category]++
	}
	out := make([]api.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, api.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > 5 {
		out = out[:5]
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLesson(w http.ResponseWriter, r *http.Request, me *account) {
	var nl api.NewLesson
	if err := json.NewDecoder(r.Body).Decode(&nl); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if nl.Title == "" || nl.Description == "" || nl.Category == "" {
		respondError(w, http.StatusBadRequest, "title, description and category are required")
		return
	}
	l := s.AddLesson(api.Lesson{
		Title:       nl.Title,
		Description: nl.Description,
		Category:    nl.Category,
		IsPublic:    nl.IsPublic,
		CreatedBy:   me.user.ID,
	})
	respondJSON(w, http.StatusCreated, l)
}

func (s *Server) handleUpdateLesson(w http.ResponseWriter, r *http.Request, me *account) {
	var patch api.LessonPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[patch.LessonID]
	if !ok {
		respondError(w, http.StatusNotFound, "Lesson not found")
		return
	}
	if l.CreatedBy != me.user.ID && !me.user.IsAdmin() {
		respondError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	if patch.Title != nil {
		l.Title = *patch.Title
	}
	if patch.Description != nil {
		l.Description = *patch.Description
	}
	if patch.Category != nil {
		l.Category = *patch.Category
	}
	if patch.IsPublic != nil {
		l.IsPublic = *patch.IsPublic
	}
	l.UpdatedAt = s.stamp()
	s.lessons[l.ID] = l
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request, me *account) {
	var body struct {
		LessonID int64 `json:"lesson_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.LessonID == 0 {
		respondError(w, http.StatusBadRequest, "lesson_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[body.LessonID]
	if !ok {
		respondError(w, http.StatusNotFound, "Lesson not found")
		return
	}
	if l.CreatedBy != me.user.ID && !me.user.IsAdmin() {
		respondError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	delete(s.lessons, l.ID)
	for id, c := range s.cards {
		if c.Lesson == l.ID {
			delete(s.cards, id)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCardsByLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	_, ok := s.lessons[lessonID]
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "Lesson not found")
		return
	}
	respondJSON(w, http.StatusOK, s.selectCards(func(c api.Flashcard) bool { return c.Lesson == lessonID }))
}

func (s *Server) handlePublicCards(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	public := make(map[int64]bool, len(s.lessons))
	for id, l := range s.lessons {
		public[id] = l.IsPublic
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, s.selectCards(func(c api.Flashcard) bool { return public[c.Lesson] }))
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var nc api.NewFlashcard
	if err := json.NewDecoder(r.Body).Decode(&nc); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if nc.FrontText == "" || nc.BackText == "" {
		respondError(w, http.StatusBadRequest, "front_text and back_text are required")
		return
	}
	s.mu.Lock()
	_, ok := s.lessons[nc.Lesson]
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "Lesson not found")
		return
	}
	c := s.AddFlashcard(api.Flashcard{FrontText: nc.FrontText, BackText: nc.BackText, Lesson: nc.Lesson, CreatedBy: nc.CreatedBy})
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) selectLessons(keep func(api.Lesson) bool) []api.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) selectCards(keep func(api.Flashcard) bool) []api.Flashcard {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Flashcard, 0, len(s.cards))
	for _, c := range s.cards {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	respondJSON(w, status, map[string]string{"detail": message})
}
