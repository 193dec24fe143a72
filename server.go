package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	maxUploadSize = 10 << 20 // 10 MB
	maxRecordBody = 1 << 20
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	done     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		done:     make(chan struct{}),
	}
	go rl.cleanup(time.Minute)
	return rl
}

// cleanup drops visitors idle for five minutes until stop is called.
func (rl *rateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// stop ends the cleanup goroutine. Safe to call more than once.
func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// stopped reports whether stop has been called.
func (rl *rateLimiter) stopped() bool {
	select {
	case <-rl.done:
		return true
	default:
		return false
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Server is the HTTP API for storing, rendering and playing puzzles.
type Server struct {
	mux      *http.ServeMux
	store    *Store
	gemini   *GeminiClient
	labels   Labels
	logger   *slog.Logger
	events   *Broadcaster
	uploadRL *rateLimiter
	moveRL   *rateLimiter
}

// NewServer creates a configured HTTP server. gemini may be nil, in which
// case image scanning is disabled.
func NewServer(store *Store, gemini *GeminiClient, labels Labels, logger *slog.Logger) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		store:    store,
		gemini:   gemini,
		labels:   labels,
		logger:   logger,
		events:   NewBroadcaster(),
		uploadRL: newRateLimiter(5, time.Minute), // 5 uploads/min per IP
		moveRL:   newRateLimiter(60, time.Second),
	}
	s.routes()
	return s
}

// Close stops the server's background goroutines.
func (s *Server) Close() {
	s.uploadRL.stop()
	s.moveRL.stop()
}

func (s *Server) routes() {
	// Puzzle API
	s.mux.HandleFunc("POST /api/puzzles", s.handleCreatePuzzle)
	s.mux.HandleFunc("POST /api/puzzles/scan", s.handleScanPuzzle)
	s.mux.HandleFunc("GET /api/puzzles", s.handleListPuzzles)
	s.mux.HandleFunc("GET /api/puzzles/{id}", s.handleGetPuzzle)
	s.mux.HandleFunc("GET /api/puzzles/{id}/latex", s.handleLatex)
	s.mux.HandleFunc("GET /api/puzzles/{id}/solution", s.handleSolution)

	// Game API
	s.mux.HandleFunc("POST /api/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/join", s.handleJoinGame)
	s.mux.HandleFunc("POST /api/games/{id}/move", s.handleMove)
	s.mux.HandleFunc("GET /api/games/{id}/check", s.handleCheck)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")
	s.mux.ServeHTTP(w, r)
}

// --- Puzzle handlers ---

// POST /api/puzzles: store a puzzle record and build its grid.
func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(r.RemoteAddr) {
		jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecordBody))
	if err != nil {
		jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	p, err := DecodePuzzle(data)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}
	s.store.SavePuzzle(p)
	s.logger.Info("puzzle stored", "id", p.ID, "questions", len(p.Questions), "rows", p.Grid.Rows, "cols", p.Grid.Cols)

	writeJSON(w, http.StatusCreated, p)
}

// POST /api/puzzles/scan: upload a photo, extract questions with Gemini.
func (s *Server) handleScanPuzzle(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(r.RemoteAddr) {
		jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	if s.gemini == nil {
		jsonError(w, "image scanning not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, "image too large (max 10 MB)", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		jsonError(w, "field 'image' required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !allowedMIME[mimeType] {
		jsonError(w, "accepted formats: JPEG or PNG", http.StatusBadRequest)
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "could not read image", http.StatusInternalServerError)
		return
	}

	p, err := s.gemini.ScanImage(r.Context(), imageData, mimeType)
	if err != nil {
		s.logger.Error("gemini scan failed", "err", err)
		jsonError(w, "could not read puzzle from image", http.StatusInternalServerError)
		return
	}

	s.store.SavePuzzle(p)
	writeJSON(w, http.StatusCreated, p)
}

// GET /api/puzzles: list all puzzles.
func (s *Server) handleListPuzzles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListPuzzles())
}

// GET /api/puzzles/{id}: get a single puzzle with its solved grid.
func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p := s.store.GetPuzzle(r.PathValue("id"))
	if p == nil {
		jsonError(w, "puzzle not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /api/puzzles/{id}/latex: puzzle markup, ?header=1 adds the page header.
func (s *Server) handleLatex(w http.ResponseWriter, r *http.Request) {
	p := s.store.GetPuzzle(r.PathValue("id"))
	if p == nil {
		jsonError(w, "puzzle not found", http.StatusNotFound)
		return
	}
	out := RenderLatex(p.Grid, p.Questions, s.labels)
	if r.URL.Query().Get("header") == "1" {
		out = p.Latex(s.labels)
	}
	writeText(w, out)
}

// GET /api/puzzles/{id}/solution: plain-text solution.
func (s *Server) handleSolution(w http.ResponseWriter, r *http.Request) {
	p := s.store.GetPuzzle(r.PathValue("id"))
	if p == nil {
		jsonError(w, "puzzle not found", http.StatusNotFound)
		return
	}
	writeText(w, p.Solution(s.labels))
}

// --- Game handlers ---

// gameView is what players see of a session: no answers.
type gameView struct {
	ID        string            `json:"id"`
	PuzzleID  string            `json:"puzzle_id"`
	Players   map[string]Player `json:"players"`
	State     [][]string        `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	Grid      *Grid             `json:"grid"`
	Questions []clueView        `json:"questions"`
}

type clueView struct {
	Nr        int       `json:"nr"`
	Question  string    `json:"question"`
	Row       int       `json:"yc"`
	Col       int       `json:"xc"`
	Direction Direction `json:"direction"`
	Length    int       `json:"length"`
}

func (s *Server) viewGame(game *GameSession) gameView {
	v := gameView{
		ID:        game.ID,
		PuzzleID:  game.PuzzleID,
		Players:   game.GetPlayers(),
		State:     game.GetState(),
		CreatedAt: game.CreatedAt,
	}
	if p := s.store.GetPuzzle(game.PuzzleID); p != nil {
		v.Grid = p.Grid.Masked()
		for _, q := range p.Questions {
			v.Questions = append(v.Questions, clueView{
				Nr: q.Nr, Question: q.Question, Row: q.Row, Col: q.Col,
				Direction: q.Direction, Length: q.Length,
			})
		}
	}
	return v
}

// POST /api/games: create a game from a puzzle.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PuzzleID string `json:"puzzle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PuzzleID == "" {
		jsonError(w, "field 'puzzle_id' required", http.StatusBadRequest)
		return
	}

	game, err := s.store.CreateGame(req.PuzzleID)
	if err != nil {
		jsonError(w, "puzzle not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusCreated, s.viewGame(game))
}

// GET /api/games/{id}: get current game state.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.viewGame(game))
}

// POST /api/games/{id}/join: join a game with a pseudo.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pseudo == "" {
		jsonError(w, "field 'pseudo' required", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "invalid pseudo", http.StatusBadRequest)
		return
	}

	player := game.AddPlayer(pseudo)
	s.events.Publish(game.ID, Event{Type: "player_joined", Pseudo: player.Pseudo, Color: player.Color})

	writeJSON(w, http.StatusOK, player)
}

// POST /api/games/{id}/move: place a letter.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(r.RemoteAddr) {
		jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
		Row    int    `json:"row"`
		Col    int    `json:"col"`
		Value  string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if !game.HasPlayer(pseudo) {
		jsonError(w, "join the game before playing", http.StatusForbidden)
		return
	}

	// Empty erases, otherwise exactly one letter.
	value := strings.ToUpper(strings.TrimSpace(req.Value))
	if value != "" {
		ch, _ := utf8.DecodeRuneInString(value)
		if utf8.RuneCountInString(value) != 1 || !unicode.IsLetter(ch) {
			jsonError(w, "invalid value: one letter or empty", http.StatusBadRequest)
			return
		}
	}

	if !game.SetCell(req.Row, req.Col, value) {
		jsonError(w, "not a letter cell", http.StatusBadRequest)
		return
	}

	s.events.Publish(game.ID, cellEvent(pseudo, req.Row, req.Col, value))
	if _, solved := game.Check(); solved {
		s.events.Publish(game.ID, Event{Type: "solved", Solved: true})
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/games/{id}/check: list wrong letters.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}

	wrong, solved := game.Check()
	if wrong == nil {
		wrong = []CellCoord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wrong":  wrong,
		"solved": solved,
	})
}

// GET /api/games/{id}/events: SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}

	playerPseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))
	initial := &Event{
		Type:    "game_state",
		State:   game.GetState(),
		Players: game.GetPlayers(),
	}

	s.events.ServeSSE(w, r, game.ID, initial, func() {
		if playerPseudo != "" {
			game.RemovePlayer(playerPseudo)
			s.events.Publish(game.ID, Event{Type: "player_left", Pseudo: playerPseudo})
		}
	})
}

// --- Helpers ---

func (s *Server) writeBuildError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrOutOfBounds):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		jsonError(w, "invalid puzzle record: "+err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizePseudo(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20])
	}
	return s
}
