package server

import (
	"log"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"darkville/internal/config"
	"darkville/internal/random"

	"gorm.io/gorm"
)

type Server struct {
	store   *Store
	db      *gorm.DB
	ws      *wsHub
	cfg     config.Config
	limiter *rateLimiter

	// rng feeds shuffles and tie-breaks; it is only touched inside
	// UpdateGame closures, so the store mutex serializes it.
	rng *rand.Rand

	// now is swappable so tests can drive the clock.
	now func() time.Time

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	seed, err := random.NewSeed()
	if err != nil {
		log.Printf("crypto seed unavailable, falling back to wall clock: %v", err)
		seed = uint64(time.Now().UnixNano())
	}
	return &Server{
		store:   NewStore(),
		db:      conn,
		ws:      newWSHub(),
		cfg:     cfg,
		limiter: newRateLimiter(),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:     time.Now,
		timers:  make(map[string]*time.Timer),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/games/", s.handleGameSubroutes)
	mux.HandleFunc("POST /api/games/", s.handleGameSubroutes)
	mux.HandleFunc("GET /ws/games/", s.handleWebsocket)
	return mux
}
