// Package api is the HTTP surface of the server host: the healthy-recipe
// endpoint, the timer and activity routes and the live websocket feed.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"breeze/internal/cache"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/profile"
	"breeze/internal/services"
)

// Deps are the services behind the routes. Session is required.
type Deps struct {
	Session  *services.Session
	Recipes  *services.RecipeService
	Food     *services.FoodSuggestionService
	Emotions *services.EmotionService
	Profiles profile.Store
	Cache    *cache.Cache
	Hub      *Hub
	Logger   logging.Logger
}

type Options struct {
	ProfileID         string
	RequestsPerSecond float64
	Burst             int
}

type Server struct {
	session   *services.Session
	recipes   *services.RecipeService
	food      *services.FoodSuggestionService
	emotions  *services.EmotionService
	profiles  profile.Store
	cache     *cache.Cache
	hub       *Hub
	logger    logging.Logger
	profileID string

	router      *mux.Router
	unsubscribe func()
}

// NewServer wires the routes and subscribes the websocket hub to the session
func NewServer(deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.NewDefaultLogger()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Logger)
	}
	if deps.Recipes == nil {
		deps.Recipes = services.NewRecipeService(nil, deps.Cache, deps.Logger)
	}
	if deps.Food == nil {
		deps.Food = services.NewFoodSuggestionService(nil, nil, deps.Cache, deps.Logger)
	}
	if deps.Emotions == nil {
		deps.Emotions = services.NewEmotionService(nil, deps.Logger)
	}
	if opts.ProfileID == "" {
		opts.ProfileID = profile.DefaultID
	}

	s := &Server{
		session:   deps.Session,
		recipes:   deps.Recipes,
		food:      deps.Food,
		emotions:  deps.Emotions,
		profiles:  deps.Profiles,
		cache:     deps.Cache,
		hub:       deps.Hub,
		logger:    deps.Logger,
		profileID: opts.ProfileID,
	}

	s.hub.SetRecorder(s.session.Record)
	s.unsubscribe = s.session.OnChange(s.hub.Publish)
	s.router = s.routes(NewRateLimiter(opts.RequestsPerSecond, opts.Burst))
	return s
}

func (s *Server) routes(limiter *RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.websocket).Methods(http.MethodGet)

	// subrouters answer their own mismatches, so they need the JSON handlers too
	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = http.HandlerFunc(notFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.Use(limiter.Limit)

	// method checks live in the handler so other verbs get the recipe error body
	api.HandleFunc("/healthy-recipe", s.healthyRecipe)
	api.HandleFunc("/food-suggestions", s.foodSuggestions).Methods(http.MethodPost)
	api.HandleFunc("/emotions/analyze", s.analyzeEmotion).Methods(http.MethodPost)

	api.HandleFunc("/timer", s.timerView).Methods(http.MethodGet)
	api.HandleFunc("/timer/start", s.timerStart).Methods(http.MethodPost)
	api.HandleFunc("/timer/pause", s.timerPause).Methods(http.MethodPost)
	api.HandleFunc("/timer/reset", s.timerReset).Methods(http.MethodPost)
	api.HandleFunc("/timer/config", s.timerConfig).Methods(http.MethodPut)

	api.HandleFunc("/activity/events", s.recordEvents).Methods(http.MethodPost)
	api.HandleFunc("/activity/snapshot", s.activitySnapshot).Methods(http.MethodGet)
	api.HandleFunc("/activity/heartbeats", s.heartbeats).Methods(http.MethodGet)

	api.HandleFunc("/metrics", s.metrics).Methods(http.MethodGet)
	api.HandleFunc("/metrics/history", s.history).Methods(http.MethodGet)

	api.HandleFunc("/notifications", s.notifications).Methods(http.MethodGet, http.MethodPut)
	api.HandleFunc("/profile", s.getProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", s.updateProfile).Methods(http.MethodPut)
	api.HandleFunc("/cache/stats", s.cacheStats).Methods(http.MethodGet)

	return r
}

// Handler is the router wrapped in CORS and request logging
func (s *Server) Handler() http.Handler {
	return CORS(RequestLogger(s.logger)(s.router))
}

func (s *Server) Hub() *Hub { return s.hub }

// Close detaches the hub from the session and disconnects its clients
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.hub.SetRecorder(nil)
	s.hub.Close()
}
