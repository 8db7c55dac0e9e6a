package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/profile"
	"breeze/internal/services"
	"breeze/internal/types"
)

const (
	RecipeSourceHeader = "X-Recipe-Source"

	maxBodyBytes      = 1 << 20
	maxEventsPerBatch = 1000
	defaultHistory    = 7
	maxHistory        = 366
	defaultHeartbeats = 100
)

type errorBody struct {
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
}

// decodeBody reads a JSON body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeError maps a service error to a status code
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Error: "Server error"}

	switch {
	case repoerrors.IsValidation(err):
		status, body = http.StatusBadRequest, errorBody{Error: validationMessage(err)}
	case repoerrors.IsNotFound(err):
		status, body = http.StatusNotFound, errorBody{Error: "Not found"}
	case repoerrors.IsUpstream(err):
		status, body = http.StatusBadGateway, errorBody{Error: "Upstream service failed"}
	default:
		body.Details = err.Error()
	}

	if status >= 500 {
		logging.LogError(s.logger, err, op, map[string]interface{}{"status": status})
	}
	writeJSON(w, status, body)
}

func validationMessage(err error) string {
	var re *repoerrors.RepositoryError
	if errors.As(err, &re) && re.Context != nil {
		if field, reason := re.Context["field"], re.Context["reason"]; field != "" && reason != "" {
			return field + ": " + reason
		}
	}
	return "Invalid request"
}

func badJSON(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body", Details: err.Error()})
}

func (s *Server) healthyRecipe(w http.ResponseWriter, r *http.Request) {
	var req types.RecipeRequest

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.DishName = q.Get("dishName")
		req.Location = q.Get("location")
		if v := q.Get("servings"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				req.Servings = n
			}
		}
	case http.MethodPost:
		if err := decodeBody(w, r, &req); err != nil {
			logging.LogError(s.logger, err, "HealthyRecipe", map[string]interface{}{"stage": "decode"})
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Server error", Details: err.Error()})
			return
		}
	default:
		methodNotAllowed(w, r)
		return
	}

	if strings.TrimSpace(req.DishName) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "dishName is required",
			Hint:  "Provide dishName in JSON (POST) or as query param (GET)",
		})
		return
	}

	recipe, source, err := s.recipes.Healthy(r.Context(), req)
	if err != nil {
		s.writeError(w, "HealthyRecipe", err)
		return
	}
	w.Header().Set(RecipeSourceHeader, string(source))
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) foodSuggestions(w http.ResponseWriter, r *http.Request) {
	var req types.FoodSuggestionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badJSON(w, err)
		return
	}
	out, err := s.food.Suggest(r.Context(), req)
	if err != nil {
		s.writeError(w, "FoodSuggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) analyzeEmotion(w http.ResponseWriter, r *http.Request) {
	var req types.EmotionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badJSON(w, err)
		return
	}
	out, err := s.emotions.Analyze(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, "AnalyzeEmotion", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) timerView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.View())
}

func (s *Server) timerStart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Start())
}

func (s *Server) timerPause(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Pause())
}

func (s *Server) timerReset(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Reset())
}

func (s *Server) timerConfig(w http.ResponseWriter, r *http.Request) {
	var cfg services.TimerConfig
	if err := decodeBody(w, r, &cfg); err != nil {
		badJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Configure(cfg))
}

// recordEvents accepts a JSON array of events or a single event object
func (s *Server) recordEvents(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		badJSON(w, err)
		return
	}

	var events []types.RawEvent
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "":
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(raw, &events); err != nil {
			badJSON(w, err)
			return
		}
	default:
		var ev types.RawEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			badJSON(w, err)
			return
		}
		events = append(events, ev)
	}

	if len(events) > maxEventsPerBatch {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
			Error: fmt.Sprintf("at most %d events per batch", maxEventsPerBatch),
		})
		return
	}
	for _, ev := range events {
		s.session.Record(ev)
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(events)})
}

func (s *Server) activitySnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) heartbeats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, err := intParam(q.Get("since"), time.Now().Add(-24*time.Hour).UnixMilli())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "since must be epoch milliseconds"})
		return
	}
	limit, err := intParam(q.Get("limit"), defaultHeartbeats)
	if err != nil || limit <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
		return
	}

	beats, err := s.session.Heartbeats(r.Context(), since, int(limit))
	if err != nil {
		s.writeError(w, "Heartbeats", err)
		return
	}
	if beats == nil {
		beats = []types.ActivityHeartbeat{}
	}
	writeJSON(w, http.StatusOK, beats)
}

func intParam(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func (s *Server) metrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Metrics())
}

type metricPoint struct {
	Day     int64 `json:"day"`
	Seconds int64 `json:"seconds"`
}

// history returns full per-day totals, or one metric's series when metric is set
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := intParam(q.Get("days"), defaultHistory)
	if err != nil || days <= 0 || days > maxHistory {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("days must be between 1 and %d", maxHistory)})
		return
	}

	metric := types.Metric(q.Get("metric"))
	if metric != "" && !knownMetric(metric) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown metric " + string(metric)})
		return
	}

	totals, err := s.session.History(r.Context(), int(days))
	if err != nil {
		s.writeError(w, "History", err)
		return
	}
	if metric == "" {
		writeJSON(w, http.StatusOK, totals)
		return
	}

	points := make([]metricPoint, len(totals))
	for i, t := range totals {
		points[i] = metricPoint{Day: t.Day, Seconds: metricSeconds(t, metric)}
	}
	writeJSON(w, http.StatusOK, points)
}

func knownMetric(m types.Metric) bool {
	for _, known := range types.AllMetrics {
		if m == known {
			return true
		}
	}
	return false
}

func metricSeconds(t types.DailyTotals, m types.Metric) int64 {
	switch m {
	case types.MetricWorkTime:
		return t.WorkTime
	case types.MetricBreakTime:
		return t.BreakTime
	default:
		return t.ActiveScreenTime
	}
}

type notificationsBody struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut {
		var body notificationsBody
		if err := decodeBody(w, r, &body); err != nil {
			badJSON(w, err)
			return
		}
		if body.Enabled == nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "enabled is required"})
			return
		}
		s.session.SetNotificationsEnabled(*body.Enabled)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.session.NotificationsEnabled()})
}

func (s *Server) currentProfile(r *http.Request) (types.UserProfile, error) {
	if s.profiles == nil {
		return profile.New(s.profileID, time.Now()), nil
	}
	p, err := s.profiles.Get(r.Context(), s.profileID)
	if err != nil {
		return types.UserProfile{}, err
	}
	if p == nil {
		return profile.New(s.profileID, time.Now()), nil
	}
	return *p, nil
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.currentProfile(r)
	if err != nil {
		s.writeError(w, "GetProfile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type profileUpdate struct {
	DisplayName *string            `json:"displayName"`
	Preferences *types.Preferences `json:"preferences"`
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Profile storage is not configured"})
		return
	}

	var body profileUpdate
	if err := decodeBody(w, r, &body); err != nil {
		badJSON(w, err)
		return
	}
	if body.Preferences != nil && (body.Preferences.WorkSessionDuration < 0 || body.Preferences.BreakDuration < 0) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "durations cannot be negative"})
		return
	}

	patch := types.ProfilePatch{DisplayName: body.DisplayName, Preferences: body.Preferences}
	if err := s.profiles.Set(r.Context(), s.profileID, patch); err != nil {
		s.writeError(w, "UpdateProfile", err)
		return
	}
	s.getProfile(w, r)
}

func (s *Server) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":     "ok",
		"timer":      s.session.View().Phase,
		"ws_clients": s.hub.Clients(),
	}
	if err := s.session.Health(r.Context()); err != nil {
		logging.LogError(s.logger, err, "Health", nil)
		body["status"] = "unhealthy"
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, s.session.View())
}
