package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/satindergrewal/cuedeck/internal/cue"
	"github.com/satindergrewal/cuedeck/internal/mixer"
)

// API serves the JSON transport endpoints.
type API struct {
	t Transport
}

func NewAPI(t Transport) *API {
	return &API{t: t}
}

// Register adds the API routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", a.status)
	mux.HandleFunc("/api/go", a.post(func(r *http.Request) (map[string]any, error) {
		c, err := a.t.Go()
		if err != nil {
			return nil, err
		}
		return map[string]any{"cue": c.ID(), "state": c.State().String()}, nil
	}))
	mux.HandleFunc("/api/stop", a.post(func(r *http.Request) (map[string]any, error) {
		a.t.StopAll()
		return nil, nil
	}))
	mux.HandleFunc("/api/pause", a.post(func(r *http.Request) (map[string]any, error) {
		a.t.PauseAll()
		return nil, nil
	}))
	mux.HandleFunc("/api/resume", a.post(func(r *http.Request) (map[string]any, error) {
		a.t.ResumeAll()
		return nil, nil
	}))
	mux.HandleFunc("/api/cue", a.post(func(r *http.Request) (map[string]any, error) {
		var req struct {
			Cue    string `json:"cue"`
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cue == "" {
			return nil, errBadRequest
		}
		var err error
		switch req.Action {
		case "start":
			err = a.t.PlayCue(req.Cue)
		case "stop":
			err = a.t.StopCue(req.Cue)
		case "pause":
			err = a.t.PauseCue(req.Cue)
		case "standby":
			err = a.t.SetPlayhead(req.Cue)
		default:
			return nil, errBadRequest
		}
		return map[string]any{"cue": req.Cue, "action": req.Action}, err
	}))
}

var errBadRequest = errors.New("invalid request")

// post wraps a transport command: POST only, JSON reply with "ok".
func (a *API) post(fn func(r *http.Request) (map[string]any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		body, err := fn(r)
		switch {
		case errors.Is(err, errBadRequest):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, mixer.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, mixer.ErrEndOfList):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if body == nil {
			body = map[string]any{}
		}
		body["ok"] = true
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	snap := a.t.Snapshot()
	cues := make([]map[string]any, len(snap.Cues))
	for i, c := range snap.Cues {
		cues[i] = map[string]any{
			"uid":     c.UID,
			"id":      c.ID,
			"name":    c.Name,
			"kind":    c.Kind,
			"state":   c.State.String(),
			"standby": c.Standby,
			"pre":     c.Times.Pre.Seconds(),
			"action":  c.Times.Action.Seconds(),
			"post":    c.Times.Post.Seconds(),
			"timing":  timingJSON(c.Timing),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(map[string]any{
		"now":         snap.Now.Seconds(),
		"buffer_time": snap.BufferTime.Seconds(),
		"cues":        cues,
		"stats": map[string]any{
			"ticks":         snap.Stats.Ticks,
			"last_tick_us":  snap.Stats.LastTick.Microseconds(),
			"max_tick_us":   snap.Stats.MaxTick.Microseconds(),
			"blocks":        snap.Stats.Blocks,
			"underflows":    snap.Stats.Underflows,
			"device_errors": snap.Stats.DeviceErrors,
		},
	})
}

func timingJSON(t cue.Timing) map[string]any {
	return map[string]any{
		"pre":     t.Pre.Seconds(),
		"action":  t.Action.Seconds(),
		"post":    t.Post.Seconds(),
		"trigger": t.Trigger.String(),
	}
}
