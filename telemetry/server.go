package telemetry

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"

	"nyiyui.ca/railopt/simulate"
)

const streamName = "steps"

// Server republishes StepEvents over Server-Sent Events at "/", one
// "steps" stream shared by every connected client.
type Server struct {
	mux *Multiplexer[StepEvent]
	sse *sse.Server
}

// NewServer starts forwarding whatever mux publishes onto an SSE stream.
// The returned Server's ServeHTTP should be mounted on an HTTP mux.
func NewServer(mux *Multiplexer[StepEvent]) *Server {
	s := &Server{mux: mux, sse: sse.New()}
	s.sse.CreateStream(streamName)
	ch := make(chan StepEvent, 64)
	mux.Subscribe("telemetry.Server", ch)
	go s.forward(ch)
	return s
}

func (s *Server) forward(ch chan StepEvent) {
	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			zap.S().Errorw("telemetry: marshal step event failed", "error", err)
			continue
		}
		s.sse.TryPublish(streamName, &sse.Event{Data: data})
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.sse.ServeHTTP(w, r)
}

// Republish walks a completed trajectory set in timestep order and sends
// one StepEvent per recorded TrainState, tagging the final state of each
// EdgeTrajectory with its transition outcome. Trajectories are consumed
// only after simulation finishes — simulate.Simulate itself never blocks
// on a subscriber.
func Republish(mux *Multiplexer[StepEvent], trajs map[int]*simulate.TrainTrajectory) {
	type indexed struct {
		train int
		ev    StepEvent
	}
	var events []indexed
	for train, traj := range trajs {
		if traj == nil {
			continue
		}
		for _, et := range traj.Edges {
			for i, st := range et.States {
				ev := StepEvent{Train: train, State: st}
				if i == len(et.States)-1 {
					ev.Outcome = et.Outcome
				}
				events = append(events, indexed{train: train, ev: ev})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].ev.State.T != events[j].ev.State.T {
			return events[i].ev.State.T < events[j].ev.State.T
		}
		return events[i].train < events[j].train
	})
	for _, e := range events {
		mux.Send(e.ev)
	}
}
