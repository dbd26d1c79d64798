package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"autocare-monitor/internal/metrics"
	"autocare-monitor/internal/models"
	"autocare-monitor/internal/parser"
)

const (
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
	streamWriteWait  = 5 * time.Second
	maxSampleBatch   = 5000
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamFrame is a client message on the trip stream
type streamFrame struct {
	Type    string             `json:"type"` // "samples" or "stop"
	Samples []models.RawSample `json:"samples,omitempty"`
}

// streamReply is a server message on the trip stream
type streamReply struct {
	Type     string                 `json:"type"` // "progress", "session" or "error"
	Progress *models.TripProgress   `json:"progress,omitempty"`
	Session  *models.DrivingSession `json:"session,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// prepareSamples attributes samples to the vehicle and validates them
func prepareSamples(vehicleID string, samples []models.RawSample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples")
	}
	if len(samples) > maxSampleBatch {
		return fmt.Errorf("batch exceeds %d samples", maxSampleBatch)
	}
	for i := range samples {
		if samples[i].VehicleID == "" {
			samples[i].VehicleID = vehicleID
		}
		if errs := parser.ValidateSample(&samples[i]); len(errs) > 0 {
			return fmt.Errorf("sample %d: %s", i, errs[0])
		}
	}
	return nil
}

// decodeSamples accepts a single sample object or an array
func decodeSamples(r io.Reader) ([]models.RawSample, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var samples []models.RawSample
		err := json.Unmarshal(body, &samples)
		return samples, err
	}
	var one models.RawSample
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return []models.RawSample{one}, nil
}

func (s *Server) handleActiveTrips(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.trips.Active())
}

func (s *Server) handleTripProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.trips.Progress(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleTripStart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tripID, err := s.trips.Start(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"trip_id": tripID, "vehicle_id": id})
}

func (s *Server) handleTripSamples(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	samples, err := decodeSamples(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := prepareSamples(id, samples); err != nil {
		metrics.SamplesRejected.Add(int64(len(samples)))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.trips.Record(r.Context(), id, samples...)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, p)
}

func (s *Server) handleTripStop(w http.ResponseWriter, r *http.Request) {
	session, err := s.trips.Stop(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if session == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"session": nil, "reason": "insufficient samples"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// handleTripStream feeds samples to the vehicle's active trip over a
// websocket. Each samples frame is answered with the live progress; a stop
// frame finalizes the trip and closes the stream.
func (s *Server) handleTripStream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.trips.Progress(id); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "vehicle_id", id, "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	quit := make(chan struct{})
	defer close(quit)
	writerDone := make(chan struct{})
	replies := make(chan streamReply, 16)

	go s.streamWriter(conn, replies, quit, writerDone)

	send := func(reply streamReply) bool {
		select {
		case replies <- reply:
			return true
		case <-writerDone:
			return false
		}
	}

	ctx := r.Context()
	for {
		var frame streamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("trip stream read failed", "vehicle_id", id, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(streamPongWait))

		var reply streamReply
		switch frame.Type {
		case "samples":
			if err := prepareSamples(id, frame.Samples); err != nil {
				metrics.SamplesRejected.Add(int64(len(frame.Samples)))
				reply = streamReply{Type: "error", Error: err.Error()}
				break
			}
			p, err := s.trips.Record(ctx, id, frame.Samples...)
			if err != nil {
				reply = streamReply{Type: "error", Error: err.Error()}
				break
			}
			reply = streamReply{Type: "progress", Progress: &p}

		case "stop":
			session, err := s.trips.Stop(ctx, id)
			if err != nil {
				reply = streamReply{Type: "error", Error: err.Error()}
				break
			}
			if send(streamReply{Type: "session", Session: session}) {
				close(replies)
				<-writerDone
			}
			return

		default:
			reply = streamReply{Type: "error", Error: fmt.Sprintf("unknown frame type %q", frame.Type)}
		}

		if !send(reply) {
			return
		}
	}
}

// streamWriter owns all writes to conn. It exits when replies is closed, a
// write fails, or the reader quits.
func (s *Server) streamWriter(conn *websocket.Conn, replies <-chan streamReply, quit <-chan struct{}, writerDone chan<- struct{}) {
	defer close(writerDone)
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case reply, ok := <-replies:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "trip stopped"))
				return
			}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-quit:
			return
		}
	}
}
