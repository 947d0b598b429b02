package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/charlesvien/game-nite/internal/actions"
)

const unauthorizedMessage = actions.UnauthorizedMessage

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeResult sends an action result. Failures keep the result body so the
// page scripts can show the message.
func writeResult[T any](w http.ResponseWriter, res actions.Result[T]) {
	status := http.StatusOK
	switch {
	case res.Success:
	case res.Error == unauthorizedMessage:
		status = http.StatusUnauthorized
	default:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

type createServerRequest struct {
	Name string            `json:"name"`
	Env  map[string]string `json:"env"`
	// Direct builds the service step by step instead of deploying a template.
	Direct bool `json:"direct"`
}

type serverActionRequest struct {
	GameID string `json:"gameId"`
}

// decodeBody reads an optional JSON body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) apiListServers(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.actions.ListServers(r.Context(), mux.Vars(r)["id"]))
}

func (s *Server) apiCreateServer(w http.ResponseWriter, r *http.Request) {
	var req createServerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, actions.Result[struct{}]{Error: "Invalid request body"})
		return
	}
	gameID := mux.Vars(r)["id"]
	if req.Direct {
		writeResult(w, s.actions.CreateServerDirect(r.Context(), gameID, req.Name, req.Env))
		return
	}
	writeResult(w, s.actions.CreateServer(r.Context(), gameID, req.Name, req.Env))
}

func (s *Server) apiRestartServer(w http.ResponseWriter, r *http.Request) {
	var req serverActionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, actions.Result[struct{}]{Error: "Invalid request body"})
		return
	}
	writeResult(w, s.actions.RestartServer(r.Context(), mux.Vars(r)["id"], req.GameID))
}

func (s *Server) apiDeleteServer(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.actions.DeleteServer(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("gameId")))
}

func (s *Server) apiWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.actions.GetWorkflowStatus(r.Context(), mux.Vars(r)["id"]))
}
