package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mboyd/warden/internal/engine"
	"github.com/mboyd/warden/internal/history"
	"github.com/mboyd/warden/internal/runner"
	"github.com/mboyd/warden/internal/wlog"
)

type processRequest struct {
	Transcript string `json:"transcript"`
	SessionID  string `json:"session_id,omitempty"`
}

type processResponse struct {
	Response       string `json:"response"`
	PendingCommand string `json:"pending_command,omitempty"`
}

type executeRequest struct {
	Transcript []string `json:"transcript"`
	SessionID  string   `json:"session_id,omitempty"`
}

type commandResult struct {
	Command string `json:"command"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Output  string `json:"output,omitempty"`
}

type executeResponse struct {
	Results []commandResult `json:"results"`
}

type backgroundRequest struct {
	Transcript string   `json:"transcript"`
	Commands   []string `json:"commands"`
}

type backgroundResponse struct {
	SessionID string       `json:"session_id"`
	State     engine.State `json:"state"`
}

type resumeRequest struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProcess runs the single-utterance flow: a pending confirmation is
// checked first, then extraction, validation, and either execution or a
// confirmation request.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	// A confirmation utterance consumes the pending command and runs it.
	if req.SessionID != "" {
		if cmd, ok := s.Confirmations.TakeIfConfirmed(req.SessionID, req.Transcript); ok {
			wlog.Info("server: confirmed command for session %s: %s", req.SessionID, cmd)
			result := s.runCommand(r, cmd)
			s.record(req.SessionID, req.Transcript, cmd, history.DecisionConfirmed, "")
			writeJSON(w, http.StatusOK, processResponse{Response: result})
			return
		}
	}

	cmd, ok := s.Extractor.Command(r.Context(), req.Transcript)
	if !ok {
		writeJSON(w, http.StatusOK, processResponse{
			Response: "I didn't detect a server command in that request.",
		})
		return
	}

	check := s.Validator.Validate(cmd)
	if !check.Allowed {
		s.record(req.SessionID, req.Transcript, cmd, history.DecisionBlocked, check.Reason)
		writeJSON(w, http.StatusOK, processResponse{
			Response: fmt.Sprintf("Blocked: %s", check.Reason),
		})
		return
	}

	if check.NeedsConfirmation {
		if req.SessionID != "" {
			s.Confirmations.Put(req.SessionID, cmd)
		}
		s.record(req.SessionID, req.Transcript, cmd, history.DecisionPending, check.Reason)
		writeJSON(w, http.StatusOK, processResponse{
			Response:       fmt.Sprintf("This will run: %s. Say 'confirm' to proceed.", cmd),
			PendingCommand: cmd,
		})
		return
	}

	wlog.Info("server: executing: %s", cmd)
	result := s.runCommand(r, cmd)
	s.record(req.SessionID, req.Transcript, cmd, history.DecisionExecuted, "")
	writeJSON(w, http.StatusOK, processResponse{Response: result})
}

// handleExecute extracts and processes a batch of commands from a
// conversation transcript. Each command is validated independently; a
// blocked command does not stop the rest of the batch.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	commands := s.Extractor.Commands(r.Context(), req.Transcript)
	results := make([]commandResult, 0, len(commands))

	for _, cmd := range commands {
		check := s.Validator.Validate(cmd)
		switch {
		case !check.Allowed:
			s.record(req.SessionID, "", cmd, history.DecisionBlocked, check.Reason)
			results = append(results, commandResult{Command: cmd, Status: "blocked", Reason: check.Reason})

		case check.NeedsConfirmation:
			status := "needs_confirmation"
			if req.SessionID != "" {
				s.Confirmations.Put(req.SessionID, cmd)
				status = "pending_confirmation"
			}
			s.record(req.SessionID, "", cmd, history.DecisionPending, check.Reason)
			results = append(results, commandResult{Command: cmd, Status: status, Reason: check.Reason})

		default:
			wlog.Info("server: executing: %s", cmd)
			output := s.runCommand(r, cmd)
			s.record(req.SessionID, "", cmd, history.DecisionExecuted, "")
			results = append(results, commandResult{Command: cmd, Status: "executed", Output: output})
		}
	}

	writeJSON(w, http.StatusOK, executeResponse{Results: results})
}

// handleBackground starts a human-in-the-loop background execution and
// returns its session id immediately.
func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	var req backgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if len(req.Commands) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "commands is required"})
		return
	}

	// Sessions outlive the request, so they run under the server's base
	// context rather than the request context.
	id := s.Engine.Start(s.baseCtx, req.Commands, req.Transcript)
	s.record(id, req.Transcript, "", history.DecisionStarted, "")
	wlog.Info("server: started background execution %s (%d commands)", id, len(req.Commands))

	writeJSON(w, http.StatusOK, backgroundResponse{SessionID: id, State: engine.StatePending})
}

// handleContext returns a snapshot of a session's execution context.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Engine.Snapshot(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleResume records an operator answer for a waiting session.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	err := s.Engine.SubmitAnswer(id, req.Answer)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	case err != nil:
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "state": "resuming"})
	}
}

// handleHistory returns recent audit records.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		fmt.Sscanf(q, "%d", &limit)
	}

	records, err := s.History.Records(limit, r.URL.Query().Get("search"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// runCommand executes one validated command and maps failures to the
// operator-facing response text.
func (s *Server) runCommand(r *http.Request, cmd string) string {
	output, err := s.Runner.Run(r.Context(), cmd, s.CommandTimeout)
	if err == nil {
		return output
	}

	var timeoutErr *runner.TimeoutError
	var exitErr *runner.ExitError
	switch {
	case errors.Is(err, runner.ErrUnavailable):
		return "The agent service is unavailable."
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("Command execution timed out after %s.", timeoutErr.Timeout)
	case errors.As(err, &exitErr):
		return fmt.Sprintf("Command failed: %s", exitErr.Stderr)
	default:
		wlog.Error("server: execution error: %v", err)
		return fmt.Sprintf("Execution error: %v", err)
	}
}

// record writes a history entry, logging instead of failing on error.
func (s *Server) record(sessionID, utterance, cmd, decision, detail string) {
	err := s.History.Save(history.Record{
		SessionID: sessionID,
		Utterance: utterance,
		Command:   cmd,
		Decision:  decision,
		Detail:    detail,
	})
	if err != nil {
		wlog.Warn("server: history write failed: %v", err)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		wlog.Error("server: failed to encode response: %v", err)
	}
}
