package assist

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"PharmaStore/pkg/kit"
)

// Server answers free-text questions by proxying to the upstream assistant,
// threading the session transcript through each call. It never touches
// inventory and nothing in the ordering path waits on it.
type Server struct {
	Client      *Client
	Transcripts TranscriptStore
	Log         *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.ask)
	return r
}

type askReq struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type askResp struct {
	Reply string `json:"reply"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askReq
	if err := decodeAsk(r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if req.SessionID == "" || req.Message == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "session_id and message required", nil)
		return
	}

	history, err := s.Transcripts.History(r.Context(), req.SessionID)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("load transcript failed", zap.Error(err), zap.String("session_id", req.SessionID))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	question := Message{Role: "user", Content: req.Message}
	reply, err := s.Client.Complete(r.Context(), append(history, question))
	if err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) {
			kit.WriteError(w, r, http.StatusServiceUnavailable, "assistant unavailable", nil)
			return
		}
		if s.Log != nil {
			s.Log.Error("assistant call failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusBadGateway, "assistant error", nil)
		return
	}

	if err := s.Transcripts.Append(r.Context(), req.SessionID, question, reply); err != nil {
		// The answer is already computed; losing one transcript entry is
		// not worth failing the request.
		if s.Log != nil {
			s.Log.Warn("append transcript failed", zap.Error(err), zap.String("session_id", req.SessionID))
		}
	}

	kit.WriteJSON(w, http.StatusOK, askResp{Reply: reply.Content})
}

const maxAskBody = 64 << 10

func decodeAsk(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxAskBody)).Decode(v)
}

