package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"phishguard-engine/internal/app"
	"phishguard-engine/internal/domain"
	"phishguard-engine/internal/identity"
)

// WSHandler runs one adaptive assessment session per websocket connection:
// the server serves questions, the client answers, and every scoring event
// flows through the progression service.
type WSHandler struct {
	progression   *app.ProgressionService
	catalog       domain.Catalog
	verifier      *identity.Verifier
	sessionLength int
	pageLimit     int
	log           *zap.Logger
	upgrader      websocket.Upgrader
}

func NewWSHandler(progression *app.ProgressionService, catalog domain.Catalog, verifier *identity.Verifier, sessionLength, pageLimit int, log *zap.Logger) *WSHandler {
	if pageLimit <= 0 {
		pageLimit = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		progression:   progression,
		catalog:       catalog,
		verifier:      verifier,
		sessionLength: sessionLength,
		pageLimit:     pageLimit,
		log:           log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type simulationPayload struct {
	ScenarioID string `json:"scenarioId"`
	FlagsFound int    `json:"flagsFound"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionView is a question without its answer key.
type questionView struct {
	ID         string            `json:"id"`
	Prompt     string            `json:"prompt"`
	Difficulty domain.Difficulty `json:"difficulty"`
	Options    []optionView      `json:"options"`
	Number     int               `json:"number"`
	Last       bool              `json:"last"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type answerResult struct {
	QuestionID string                `json:"questionId"`
	Correct    bool                  `json:"correct"`
	Awarded    int                   `json:"awarded"`
	Progress   app.ProgressionResult `json:"progress"`
}

type sessionSummary struct {
	Answered int               `json:"answered"`
	Tier     domain.Difficulty `json:"finalTier"`
}

// resolveIdentity prefers a bearer token when a verifier is configured and
// falls back to query parameters for unauthenticated deployments.
func (h *WSHandler) resolveIdentity(r *http.Request) (identity.Identity, error) {
	if h.verifier != nil {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token != "" {
			return h.verifier.Verify(token)
		}
	}
	return identity.Identity{
		UserID:      r.URL.Query().Get("userId"),
		DisplayName: r.URL.Query().Get("name"),
	}, nil
}

// ServeWS upgrades the request and drives the assessment loop until the
// session completes or the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveIdentity(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if id.UserID == "" {
		http.Error(w, "missing identity", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session := app.NewAssessmentSession(h.catalog.Questions, h.sessionLength, nil)

	current, ok := session.Next()
	if !ok {
		h.send(conn, "error", errorPayload{Message: "question pool is empty"})
		return
	}
	h.sendQuestion(conn, session, current)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.send(conn, "error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			if payload.QuestionID != current.ID {
				h.send(conn, "error", errorPayload{Message: domain.ErrQuestionNotFound.Error()})
				continue
			}
			correct, err := app.ScoreAnswer(current, payload.OptionID)
			if err != nil {
				h.send(conn, "error", errorPayload{Message: err.Error()})
				continue
			}

			result, err := h.progression.RecordQuizAnswer(r.Context(), app.QuizAnswerEvent{
				UserID:      id.UserID,
				DisplayName: id.DisplayName,
				QuestionID:  current.ID,
				Difficulty:  current.Difficulty,
				Correct:     correct,
			})
			if err != nil {
				// The question stays outstanding so the client can resubmit
				// the same answer after a transient store failure.
				h.send(conn, "error", errorPayload{Message: err.Error()})
				continue
			}
			session.Submit(correct)
			h.send(conn, "answerResult", answerResult{
				QuestionID: current.ID,
				Correct:    correct,
				Awarded:    result.Awarded,
				Progress:   result,
			})
			h.sendLeaderboard(conn, r)

			next, ok := session.Next()
			if !ok {
				h.send(conn, "sessionComplete", sessionSummary{
					Answered: session.Answered(),
					Tier:     session.Tier(),
				})
				continue
			}
			current = next
			h.sendQuestion(conn, session, current)

		case "simulation":
			var payload simulationPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.send(conn, "error", errorPayload{Message: "invalid simulation payload"})
				continue
			}
			result, err := h.progression.RecordSimulation(r.Context(), app.SimulationEvent{
				UserID:      id.UserID,
				DisplayName: id.DisplayName,
				ScenarioID:  payload.ScenarioID,
				FlagsFound:  payload.FlagsFound,
			})
			if err != nil {
				h.send(conn, "error", errorPayload{Message: err.Error()})
				continue
			}
			h.send(conn, "simulationResult", result)
			h.sendLeaderboard(conn, r)

		case "leaderboard":
			h.sendLeaderboard(conn, r)

		default:
			h.send(conn, "error", errorPayload{Message: "unsupported message type"})
		}
	}
}

func (h *WSHandler) sendQuestion(conn *websocket.Conn, session *app.AssessmentSession, q domain.Question) {
	view := questionView{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Difficulty: q.Difficulty,
		Options:    make([]optionView, len(q.Options)),
		Number:     session.Answered() + 1,
		Last:       session.Answered()+1 == session.Length(),
	}
	for i, opt := range q.Options {
		view.Options[i] = optionView{ID: opt.ID, Text: opt.Text}
	}
	h.send(conn, "question", view)
}

func (h *WSHandler) sendLeaderboard(conn *websocket.Conn, r *http.Request) {
	ranked, err := h.progression.Leaderboard(r.Context(), h.pageLimit)
	if err != nil {
		h.log.Warn("leaderboard read failed", zap.Error(err))
		return
	}
	h.send(conn, "leaderboard", ranked)
}

func (h *WSHandler) send(conn *websocket.Conn, msgType string, payload any) {
	if err := conn.WriteJSON(outboundMessage[any]{Type: msgType, Payload: payload}); err != nil {
		h.log.Warn("ws write failed", zap.Error(err))
	}
}
