package handlers

import (
	"errors"
	"net/http"

	"medbot-server/internal/conversation"
	"medbot-server/internal/logging"
	"medbot-server/internal/middleware"
	"medbot-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ChatHandler exposes the symptom conversation over REST and websocket.
type ChatHandler struct {
	Conversations *conversation.Service
	Logger        *logging.Logger
	upgrader      websocket.Upgrader
}

// NewChatHandler creates a new ChatHandler. Websocket upgrades are
// accepted from allowedOrigin and from clients that send no Origin.
func NewChatHandler(conversations *conversation.Service, allowedOrigin string, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{
		Conversations: conversations,
		Logger:        logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// SymptomRequest is the body of POST /chat/symptom.
type SymptomRequest struct {
	Text string `json:"text" binding:"required" validate:"notblank"`
}

// AnswerRequest is the body of POST /chat/answer.
type AnswerRequest struct {
	Answer string `json:"answer" binding:"required" validate:"notblank"`
}

// GetConversation returns the patient's conversation state.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	st, err := h.Conversations.Get(c.Request.Context(), username)
	if err != nil {
		utils.InternalServerError(c, "Failed to load conversation: "+err.Error())
		return
	}
	utils.Success(c, "Conversation fetched successfully", st)
}

// ClearConversation wipes the patient's conversation.
func (h *ChatHandler) ClearConversation(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if err := h.Conversations.Clear(c.Request.Context(), username); err != nil {
		utils.InternalServerError(c, "Failed to clear conversation: "+err.Error())
		return
	}
	utils.Success(c, "Conversation cleared", nil)
}

// SubmitSymptom starts a conversation round.
func (h *ChatHandler) SubmitSymptom(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	var req SymptomRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ex, err := h.Conversations.Submit(c.Request.Context(), username, req.Text)
	if err != nil {
		utils.RespondError(c, err, "Failed to process symptom")
		return
	}
	utils.Success(c, "Symptom received", ex)
}

// AnswerFollowUp answers the pending follow-up question.
func (h *ChatHandler) AnswerFollowUp(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	var req AnswerRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ex, err := h.Conversations.Answer(c.Request.Context(), username, req.Answer)
	if err != nil {
		utils.RespondError(c, err, "Failed to process answer")
		return
	}
	utils.Success(c, "Answer received", ex)
}

// StreamMessage is a websocket frame sent by the client.
type StreamMessage struct {
	Type string `json:"type"` // "symptom", "answer" or "clear"
	Text string `json:"text"`
}

// StreamReply is a websocket frame sent to the client.
type StreamReply struct {
	Type     string                 `json:"type"`
	Exchange *conversation.Exchange `json:"exchange,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Stream runs the conversation over a websocket, one reply per frame.
func (h *ChatHandler) Stream(c *gin.Context) {
	username, ok := middleware.GetUsernameFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "patient", username, "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.Logger.Debug("websocket read ended", "patient", username, "error", err)
			}
			return
		}

		reply := StreamReply{Type: msg.Type}
		var ex conversation.Exchange
		switch msg.Type {
		case "symptom":
			ex, err = h.Conversations.Submit(ctx, username, msg.Text)
		case "answer":
			ex, err = h.Conversations.Answer(ctx, username, msg.Text)
		case "clear":
			if err = h.Conversations.Clear(ctx, username); err == nil {
				ex.State = conversation.NewState(username)
			}
		default:
			err = errors.New("unknown message type")
		}
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Exchange = &ex
		}

		if err := conn.WriteJSON(reply); err != nil {
			h.Logger.Warn("websocket write failed", "patient", username, "error", err)
			return
		}
	}
}
