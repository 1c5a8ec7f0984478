package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/internal/auth"
	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// MessageAPI holds the dependencies for the messaging handlers.
type MessageAPI struct {
	accounts  chat.AccountStore
	messages  chat.MessageStore
	deliverer chat.MessageDeliverer
	logger    zerolog.Logger
}

// NewMessageAPI creates the messaging handler set. The deliverer is invoked
// only after the store has durably saved a message, so a failed save is never
// followed by a phantom delivery.
func NewMessageAPI(
	accounts chat.AccountStore,
	messages chat.MessageStore,
	deliverer chat.MessageDeliverer,
	logger zerolog.Logger,
) *MessageAPI {
	return &MessageAPI{
		accounts:  accounts,
		messages:  messages,
		deliverer: deliverer,
		logger:    logger.With().Str("component", "MessageAPI").Logger(),
	}
}

// ContactsHandler lists every other account, for the conversation sidebar.
func (m *MessageAPI) ContactsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}
	users, err := m.accounts.ListOthers(r.Context(), userID)
	if err != nil {
		m.logger.Error().Err(err).Str("user", userID.String()).Msg("Failed to list contacts")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, "users retrieved", users)
}

// HistoryHandler returns the conversation with one other user, oldest first.
func (m *MessageAPI) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}
	otherID := chat.UserID(r.PathValue("id"))
	if otherID.IsZero() {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	msgs, err := m.messages.MessagesBetween(r.Context(), userID, otherID)
	if err != nil {
		m.logger.Error().Err(err).Str("user", userID.String()).Msg("Failed to fetch conversation")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, "messages retrieved", msgs)
}

type sendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// SendHandler persists a message and then routes it to the recipient's live
// connections. An offline recipient still gets a 201: they will fetch the
// message through HistoryHandler when they reconnect.
func (m *MessageAPI) SendHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}
	recipientID := chat.UserID(r.PathValue("id"))
	if recipientID.IsZero() {
		writeError(w, http.StatusBadRequest, "missing recipient id")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" && req.Image == "" {
		writeError(w, http.StatusBadRequest, "message must have text or an image")
		return
	}

	if _, err := m.accounts.UserByID(r.Context(), recipientID); err != nil {
		if errors.Is(err, chat.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "recipient not found")
			return
		}
		m.logger.Error().Err(err).Str("recipient", recipientID.String()).Msg("Recipient lookup failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	msg := &chat.Message{
		ID:          uuid.NewString(),
		SenderID:    userID,
		RecipientID: recipientID,
		Text:        req.Text,
		Image:       req.Image,
		CreatedAt:   time.Now(),
	}
	if err := m.messages.SaveMessage(r.Context(), msg); err != nil {
		m.logger.Error().Err(err).Str("sender", userID.String()).Msg("Failed to save message")
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	// Durably stored; now hand it to the real-time core. Delivery is
	// best-effort and a miss is routine.
	m.deliverer.Route(r.Context(), chat.OutboundMessageEvent{
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Message:     *msg,
		CreatedAt:   msg.CreatedAt,
	})

	writeJSON(w, http.StatusCreated, "message sent", msg)
}
