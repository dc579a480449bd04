package actors

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/models"
	"peerbridge/internal/utils"
)

// Message types for ChatActor
type (
	// ResolveChatMsg locates a conversation. With ChatID set it is a plain
	// lookup; otherwise the (UserA, UserB) pair is canonicalized and the
	// conversation is created on first contact.
	ResolveChatMsg struct {
		ChatID primitive.ObjectID
		UserA  primitive.ObjectID
		UserB  primitive.ObjectID
	}

	// SendChatMessageMsg targets either a known chat or a recipient.
	SendChatMessageMsg struct {
		ChatID      primitive.ObjectID
		SenderID    primitive.ObjectID
		RecipientID primitive.ObjectID
		Content     string
	}

	GetChatMessagesMsg struct {
		ChatID primitive.ObjectID
		UserID primitive.ObjectID
	}

	GetUserChatsMsg struct {
		UserID primitive.ObjectID
	}
)

// ChatEvent is the wire shape pushed to websocket clients.
type ChatEvent struct {
	Type    string             `json:"type"`
	ChatID  primitive.ObjectID `json:"chatId"`
	Message *models.Message    `json:"message"`
}

// ChatStore is the persistence surface the actor needs. *database.MongoDB
// satisfies it; tests use an in-memory fake.
type ChatStore interface {
	FindOrCreateChatByPair(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error)
	GetChat(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	CreateMessage(ctx context.Context, message *models.Message) error
	AppendChatMessage(ctx context.Context, chatID, messageID primitive.ObjectID) error
	GetChatMessages(ctx context.Context, chatID primitive.ObjectID) ([]*models.Message, error)
	GetUserChats(ctx context.Context, userID primitive.ObjectID) ([]*models.Chat, error)
	AddUserChat(ctx context.Context, userID, chatID primitive.ObjectID) error
}

// Deliverer pushes a payload to a user's live connection, if any. The
// websocket hub satisfies it.
type Deliverer interface {
	SendDirectMessage(targetUserID primitive.ObjectID, payload []byte)
}

// ChatActor owns conversation resolution and message flow. One mailbox
// serializes sends, so a message is always persisted before anyone sees it
// and per-chat ordering matches persistence order.
type ChatActor struct {
	store     ChatStore
	deliverer Deliverer
	metrics   *utils.MetricsCollector
}

func NewChatActor(store ChatStore, deliverer Deliverer, metrics *utils.MetricsCollector) actor.Actor {
	return &ChatActor{
		store:     store,
		deliverer: deliverer,
		metrics:   metrics,
	}
}

func (a *ChatActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("ChatActor started")

	case *actor.Stopping:
		log.Printf("ChatActor stopping")

	case *actor.Stopped:
		log.Printf("ChatActor stopped")

	case *ResolveChatMsg:
		a.handleResolveChat(context, msg)
	case *SendChatMessageMsg:
		a.handleSendMessage(context, msg)
	case *GetChatMessagesMsg:
		a.handleGetMessages(context, msg)
	case *GetUserChatsMsg:
		a.handleGetUserChats(context, msg)
	default:
		log.Printf("ChatActor: Unknown message type: %T", msg)
	}
}

func (a *ChatActor) handleResolveChat(context actor.Context, msg *ResolveChatMsg) {
	ctx, cancel := storeContext()
	defer cancel()

	chat, err := a.resolve(ctx, msg.ChatID, msg.UserA, msg.UserB)
	if err != nil {
		context.Respond(err)
		return
	}
	context.Respond(chat)
}

// resolve returns the conversation for either an explicit chat id or a user
// pair. The caller (userA) must be a participant of an explicitly named chat.
func (a *ChatActor) resolve(ctx context.Context, chatID, userA, userB primitive.ObjectID) (*models.Chat, error) {
	if !chatID.IsZero() {
		chat, err := a.store.GetChat(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if !chatHasParticipant(chat, userA) {
			return nil, utils.NewAppError(utils.ErrForbidden, "Not a participant of this chat", nil)
		}
		return chat, nil
	}

	if userA == userB {
		return nil, utils.NewValidationError("cannot open a chat with yourself")
	}
	chat, err := a.store.FindOrCreateChatByPair(ctx, userA, userB)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to resolve chat", err)
	}
	a.linkChatToParticipants(ctx, chat)
	return chat, nil
}

func (a *ChatActor) handleSendMessage(context actor.Context, msg *SendChatMessageMsg) {
	startTime := time.Now()

	if msg.Content == "" {
		context.Respond(utils.NewValidationError("message content must not be empty"))
		return
	}
	ctx, cancel := storeContext()
	defer cancel()

	chat, err := a.resolve(ctx, msg.ChatID, msg.SenderID, msg.RecipientID)
	if err != nil {
		context.Respond(err)
		return
	}

	message := &models.Message{
		ChatID:   chat.ID,
		SenderID: msg.SenderID,
		Content:  msg.Content,
	}
	if err := a.store.CreateMessage(ctx, message); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save message", err))
		return
	}
	if err := a.store.AppendChatMessage(ctx, chat.ID, message.ID); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to record message in chat", err))
		return
	}

	// The message is durable at this point. Live delivery to each
	// participant, sender included, is best effort.
	a.deliver(chat, message)

	a.metrics.AddOperationLatency("send_message", time.Since(startTime))
	context.Respond(message)
}

func (a *ChatActor) handleGetMessages(context actor.Context, msg *GetChatMessagesMsg) {
	ctx, cancel := storeContext()
	defer cancel()

	chat, err := a.store.GetChat(ctx, msg.ChatID)
	if err != nil {
		context.Respond(err)
		return
	}

	if !chatHasParticipant(chat, msg.UserID) {
		context.Respond(utils.NewAppError(utils.ErrForbidden, "Not a participant of this chat", nil))
		return
	}

	messages, err := a.store.GetChatMessages(ctx, msg.ChatID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to load messages", err))
		return
	}
	context.Respond(messages)
}

func (a *ChatActor) handleGetUserChats(context actor.Context, msg *GetUserChatsMsg) {
	ctx, cancel := storeContext()
	defer cancel()

	chats, err := a.store.GetUserChats(ctx, msg.UserID)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to load chats", err))
		return
	}
	context.Respond(chats)
}

// linkChatToParticipants keeps each participant's chat list in sync. The
// store deduplicates, so repeating this on every resolve is harmless.
func (a *ChatActor) linkChatToParticipants(ctx context.Context, chat *models.Chat) {
	for _, participant := range chat.Participants {
		if err := a.store.AddUserChat(ctx, participant, chat.ID); err != nil {
			log.Printf("ChatActor: Failed to link chat %s to user %s: %v", chat.ID.Hex(), participant.Hex(), err)
		}
	}
}

func (a *ChatActor) deliver(chat *models.Chat, message *models.Message) {
	payload, err := json.Marshal(&ChatEvent{
		Type:    "receiveMessage",
		ChatID:  chat.ID,
		Message: message,
	})
	if err != nil {
		log.Printf("ChatActor: Failed to encode message event: %v", err)
		return
	}
	for _, participant := range chat.Participants {
		a.deliverer.SendDirectMessage(participant, payload)
	}
}

func chatHasParticipant(chat *models.Chat, userID primitive.ObjectID) bool {
	for _, p := range chat.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
