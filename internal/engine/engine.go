package engine

import (
	"github.com/asynkron/protoactor-go/actor"

	"peerbridge/internal/engine/actors"
	"peerbridge/internal/utils"
)

// Engine coordinates communication between actors
type Engine struct {
	postActor *actor.PID
	chatActor *actor.PID
}

// NewEngine spawns the post and chat actors against the given stores.
func NewEngine(system *actor.ActorSystem, metrics *utils.MetricsCollector, postStore actors.PostStore, chatStore actors.ChatStore, deliverer actors.Deliverer) *Engine {
	context := system.Root

	// Spawn post actor
	postProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPostActor(postStore, metrics)
	})
	postPID := context.Spawn(postProps)

	// Spawn chat actor
	chatProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewChatActor(chatStore, deliverer, metrics)
	})
	chatPID := context.Spawn(chatProps)

	return &Engine{
		postActor: postPID,
		chatActor: chatPID,
	}
}

// GetPostActor returns the PID of the post actor
func (e *Engine) GetPostActor() *actor.PID {
	return e.postActor
}

// GetChatActor returns the PID of the chat actor
func (e *Engine) GetChatActor() *actor.PID {
	return e.chatActor
}
