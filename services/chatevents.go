package services

import (
	"context"
	"log"

	"meetup-app-server/storage"
	"meetup-app-server/ws"
)

// Chat events flow through Redis pub/sub so every server instance can feed
// its own websocket subscribers. Without Redis (single instance, tests) the
// event is broadcast locally and nothing else happens.

const chatEventsChannel = "chat:events"

var chatHub *ws.Hub

var chatEventsCtx = context.Background()

// InitChatEvents wires the hub into the publisher and, when Redis is
// configured, starts consuming the shared event channel.
func InitChatEvents(hub *ws.Hub) {
	chatHub = hub
	if storage.Redis == nil {
		return
	}
	go runChatEventSubscriber()
}

// ChatHub returns the hub chat routes register subscribers against.
func ChatHub() *ws.Hub { return chatHub }

// PublishChatEvent fans an event out to all subscribers of its activity.
func PublishChatEvent(evt ws.Event) {
	if storage.Redis == nil {
		if chatHub != nil {
			chatHub.Broadcast(evt.ActivityID, evt.Encode())
		}
		return
	}
	if err := storage.Redis.Publish(chatEventsCtx, chatEventsChannel, evt.Encode()).Err(); err != nil {
		log.Printf("chat events: publish failed, falling back to local broadcast: %v", err)
		if chatHub != nil {
			chatHub.Broadcast(evt.ActivityID, evt.Encode())
		}
	}
}

func runChatEventSubscriber() {
	pubsub := storage.Redis.Subscribe(chatEventsCtx, chatEventsChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var evt ws.Event
		payload := []byte(msg.Payload)
		if err := evt.Decode(payload); err != nil {
			log.Printf("chat events: dropping malformed event: %v", err)
			continue
		}
		if chatHub != nil {
			chatHub.Broadcast(evt.ActivityID, payload)
		}
	}
}
