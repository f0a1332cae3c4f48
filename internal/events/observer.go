package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Observer хранит каналы подписчиков на события постов.
type Observer struct {
	mu sync.RWMutex
	//          map[postID] map[subscriberID] channel
	subs map[int64]map[string]chan Event
}

// NewObserver - конструктор наблюдателя.
func NewObserver() *Observer {
	return &Observer{
		subs: make(map[int64]map[string]chan Event),
	}
}

// Publish неблокирующе отправляет событие подписчикам поста.
// Медленный подписчик пропускает событие.
func (o *Observer) Publish(_ context.Context, event Event) error {
	if event.PostID == 0 {
		return nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[event.PostID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe регистрирует подписчика до отмены ctx. Канал закрывается после отписки.
func (o *Observer) Subscribe(ctx context.Context, postID int64, buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[postID] == nil {
		o.subs[postID] = make(map[string]chan Event)
	}
	o.subs[postID][subID] = ch
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if postSubs, ok := o.subs[postID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(o.subs, postID)
			}
		}
		close(ch)
		o.mu.Unlock()
	}()

	return ch
}

// Subscribers возвращает число подписчиков поста.
func (o *Observer) Subscribers(postID int64) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[postID])
}
