package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/UkralStul/noticeboard/internal/events"
)

const (
	streamBuffer = 16
	pingInterval = 10 * time.Second
	writeWait    = 5 * time.Second
)

// streamPost отдает по WebSocket события поста: комментарии, лайки, удаление.
// Поток закрывается после удаления поста.
func (s *Server) streamPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid post id")
		return
	}
	if _, err := s.board.Posts.Detail(r.Context(), postID); err != nil {
		s.fail(w, r, err, "failed to open stream", map[int]string{
			http.StatusNotFound: "post not found",
		})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.requestLog(r).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed := s.observer.Subscribe(ctx, postID, streamBuffer)

	// Читаем входящие кадры только чтобы заметить отключение клиента
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-feed:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			if event.Type == events.PostDeleted {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "post deleted"),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
