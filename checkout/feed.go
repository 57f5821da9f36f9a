package checkout

import (
	"encoding/json"
	"net/http"
	"sync"

	"njmart/middleware"
	"njmart/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

// The order feed pushes placement events over websockets: each customer can
// watch their own orders, and the store dashboard watches everything.

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var (
	feedMu      sync.Mutex
	subscribers = make(map[string][]*websocket.Conn)
)

const storeFeedKey = "store"

// OrderFeed subscribes the connection to the caller's own order events.
// Browsers can't set headers on websocket dials, so the token may arrive as
// a query parameter instead.
func OrderFeed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			if claims, err := middleware.ValidateJWT("Bearer " + token); err == nil {
				userID = claims.UserID
			}
		}
	}
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	serveFeed(w, r, "user_"+userID)
}

// StoreFeed subscribes to every order event (admin dashboard). Admin is
// checked here from the query token because the upgrade handshake skips the
// header-based auth.
func StoreFeed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, err := middleware.ValidateJWT("Bearer " + r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	admin := false
	for _, role := range claims.Role {
		if role == "admin" {
			admin = true
			break
		}
	}
	if !admin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	serveFeed(w, r, storeFeedKey)
}

func serveFeed(w http.ResponseWriter, r *http.Request, key string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}

	feedMu.Lock()
	subscribers[key] = append(subscribers[key], conn)
	feedMu.Unlock()

	// hold the connection open until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	feedMu.Lock()
	conns := subscribers[key]
	kept := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			kept = append(kept, c)
		}
	}
	subscribers[key] = kept
	feedMu.Unlock()

	conn.Close()
}

// BroadcastOrderEvent pushes an order placement to the owner's feed and the
// store feed. Dead connections are dropped as they fail.
func BroadcastOrderEvent(userID string, order interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":  "order_placed",
		"order": order,
	})
	if err != nil {
		log.Warnf("checkout: marshal feed event: %v", err)
		return
	}
	broadcast("user_"+userID, payload)
	broadcast(storeFeedKey, payload)
}

func broadcast(key string, val []byte) {
	feedMu.Lock()
	defer feedMu.Unlock()

	conns := subscribers[key]
	kept := conns[:0]
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, val); err == nil {
			kept = append(kept, conn)
		} else {
			conn.Close()
		}
	}
	subscribers[key] = kept
}
