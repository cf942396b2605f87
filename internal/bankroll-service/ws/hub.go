package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// client serializa escritas: gorilla/websocket não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msgType int, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(msgType, b)
}

// Hub gerencia conexões WebSocket por banca
// subs: mapeia bankrollID para o conjunto de conexões daquele usuário
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}

	OnConnect    func() // métricas
	OnDisconnect func() // métricas
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS registra a conexão na banca do usuário e fica lendo até o cliente
// desconectar, respondendo pings. A banca vem só do X-User-ID posto pelo gateway,
// como nas rotas REST; query string não identifica ninguém.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	bankrollID := r.Header.Get("X-User-ID")
	if bankrollID == "" {
		http.Error(w, "X-User-ID required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	h.add(bankrollID, c)
	defer h.remove(bankrollID, c)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "ping" {
			_ = c.write(websocket.TextMessage, []byte(`{"type":"pong"}`))
		}
	}
}

func (h *Hub) add(bankrollID string, c *client) {
	h.mu.Lock()
	if _, ok := h.subs[bankrollID]; !ok {
		h.subs[bankrollID] = make(map[*client]struct{})
	}
	h.subs[bankrollID][c] = struct{}{}
	h.mu.Unlock()
	if h.OnConnect != nil {
		h.OnConnect()
	}
}

func (h *Hub) remove(bankrollID string, c *client) {
	h.mu.Lock()
	if set, ok := h.subs[bankrollID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, bankrollID)
		}
	}
	h.mu.Unlock()
	if h.OnDisconnect != nil {
		h.OnDisconnect()
	}
}

// Connections retorna quantas conexões a banca tem abertas
func (h *Hub) Connections(bankrollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[bankrollID])
}

// Broadcast envia a atualização para todas as conexões da banca
func (h *Hub) Broadcast(update BalanceUpdate) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.subs[update.BankrollID]))
	for c := range h.subs[update.BankrollID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for _, c := range conns {
		if err := c.write(websocket.TextMessage, b); err != nil {
			h.log.Debug("ws write failed", zap.String("bankroll", update.BankrollID), zap.Error(err))
		}
	}
}
