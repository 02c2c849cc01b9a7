package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"code_quest_backend/internal/util"
	"code_quest_backend/pkg/logger"
	"code_quest_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute // 在线状态过期时间
	outboundSize   = 1024
	maxFloodFrames = 20 // 连续超限帧数，超过即断开

	gameEventsChannel = "game_events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one connected player.
type Client struct {
	Hub      *GameHub
	Conn     *websocket.Conn
	Send     chan []byte
	PlayerID uint
	Limiter  *rate.Limiter
}

// readPump only watches for disconnects; players do not talk to the hub, and a client that
// keeps sending past its limiter is disconnected.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.ctx.Done():
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	flooded := 0
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("playerId", c.PlayerID))
			}
			return
		}
		if c.Limiter.Allow() {
			flooded = 0
			continue
		}
		// 限流：超出的消息丢弃，持续刷屏则断开连接
		flooded++
		if flooded >= maxFloodFrames {
			logger.Log.Warn("WebSocket client flooding, closing connection", zap.Uint("playerId", c.PlayerID))
			c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit exceeded"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]*Client
	mu      sync.RWMutex
}

// PubSubMessage is the envelope published on the redis channel.
type PubSubMessage struct {
	TargetPlayers []uint          `json:"targetPlayers"`
	Payload       json.RawMessage `json:"payload"`
}

// GameHub delivers realtime game events to connected players. With redis every instance
// subscribes to the shared channel and delivers to its own connections; without redis
// events are delivered locally only.
type GameHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	outbound   chan PubSubMessage
	Redis      *redis.Client
	clock      util.Clock

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewGameHub(rdb *redis.Client, clock util.Clock) *GameHub {
	if clock == nil {
		clock = util.SystemClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &GameHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan PubSubMessage, outboundSize),
		Redis:      rdb,
		clock:      clock,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]*Client),
		}
	}
	return h
}

func (h *GameHub) getShard(playerID uint) *shard {
	return h.shards[playerID%shardCount]
}

// Run owns registration, the redis subscription and presence refresh. It returns after Stop.
func (h *GameHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, gameEventsChannel)
		defer pubsub.Close()
		go h.consume(pubsub.Channel())
		go h.publish()
	}

	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			s := h.getShard(client.PlayerID)
			s.mu.Lock()
			if old, ok := s.clients[client.PlayerID]; ok {
				// 同一玩家重复连接，关闭旧连接
				close(old.Send)
			} else {
				monitoring.OnlinePlayers.Inc()
			}
			s.clients[client.PlayerID] = client
			s.mu.Unlock()
			h.setOnline(client.PlayerID, true)

		case client := <-h.unregister:
			s := h.getShard(client.PlayerID)
			s.mu.Lock()
			removed := false
			if cur, ok := s.clients[client.PlayerID]; ok && cur == client {
				delete(s.clients, client.PlayerID)
				close(client.Send)
				monitoring.OnlinePlayers.Dec()
				removed = true
			}
			s.mu.Unlock()
			if removed {
				h.setOnline(client.PlayerID, false)
			}

		case <-heartbeatTicker.C:
			h.refreshOnlineStatus()
		}
	}
}

func (h *GameHub) consume(ch <-chan *redis.Message) {
	for msg := range ch {
		var psMsg PubSubMessage
		if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
			logger.Log.Error("PubSub unmarshal error", zap.Error(err))
			continue
		}
		h.pushToLocal(psMsg.TargetPlayers, psMsg.Payload)
	}
}

func (h *GameHub) publish() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg := <-h.outbound:
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := h.Redis.Publish(h.ctx, gameEventsChannel, payload).Err(); err != nil {
				logger.Log.Error("Realtime publish failed", zap.Error(err), zap.Uints("targetPlayers", msg.TargetPlayers))
			}
		}
	}
}

func onlineKey(playerID uint) string {
	return fmt.Sprintf("player:online:%d", playerID)
}

func (h *GameHub) setOnline(playerID uint, online bool) {
	if h.Redis == nil {
		return
	}
	var err error
	if online {
		err = h.Redis.Set(h.ctx, onlineKey(playerID), "true", onlineTTL).Err()
	} else {
		err = h.Redis.Del(h.ctx, onlineKey(playerID)).Err()
	}
	if err != nil {
		logger.Log.Error("Redis presence update failed", zap.Error(err), zap.Uint("playerId", playerID))
	}
}

// refreshOnlineStatus 刷新当前实例所有在线玩家的过期时间
func (h *GameHub) refreshOnlineStatus() {
	if h.Redis == nil {
		return
	}
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for playerID := range s.clients {
			pipe.Expire(h.ctx, onlineKey(playerID), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		if _, err := pipe.Exec(h.ctx); err != nil {
			logger.Log.Error("Redis pipeline error", zap.Error(err))
		}
		logger.Log.Debug("Refreshed online status", zap.Int("count", count))
	}
}

// Emit implements Notifier. It never blocks: a full outbound queue drops the event.
func (h *GameHub) Emit(_ context.Context, playerID uint, eventType EventType, data interface{}) {
	evt := Event{
		ID:   uuid.NewString(),
		Type: eventType,
		Data: data,
		At:   h.clock.Now(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		logger.Log.Error("Realtime event marshal failed", zap.Error(err), zap.String("type", string(eventType)))
		return
	}
	monitoring.RealtimeEventCounter.WithLabelValues(string(eventType)).Inc()

	if h.Redis == nil {
		h.pushToLocal([]uint{playerID}, payload)
		return
	}

	select {
	case h.outbound <- PubSubMessage{TargetPlayers: []uint{playerID}, Payload: payload}:
	default:
		logger.Log.Warn("Realtime queue full, dropping event",
			zap.Uint("playerId", playerID),
			zap.String("type", string(eventType)))
	}
}

func (h *GameHub) pushToLocal(playerIDs []uint, payload []byte) {
	for _, id := range playerIDs {
		s := h.getShard(id)
		s.mu.RLock()
		if client, ok := s.clients[id]; ok {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

func (h *GameHub) IsPlayerOnline(playerID uint) bool {
	s := h.getShard(playerID)
	s.mu.RLock()
	_, ok := s.clients[playerID]
	s.mu.RUnlock()
	if ok {
		return true
	}
	if h.Redis == nil {
		return false
	}

	// 多实例部署时查 Redis
	val, err := h.Redis.Get(h.ctx, onlineKey(playerID)).Result()
	return err == nil && val == "true"
}

// Stop closes every connection, clears presence and ends Run.
func (h *GameHub) Stop() {
	h.once.Do(func() {
		logger.Log.Info("GameHub stopping: closing connections")

		var ids []uint
		for i := 0; i < shardCount; i++ {
			s := h.shards[i]
			s.mu.Lock()
			for playerID, client := range s.clients {
				ids = append(ids, playerID)
				close(client.Send)
				delete(s.clients, playerID)
			}
			s.mu.Unlock()
		}

		if h.Redis != nil && len(ids) > 0 {
			pipe := h.Redis.Pipeline()
			for _, id := range ids {
				pipe.Del(h.ctx, onlineKey(id))
			}
			if _, err := pipe.Exec(h.ctx); err != nil {
				logger.Log.Error("Failed to clear online status", zap.Error(err), zap.Int("players", len(ids)))
			}
		}

		h.cancel()
		monitoring.OnlinePlayers.Set(0)
		logger.Log.Info("GameHub stopped", zap.Int("closedConnections", len(ids)))
	})
}

// ServeWs upgrades the request and registers the player's connection.
func ServeWs(hub *GameHub, w http.ResponseWriter, r *http.Request, playerID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("playerId", playerID))
		return
	}
	client := &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		PlayerID: playerID,
		Limiter:  rate.NewLimiter(rate.Limit(5), 10),
	}

	select {
	case hub.register <- client:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
