package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"secure-courier/common"
	"secure-courier/configs"
	"secure-courier/crypto/random"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Server struct {
	ctx       context.Context
	cancelCtx context.CancelFunc

	// id is the sender of server-originated notices
	id                 uuid.UUID
	verificationSecret []byte

	redisClient    *redis.Client
	connectedUsers map[uuid.UUID]*connection
	mutex          *sync.Mutex
	logger         *logrus.Logger

	// WebSocket upgrader settings
	upgrader *websocket.Upgrader
}

// connection serializes writes; gorilla/websocket allows one writer at a time.
type connection struct {
	ws         *websocket.Conn
	writeMutex sync.Mutex
}

func (c *connection) write(data []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func NewServer(ctx context.Context, redisClient *redis.Client, logger *logrus.Logger) (*Server, error) {
	secret, err := random.GenerateStorageKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification secret: %w", err)
	}

	ctx, cancelCtx := context.WithCancel(ctx)
	return &Server{
		ctx:                ctx,
		cancelCtx:          cancelCtx,
		id:                 uuid.New(),
		verificationSecret: secret,
		redisClient:        redisClient,
		connectedUsers:     make(map[uuid.UUID]*connection),
		mutex:              &sync.Mutex{},
		logger:             logger,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Router wires every endpoint of the directory and push service.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter() // Using gorilla/mux for more flexible routing
	r.HandleFunc(configs.WebSocketPath, s.HandleConnections)
	r.HandleFunc(configs.PublishKeysPath+"/{userID}", s.HandlePostKeys).Methods(http.MethodPost)
	r.HandleFunc(configs.PublishKeysPath+"/{userID}", s.HandleGetKeys).Methods(http.MethodGet)
	r.HandleFunc(configs.PublishKeysPath+"/{userID}/signing-key", s.HandleGetSigningKey).Methods(http.MethodGet)
	r.HandleFunc(configs.VerifyPath+"/{deviceID}/verify", s.HandleVerifyDevice).Methods(http.MethodPost)
	return r
}

func (s *Server) Close() {
	s.cancelCtx()
	// Close all WebSocket connections
	s.mutex.Lock()
	for _, conn := range s.connectedUsers {
		conn.ws.Close()
	}
	s.mutex.Unlock()
	s.redisClient.Close()
}

// deliver pushes an envelope to the user, or queues it while they are offline.
func (s *Server) deliver(userID uuid.UUID, env *common.Envelope) {
	env.ServerTimestamp = time.Now().UTC()

	payload, err := common.EncodePushPayload(env)
	if err != nil {
		s.logger.Errorf("Error encoding envelope %s for user %s: %v", env.ID, userID, err)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Errorf("Error marshalling push payload for user %s: %v", userID, err)
		return
	}

	s.mutex.Lock()
	recipientConn, online := s.connectedUsers[userID]
	if !online {
		// Queued under the lock so a connecting user drains it
		s.queueEnvelope(userID, data)
		s.mutex.Unlock()
		return
	}
	s.mutex.Unlock()

	if err := recipientConn.write(data); err != nil {
		s.logger.Errorf("Error sending envelope to user %s, queuing: %v", userID, err)
		s.queueEnvelope(userID, data)
	}
}

// Queue an envelope in Redis
func (s *Server) queueEnvelope(userID uuid.UUID, data []byte) {
	if err := s.redisClient.RPush(s.ctx, fmt.Sprintf(configs.ServerMessageQueueKey, userID), data).Err(); err != nil {
		s.logger.Errorf("Error queuing envelope for user %s: %v", userID, err)
	}
}

// pushNotice sends a plaintext control notice to the user.
func (s *Server) pushNotice(userID uuid.UUID, noticeType string, body any) error {
	notice, err := common.NewNotice(noticeType, body)
	if err != nil {
		return err
	}
	s.deliver(userID, &common.Envelope{
		ID:        uuid.New(),
		SenderID:  s.id,
		Timestamp: time.Now().UTC(),
		Payload:   common.PayloadContainer{Notice: notice},
	})
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json") // Set JSON content type
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("Error encoding response: %v", err)
	}
}
