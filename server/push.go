package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"secure-courier/common"
	"secure-courier/configs"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handle incoming WebSocket connections
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	// Extract userId from the URL query
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		s.logger.Errorf("Invalid userId in the query: %v", err)
		http.Error(w, "Invalid userId", http.StatusBadRequest)
		return
	}

	// The device is known before the handshake completes
	if rawDevice := r.URL.Query().Get("deviceId"); rawDevice != "" {
		deviceID, err := uuid.Parse(rawDevice)
		if err != nil {
			http.Error(w, "Invalid deviceId", http.StatusBadRequest)
			return
		}
		if err := s.redisClient.Set(s.ctx, fmt.Sprintf(configs.ServerDeviceOwnerKey, deviceID), userID.String(), 0).Err(); err != nil {
			s.logger.Errorf("Error recording device %s of user %s: %v", deviceID, userID, err)
		}
	}

	// Upgrade HTTP request to WebSocket
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("Error upgrading to WebSocket: %v", err)
		return
	}
	defer ws.Close()

	conn := &connection{ws: ws}

	// Add user to connectedUsers map and flush queued envelopes
	s.mutex.Lock()
	s.connectedUsers[userID] = conn
	s.retrieveQueuedEnvelopes(userID, conn)
	s.mutex.Unlock()
	s.logger.Infof("User %s connected", userID)

	// Listen for incoming frames
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Errorf("Error reading frame from user %s: %v", userID, err)
			}
			break
		}

		var frame common.ClientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			s.logger.Errorf("Invalid frame format from user %s: %v", userID, err)
			continue
		}

		s.handleFrame(userID, &frame)
	}

	// Remove user from connectedUsers map when they disconnect
	s.mutex.Lock()
	if s.connectedUsers[userID] == conn {
		delete(s.connectedUsers, userID)
	}
	s.mutex.Unlock()
	s.logger.Infof("User %s disconnected", userID)
}

func (s *Server) handleFrame(userID uuid.UUID, frame *common.ClientFrame) {
	switch {
	case frame.Ack != nil:
		s.logger.Infof("User %s reported %s for envelope %s", userID, frame.Ack.Outcome, frame.Ack.EnvelopeID)

	case frame.Envelope != nil:
		env := frame.Envelope
		// The sender is whoever owns the connection
		env.SenderID = userID
		if env.ID == uuid.Nil {
			env.ID = uuid.New()
		}
		s.logger.Infof("Relaying envelope %s from user %s to %s", env.ID, userID, frame.To)
		s.deliver(frame.To, env)

	default:
		s.logger.Warnf("Empty frame from user %s", userID)
	}
}

// Retrieve queued envelopes for a user when they reconnect
func (s *Server) retrieveQueuedEnvelopes(userID uuid.UUID, conn *connection) {
	key := fmt.Sprintf(configs.ServerMessageQueueKey, userID)
	messages, err := s.redisClient.LRange(s.ctx, key, 0, -1).Result()
	if err != nil {
		s.logger.Errorf("Error retrieving queued envelopes for user %s: %v", userID, err)
		return
	}

	for i, message := range messages {
		if err := conn.write([]byte(message)); err != nil {
			s.logger.Errorf("Error sending queued envelope to user %s: %v", userID, err)
			// Keep what was not sent
			s.redisClient.LTrim(s.ctx, key, int64(i), -1)
			return
		}
	}

	// Clear the queue after sending
	s.redisClient.LTrim(s.ctx, key, int64(len(messages)), -1)
}
