package server

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"secure-courier/common"
	"secure-courier/configs"
	"secure-courier/crypto"
	"secure-courier/crypto/hmac"
	"secure-courier/protocol/handshake"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	errNoKeys           = errors.New("no keys published")
	errWrongCode        = errors.New("wrong verification code")
	errVerificationOwed = errors.New("a device of this user has a verification pending")
)

func (s *Server) HandlePostKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(r, "userID")
	if !ok {
		s.logger.Error("No valid userID provided in the path")
		http.Error(w, "Invalid userID", http.StatusBadRequest)
		return
	}

	var req common.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Errorf("Error decoding keys for user %s: %v", userID, err)
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if req.UserID != userID {
		s.logger.Errorf("Publish request for user %s sent to %s", req.UserID, userID)
		http.Error(w, "User mismatch", http.StatusBadRequest)
		return
	}

	if err := req.Bundle.Verify(); err != nil {
		s.logger.Errorf("Rejecting keys for user %s: %v", userID, err)
		http.Error(w, "Bundle does not verify", http.StatusBadRequest)
		return
	}

	if req.DeviceID != nil {
		if status, err := s.checkVerificationCode(userID, *req.DeviceID, req.VerificationCode); err != nil {
			s.logger.Errorf("Device %s of user %s failed verification: %v", *req.DeviceID, userID, err)
			http.Error(w, "Device verification failed", status)
			return
		}
	} else if status, err := s.checkNoPendingVerification(userID); err != nil {
		s.logger.Errorf("Anonymous publish for user %s refused: %v", userID, err)
		http.Error(w, "Device verification required", status)
		return
	}

	// Serialize the bundle to JSON before storing in Redis
	data, err := json.Marshal(req.Bundle)
	if err != nil {
		s.logger.Errorf("Error serializing keys for user %s: %v", userID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// Publish the bundle to Redis
	if err := s.redisClient.Set(s.ctx, fmt.Sprintf(configs.ServerUserPubKey, userID), data, 0).Err(); err != nil {
		s.logger.Errorf("Error publishing keys for user %s: %v", userID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.logger.Infof("Published %d one-time prekeys for user %s (%s)", len(req.Bundle.OneTimePrekeys), userID, req.DisplayName)
	w.WriteHeader(http.StatusOK)
}

// HandleGetKeys returns a user's bundle carrying at most one one-time prekey,
// which is removed from the pool. When the pool runs low the owner is told to
// replenish it.
func (s *Server) HandleGetKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(r, "userID")
	if !ok {
		s.logger.Error("No valid userID provided in the path")
		http.Error(w, "Invalid userID", http.StatusBadRequest)
		return
	}

	bundle, remaining, err := s.takeOneTimePrekey(userID)
	if errors.Is(err, errNoKeys) {
		http.Error(w, "No keys for user", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorf("Error retrieving keys for user %s: %v", userID, err)
		http.Error(w, "Error retrieving keys", http.StatusInternalServerError)
		return
	}

	if remaining < configs.LowPrekeyThreshold {
		if err := s.pushNotice(userID, configs.LowPrekeyNoticeType, common.LowPrekeyNotice{Remaining: remaining}); err != nil {
			s.logger.Errorf("Error notifying user %s of low prekeys: %v", userID, err)
		}
	}

	s.writeJSON(w, bundle)
	s.logger.Infof("Public key retrieved for user %s, %d one-time prekeys left", userID, remaining)
}

func (s *Server) HandleGetSigningKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(r, "userID")
	if !ok {
		http.Error(w, "Invalid userID", http.StatusBadRequest)
		return
	}

	bundle, err := s.loadBundle(userID)
	if errors.Is(err, errNoKeys) {
		http.Error(w, "No keys for user", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorf("Error retrieving signing key for user %s: %v", userID, err)
		http.Error(w, "Error retrieving keys", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, common.SigningKeyResponse{SigningKey: bundle.SigningKey})
}

// HandleVerifyDevice issues a verification code and pushes it to the device's
// owner.
func (s *Server) HandleVerifyDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := pathUUID(r, "deviceID")
	if !ok {
		http.Error(w, "Invalid deviceID", http.StatusBadRequest)
		return
	}

	owner, err := s.redisClient.Get(s.ctx, fmt.Sprintf(configs.ServerDeviceOwnerKey, deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		http.Error(w, "Unknown device", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorf("Error looking up device %s: %v", deviceID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	ownerID, err := uuid.Parse(owner)
	if err != nil {
		s.logger.Errorf("Corrupt owner for device %s: %v", deviceID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	code, err := newVerificationCode()
	if err != nil {
		s.logger.Errorf("Error generating verification code: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// Only the MAC of the code is kept
	tag := hmac.Hash(crypto.DefaultHashFunc, s.verificationSecret, []byte(code))
	key := fmt.Sprintf(configs.ServerVerificationKey, deviceID)
	pendingKey := fmt.Sprintf(configs.ServerPendingDevicesKey, ownerID)
	_, err = s.redisClient.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(s.ctx, key, tag, configs.VerificationCodeTTL)
		pipe.SAdd(s.ctx, pendingKey, deviceID.String())
		pipe.Expire(s.ctx, pendingKey, configs.VerificationCodeTTL)
		return nil
	})
	if err != nil {
		s.logger.Errorf("Error storing verification code for device %s: %v", deviceID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := s.pushNotice(ownerID, configs.VerificationNoticeType, common.VerificationNotice{DeviceID: deviceID, Code: code}); err != nil {
		s.logger.Errorf("Error pushing verification code for device %s: %v", deviceID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.logger.Infof("Verification pending for device %s", deviceID)
	s.writeJSON(w, common.VerifyDeviceResponse{VerificationPending: true})
}

// checkVerificationCode passes devices with no pending verification. A pending
// one must present the code, which is consumed inside a WATCH transaction so
// it verifies at most one publish.
func (s *Server) checkVerificationCode(userID, deviceID uuid.UUID, code string) (int, error) {
	key := fmt.Sprintf(configs.ServerVerificationKey, deviceID)
	pendingKey := fmt.Sprintf(configs.ServerPendingDevicesKey, userID)

	txf := func(tx *redis.Tx) error {
		tag, err := tx.Get(s.ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		if code == "" || !hmac.Equal(crypto.DefaultHashFunc, s.verificationSecret, []byte(code), tag) {
			return errWrongCode
		}
		_, err = tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(s.ctx, key)
			pipe.SRem(s.ctx, pendingKey, deviceID.String())
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 5; attempt++ {
		err := s.redisClient.Watch(s.ctx, txf, key)
		switch {
		case err == nil:
			return http.StatusOK, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, errWrongCode):
			return http.StatusForbidden, err
		default:
			return http.StatusInternalServerError, err
		}
	}
	return http.StatusConflict, redis.TxFailedErr
}

// checkNoPendingVerification refuses publishes without a device id while any
// device of the user still owes a verification code. Devices whose code has
// expired are pruned from the pending set.
func (s *Server) checkNoPendingVerification(userID uuid.UUID) (int, error) {
	pendingKey := fmt.Sprintf(configs.ServerPendingDevicesKey, userID)

	devices, err := s.redisClient.SMembers(s.ctx, pendingKey).Result()
	if err != nil {
		return http.StatusInternalServerError, err
	}

	for _, device := range devices {
		exists, err := s.redisClient.Exists(s.ctx, fmt.Sprintf(configs.ServerVerificationKey, device)).Result()
		if err != nil {
			return http.StatusInternalServerError, err
		}
		if exists > 0 {
			return http.StatusForbidden, fmt.Errorf("%w: device %s", errVerificationOwed, device)
		}
		if err := s.redisClient.SRem(s.ctx, pendingKey, device).Err(); err != nil {
			return http.StatusInternalServerError, err
		}
	}
	return http.StatusOK, nil
}

func (s *Server) loadBundle(userID uuid.UUID) (*handshake.Bundle, error) {
	data, err := s.redisClient.Get(s.ctx, fmt.Sprintf(configs.ServerUserPubKey, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errNoKeys
	}
	if err != nil {
		return nil, err
	}

	var bundle handshake.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// takeOneTimePrekey pops the first one-time prekey inside a WATCH transaction
// so concurrent fetches never hand out the same prekey.
func (s *Server) takeOneTimePrekey(userID uuid.UUID) (*handshake.Bundle, int, error) {
	key := fmt.Sprintf(configs.ServerUserPubKey, userID)

	var (
		result    handshake.Bundle
		remaining int
	)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(s.ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errNoKeys
		}
		if err != nil {
			return err
		}

		var stored handshake.Bundle
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}

		result = stored
		result.OneTimePrekeys = nil
		if len(stored.OneTimePrekeys) > 0 {
			result.OneTimePrekeys = stored.OneTimePrekeys[:1]
			stored.OneTimePrekeys = stored.OneTimePrekeys[1:]
		}
		remaining = len(stored.OneTimePrekeys)

		updated, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(s.ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 5; attempt++ {
		err := s.redisClient.Watch(s.ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		return &result, remaining, nil
	}
	return nil, 0, redis.TxFailedErr
}

func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
