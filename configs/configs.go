package configs

import "time"

var (
	ServerAddress   = "localhost:8080"
	RedisAddress    = "localhost:6379"
	PublishKeysPath = "/keys"
	VerifyPath      = "/devices"
	WebSocketPath   = "/ws"

	// HKDF info strings. Changing any of these is a protocol version bump.

	TokenKeyInfo = []byte{}
	KeyWrapInfo  = []byte("secure-courier/key-wrap/v1")

	// Notice types carried in plaintext payload containers

	LowPrekeyNoticeType    = "low-prekey-count-v1"
	VerificationNoticeType = "verification-v1"
	EncryptedPayloadType   = "encrypted-v1"

	// Redis keys

	ServerUserPubKey      = "publicKey:%s"
	ServerMessageQueueKey = "server:messages:%s"
	ServerVerificationKey = "server:verification:%s"
	ServerDeviceOwnerKey  = "server:device:%s"
	// Devices of a user with a verification code outstanding
	ServerPendingDevicesKey = "server:pending-devices:%s"

	OneTimePrekeyCount  = 100
	LowPrekeyThreshold  = 20
	VerificationCodeTTL = 10 * time.Minute
	DeliveryTimeout     = 25 * time.Second
	// Identity keys kept after renewal for envelopes still in flight
	RetiredIdentityKeys = 4
)
