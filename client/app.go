package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"secure-courier/common"
	"secure-courier/configs"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/delivery"
	"secure-courier/devices"
	"secure-courier/directory"
	"secure-courier/prekeys"
	"secure-courier/protocol/handshake"
	"secure-courier/protocol/sealed"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("WebSocket connection not established")
	ErrNoDevice     = errors.New("no device id configured")
)

// App is a signed-in client: it keeps the push channel open, feeds received
// payloads through the bounded-latency receiver and keeps the prekey pool
// published.
type App struct {
	account  prekeys.Account
	signedIn atomic.Bool
	address  string

	directory *directory.Client
	registry  *delivery.Registry
	receiver  *delivery.Receiver
	reactor   *prekeys.Reactor
	tracker   *devices.Tracker
	store     *prekeys.MemoryStore
	inbox     *Inbox

	wsConn     *websocket.Conn
	writeMutex sync.Mutex
	wg         sync.WaitGroup

	logger *logrus.Logger
}

func NewApp(cfg *configs.Client, logger *logrus.Logger) (*App, error) {
	signingKey := key_ed25519.PrivateKey(cfg.SigningKey)
	if _, err := signingKey.Public(); err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	app := &App{
		account: prekeys.Account{
			UserID:      cfg.UserID,
			DisplayName: cfg.DisplayName,
			SigningKey:  signingKey,
			DeviceID:    cfg.DeviceID,
		},
		address:   cfg.ServerAddress,
		directory: directory.NewClient(cfg.ServerAddress, nil),
		registry:  delivery.NewRegistry(),
		tracker:   devices.NewTracker(logger),
		store:     prekeys.NewMemoryStore(),
		inbox:     NewInbox(64, logger),
		logger:    logger,
	}
	app.signedIn.Store(true)

	app.reactor = prekeys.NewReactor(app, handshake.DefaultRenewer, app.directory, app.store, app.tracker, logger)

	// Handlers go in before the first payload can arrive
	app.reactor.Register(app.registry)
	app.tracker.Register(app.registry)

	dispatcher := delivery.NewDispatcher(app.registry, app.directory, app.store, app.inbox, logger)
	app.receiver = delivery.NewReceiver(dispatcher, cfg.DeliveryTimeout, logger)

	return app, nil
}

func (app *App) SignedInAccount() (prekeys.Account, bool) {
	return app.account, app.signedIn.Load()
}

func (app *App) Inbox() *Inbox {
	return app.inbox
}

func (app *App) Reactor() *prekeys.Reactor {
	return app.reactor
}

// PublishKeys renews and publishes the handshake bundle once.
func (app *App) PublishKeys(ctx context.Context) error {
	return app.reactor.Renew(ctx)
}

// Connect opens the push channel and starts listening in the background.
func (app *App) Connect(ctx context.Context) error {
	query := url.Values{"userId": {app.account.UserID.String()}}
	if app.account.DeviceID != nil {
		query.Set("deviceId", app.account.DeviceID.String())
	}
	serverURL := fmt.Sprintf("ws://%s%s?%s", app.address, configs.WebSocketPath, query.Encode())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket server: %w", err)
	}
	app.wsConn = conn

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.listen(ctx)
	}()
	return nil
}

// listen hands every pushed payload to the receiver and acks its outcome.
func (app *App) listen(ctx context.Context) {
	for {
		_, data, err := app.wsConn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				app.logger.Errorf("Error reading push payload: %v", err)
			}
			return
		}

		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			app.logger.Errorf("Error unmarshalling push payload: %v", err)
			continue
		}

		d := app.receiver.Receive(ctx, raw, nil)

		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			<-d.Done()
			outcome, _ := d.Outcome()
			if d.EnvelopeID == uuid.Nil {
				return
			}
			if err := app.writeFrame(common.ClientFrame{Ack: &common.Ack{EnvelopeID: d.EnvelopeID, Outcome: outcome}}); err != nil {
				app.logger.Errorf("Error acking envelope %s: %v", d.EnvelopeID, err)
			}
		}()
	}
}

// Send seals plaintext for the recipient's current identity key.
func (app *App) Send(ctx context.Context, to uuid.UUID, plaintext []byte) (uuid.UUID, error) {
	bundle, err := app.directory.FetchPublicKeys(ctx, to)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to fetch keys of %s: %w", to, err)
	}

	payload, err := sealed.Seal(app.account.SigningKey, bundle.IdentityKey, plaintext)
	if err != nil {
		return uuid.Nil, err
	}

	env := &common.Envelope{
		ID:        uuid.New(),
		SenderID:  app.account.UserID,
		Timestamp: time.Now().UTC(),
		Payload:   common.PayloadContainer{Encrypted: payload},
	}
	if err := app.writeFrame(common.ClientFrame{To: to, Envelope: env}); err != nil {
		return uuid.Nil, err
	}
	return env.ID, nil
}

// VerifyDevice asks the directory for a verification code, waits for it to
// arrive over the push channel and republishes the keys with it.
func (app *App) VerifyDevice(ctx context.Context) error {
	if app.account.DeviceID == nil {
		return ErrNoDevice
	}

	deviceID := *app.account.DeviceID

	// A code left over from an earlier round must not satisfy this one
	app.tracker.Reset(deviceID)

	pending, err := app.directory.VerifyDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if !pending {
		return nil
	}

	if _, err := app.tracker.Await(ctx, deviceID); err != nil {
		return fmt.Errorf("waiting for verification code: %w", err)
	}
	if err := app.PublishKeys(ctx); err != nil {
		return err
	}

	// The directory consumed the code
	app.tracker.Reset(deviceID)
	return nil
}

func (app *App) writeFrame(frame common.ClientFrame) error {
	if app.wsConn == nil {
		return ErrNotConnected
	}
	app.writeMutex.Lock()
	defer app.writeMutex.Unlock()
	return app.wsConn.WriteJSON(frame)
}

// Close signs out and waits for in-flight deliveries.
func (app *App) Close() {
	app.signedIn.Store(false)
	if app.wsConn != nil {
		app.writeMutex.Lock()
		app.wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		app.writeMutex.Unlock()
		app.wsConn.Close()
	}
	app.wg.Wait()
}
