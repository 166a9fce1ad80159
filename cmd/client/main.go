package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"secure-courier/client"
	"secure-courier/configs"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/protocol/fingerprint"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logger  = logrus.New()
	envFile string
)

func main() {
	root := &cobra.Command{
		Use:           "courier",
		Short:         "End-to-end encrypted envelope client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with USER_ID, SIGNING_KEY, ...")

	root.AddCommand(listenCmd(), sendCmd(), verifyDeviceCmd(), fingerprintCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Fatal(err)
	}
}

func newApp(ctx context.Context) (*client.App, error) {
	cfg, err := configs.LoadClient(envFile)
	if err != nil {
		return nil, err
	}
	app, err := client.NewApp(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := app.Connect(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Publish handshake keys and print incoming messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.PublishKeys(ctx); err != nil {
				return fmt.Errorf("publishing keys: %w", err)
			}

			for {
				select {
				case msg := <-app.Inbox().Messages():
					fmt.Printf("[%s] %s\n", msg.Metadata.SenderID, msg.Plaintext)
				case <-ctx.Done():
					logger.Info("Shutting down gracefully...")
					return nil
				}
			}
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient-id> <message>",
		Short: "Seal a message for a recipient (both must have published keys)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("recipient id: %w", err)
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			envelopeID, err := app.Send(cmd.Context(), recipient, []byte(args[1]))
			if err != nil {
				return err
			}
			logger.Infof("Sent envelope %s", envelopeID)
			return nil
		},
	}
}

func verifyDeviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-device",
		Short: "Verify DEVICE_ID and republish keys with the received code",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.VerifyDevice(cmd.Context()); err != nil {
				return err
			}
			logger.Info("Device verified")
			return nil
		},
	}
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the public signing key and its safety number",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.LoadClient(envFile)
			if err != nil {
				return err
			}

			pub, err := key_ed25519.PrivateKey(cfg.SigningKey).Public()
			if err != nil {
				return err
			}
			exported, err := key_ed25519.ExportPublicKeyString(pub)
			if err != nil {
				return err
			}
			safetyNumber, err := fingerprint.Fingerprint(pub, cfg.UserID)
			if err != nil {
				return err
			}

			fmt.Print(exported)
			fmt.Println(safetyNumber)
			return nil
		},
	}
}
