package client

import (
	"context"

	"secure-courier/common"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Message is a decrypted envelope payload.
type Message struct {
	EnvelopeID uuid.UUID
	Metadata   common.Metadata
	Plaintext  []byte
}

// Inbox is the client's message sink. Local persistence lives elsewhere; the
// inbox only buffers for whoever reads Messages.
type Inbox struct {
	messages chan Message
	logger   *logrus.Logger
}

func NewInbox(size int, logger *logrus.Logger) *Inbox {
	return &Inbox{messages: make(chan Message, size), logger: logger}
}

func (i *Inbox) Deliver(ctx context.Context, envelopeID uuid.UUID, meta common.Metadata, plaintext []byte) error {
	select {
	case i.messages <- Message{EnvelopeID: envelopeID, Metadata: meta, Plaintext: plaintext}:
		i.logger.Infof("Message %s from %s delivered", envelopeID, meta.SenderID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Inbox) Messages() <-chan Message {
	return i.messages
}
