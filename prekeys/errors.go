package prekeys

import "errors"

var (
	ErrPublish           = errors.New("publishing public keys failed")
	ErrNotSignedIn       = errors.New("no signed-in account")
	ErrRenewalInProgress = errors.New("handshake key renewal already in progress")
	ErrInvalidNotice     = errors.New("invalid low-prekey notice")
	ErrMaterialNotStored = errors.New("failed to store handshake key material")
)
