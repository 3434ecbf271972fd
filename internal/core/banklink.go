package core

import (
	"errors"
	"time"
)

// ErrNoBankLink is returned when a user has no stored aggregator access token.
var ErrNoBankLink = errors.New("no bank account linked")

// BankLink is the durable per-user aggregator credential. It is persisted as
// soon as the token exchange succeeds, so a failed sync never orphans the link.
type BankLink struct {
	UserID      string
	AccessToken string
	ItemID      string
	LinkedAt    time.Time
}
