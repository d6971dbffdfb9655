package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/meetsync/internal/models"
)

// TokenTTL is the lifetime of a provider credential.
const TokenTTL = time.Hour

const defaultImage = "link/to/profile/image"

type Provider interface {
	UpsertUsers(ctx context.Context, users ...User) error
	CreateToken(userID string, iat, exp time.Time) (string, error)
}

// Bridge provisions an identity with the video provider and mints its
// provider credential. Both steps share one timeout budget.
type Bridge struct {
	Provider Provider
	Timeout  time.Duration
	TokenTTL time.Duration
	Now      func() time.Time
}

func NewBridge(p Provider, timeout time.Duration) *Bridge {
	return &Bridge{Provider: p, Timeout: timeout, TokenTTL: TokenTTL, Now: time.Now}
}

// ProviderRole maps an application role onto the provider's role names.
func ProviderRole(role string) string {
	if role == models.RoleAdmin {
		return "admin"
	}
	return "user"
}

func (b *Bridge) ProvisionAndMint(ctx context.Context, id, name, role string) (string, error) {
	if id == "" {
		return "", errors.New("stream: empty user id")
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	user := User{ID: id, Name: name, Role: ProviderRole(role), Image: defaultImage}
	if err := b.Provider.UpsertUsers(ctx, user); err != nil {
		return "", asUnavailable(err)
	}
	if err := ctx.Err(); err != nil {
		return "", asUnavailable(err)
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ttl := b.TokenTTL
	if ttl <= 0 {
		ttl = TokenTTL
	}
	iat := now()

	token, err := b.Provider.CreateToken(id, iat, iat.Add(ttl))
	if err != nil {
		return "", asUnavailable(err)
	}
	return token, nil
}

func asUnavailable(err error) error {
	if errors.Is(err, ErrProviderUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
