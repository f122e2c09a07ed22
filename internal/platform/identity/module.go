package identity

import (
	"go.uber.org/fx"

	"github.com/fatflowers/gymdesk/pkg/config"
)

func newTokenMaker(cfg *config.Config) *TokenMaker {
	return NewTokenMaker(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
}

var Module = fx.Options(
	fx.Provide(NewCredentialStore),
	fx.Provide(NewProvider),
	fx.Provide(newTokenMaker),
)
