package providers

import (
	"github.com/samber/do/v2"

	"github.com/ProtheticGlitch/Enterra/internal/auth"
	"github.com/ProtheticGlitch/Enterra/internal/config"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
)

// ProvideTokenService provides the PASETO token verifier. Without a
// configured key one is loaded from, or generated into, the data path.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key := cfg.Auth.TokenKey
	source := "config"
	if len(key) == 0 {
		var err error
		if key, err = auth.LoadOrGenerateKey(cfg.Data.BasePath); err != nil {
			return nil, err
		}
		cfg.Auth.TokenKey = key
		source = "data path"
	}

	log.Info("Token key loaded", "source", source, "token_duration", cfg.Auth.TokenDuration)

	return auth.NewTokenService(key, cfg.Auth.TokenDuration)
}
