package catalog

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/hearwhere/hearwhere/internal/infra/config"
)

// Settings is the sqlite catalog settings block.
type Settings struct {
	DSN          string `mapstructure:"dsn" validate:"required"`
	MediaBaseURL string `mapstructure:"media_base_url" default:"/media/"`
	ArtBaseURL   string `mapstructure:"art_base_url" default:"/art/"`
}

// NewFromConfig creates the catalog store and resolver from configuration.
func NewFromConfig(cfg *config.Config) (*Store, *Resolver, error) {
	if cfg.Catalog.Type != "sqlite" {
		return nil, nil, errors.Newf("unsupported catalog type: %s", cfg.Catalog.Type)
	}

	var settings Settings
	if err := mapstructure.Decode(cfg.Catalog.Settings, &settings); err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode catalog settings")
	}
	if err := defaults.Set(&settings); err != nil {
		return nil, nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(settings); err != nil {
		return nil, nil, errors.Wrap(err, "catalog settings validation failed")
	}

	zlog.Info().Msgf("opening catalog: dsn=%s", settings.DSN)
	store, err := Open(settings.DSN)
	if err != nil {
		return nil, nil, err
	}
	return store, NewResolver(settings.MediaBaseURL, settings.ArtBaseURL), nil
}
