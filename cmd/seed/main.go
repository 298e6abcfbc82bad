// Package main provides the catalog seed tool. It loads tracks and
// events from a YAML file into the catalog database the server reads.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/hearwhere/hearwhere/internal/domain/location"
	"github.com/hearwhere/hearwhere/internal/domain/track"
	"github.com/hearwhere/hearwhere/internal/infra/catalog"
	"github.com/hearwhere/hearwhere/internal/infra/logger"
)

var (
	app      = kingpin.New("hearwhere-seed", "Seed the hearwhere catalog database")
	dsn      = app.Flag("db", "Catalog database DSN").Default("hearwhere.db").Envar("CATALOG_DSN").String()
	seedPath = app.Arg("file", "YAML seed file").Required().String()
)

type seedTrack struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	Performer     string `yaml:"performer"`
	Country       string `yaml:"country"`
	Province      string `yaml:"province"`
	City          string `yaml:"city"`
	Neighbourhood string `yaml:"neighbourhood"`
	Genre         string `yaml:"genre"`
	AudioRef      string `yaml:"audio_ref"`
	ArtRef        string `yaml:"art_ref"`
	RadioOptOut   bool   `yaml:"radio_opt_out"`
}

type seedEvent struct {
	ID       string `yaml:"id"`
	Date     string `yaml:"date"`
	Name     string `yaml:"name"`
	City     string `yaml:"city"`
	Genre    string `yaml:"genre"`
	FlyerRef string `yaml:"flyer_ref"`
	TrackID  string `yaml:"track_id"`
}

type seedFile struct {
	Tracks []seedTrack `yaml:"tracks"`
	Events []seedEvent `yaml:"events"`
}

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := logger.Init(logger.Config{Output: "stdout", Level: "info"}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to read seed file: %v", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		zlog.Fatal().Msgf("Failed to parse seed file: %v", err)
	}

	store, err := catalog.Open(*dsn)
	if err != nil {
		zlog.Fatal().Msgf("Failed to open catalog: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for _, st := range seed.Tracks {
		t := track.Track{
			ID:            orUUID(st.ID),
			Title:         st.Title,
			PerformerSlug: track.Slugify(st.Performer),
			PerformerName: st.Performer,
			Country:       location.Normalize(st.Country),
			Province:      location.Normalize(st.Province),
			City:          location.Normalize(st.City),
			Neighbourhood: location.Normalize(st.Neighbourhood),
			Genre:         location.Normalize(st.Genre),
			AudioRef:      st.AudioRef,
			ArtRef:        st.ArtRef,
			RadioEligible: !st.RadioOptOut,
		}
		if err := store.InsertTrack(ctx, t); err != nil {
			zlog.Fatal().Msgf("Failed to insert track %q: %v", st.Title, err)
		}
	}
	for _, se := range seed.Events {
		ev := track.EventShow{
			EventID:   orUUID(se.ID),
			ShowDate:  se.Date,
			EventName: se.Name,
			City:      location.Normalize(se.City),
			Genre:     location.Normalize(se.Genre),
			FlyerRef:  se.FlyerRef,
			TrackID:   se.TrackID,
		}
		if err := store.InsertEvent(ctx, ev); err != nil {
			zlog.Fatal().Msgf("Failed to insert event %q: %v", se.Name, err)
		}
	}

	zlog.Info().Msgf("Seeded %d tracks and %d events into %s", len(seed.Tracks), len(seed.Events), *dsn)
}

func orUUID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}
