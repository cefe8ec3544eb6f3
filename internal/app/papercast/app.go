// Package papercast publishes generated research paper narrations as
// podcast episodes backed by an S3-compatible object store.
package papercast

import (
	"context"

	"github.com/boltdb/bolt"
	log "github.com/go-pkgz/lgr"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"papercast/internal/app/papercast/proc"
	"papercast/internal/configs"
)

// App wires configuration to the publish processor.
type App struct {
	config    *configs.Conf
	processor *proc.Processor
}

// NewApplication creates a new App instance.
func NewApplication(conf *configs.Conf, p *proc.Processor) (*App, error) {
	app := App{config: conf, processor: p}
	return &app, nil
}

// Publish runs the full pipeline for one paper. Zero-value overrides fall
// back to the configured defaults.
func (a *App) Publish(ctx context.Context, paperID, description string, keep int, tagAudio bool) error {
	if description == "" {
		description = a.config.Publish.EpisodeDescription
	}
	if keep == 0 {
		keep = a.config.Publish.Keep
	}

	result, err := a.processor.Publish(ctx, proc.PublishRequest{
		PaperID:     paperID,
		Description: description,
		KeepN:       keep,
		TagAudio:    tagAudio,
	})
	if err != nil {
		return err
	}

	log.Printf("[INFO] episode: %s", result.Record.Title)
	log.Printf("[INFO] mp3: %s", result.MP3URL)
	log.Printf("[INFO] page: %s", result.PageURL)
	log.Printf("[INFO] feed: %s", result.FeedURL)
	return nil
}

// NewBoltDB opens the catalog database file.
func NewBoltDB(dbFile string) (*bolt.DB, error) {
	return bolt.Open(dbFile, 0o600, nil)
}

// NewS3Client makes a minio client for the configured endpoint.
func NewS3Client(endpoint, key, secret string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: useSSL,
	})
}
