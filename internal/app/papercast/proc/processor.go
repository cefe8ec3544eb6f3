package proc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"papercast/internal/app/papercast/episode"
	"papercast/internal/app/papercast/feed"
	"papercast/internal/app/papercast/keys"
	"papercast/internal/app/papercast/resolve"
)

// ErrMissingAsset is returned when a shared asset is absent remotely and
// no local source exists to create it from.
var ErrMissingAsset = errors.New("shared asset missing")

// ObjectStore is the remote blob capability the publish pipeline needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	UploadFile(ctx context.Context, key, filePath, contentType string) (int64, error)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
}

// Resolver maps a paper identifier to its metadata.
type Resolver interface {
	Resolve(ctx context.Context, idOrURL string) (*resolve.Paper, error)
}

// Processor runs the publish pipeline: stage the audio artifact, upload
// it with its landing page, update the catalog, regenerate the feed and
// sweep out evicted episodes.
type Processor struct {
	Storage  *BoltDB
	S3Client ObjectStore
	Files    *Files
	Resolver Resolver

	Channel     feed.Channel
	PublicBase  string
	ArtworkPath string

	// Now and NewGUID exist so tests can pin time and identifiers.
	Now     func() time.Time
	NewGUID func(paperID string) string
}

// PublishRequest describes one publish call.
type PublishRequest struct {
	PaperID     string
	Description string
	KeepN       int
	TagAudio    bool
}

// PublishResult reports what a successful publish produced.
type PublishResult struct {
	Record  episode.Record
	MP3URL  string
	PageURL string
	FeedURL string
}

// Publish executes the pipeline for one paper. The first failing step
// aborts the rest, completed uploads are left in place and the call is
// safe to re-run.
func (p *Processor) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	paper, err := p.Resolver.Resolve(ctx, req.PaperID)
	if err != nil {
		return nil, fmt.Errorf("resolve paper %s: %w", req.PaperID, err)
	}
	log.Printf("[INFO] publishing %q (%s)", paper.Title, paper.ID)

	srcPath, err := p.Files.FindAudio(paper.Title)
	if err != nil {
		return nil, fmt.Errorf("locate audio for %q: %w", paper.Title, err)
	}
	stagedPath, mp3Len, err := p.Files.Stage(srcPath, paper.Title, p.Channel.Title, req.TagAudio)
	if err != nil {
		return nil, fmt.Errorf("stage audio for %q: %w", paper.Title, err)
	}
	duration, err := p.Files.Duration(stagedPath)
	if err != nil {
		log.Printf("[WARN] can't measure duration of %s, %v", stagedPath, err)
		duration = 0
	}

	if err := p.ensureSharedAssets(ctx); err != nil {
		return nil, err
	}

	slug := keys.Slug(paper.Title)
	mp3Key := keys.Audio(slug)
	pageKey := keys.Page(slug)
	now := p.now()

	uploadedLen, err := p.S3Client.UploadFile(ctx, mp3Key, stagedPath, "audio/mpeg")
	if err != nil {
		return nil, fmt.Errorf("upload audio %s: %w", mp3Key, err)
	}
	if uploadedLen > 0 {
		mp3Len = uploadedLen
	}
	log.Printf("[INFO] uploaded %s (%d bytes)", mp3Key, mp3Len)

	page := feed.EpisodePage(paper.Title, p.publicURL(mp3Key), now, duration)
	if err := p.S3Client.Upload(ctx, pageKey, page, "text/html; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("upload episode page %s: %w", pageKey, err)
	}

	catalog, err := p.Storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	rec := episode.Record{
		GUID:           p.newGUID(paper.ID),
		Title:          paper.Title,
		Description:    req.Description,
		PubDateISO:     now.UTC().Format(time.RFC3339),
		MP3Key:         mp3Key,
		MP3LengthBytes: mp3Len,
		PageKey:        pageKey,
	}
	catalog = append(catalog, rec)
	episode.SortByPubDateDesc(catalog)

	kept, evicted, err := episode.Partition(catalog, req.KeepN)
	if err != nil {
		return nil, fmt.Errorf("apply retention: %w", err)
	}

	feedXML, err := feed.Render(p.Channel, p.PublicBase, kept)
	if err != nil {
		return nil, fmt.Errorf("render feed: %w", err)
	}
	if err := p.S3Client.Upload(ctx, keys.Feed, feedXML, "text/xml; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("upload feed: %w", err)
	}

	p.evict(ctx, evicted)

	if err := p.Storage.Persist(kept); err != nil {
		return nil, fmt.Errorf("persist catalog: %w", err)
	}
	log.Printf("[INFO] published %q, catalog has %d episodes", paper.Title, len(kept))

	return &PublishResult{
		Record:  rec,
		MP3URL:  p.publicURL(mp3Key),
		PageURL: p.publicURL(pageKey),
		FeedURL: p.publicURL(keys.Feed),
	}, nil
}

// ensureSharedAssets creates the index page and artwork once. Both checks
// use the error-as-absent existence probe, so a flaky probe re-uploads
// instead of failing the publish.
func (p *Processor) ensureSharedAssets(ctx context.Context) error {
	if !p.S3Client.Exists(ctx, keys.Index) {
		page := feed.IndexPage(p.Channel.Title)
		if err := p.S3Client.Upload(ctx, keys.Index, page, "text/html; charset=utf-8"); err != nil {
			return fmt.Errorf("upload index page: %w", err)
		}
		log.Printf("[INFO] created shared index page %s", keys.Index)
	}

	if !p.S3Client.Exists(ctx, keys.Artwork) {
		if _, err := os.Stat(p.ArtworkPath); err != nil {
			return fmt.Errorf("artwork absent remotely and no local cover at %s: %w",
				p.ArtworkPath, ErrMissingAsset)
		}
		if _, err := p.S3Client.UploadFile(ctx, keys.Artwork, p.ArtworkPath, "image/png"); err != nil {
			return fmt.Errorf("upload artwork: %w", err)
		}
		log.Printf("[INFO] created shared artwork %s", keys.Artwork)
	}
	return nil
}

// evict sweeps the objects of records dropped by retention. Deletes are
// best-effort, a failed delete leaves an orphaned object behind which
// costs storage, not correctness.
func (p *Processor) evict(ctx context.Context, evicted []episode.Record) {
	for _, rec := range evicted {
		for _, key := range []string{rec.MP3Key, rec.PageKey} {
			if err := p.S3Client.Delete(ctx, key); err != nil {
				log.Printf("[WARN] can't delete evicted object %s, %v", key, err)
				continue
			}
			log.Printf("[INFO] deleted evicted object %s", key)
		}
	}
}

func (p *Processor) publicURL(key string) string {
	return strings.TrimRight(p.PublicBase, "/") + "/" + key
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) newGUID(paperID string) string {
	if p.NewGUID != nil {
		return p.NewGUID(paperID)
	}
	return paperID + "-" + uuid.NewString()
}
