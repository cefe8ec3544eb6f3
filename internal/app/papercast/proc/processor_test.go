package proc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boltdb/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papercast/internal/app/papercast/episode"
	"papercast/internal/app/papercast/feed"
	"papercast/internal/app/papercast/keys"
	"papercast/internal/app/papercast/resolve"
)

// fakeObjectStore records every call so tests can check upload and delete
// counts per key.
type fakeObjectStore struct {
	objects map[string][]byte
	uploads map[string]int
	deletes map[string]int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects: map[string][]byte{},
		uploads: map[string]int{},
		deletes: map[string]int{},
	}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.objects[key] = append([]byte(nil), data...)
	f.uploads[key]++
	return nil
}

func (f *fakeObjectStore) UploadFile(_ context.Context, key, filePath, _ string) (int64, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, err
	}
	f.objects[key] = data
	f.uploads[key]++
	return int64(len(data)), nil
}

func (f *fakeObjectStore) Exists(_ context.Context, key string) bool {
	_, ok := f.objects[key]
	return ok
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deletes[key]++
	return nil
}

type fakeResolver struct {
	paper *resolve.Paper
	err   error
}

func (f *fakeResolver) Resolve(context.Context, string) (*resolve.Paper, error) {
	return f.paper, f.err
}

type procFixture struct {
	proc    *Processor
	store   *fakeObjectStore
	catalog *BoltDB
	mp3Len  int64
}

func newProcFixture(t *testing.T, title string, now time.Time) *procFixture {
	t.Helper()

	audioDir := t.TempDir()
	mp3 := []byte("pretend this is mp3 audio")
	require.NoError(t, os.WriteFile(filepath.Join(audioDir, title+"_podcast.mp3"), mp3, 0o600))

	artwork := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(artwork, []byte("png"), 0o600))

	store := newFakeObjectStore()
	catalog := openTestDB(t)
	guidSeq := 0

	p := &Processor{
		Storage:  catalog,
		S3Client: store,
		Files:    &Files{AudioDir: audioDir, TmpDir: t.TempDir()},
		Resolver: &fakeResolver{paper: &resolve.Paper{ID: "2412.14689", Title: title, PDFURL: "https://arxiv.org/pdf/2412.14689.pdf"}},
		Channel: feed.Channel{
			Title:       "Research Articles (Private)",
			Description: "Narrated papers",
			Language:    "en-us",
			Author:      "Research Articles Podcast",
			OwnerEmail:  "owner@example.com",
			Category:    "Science",
		},
		PublicBase:  "https://cdn.example.com",
		ArtworkPath: artwork,
		Now:         func() time.Time { return now },
		NewGUID: func(paperID string) string {
			guidSeq++
			return fmt.Sprintf("%s-guid%d", paperID, guidSeq)
		},
	}

	return &procFixture{proc: p, store: store, catalog: catalog, mp3Len: int64(len(mp3))}
}

func TestPublishFirstEpisode(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "Fresh Paper", now)

	result, err := fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "2412.14689-guid1", result.Record.GUID)
	assert.Equal(t, "2024-01-03T00:00:00Z", result.Record.PubDateISO)
	assert.Equal(t, "podcasts/fresh-paper.mp3", result.Record.MP3Key)
	assert.Equal(t, "https://cdn.example.com/podcasts/fresh-paper.mp3", result.MP3URL)
	assert.Equal(t, "https://cdn.example.com/feed.xml", result.FeedURL)

	persisted, err := fx.catalog.Load()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, result.Record, persisted[0])

	assert.Contains(t, fx.store.objects, "podcasts/fresh-paper.mp3")
	assert.Contains(t, fx.store.objects, "episodes/fresh-paper.html")
	assert.Contains(t, fx.store.objects, keys.Feed)
	assert.Contains(t, fx.store.objects, keys.Index)
	assert.Contains(t, fx.store.objects, keys.Artwork)
}

func TestPublishRecordsExactUploadedLength(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "Sized Paper", now)

	result, err := fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 5,
	})
	require.NoError(t, err)

	stored := fx.store.objects[result.Record.MP3Key]
	assert.Equal(t, int64(len(stored)), result.Record.MP3LengthBytes)
	assert.Equal(t, fx.mp3Len, result.Record.MP3LengthBytes)
}

func TestPublishRetentionScenario(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "Third Paper", now)

	seed := []episode.Record{
		{GUID: "old-2", Title: "Second Paper", PubDateISO: "2024-01-02T00:00:00Z",
			MP3Key: "podcasts/second-paper.mp3", MP3LengthBytes: 2, PageKey: "episodes/second-paper.html"},
		{GUID: "old-1", Title: "First Paper", PubDateISO: "2024-01-01T00:00:00Z",
			MP3Key: "podcasts/first-paper.mp3", MP3LengthBytes: 1, PageKey: "episodes/first-paper.html"},
	}
	require.NoError(t, fx.catalog.Persist(seed))
	fx.store.objects["podcasts/first-paper.mp3"] = []byte("a")
	fx.store.objects["episodes/first-paper.html"] = []byte("b")

	_, err := fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 2,
	})
	require.NoError(t, err)

	persisted, err := fx.catalog.Load()
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, "2024-01-03T00:00:00Z", persisted[0].PubDateISO)
	assert.Equal(t, "old-2", persisted[1].GUID)

	// the 2024-01-01 record loses both objects, each deleted exactly once
	assert.Equal(t, 1, fx.store.deletes["podcasts/first-paper.mp3"])
	assert.Equal(t, 1, fx.store.deletes["episodes/first-paper.html"])
	assert.NotContains(t, fx.store.objects, "podcasts/first-paper.mp3")

	// feed holds exactly the kept records
	doc := string(fx.store.objects[keys.Feed])
	assert.Contains(t, doc, "Third Paper")
	assert.Contains(t, doc, "Second Paper")
	assert.NotContains(t, doc, "First Paper")
}

func TestPublishRetentionInvariant(t *testing.T) {
	for _, tc := range []struct {
		seeded int
		keep   int
		want   int
	}{
		{seeded: 0, keep: 3, want: 1},
		{seeded: 2, keep: 3, want: 3},
		{seeded: 5, keep: 3, want: 3},
	} {
		now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		fx := newProcFixture(t, "Invariant Paper", now)

		var seed []episode.Record
		for i := 0; i < tc.seeded; i++ {
			seed = append(seed, episode.Record{
				GUID:       fmt.Sprintf("seed-%d", i),
				Title:      fmt.Sprintf("Seed %d", i),
				PubDateISO: fmt.Sprintf("2024-01-%02dT00:00:00Z", i+1),
				MP3Key:     fmt.Sprintf("podcasts/seed-%d.mp3", i),
				PageKey:    fmt.Sprintf("episodes/seed-%d.html", i),
			})
		}
		episode.SortByPubDateDesc(seed)
		require.NoError(t, fx.catalog.Persist(seed))

		_, err := fx.proc.Publish(context.Background(), PublishRequest{
			PaperID: "2412.14689", Description: "desc", KeepN: tc.keep,
		})
		require.NoError(t, err)

		persisted, err := fx.catalog.Load()
		require.NoError(t, err)
		assert.Len(t, persisted, tc.want, "seeded %d keep %d", tc.seeded, tc.keep)
		for i := 1; i < len(persisted); i++ {
			assert.GreaterOrEqual(t, persisted[i-1].PubDateISO, persisted[i].PubDateISO)
		}
	}
}

func TestEnsureSharedAssetsIdempotent(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "Asset Paper", now)

	require.NoError(t, fx.proc.ensureSharedAssets(context.Background()))
	require.NoError(t, fx.proc.ensureSharedAssets(context.Background()))

	assert.Equal(t, 1, fx.store.uploads[keys.Index])
	assert.Equal(t, 1, fx.store.uploads[keys.Artwork])
}

func TestPublishMissingArtwork(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "No Artwork Paper", now)
	fx.proc.ArtworkPath = filepath.Join(t.TempDir(), "nope.png")

	_, err := fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 2,
	})
	assert.ErrorIs(t, err, ErrMissingAsset)

	// remote copy present, local source not needed
	fx.store.objects[keys.Artwork] = []byte("png")
	_, err = fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 2,
	})
	assert.NoError(t, err)
}

func TestPublishArtifactMissing(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "Present Paper", now)
	fx.proc.Resolver = &fakeResolver{paper: &resolve.Paper{ID: "2412.14689", Title: "Absent Paper"}}

	_, err := fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 2,
	})
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestPublishInvalidKeep(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "Keep Paper", now)

	_, err := fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 0,
	})
	assert.ErrorIs(t, err, episode.ErrInvalidKeepCount)
}

func TestPublishRerunAllocatesNewGUID(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "Rerun Paper", now)

	first, err := fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 5,
	})
	require.NoError(t, err)
	second, err := fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 5,
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.Record.GUID, second.Record.GUID)

	// re-publish of the same paper may duplicate the entry, never corrupt
	persisted, err := fx.catalog.Load()
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestPublishCorruptCatalog(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	fx := newProcFixture(t, "Corrupt Paper", now)

	err := fx.catalog.DB.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(catalogBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(catalogKey), []byte("not json at all"))
	})
	require.NoError(t, err)

	_, err = fx.proc.Publish(context.Background(), PublishRequest{
		PaperID: "2412.14689", Description: "desc", KeepN: 2,
	})
	assert.ErrorIs(t, err, ErrCorruptState)
}
