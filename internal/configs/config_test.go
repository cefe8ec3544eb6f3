package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	conf, err := Load("testdata/config.yml")
	require.NoError(t, err)

	assert.Equal(t, conf.Podcast.Title, "Research Articles (Private)")
	assert.Equal(t, conf.Podcast.Author, "Research Articles Podcast")
	assert.Equal(t, conf.Podcast.Category, "Science")

	assert.Equal(t, conf.CloudStorage.EndPointURL, "storage_url")
	assert.Equal(t, conf.CloudStorage.Bucket, "bucket_name")
	assert.Equal(t, conf.CloudStorage.Region, "region-us")
	assert.Equal(t, conf.CloudStorage.PublicBase, "https://cdn.example.com")
	assert.Equal(t, conf.CloudStorage.Secrets.Key, "123123123")
	assert.Equal(t, conf.CloudStorage.Secrets.Secret, "abc123123123xyz")

	assert.Equal(t, conf.Publish.Keep, 12)
	assert.True(t, conf.Publish.TagAudio)
	assert.Equal(t, conf.Storage.AudioFolder, "outputs/audio")
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("testdata/minimal.yml")
	require.NoError(t, err)

	assert.Equal(t, conf.Publish.Keep, DefaultKeep)
	assert.Equal(t, conf.Podcast.Language, DefaultLanguage)
	assert.Equal(t, conf.Publish.EpisodeDescription, DefaultEpisodeDescription)
}

func TestLoadInvalidKeep(t *testing.T) {
	conf, err := Load("testdata/bad_keep.yml")
	assert.Nil(t, conf)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestLoadMissingBucket(t *testing.T) {
	conf, err := Load("testdata/no_bucket.yml")
	assert.Nil(t, conf)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestLoadConfigNotFound(t *testing.T) {
	conf, err := Load("/tmp/test-bestow-nautch-toss-fritter-pygmy-unrest.yml")
	assert.Nil(t, conf)
	assert.EqualError(t, err, "open /tmp/test-bestow-nautch-toss-fritter-pygmy-unrest.yml: no such file or directory")
}
