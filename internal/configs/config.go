// Package configs for work with configurations
package configs

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration is returned for a config that parses but cannot
// drive a publish (bad retention count, missing storage settings).
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Defaults applied by Load when the config omits a value.
const (
	DefaultKeep               = 30
	DefaultLanguage           = "en-us"
	DefaultEpisodeDescription = "Audio narration of the research paper."
)

// Conf for config yaml
type Conf struct {
	Podcast struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Author      string `yaml:"author"`
		Email       string `yaml:"email"`
		Category    string `yaml:"category"`
		Language    string `yaml:"language"`
		Explicit    bool   `yaml:"explicit"`
	} `yaml:"podcast"`
	CloudStorage struct {
		EndPointURL string `yaml:"endpoint_url"`
		Bucket      string `yaml:"bucket"`
		Region      string `yaml:"region"`
		PublicBase  string `yaml:"public_base"`
		Secrets     struct {
			Key    string `yaml:"aws_key"`
			Secret string `yaml:"aws_secret"`
		} `yaml:"secrets"`
	} `yaml:"cloud_storage"`
	Publish struct {
		Keep               int    `yaml:"keep"`
		EpisodeDescription string `yaml:"episode_description"`
		TagAudio           bool   `yaml:"tag_audio"`
	} `yaml:"publish"`
	Storage struct {
		AudioFolder string `yaml:"audio_folder"`
		TmpFolder   string `yaml:"tmp_folder"`
		Artwork     string `yaml:"artwork"`
	} `yaml:"storage"`
}

// Load config from file
func Load(fileName string) (res *Conf, err error) {
	res = &Conf{}
	data, err := os.ReadFile(fileName) // nolint
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, err
	}

	if res.Publish.Keep == 0 {
		res.Publish.Keep = DefaultKeep
	}
	if res.Podcast.Language == "" {
		res.Podcast.Language = DefaultLanguage
	}
	if res.Publish.EpisodeDescription == "" {
		res.Publish.EpisodeDescription = DefaultEpisodeDescription
	}

	if err := res.validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Conf) validate() error {
	if c.Publish.Keep <= 0 {
		return fmt.Errorf("%w: publish.keep must be positive, got %d", ErrInvalidConfiguration, c.Publish.Keep)
	}
	if c.CloudStorage.EndPointURL == "" {
		return fmt.Errorf("%w: cloud_storage.endpoint_url is required", ErrInvalidConfiguration)
	}
	if c.CloudStorage.Bucket == "" {
		return fmt.Errorf("%w: cloud_storage.bucket is required", ErrInvalidConfiguration)
	}
	if c.CloudStorage.PublicBase == "" {
		return fmt.Errorf("%w: cloud_storage.public_base is required", ErrInvalidConfiguration)
	}
	return nil
}
