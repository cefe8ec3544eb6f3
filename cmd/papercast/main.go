package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jessevdk/go-flags"

	"papercast/internal/app/papercast"
	"papercast/internal/app/papercast/feed"
	"papercast/internal/app/papercast/proc"
	"papercast/internal/app/papercast/resolve"
	"papercast/internal/configs"
)

var opts struct {
	Conf        string `short:"c" long:"conf" env:"PAPERCAST_CONF" default:"papercast.yml" description:"config file (yml)"`
	DB          string `short:"d" long:"db" env:"PAPERCAST_DB" default:"var/papercast.bdb" description:"bolt db file"`
	Paper       string `short:"p" long:"paper" required:"true" description:"arXiv id or abs URL"`
	Keep        int    `short:"k" long:"keep" description:"keep last N episodes (overrides config)"`
	Description string `long:"description" description:"episode description (overrides config)"`
	NoTag       bool   `long:"no-tag" description:"skip ID3 tagging"`
}

func checkFileExists(filepath string) bool {
	if _, err := os.Stat(filepath); errors.Is(err, os.ErrNotExist) {
		return false
	}

	return true
}

func main() {
	p := flags.NewParser(&opts, flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		p.WriteHelp(os.Stderr)
		os.Exit(2)
	}

	configFile := opts.Conf

	if !checkFileExists(configFile) {
		configFile = "configs/papercast.yaml"

		if !checkFileExists(configFile) {
			log.Fatal("[ERROR] config file not found")
		}
	}

	conf, err := configs.Load(configFile)
	if err != nil {
		log.Fatalf("[ERROR] can't load config %s, %v", opts.Conf, err)
	}

	db, err := papercast.NewBoltDB(opts.DB)
	if err != nil {
		log.Fatalf("[ERROR] can't create boltdb instance, %v", err)
	}

	s3client, err := papercast.NewS3Client(
		conf.CloudStorage.EndPointURL,
		conf.CloudStorage.Secrets.Key,
		conf.CloudStorage.Secrets.Secret,
		true)
	if err != nil {
		log.Fatalf("[ERROR] can't create s3client instance, %v", err)
	}

	channel := feed.Channel{
		Title:       conf.Podcast.Title,
		Description: conf.Podcast.Description,
		Language:    conf.Podcast.Language,
		Author:      conf.Podcast.Author,
		OwnerEmail:  conf.Podcast.Email,
		Category:    conf.Podcast.Category,
		Explicit:    conf.Podcast.Explicit,
	}
	procEntity := &proc.Processor{
		Storage:     &proc.BoltDB{DB: db},
		S3Client:    &proc.S3Store{Client: s3client, Location: conf.CloudStorage.Region, Bucket: conf.CloudStorage.Bucket},
		Files:       &proc.Files{AudioDir: conf.Storage.AudioFolder, TmpDir: conf.Storage.TmpFolder},
		Resolver:    resolve.NewArxiv(),
		Channel:     channel,
		PublicBase:  conf.CloudStorage.PublicBase,
		ArtworkPath: conf.Storage.Artwork,
	}

	app, err := papercast.NewApplication(conf, procEntity)
	if err != nil {
		log.Fatalf("[ERROR] can't create app, %v", err)
	}

	tagAudio := conf.Publish.TagAudio && !opts.NoTag
	if err := app.Publish(context.Background(), opts.Paper, opts.Description, opts.Keep, tagAudio); err != nil {
		log.Fatalf("[ERROR] can't publish %s, %v", opts.Paper, err)
	}
}
