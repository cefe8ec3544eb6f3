package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	id3v2 "github.com/bogem/id3v2/v2"
	log "github.com/go-pkgz/lgr"
	"github.com/tcolgate/mp3"

	"papercast/internal/app/papercast/keys"
)

// ErrArtifactNotFound is returned when the audio pipeline has not produced
// an mp3 for the requested paper.
var ErrArtifactNotFound = errors.New("audio artifact not found")

var reTitleClean = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// Files locates and stages produced audio artifacts.
type Files struct {
	AudioDir string
	TmpDir   string
}

// FindAudio returns the path of the mp3 the audio pipeline produced for
// title. The pipeline names files after the cleaned title, so the lookup
// must clean the same way.
func (f *Files) FindAudio(title string) (string, error) {
	clean := reTitleClean.ReplaceAllString(title, "")
	if runes := []rune(clean); len(runes) > 100 {
		clean = string(runes[:100])
	}
	path := filepath.Join(f.AudioDir, clean+"_podcast.mp3")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("expected mp3 %s: %w", path, ErrArtifactNotFound)
	}
	return path, nil
}

// Stage prepares the artifact for upload and returns the staged path and
// its exact byte length. With tagging enabled the source is copied to the
// tmp dir and gets ID3v2.3 title/artist/album frames, some players and
// feed validators want them. The source file is never modified.
func (f *Files) Stage(srcPath, title, album string, tag bool) (string, int64, error) {
	path := srcPath
	if tag {
		staged := filepath.Join(f.TmpDir, keys.Slug(title)+"_tagged.mp3")
		if err := copyFile(srcPath, staged); err != nil {
			return "", 0, fmt.Errorf("stage %s: %w", srcPath, err)
		}
		if err := writeTags(staged, title, album); err != nil {
			return "", 0, fmt.Errorf("tag %s: %w", staged, err)
		}
		path = staged
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return path, info.Size(), nil
}

// Duration decodes mp3 frames to measure playing time. Failures are not
// fatal to a publish, the caller may log and continue with zero.
func (f *Files) Duration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("[WARN] can't close %s, %v", path, err)
		}
	}()

	var total time.Duration
	dec := mp3.NewDecoder(file)
	var frame mp3.Frame
	var skipped int
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, err
		}
		total += frame.Duration()
	}
}

func writeTags(path, title, album string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	tag.SetVersion(3)
	tag.SetTitle(title)
	tag.SetArtist(album)
	tag.SetAlbum(album)
	if err := tag.Save(); err != nil {
		_ = tag.Close()
		return err
	}
	return tag.Close()
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.Printf("[WARN] can't close %s, %v", src, err)
		}
	}()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
