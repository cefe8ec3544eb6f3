// Package feed renders the syndication documents published alongside
// episodes: the RSS feed, episode landing pages and the shared index page.
// Rendering is pure, identical input always produces byte-identical output.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"papercast/internal/app/papercast/episode"
	"papercast/internal/app/papercast/keys"
)

// Channel is the feed-level metadata shared by every render.
type Channel struct {
	Title       string
	Description string
	Language    string
	Author      string
	OwnerEmail  string
	Category    string
	Explicit    bool
}

// Render builds the full RSS 2.0 document for the kept records, in the
// order given. publicBase is the public URL prefix of the object store.
func Render(ch Channel, publicBase string, kept []episode.Record) ([]byte, error) {
	base := strings.TrimRight(publicBase, "/")
	explicit := "false"
	if ch.Explicit {
		explicit = "true"
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<rss version=\"2.0\" xmlns:itunes=\"http://www.itunes.com/dtds/podcast-1.0.dtd\">\n")
	b.WriteString("  <channel>\n")
	fmt.Fprintf(&b, "    <title>%s</title>\n", escape(ch.Title))
	fmt.Fprintf(&b, "    <description>%s</description>\n", escape(ch.Description))
	fmt.Fprintf(&b, "    <language>%s</language>\n", escape(ch.Language))
	fmt.Fprintf(&b, "    <link>%s</link>\n", escape(base+"/"+keys.Index))
	b.WriteString("\n")
	b.WriteString("    <!-- Spotify / Apple ownership metadata -->\n")
	fmt.Fprintf(&b, "    <itunes:author>%s</itunes:author>\n", escape(ch.Author))
	b.WriteString("    <itunes:owner>\n")
	fmt.Fprintf(&b, "      <itunes:name>%s</itunes:name>\n", escape(ch.Author))
	fmt.Fprintf(&b, "      <itunes:email>%s</itunes:email>\n", escape(ch.OwnerEmail))
	b.WriteString("    </itunes:owner>\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "    <itunes:explicit>%s</itunes:explicit>\n", explicit)
	fmt.Fprintf(&b, "    <itunes:category text=\"%s\"/>\n", escape(ch.Category))
	fmt.Fprintf(&b, "    <itunes:image href=\"%s\"/>\n", escape(base+"/"+keys.Artwork))
	b.WriteString("\n")

	for _, rec := range kept {
		pub, err := rec.PubDate()
		if err != nil {
			return nil, err
		}
		b.WriteString("    <item>\n")
		fmt.Fprintf(&b, "      <title>%s</title>\n", escape(rec.Title))
		fmt.Fprintf(&b, "      <description>%s</description>\n", escape(rec.Description))
		fmt.Fprintf(&b, "      <link>%s</link>\n", escape(base+"/"+rec.PageKey))
		fmt.Fprintf(&b, "      <enclosure url=\"%s\" length=\"%d\" type=\"audio/mpeg\"/>\n",
			escape(base+"/"+rec.MP3Key), rec.MP3LengthBytes)
		fmt.Fprintf(&b, "      <guid>%s</guid>\n", escape(rec.GUID))
		fmt.Fprintf(&b, "      <pubDate>%s</pubDate>\n", escape(RFC822(pub)))
		b.WriteString("    </item>\n")
	}

	b.WriteString("  </channel>\n")
	b.WriteString("</rss>\n")
	return []byte(b.String()), nil
}

// EpisodePage renders the HTML landing page for one episode. A zero
// duration omits the duration line.
func EpisodePage(title, mp3URL string, pub time.Time, duration time.Duration) []byte {
	var b strings.Builder
	b.WriteString("<!doctype html>\n")
	fmt.Fprintf(&b, "<html><head><meta charset=\"utf-8\"><title>%s</title></head>\n", escape(title))
	b.WriteString("<body>\n")
	fmt.Fprintf(&b, "  <h1>%s</h1>\n", escape(title))
	fmt.Fprintf(&b, "  <p>Published: %s</p>\n", escape(RFC822(pub)))
	if duration > 0 {
		fmt.Fprintf(&b, "  <p>Duration: %s</p>\n", duration.Round(time.Second))
	}
	fmt.Fprintf(&b, "  <p><a href=\"%s\">Play / download MP3</a></p>\n", escape(mp3URL))
	b.WriteString("</body></html>\n")
	return []byte(b.String())
}

// IndexPage renders the shared landing page uploaded once per feed.
func IndexPage(title string) []byte {
	var b strings.Builder
	b.WriteString("<!doctype html><html><head><meta charset='utf-8'>")
	fmt.Fprintf(&b, "<title>%s</title></head>", escape(title))
	b.WriteString("<body>")
	fmt.Fprintf(&b, "<h1>%s</h1>", escape(title))
	b.WriteString("<p>Private podcast feed.</p>")
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// RFC822 formats a timestamp the way RSS readers expect, always in UTC.
func RFC822(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05") + " GMT"
}

func escape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
