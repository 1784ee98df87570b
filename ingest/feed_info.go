package ingest

import (
	"io"

	"github.com/gocarina/gocsv"
)

type feedInfoCSV struct {
	PublisherName string `csv:"feed_publisher_name"`
	PublisherURL  string `csv:"feed_publisher_url"`
	Lang          string `csv:"feed_lang"`
	Version       string `csv:"feed_version"`
}

// parseFeedInfo reads the optional feed_info.txt and fills
// feed.Metadata.Publisher/Version. A malformed feed_info.txt is not
// fatal; it carries no data the reconciler depends on.
func parseFeedInfo(feed *RawFeed, r io.Reader) {
	var rows []feedInfoCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil || len(rows) == 0 {
		return
	}
	feed.Metadata.Publisher = rows[0].PublisherName
	feed.Metadata.Version = rows[0].Version
}
