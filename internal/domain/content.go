package domain

import (
	"strings"
	"time"
)

type ContentKind string

const (
	ContentKindSingle ContentKind = "single"
	ContentKindSeries ContentKind = "series"
)

type DownloadLink struct {
	Label string `json:"label,omitempty" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

type Episode struct {
	Number        int            `json:"number" yaml:"number"`
	Title         string         `json:"title,omitempty" yaml:"title"`
	DownloadLinks []DownloadLink `json:"download_links,omitempty" yaml:"download_links"`
}

// ContentRecord is an uploaded item as seen by the engine. It is never mutated here.
type ContentRecord struct {
	ID              string         `json:"id" yaml:"id" required:"false"`
	Title           string         `json:"title,omitempty" yaml:"title"`
	Kind            ContentKind    `json:"kind" yaml:"kind" enum:"single,series"`
	UploadedBy      string         `json:"uploaded_by" yaml:"uploaded_by"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at" format:"date-time"`
	DownloadLinks   []DownloadLink `json:"download_links,omitempty" yaml:"download_links"`
	Episodes        []Episode      `json:"episodes,omitempty" yaml:"episodes"`
	SeasonDownloads []DownloadLink `json:"season_downloads,omitempty" yaml:"season_downloads"`
}

// IsCompletedUpload decides whether a record counts as a finished upload.
// Single-asset records need one non-blank download URL; series need one on
// any episode or one season-level bulk link.
func IsCompletedUpload(r ContentRecord) bool {
	if r.Kind == ContentKindSeries {
		for _, ep := range r.Episodes {
			if hasURL(ep.DownloadLinks) {
				return true
			}
		}
		return hasURL(r.SeasonDownloads)
	}
	return hasURL(r.DownloadLinks)
}

func hasURL(links []DownloadLink) bool {
	for _, l := range links {
		if strings.TrimSpace(l.URL) != "" {
			return true
		}
	}
	return false
}
