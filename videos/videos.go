// Package videos owns the video row shape shared by the list, intelligence
// and trends endpoints, plus the paged listing handler itself.
package videos

import (
	"database/sql"
	"time"

	"warroom/analytics"
	"warroom/httputil"
)

// Columns is the canonical select list matching ScanRows. Queries must
// join tracked_accounts as a (LEFT JOIN, account_id is nullable).
const Columns = `v.id, v.account_id, v.platform, v.platform_video_id, v.title, v.description,
	v.thumbnail_url, v.thumbnail_key, v.video_url, v.duration_seconds,
	v.view_count, v.like_count, v.comment_count, v.share_count, v.save_count,
	v.engagement_rate, v.nx_avg, v.published_at,
	a.username, a.display_name`

// Row is one tracked video with its owning account, if any.
type Row struct {
	ID                 string  `json:"id"`
	AccountID          string  `json:"account_id,omitempty"`
	Platform           string  `json:"platform"`
	PlatformVideoID    string  `json:"platform_video_id"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	ThumbnailURL       string  `json:"thumbnail_url"`
	VideoURL           string  `json:"video_url"`
	DurationSeconds    int64   `json:"duration_seconds"`
	ViewCount          int64   `json:"view_count"`
	LikeCount          int64   `json:"like_count"`
	CommentCount       int64   `json:"comment_count"`
	ShareCount         int64   `json:"share_count"`
	SaveCount          int64   `json:"save_count"`
	EngagementRate     float64 `json:"engagement_rate"`
	NxAvg              float64 `json:"nx_avg"`
	PublishedAt        string  `json:"published_at,omitempty"`
	AccountUsername    string  `json:"account_username,omitempty"`
	AccountDisplayName string  `json:"account_display_name,omitempty"`

	thumbnailKey string
}

// ScanRows drains rows selected with Columns. Null numeric fields are
// coerced to zero; a scan failure skips the row rather than aborting the
// whole response.
func ScanRows(rows *sql.Rows) []Row {
	out := make([]Row, 0)
	for rows.Next() {
		var r Row
		var accountID, publishedAt, accUsername, accDisplay sql.NullString
		var thumbURL, thumbKey, videoURL sql.NullString
		var duration, views, likes, comments, shares, saves sql.NullInt64
		var engagement, nx sql.NullFloat64

		if err := rows.Scan(&r.ID, &accountID, &r.Platform, &r.PlatformVideoID,
			&r.Title, &r.Description, &thumbURL, &thumbKey, &videoURL,
			&duration, &views, &likes, &comments, &shares, &saves,
			&engagement, &nx, &publishedAt, &accUsername, &accDisplay); err != nil {
			continue
		}

		r.AccountID = accountID.String
		r.ThumbnailURL = thumbURL.String
		r.thumbnailKey = thumbKey.String
		r.VideoURL = videoURL.String
		r.DurationSeconds = duration.Int64
		r.ViewCount = views.Int64
		r.LikeCount = likes.Int64
		r.CommentCount = comments.Int64
		r.ShareCount = shares.Int64
		r.SaveCount = saves.Int64
		r.EngagementRate = engagement.Float64
		r.NxAvg = nx.Float64
		r.PublishedAt = publishedAt.String
		r.AccountUsername = accUsername.String
		r.AccountDisplayName = accDisplay.String
		out = append(out, r)
	}
	return out
}

// AddThumbnailURLs points rows at their mirrored thumbnail objects when a
// bucket is configured; rows without a mirrored copy keep the upstream URL.
func AddThumbnailURLs(rows []Row, bucket string) {
	if bucket == "" {
		return
	}
	for i := range rows {
		if rows[i].thumbnailKey != "" {
			rows[i].ThumbnailURL = httputil.ThumbnailURL(bucket, rows[i].thumbnailKey)
		}
	}
}

// Analytics converts a row to the aggregator's record shape.
func (r Row) Analytics() analytics.Video {
	return analytics.Video{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Title:           r.Title,
		Description:     r.Description,
		Views:           r.ViewCount,
		Likes:           r.LikeCount,
		Comments:        r.CommentCount,
		Shares:          r.ShareCount,
		Saves:           r.SaveCount,
		EngagementRate:  r.EngagementRate,
		NxAvg:           r.NxAvg,
		DurationSeconds: r.DurationSeconds,
	}
}

// ToAnalytics converts a batch.
func ToAnalytics(rows []Row) []analytics.Video {
	out := make([]analytics.Video, len(rows))
	for i, r := range rows {
		out[i] = r.Analytics()
	}
	return out
}

// PublishedTime parses the stored timestamp; zero time when unset.
func (r Row) PublishedTime() time.Time {
	t, _ := time.Parse(time.RFC3339, r.PublishedAt)
	return t
}
