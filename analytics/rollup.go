// Package analytics computes the dashboard rollups: totals, engagement,
// virality and duration histograms, trending scores and hashtag frequency.
// Everything operates on plain video records already filtered to the window
// of interest; there is no I/O here and no failure mode beyond malformed
// numbers, which are coerced to zero upstream at scan time.
package analytics

import "math"

// Video is the record shape the aggregator consumes. Counts are zero when
// the platform did not report them.
type Video struct {
	ID              string  `json:"id"`
	AccountID       string  `json:"account_id,omitempty"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	Views           int64   `json:"views"`
	Likes           int64   `json:"likes"`
	Comments        int64   `json:"comments"`
	Shares          int64   `json:"shares"`
	Saves           int64   `json:"saves"`
	EngagementRate  float64 `json:"engagement_rate"`
	NxAvg           float64 `json:"nx_avg"`
	DurationSeconds int64   `json:"duration_seconds"`
}

// Metrics is the headline totals block of the intelligence dashboard.
type Metrics struct {
	TotalViews    int64   `json:"totalViews"`
	TotalLikes    int64   `json:"totalLikes"`
	TotalComments int64   `json:"totalComments"`
	TotalShares   int64   `json:"totalShares"`
	TotalSaves    int64   `json:"totalSaves"`
	AvgEngagement float64 `json:"avgEngagement"`
	VideoCount    int     `json:"videoCount"`
}

// Totals sums counts across the set. The average engagement rate is the
// arithmetic mean of each video's stored rate, not a recomputation from the
// totals; an empty set yields zeroes.
func Totals(videos []Video) Metrics {
	m := Metrics{VideoCount: len(videos)}
	var engagementSum float64
	for _, v := range videos {
		m.TotalViews += v.Views
		m.TotalLikes += v.Likes
		m.TotalComments += v.Comments
		m.TotalShares += v.Shares
		m.TotalSaves += v.Saves
		engagementSum += v.EngagementRate
	}
	if len(videos) > 0 {
		m.AvgEngagement = round2(engagementSum / float64(len(videos)))
	}
	return m
}

// EngagementRate computes (likes + comments) / views * 100, the rate stored
// with every video on ingest. Zero views means zero rate, never NaN.
func EngagementRate(likes, comments, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(likes+comments) / float64(views) * 100
}

// TopByViews returns up to n videos ordered by view count descending.
// Sorting happens on a copy; the input slice is left as-is.
func TopByViews(videos []Video, n int) []Video {
	out := make([]Video, len(videos))
	copy(out, videos)
	sortByViewsDesc(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// BucketCount is one bar of the virality histogram.
type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// viralityBounds are the half-open upper bounds of the first six buckets;
// anything >= 100 lands in "100x+".
var viralityBounds = []struct {
	label string
	upper float64
}{
	{"Below 1x", 1},
	{"1x-5x", 5},
	{"5x-10x", 10},
	{"10x-25x", 25},
	{"25x-50x", 50},
	{"50x-100x", 100},
}

// ViralityBuckets histograms the stored nx_avg of each video into seven
// fixed, ordered buckets. Boundary values belong to the higher bucket
// (nx 1 counts as "1x-5x", nx 100 as "100x+"). All seven buckets are always
// present so the chart shape is stable.
func ViralityBuckets(videos []Video) []BucketCount {
	out := make([]BucketCount, len(viralityBounds)+1)
	for i, b := range viralityBounds {
		out[i].Label = b.label
	}
	out[len(viralityBounds)].Label = "100x+"

	for _, v := range videos {
		nx := v.NxAvg
		if nx < 0 || math.IsNaN(nx) {
			nx = 0
		}
		idx := len(viralityBounds) // default: 100x+
		for i, b := range viralityBounds {
			if nx < b.upper {
				idx = i
				break
			}
		}
		out[idx].Count++
	}
	return out
}

// DurationBucket is one row of the duration-vs-views analysis.
type DurationBucket struct {
	Range    string `json:"range"`
	AvgViews int64  `json:"avgViews"`
	Count    int    `json:"count"`
}

var durationBounds = []struct {
	label string
	upper int64
}{
	{"0-15s", 15},
	{"15-30s", 30},
	{"30-60s", 60},
	{"1-3m", 180},
	{"3-10m", 600},
}

// DurationAnalysis buckets videos by duration and reports average views per
// bucket. Videos with no known duration are skipped. Empty buckets report
// avgViews 0 rather than dropping out or producing NaN.
func DurationAnalysis(videos []Video) []DurationBucket {
	out := make([]DurationBucket, len(durationBounds)+1)
	for i, b := range durationBounds {
		out[i].Range = b.label
	}
	out[len(durationBounds)].Range = "10m+"

	totals := make([]int64, len(out))
	for _, v := range videos {
		if v.DurationSeconds <= 0 {
			continue
		}
		idx := len(durationBounds)
		for i, b := range durationBounds {
			if v.DurationSeconds < b.upper {
				idx = i
				break
			}
		}
		out[idx].Count++
		totals[idx] += v.Views
	}
	for i := range out {
		if out[i].Count > 0 {
			out[i].AvgViews = int64(math.Round(float64(totals[i]) / float64(out[i].Count)))
		}
	}
	return out
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
