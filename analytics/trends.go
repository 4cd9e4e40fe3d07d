package analytics

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// unknownAccount groups accountless videos so they still get a trending
// score relative to each other.
const unknownAccount = "unknown"

// Ranked is a video annotated with its trending score for the window it
// was ranked in.
type Ranked struct {
	Video
	WindowNxAvg float64 `json:"nx_avg"`
	AccountAvg  int64   `json:"account_avg"`
}

// RankByNxAvg scores each video against its account's average views over
// exactly the given window and returns the set ordered by that score.
//
// The window is an explicit input: the same video ranks differently under a
// 7-day window than a 30-day one, because the account average is computed
// from whatever videos the caller passed in. An account whose average is
// zero yields nx 0 for all of its videos; division by zero never escapes.
// Ties are broken by raw view count, then by original order.
func RankByNxAvg(videos []Video) []Ranked {
	sums := make(map[string]int64)
	counts := make(map[string]int64)
	for _, v := range videos {
		acc := v.AccountID
		if acc == "" {
			acc = unknownAccount
		}
		sums[acc] += v.Views
		counts[acc]++
	}

	avgs := make(map[string]float64, len(sums))
	for acc, sum := range sums {
		avgs[acc] = float64(sum) / float64(counts[acc])
	}

	out := make([]Ranked, len(videos))
	for i, v := range videos {
		acc := v.AccountID
		if acc == "" {
			acc = unknownAccount
		}
		avg := avgs[acc]
		nx := 0.0
		if avg > 0 {
			nx = float64(v.Views) / avg
		}
		out[i] = Ranked{
			Video:       v,
			WindowNxAvg: round1(nx),
			AccountAvg:  int64(math.Round(avg)),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WindowNxAvg != out[j].WindowNxAvg {
			return out[i].WindowNxAvg > out[j].WindowNxAvg
		}
		return out[i].Views > out[j].Views
	})
	return out
}

var hashtagRe = regexp.MustCompile(`#\w+`)

// HashtagStat aggregates one distinct (case-folded) tag.
type HashtagStat struct {
	Tag        string `json:"tag"`
	Count      int    `json:"count"`
	TotalViews int64  `json:"totalViews"`
	AvgViews   int64  `json:"avgViews"`
}

// Hashtags extracts #tags from title + description, groups them
// case-insensitively and ranks by total views of the videos carrying them.
// A video with two distinct tags contributes its views to both. Truncated
// to the top 30.
func Hashtags(videos []Video) []HashtagStat {
	stats := make(map[string]*HashtagStat)
	var order []string
	for _, v := range videos {
		text := v.Title + " " + v.Description
		for _, tag := range hashtagRe.FindAllString(text, -1) {
			lower := strings.ToLower(tag)
			s, ok := stats[lower]
			if !ok {
				s = &HashtagStat{Tag: lower}
				stats[lower] = s
				order = append(order, lower)
			}
			s.Count++
			s.TotalViews += v.Views
		}
	}

	out := make([]HashtagStat, 0, len(order))
	for _, tag := range order {
		s := stats[tag]
		s.AvgViews = int64(math.Round(float64(s.TotalViews) / float64(s.Count)))
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalViews > out[j].TotalViews })
	if len(out) > 30 {
		out = out[:30]
	}
	return out
}

// FormatStat is one row of the format breakdown.
type FormatStat struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	TotalViews int64  `json:"totalViews"`
	AvgViews   int64  `json:"avgViews"`
}

var formatBounds = []struct {
	name  string
	upper int64
}{
	{"Short (< 60s)", 60},
	{"Medium (1-5m)", 300},
	{"Long (5-15m)", 900},
}

// Formats categorizes videos into four fixed duration ranges. Unlike the
// duration analysis, unknown durations count as 0 and land in the short
// bucket; all four rows are always present.
func Formats(videos []Video) []FormatStat {
	out := make([]FormatStat, len(formatBounds)+1)
	for i, b := range formatBounds {
		out[i].Name = b.name
	}
	out[len(formatBounds)].Name = "Extended (15m+)"

	for _, v := range videos {
		idx := len(formatBounds)
		for i, b := range formatBounds {
			if v.DurationSeconds < b.upper {
				idx = i
				break
			}
		}
		out[idx].Count++
		out[idx].TotalViews += v.Views
	}
	for i := range out {
		if out[i].Count > 0 {
			out[i].AvgViews = int64(math.Round(float64(out[i].TotalViews) / float64(out[i].Count)))
		}
	}
	return out
}

func sortByViewsDesc(videos []Video) {
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Views > videos[j].Views })
}
