package analytics

import (
	"math"
	"testing"
)

func TestRankByNxAvg_ScoresAgainstAccountAverage(t *testing.T) {
	// Account "a" averages 200 views; the 400-view video scores 2x.
	videos := []Video{
		{ID: "v1", AccountID: "a", Views: 400},
		{ID: "v2", AccountID: "a", Views: 100},
		{ID: "v3", AccountID: "a", Views: 100},
	}
	ranked := RankByNxAvg(videos)
	if ranked[0].ID != "v1" {
		t.Fatalf("top ranked = %s, want v1", ranked[0].ID)
	}
	if ranked[0].WindowNxAvg != 2 {
		t.Errorf("v1 nx = %v, want 2", ranked[0].WindowNxAvg)
	}
	if ranked[0].AccountAvg != 200 {
		t.Errorf("v1 account_avg = %d, want 200", ranked[0].AccountAvg)
	}
}

func TestRankByNxAvg_ZeroAverageMeansZeroScore(t *testing.T) {
	videos := []Video{
		{ID: "v1", AccountID: "a", Views: 0},
		{ID: "v2", AccountID: "a", Views: 0},
	}
	for _, r := range RankByNxAvg(videos) {
		if r.WindowNxAvg != 0 {
			t.Errorf("%s nx = %v, want 0 for zero-average account", r.ID, r.WindowNxAvg)
		}
		if math.IsNaN(r.WindowNxAvg) || math.IsInf(r.WindowNxAvg, 0) {
			t.Errorf("%s nx is not finite", r.ID)
		}
	}
}

func TestRankByNxAvg_AccountlessGroupedAsUnknown(t *testing.T) {
	// Two accountless videos form their own pseudo-account with avg 150.
	videos := []Video{
		{ID: "v1", Views: 200},
		{ID: "v2", Views: 100},
	}
	ranked := RankByNxAvg(videos)
	if ranked[0].ID != "v1" || ranked[0].WindowNxAvg != 1.3 {
		t.Errorf("ranked[0] = %s nx %v, want v1 nx 1.3", ranked[0].ID, ranked[0].WindowNxAvg)
	}
}

func TestRankByNxAvg_TieBreaksByRawViews(t *testing.T) {
	// Separate single-video accounts all score exactly 1x.
	videos := []Video{
		{ID: "low", AccountID: "a", Views: 10},
		{ID: "high", AccountID: "b", Views: 9000},
		{ID: "mid", AccountID: "c", Views: 500},
	}
	ranked := RankByNxAvg(videos)
	if ranked[0].ID != "high" || ranked[1].ID != "mid" || ranked[2].ID != "low" {
		t.Errorf("tie order = %s,%s,%s want high,mid,low", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
}

// The window is whatever set the caller passes: the same video scores
// differently when ranked inside a different slice of its account history.
func TestRankByNxAvg_WindowDependent(t *testing.T) {
	wide := []Video{
		{ID: "v1", AccountID: "a", Views: 300},
		{ID: "v2", AccountID: "a", Views: 100},
		{ID: "v3", AccountID: "a", Views: 800},
	}
	narrow := wide[:2]

	nxOf := func(rs []Ranked, id string) float64 {
		for _, r := range rs {
			if r.ID == id {
				return r.WindowNxAvg
			}
		}
		t.Fatalf("video %s missing", id)
		return 0
	}
	if a, b := nxOf(RankByNxAvg(wide), "v1"), nxOf(RankByNxAvg(narrow), "v1"); a == b {
		t.Errorf("nx identical across windows (%v); expected window-dependent score", a)
	}
}

func TestHashtags_GroupingAndAdditivity(t *testing.T) {
	videos := []Video{
		{Title: "Go tips #golang", Description: "more #GoLang and #coding", Views: 100},
		{Title: "#coding is fun", Views: 50},
	}
	tags := Hashtags(videos)

	byTag := make(map[string]HashtagStat)
	for _, s := range tags {
		byTag[s.Tag] = s
	}

	// #golang and #GoLang fold to one tag, counted twice, both from video 1.
	g, ok := byTag["#golang"]
	if !ok || g.Count != 2 || g.TotalViews != 200 {
		t.Errorf("#golang = %+v, want count 2 totalViews 200", g)
	}
	// A video with two distinct tags contributes its views to both.
	c, ok := byTag["#coding"]
	if !ok || c.Count != 2 || c.TotalViews != 150 {
		t.Errorf("#coding = %+v, want count 2 totalViews 150", c)
	}
}

func TestHashtags_RankedByTotalViewsTop30(t *testing.T) {
	var videos []Video
	for i := 0; i < 40; i++ {
		videos = append(videos, Video{
			Title: "#tag" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Views: int64(i * 10),
		})
	}
	tags := Hashtags(videos)
	if len(tags) != 30 {
		t.Fatalf("returned %d tags, want 30", len(tags))
	}
	for i := 1; i < len(tags); i++ {
		if tags[i].TotalViews > tags[i-1].TotalViews {
			t.Fatalf("tags not ordered by totalViews at %d", i)
		}
	}
}

func TestHashtags_None(t *testing.T) {
	if tags := Hashtags([]Video{{Title: "no tags here"}}); len(tags) != 0 {
		t.Errorf("Hashtags = %+v, want empty", tags)
	}
}

func TestFormats_FixedBucketsAndAverages(t *testing.T) {
	videos := []Video{
		{DurationSeconds: 30, Views: 100},
		{DurationSeconds: 45, Views: 300},
		{DurationSeconds: 120, Views: 500},
		{DurationSeconds: 600, Views: 800},
		{DurationSeconds: 1200, Views: 1000},
	}
	formats := Formats(videos)
	if len(formats) != 4 {
		t.Fatalf("format rows = %d, want 4", len(formats))
	}
	want := map[string]struct {
		count int
		avg   int64
	}{
		"Short (< 60s)":   {2, 200},
		"Medium (1-5m)":   {1, 500},
		"Long (5-15m)":    {1, 800},
		"Extended (15m+)": {1, 1000},
	}
	for _, f := range formats {
		w := want[f.Name]
		if f.Count != w.count || f.AvgViews != w.avg {
			t.Errorf("%s = count %d avg %d, want count %d avg %d",
				f.Name, f.Count, f.AvgViews, w.count, w.avg)
		}
	}
}

func TestFormats_EmptyBucketsReportZero(t *testing.T) {
	for _, f := range Formats(nil) {
		if f.AvgViews != 0 || f.Count != 0 {
			t.Errorf("empty input row %+v, want zeroes", f)
		}
	}
}
