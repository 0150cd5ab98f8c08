// Package correlate pairs rating events with the sensor record nearest to the
// moment the rated visual was shown.
package correlate

import (
	"sort"
	"time"

	"github.com/okian/smartart/internal/domain/model"
)

// Result is the output of one correlation run.
type Result struct {
	// Samples are in the order of the input ratings; unmatched ratings are omitted.
	Samples []model.CorrelatedSample
	// Unmatched counts ratings with no sensor record inside the window.
	Unmatched int
}

type candidate struct {
	at       time.Time
	features model.Vector
}

// Correlate matches each rating to the record whose time is closest to the
// rating's visual time, provided the distance is at most window. On equal
// distance the earlier record wins; among records sharing a timestamp the one
// that came first in records wins. Records missing any feature field are not
// candidates. The inputs are not modified.
func Correlate(ratings []model.RatingEvent, records []model.PersistedRecord, window time.Duration) Result {
	cands := make([]candidate, 0, len(records))
	for _, rec := range records {
		v, ok := rec.Features()
		if !ok {
			continue
		}
		cands = append(cands, candidate{at: rec.Time, features: v})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].at.Before(cands[j].at) })

	res := Result{Samples: make([]model.CorrelatedSample, 0, len(ratings))}
	for _, r := range ratings {
		c, ok := nearest(cands, r.VisualTime, window)
		if !ok {
			res.Unmatched++
			continue
		}
		res.Samples = append(res.Samples, model.CorrelatedSample{
			Features:   c.features,
			Label:      r.Rating,
			SensorTime: c.at,
			VisualTime: r.VisualTime,
		})
	}
	return res
}

// nearest expects cands sorted by time.
func nearest(cands []candidate, target time.Time, window time.Duration) (candidate, bool) {
	if window < 0 || len(cands) == 0 {
		return candidate{}, false
	}

	// first candidate at or after target
	idx := sort.Search(len(cands), func(i int) bool { return !cands[i].at.Before(target) })

	best := -1
	var bestDiff time.Duration
	if idx > 0 {
		// earliest candidate sharing the timestamp just before target
		prev := cands[idx-1].at
		first := sort.Search(idx, func(i int) bool { return !cands[i].at.Before(prev) })
		best, bestDiff = first, target.Sub(prev)
	}
	if idx < len(cands) {
		diff := cands[idx].at.Sub(target)
		if best < 0 || diff < bestDiff {
			best, bestDiff = idx, diff
		}
	}

	if best < 0 || bestDiff > window {
		return candidate{}, false
	}
	return cands[best], true
}
