// Package selector picks one rendition from a catalog.
package selector

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/iconidentify/ultragrab/internal/domain"
)

// hdHeight is the lowest height labelled HD.
const hdHeight = 720

// Select returns the rendition that best matches kind and maxHeight.
//
// Audio: audio-only renditions first (highest bitrate), then any rendition
// carrying audio (highest bitrate, lowest height).
//
// Video: progressive renditions with Height <= maxHeight (largest height);
// if all exceed the bound, the largest progressive rendition. Without any
// progressive rendition the same rule applies to video-only renditions.
// maxHeight <= 0 disables the bound. Ties resolve by bitrate, then catalog order.
func Select(catalog domain.Catalog, kind domain.MediaKind, maxHeight int) (domain.Rendition, error) {
	if len(catalog) == 0 {
		return domain.Rendition{}, domain.ErrNoRenditionsAvailable
	}

	var (
		r  domain.Rendition
		ok bool
	)
	switch kind {
	case domain.KindAudio:
		r, ok = selectAudio(catalog)
	case domain.KindVideo:
		r, ok = selectVideo(catalog, maxHeight)
	default:
		return domain.Rendition{}, fmt.Errorf("unknown media kind %q: %w", kind, domain.ErrNoRenditionsAvailable)
	}
	if !ok {
		return domain.Rendition{}, domain.ErrNoRenditionsAvailable
	}
	return r, nil
}

func selectAudio(catalog domain.Catalog) (domain.Rendition, bool) {
	if audioOnly := lo.Filter(catalog, func(r domain.Rendition, _ int) bool { return r.IsAudioOnly() }); len(audioOnly) > 0 {
		return best(audioOnly, betterAudio), true
	}
	if withAudio := lo.Filter(catalog, func(r domain.Rendition, _ int) bool { return r.HasAudio }); len(withAudio) > 0 {
		return best(withAudio, betterAudio), true
	}
	return domain.Rendition{}, false
}

func selectVideo(catalog domain.Catalog, maxHeight int) (domain.Rendition, bool) {
	if pool := videoPool(catalog); len(pool) > 0 {
		return boundedLargest(pool, maxHeight), true
	}
	return domain.Rendition{}, false
}

// videoPool returns the renditions video selection chooses from: the
// progressive ones, or every video-bearing one when none is progressive.
func videoPool(catalog domain.Catalog) []domain.Rendition {
	if progressive := lo.Filter(catalog, func(r domain.Rendition, _ int) bool { return r.IsProgressive() }); len(progressive) > 0 {
		return progressive
	}
	// Known limitation: these may carry no audio track.
	return lo.Filter(catalog, func(r domain.Rendition, _ int) bool { return r.HasVideo })
}

// boundedLargest picks the largest height not above maxHeight, or the
// largest overall when nothing fits. candidates must be non-empty.
func boundedLargest(candidates []domain.Rendition, maxHeight int) domain.Rendition {
	if maxHeight > 0 {
		within := lo.Filter(candidates, func(r domain.Rendition, _ int) bool { return r.Height <= maxHeight })
		if len(within) > 0 {
			return best(within, betterVideo)
		}
	}
	return best(candidates, betterVideo)
}

// best returns the first element no other element is better than.
func best(candidates []domain.Rendition, better func(a, b domain.Rendition) bool) domain.Rendition {
	chosen := candidates[0]
	for _, r := range candidates[1:] {
		if better(r, chosen) {
			chosen = r
		}
	}
	return chosen
}

func betterVideo(a, b domain.Rendition) bool {
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	return a.Bitrate > b.Bitrate
}

func betterAudio(a, b domain.Rendition) bool {
	if a.Bitrate != b.Bitrate {
		return a.Bitrate > b.Bitrate
	}
	if a.Height != b.Height {
		return a.Height < b.Height
	}
	if a.ApproxSize > 0 && b.ApproxSize > 0 && a.ApproxSize != b.ApproxSize {
		return a.ApproxSize < b.ApproxSize
	}
	return false
}

// FormatOption is one selectable quality, shaped for a quality picker.
type FormatOption struct {
	Quality string `json:"quality"`
	Type    string `json:"type"`
	Size    string `json:"size,omitempty"`
	HD      bool   `json:"hd,omitempty"`
}

// Qualities enumerates the qualities of a catalog. Every height in Video is
// one a video download can be bounded to. Audio is informational: an audio
// download always delivers the highest-bitrate rendition.
type Qualities struct {
	Video   []int          `json:"video"`
	Audio   []int          `json:"audio"`
	Formats []FormatOption `json:"formats"`
}

// ListQualities returns the distinct heights a video download can deliver
// and the distinct audio bitrates (kbps), both in descending order, plus
// one picker entry per distinct quality.
func ListQualities(catalog domain.Catalog) Qualities {
	q := Qualities{
		Video:   []int{},
		Audio:   []int{},
		Formats: []FormatOption{},
	}

	heights := lo.Uniq(lo.FilterMap(videoPool(catalog), func(r domain.Rendition, _ int) (int, bool) {
		return r.Height, r.Height > 0
	}))
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))
	q.Video = append(q.Video, heights...)

	bitrates := lo.Uniq(lo.FilterMap(catalog, func(r domain.Rendition, _ int) (int, bool) {
		return r.Bitrate / 1000, r.IsAudioOnly() && r.Bitrate >= 1000
	}))
	sort.Sort(sort.Reverse(sort.IntSlice(bitrates)))
	q.Audio = append(q.Audio, bitrates...)

	for _, h := range heights {
		r, _ := selectVideo(catalog, h)
		q.Formats = append(q.Formats, FormatOption{
			Quality: fmt.Sprintf("%dp", h),
			Type:    string(domain.KindVideo),
			Size:    humanSize(r.ApproxSize),
			HD:      h >= hdHeight,
		})
	}
	for _, kbps := range bitrates {
		r, _ := lo.Find(catalog, func(r domain.Rendition) bool { return r.IsAudioOnly() && r.Bitrate/1000 == kbps })
		q.Formats = append(q.Formats, FormatOption{
			Quality: fmt.Sprintf("%dkbps", kbps),
			Type:    string(domain.KindAudio),
			Size:    humanSize(r.ApproxSize),
		})
	}

	return q
}

func humanSize(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(n))
}
