package rank

import (
	"math"
	"sort"

	"peerscout/internal/config"
	"peerscout/internal/model"
)

// Options control ranking policy. A zero ChannelCap or MaxResults disables
// that limit; SeenDecay is applied as given, so 0 zeroes the scores of seen
// videos.
type Options struct {
	// SeenDecay multiplies both scores of already-seen videos.
	SeenDecay float64
	// ChannelCap is the max results kept per channel identity; 0 disables.
	ChannelCap int
	// MaxResults truncates the final list; 0 disables.
	MaxResults int
	// Sensitivity is one of the config sensitivity modes.
	Sensitivity string
	// By selects the primary sort score: "time" or "like".
	By string
}

// Rank scores every candidate with a non-empty token list against the
// profile, discounts seen videos, applies the per-channel cap and sensitivity
// filter, and returns the sorted, truncated list.
func Rank(p model.ProfileVector, candidates []model.VideoMetadata, seen map[string]struct{}, opts Options) []model.SimilarityResult {
	timeNorm := vectorNorm(p.TimeEngagement)
	likeNorm := vectorNorm(p.LikeEngagement)

	type scored struct {
		res  model.SimilarityResult
		meta model.VideoMetadata
	}
	var all []scored
	for _, m := range candidates {
		if len(m.Tokens) == 0 {
			continue
		}
		if !passesSensitivity(m, opts.Sensitivity) {
			continue
		}
		res := model.SimilarityResult{
			ShortUUID:      m.ShortUUID,
			URL:            m.URL,
			TimeSimilarity: cosineAgainstBinary(p.TimeEngagement, timeNorm, m.Tokens),
			LikeSimilarity: cosineAgainstBinary(p.LikeEngagement, likeNorm, m.Tokens),
		}
		if _, ok := seen[m.ShortUUID]; ok {
			res.Seen = true
			res.TimeSimilarity *= opts.SeenDecay
			res.LikeSimilarity *= opts.SeenDecay
		}
		all = append(all, scored{res: res, meta: m})
	}

	primary := func(s scored) float64 {
		if opts.By == "like" {
			return s.res.LikeSimilarity
		}
		return s.res.TimeSimilarity
	}
	sort.SliceStable(all, func(i, j int) bool { return primary(all[i]) > primary(all[j]) })

	perChannel := make(map[string]int)
	out := make([]model.SimilarityResult, 0, len(all))
	for _, s := range all {
		if opts.ChannelCap > 0 {
			key := s.meta.ChannelKey()
			if key != "" {
				if perChannel[key] >= opts.ChannelCap {
					continue
				}
				perChannel[key]++
			}
		}
		out = append(out, s.res)
		if opts.MaxResults > 0 && len(out) >= opts.MaxResults {
			break
		}
	}
	return out
}

// SeenSet merges the explicit seen list with identifiers extracted from
// watch-history URLs.
func SeenSet(explicit []string, sessions []model.WatchSession) map[string]struct{} {
	out := make(map[string]struct{}, len(explicit))
	for _, id := range explicit {
		out[id] = struct{}{}
	}
	for _, s := range sessions {
		if id := model.VideoIDFromURL(s.URL); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

// cosineAgainstBinary computes cosine similarity between a weighted user
// vector and a binary video vector (weight 1 per distinct token). Returns 0
// when either side is empty.
func cosineAgainstBinary(user map[string]float64, userNorm float64, tokens []string) float64 {
	if userNorm == 0 || len(tokens) == 0 {
		return 0
	}
	dot := 0.0
	for _, tok := range tokens {
		dot += user[tok]
	}
	if dot == 0 {
		return 0
	}
	return dot / (userNorm * math.Sqrt(float64(len(tokens))))
}

func vectorNorm(v map[string]float64) float64 {
	sum := 0.0
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

func passesSensitivity(m model.VideoMetadata, mode string) bool {
	switch mode {
	case config.SensitivityHide:
		return !m.NSFW
	case config.SensitivityOnly:
		return m.NSFW
	default:
		return true
	}
}
