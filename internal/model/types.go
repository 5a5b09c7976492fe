package model

import "time"

// Segment is one continuous interval of confirmed playback.
type Segment struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Duration  float64 `json:"seg_duration"`
	Timestamp string  `json:"timestamp"`
}

// WatchSession is the persisted record for one watched video URL.
type WatchSession struct {
	URL                string    `json:"url"`
	Title              string    `json:"title"`
	CurrentTime        float64   `json:"currentTime"`
	Duration           float64   `json:"duration"`
	IsLive             bool      `json:"isLive"`
	WatchedLiveSeconds float64   `json:"watchedLiveSeconds"`
	Liked              bool      `json:"liked"`
	Disliked           bool      `json:"disliked"`
	LastUpdate         time.Time `json:"lastUpdate"`
	SessionStart       float64   `json:"sessionStart"`
	Segments           []Segment `json:"segments"`
	TotalSegDuration   float64   `json:"totalSegDuration"`
	OverlapWatchTime   float64   `json:"overlapWatchTime"`
	PercentWatched     float64   `json:"percentWatched"`
	Finished           bool      `json:"finished"`
}

// Account identifies the uploading account or channel of a video.
type Account struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Host        string `json:"host"`
}

// VideoMetadata is the resolved record for one video identifier.
type VideoMetadata struct {
	ShortUUID      string   `json:"shortUUID"`
	UUID           string   `json:"uuid"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Tags           []string `json:"tags"`
	Duration       float64  `json:"duration"`
	Views          int      `json:"views"`
	Likes          int      `json:"likes"`
	Dislikes       int      `json:"dislikes"`
	NSFW           bool     `json:"nsfw"`
	URL            string   `json:"url"`
	Account        Account  `json:"account"`
	Channel        Account  `json:"channel"`
	SourceInstance string   `json:"sourceInstance"`
	Unavailable    bool     `json:"unavailable,omitempty"`
	Tokens         []string `json:"tokens"`
}

// ChannelKey returns the identity used for the diversity cap. Falls back to the
// account when a video has no channel of its own.
func (m VideoMetadata) ChannelKey() string {
	if m.Channel.Name != "" {
		return m.Channel.Name + "@" + m.Channel.Host
	}
	if m.Account.Name != "" {
		return m.Account.Name + "@" + m.Account.Host
	}
	return ""
}

// ProfileVector holds the two accumulated per-user token vectors. Rebuilt in
// full on every profile pass; never mutated incrementally.
type ProfileVector struct {
	TimeEngagement map[string]float64 `json:"timeEngagement"`
	LikeEngagement map[string]float64 `json:"likeEngagement"`
}

// SimilarityResult is one ranked candidate. Derived, never authoritative.
type SimilarityResult struct {
	ShortUUID      string  `json:"shortUUID"`
	URL            string  `json:"url"`
	TimeSimilarity float64 `json:"timeSimilarity"`
	LikeSimilarity float64 `json:"likeSimilarity"`
	Seen           bool    `json:"seen"`
}
