package opensubtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxPairs is how many results per language are considered.
const DefaultMaxPairs = 5

// Pair couples a primary and secondary search result for merging.
type Pair struct {
	Index     int
	Primary   Subtitle
	Secondary Subtitle
	Release   string
}

// ID identifies the pair by both file ids.
func (p Pair) ID() string {
	return fmt.Sprintf("merged-%d-%d", p.Primary.FileID, p.Secondary.FileID)
}

// PairResults takes the first maxPairs results of each language in provider
// order and pairs them by position. The primary result's release name labels
// the pair, falling back to "Release #i". A language with no results yields
// no pairs.
func PairResults(results []Subtitle, primaryLang, secondaryLang string, maxPairs int) []Pair {
	if maxPairs <= 0 {
		maxPairs = DefaultMaxPairs
	}
	primary := filterLanguage(results, primaryLang, maxPairs)
	secondary := filterLanguage(results, secondaryLang, maxPairs)

	count := min(len(primary), len(secondary))
	pairs := make([]Pair, 0, count)
	for i := 0; i < count; i++ {
		release := primary[i].Release
		if release == "" {
			release = "Release #" + strconv.Itoa(i+1)
		}
		pairs = append(pairs, Pair{
			Index:     i + 1,
			Primary:   primary[i],
			Secondary: secondary[i],
			Release:   release,
		})
	}
	return pairs
}

func filterLanguage(results []Subtitle, lang string, limit int) []Subtitle {
	lang = strings.ToLower(strings.TrimSpace(lang))
	var out []Subtitle
	for _, sub := range results {
		if len(out) == limit {
			break
		}
		if strings.EqualFold(sub.Language, lang) {
			out = append(out, sub)
		}
	}
	return out
}

// MediaID identifies a movie or a single episode.
type MediaID struct {
	IMDBID  string
	Season  int
	Episode int
}

// IsEpisode reports whether the id names a series episode.
func (m MediaID) IsEpisode() bool {
	return m.Season > 0 && m.Episode > 0
}

// ParseMediaID accepts "tt1234567" for movies and "tt1234567:1:2" for
// episodes.
func ParseMediaID(value string) (MediaID, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	imdb := SanitizeIMDBID(parts[0])
	if imdb == "" {
		return MediaID{}, fmt.Errorf("invalid imdb id %q", parts[0])
	}
	id := MediaID{IMDBID: imdb}
	switch len(parts) {
	case 1:
		return id, nil
	case 3:
		season, err := strconv.Atoi(parts[1])
		if err != nil || season <= 0 {
			return MediaID{}, fmt.Errorf("invalid season %q", parts[1])
		}
		episode, err := strconv.Atoi(parts[2])
		if err != nil || episode <= 0 {
			return MediaID{}, fmt.Errorf("invalid episode %q", parts[2])
		}
		id.Season, id.Episode = season, episode
		return id, nil
	default:
		return MediaID{}, fmt.Errorf("media id %q: expected imdb id or imdb:season:episode", value)
	}
}
