// Package tagstyle maps post tags to display buckets and suggests tags
// while a post is being composed.
package tagstyle

import "strings"

// Bucket is a visual category for a tag chip.
type Bucket string

const (
	BucketDefault   Bucket = "default"
	BucketMusic     Bucket = "music"
	BucketDance     Bucket = "dance"
	BucketSports    Bucket = "sports"
	BucketFashion   Bucket = "fashion"
	BucketScreen    Bucket = "screen"
	BucketCelebrity Bucket = "celebrity"
)

type rule struct {
	bucket   Bucket
	keywords []string
	class    string
}

// Order matters: a tag matching several groups lands in the first one.
var rules = []rule{
	{BucketMusic, []string{"music", "k-pop", "hip-hop"},
		"bg-gradient-to-r from-purple-600 to-purple-700 hover:from-purple-700 hover:to-purple-800"},
	{BucketDance, []string{"dance"},
		"bg-gradient-to-r from-orange-500 to-red-500 hover:from-orange-600 hover:to-red-600"},
	{BucketSports, []string{"sports", "fandom"},
		"bg-gradient-to-r from-blue-600 to-blue-700 hover:from-blue-700 hover:to-blue-800"},
	{BucketFashion, []string{"fashion", "style", "trend"},
		"bg-gradient-to-r from-pink-500 to-rose-500 hover:from-pink-600 hover:to-rose-600"},
	{BucketScreen, []string{"movie", "tv", "film"},
		"bg-gradient-to-r from-emerald-600 to-teal-600 hover:from-emerald-700 hover:to-teal-700"},
	{BucketCelebrity, []string{"celebrity"},
		"bg-gradient-to-r from-yellow-500 to-amber-500 hover:from-yellow-600 hover:to-amber-600"},
}

// Classify returns the bucket for tag using case-insensitive substring matching.
func Classify(tag string) Bucket {
	lower := strings.ToLower(tag)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.bucket
			}
		}
	}
	return BucketDefault
}

// Class returns the CSS class list for b. The default bucket has none.
func (b Bucket) Class() string {
	for _, r := range rules {
		if r.bucket == b {
			return r.class
		}
	}
	return ""
}

// Styles maps each tag to its bucket class, skipping default-styled tags.
func Styles(tags []string) map[string]string {
	out := make(map[string]string)
	for _, tag := range tags {
		if class := Classify(tag).Class(); class != "" {
			out[tag] = class
		}
	}
	return out
}

// MatchesCategory reports whether any tag contains category, ignoring case.
// The "All" category matches everything.
func MatchesCategory(tags []string, category string) bool {
	if category == "" || strings.EqualFold(category, "All") {
		return true
	}
	want := strings.ToLower(category)
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), want) {
			return true
		}
	}
	return false
}
