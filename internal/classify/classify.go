package classify

import (
	"sort"
	"strings"
)

const Fallback = "Other"

// Classifier maps free-text activity names onto categories via keyword
// containment. It is immutable after construction; build one at startup
// from config and pass it explicitly.
type Classifier struct {
	categories []category
}

type category struct {
	name     string
	keywords []string
}

// New builds a classifier from a category -> keywords mapping. Categories
// match in lexical order so classification is deterministic regardless of
// map iteration; empty keywords are dropped.
func New(keywords map[string][]string) *Classifier {
	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	sort.Strings(names)

	cats := make([]category, 0, len(names))
	for _, name := range names {
		kws := make([]string, 0, len(keywords[name]))
		for _, kw := range keywords[name] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			kws = append(kws, kw)
		}
		if len(kws) == 0 {
			continue
		}
		cats = append(cats, category{name: name, keywords: kws})
	}
	return &Classifier{categories: cats}
}

// Assign returns the first category whose keyword occurs in the activity
// text, or Fallback when nothing matches.
func (c *Classifier) Assign(activity string) string {
	lower := strings.ToLower(activity)
	for _, cat := range c.categories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}
	return Fallback
}

func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		out = append(out, cat.name)
	}
	return out
}
