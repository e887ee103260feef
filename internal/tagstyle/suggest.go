package tagstyle

import "strings"

// DefaultCatalog is offered to authors while typing a tag.
var DefaultCatalog = []string{
	"JavaScript", "TypeScript", "React", "Vue", "Angular", "Svelte",
	"Node.js", "Python", "Ruby", "CSS", "HTML", "Web Development",
	"Frontend", "Backend", "DevOps", "Design", "UI/UX", "Product",
	"Career", "Productivity", "Learning",
}

// Suggest filters catalog by a case-insensitive substring of input, leaving
// out tags already chosen, and returns at most limit entries in catalog order.
func Suggest(input string, chosen, catalog []string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	taken := make(map[string]struct{}, len(chosen))
	for _, t := range chosen {
		taken[t] = struct{}{}
	}

	needle := strings.ToLower(strings.TrimSpace(input))
	out := make([]string, 0, limit)
	for _, tag := range catalog {
		if _, ok := taken[tag]; ok {
			continue
		}
		if !strings.Contains(strings.ToLower(tag), needle) {
			continue
		}
		out = append(out, tag)
		if len(out) == limit {
			break
		}
	}
	return out
}
