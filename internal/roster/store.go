package roster

import (
	"maps"
	"reflect"
	"slices"

	"github.com/chupakbra/pxve-members/internal/grid"
)

// Store accumulates loaded pages for one group. It is a value type; Merge
// returns an updated copy and never touches the receiver's maps.
type Store struct {
	group string
	pages map[int]Page
	ids   []string
	total int
	known bool
}

// NewStore returns an empty store for group.
func NewStore(group string) Store {
	return Store{group: group, pages: map[int]Page{}}
}

// Group returns the group the store holds members of.
func (s Store) Group() string { return s.group }

// Merge records p, replacing any earlier copy of the same page. The total and
// member list always follow the most recent page. changed is false when p
// carries nothing new.
func (s Store) Merge(p Page) (next Store, changed bool) {
	if old, ok := s.pages[p.Index]; ok && s.known && s.total == p.Total() && reflect.DeepEqual(old, p) {
		return s, false
	}
	next = s
	next.pages = maps.Clone(s.pages)
	if next.pages == nil {
		next.pages = map[int]Page{}
	}
	next.pages[p.Index] = p
	next.ids = p.IDs
	next.total = p.Total()
	next.known = true
	return next, true
}

// Loaded reports whether page has been merged.
func (s Store) Loaded(page int) bool {
	_, ok := s.pages[page]
	return ok
}

// Known reports whether any page has been merged yet.
func (s Store) Known() bool { return s.known }

// Total returns the member count reported by the most recent page.
func (s Store) Total() int { return s.total }

// Records returns the loaded members in page order, first occurrence wins.
func (s Store) Records() []grid.Member {
	indexes := slices.Sorted(maps.Keys(s.pages))
	seen := make(map[string]struct{})
	var out []grid.Member
	for _, i := range indexes {
		for _, m := range s.pages[i].Members {
			if _, dup := seen[m.UserID]; dup {
				continue
			}
			seen[m.UserID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Memberships merges the memberships of every loaded page.
func (s Store) Memberships() map[string]grid.Membership {
	out := make(map[string]grid.Membership)
	for _, p := range s.pages {
		maps.Copy(out, p.Memberships)
	}
	return out
}

// Props builds grid props from the loaded pages. Excluded members still
// listed by the server are subtracted from the total.
func (s Store) Props(include, exclude map[string]grid.Member) grid.Props {
	total := s.total
	for _, id := range s.ids {
		if _, ok := exclude[id]; ok {
			total--
		}
	}
	return grid.Props{
		Records:     s.Records(),
		Memberships: s.Memberships(),
		Include:     include,
		Exclude:     exclude,
		Total:       max(total, 0),
	}
}
