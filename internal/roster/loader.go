package roster

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/chupakbra/pxve-members/internal/config"
	"github.com/chupakbra/pxve-members/internal/grid"
)

// Page is one page of members with their joined memberships.
type Page struct {
	Group string
	Index int
	// IDs is the full member list the page was cut from.
	IDs         []string
	Members     []grid.Member
	Memberships map[string]grid.Membership
}

// Total is the authoritative member count at the time the page was loaded.
func (p Page) Total() int { return len(p.IDs) }

// Loader reads pages from a Directory.
type Loader struct {
	dir         Directory
	concurrency int
}

// NewLoader returns a Loader fetching at most concurrency users at once.
func NewLoader(dir Directory, concurrency int) *Loader {
	if concurrency <= 0 {
		concurrency = config.DefaultConcurrency
	}
	return &Loader{dir: dir, concurrency: concurrency}
}

// LoadPage fetches page index of group. A page past the end is returned
// empty. When role data cannot be read the page comes back without
// memberships rather than failing.
func (l *Loader) LoadPage(ctx context.Context, group string, index int) (Page, error) {
	log := config.GetLogger().With().Str("group", group).Int("page", index).Logger()

	ids, err := l.dir.MemberIDs(ctx, group)
	if err != nil {
		return Page{}, err
	}
	page := Page{Group: group, Index: index, IDs: ids}

	lo := index * grid.PageSize
	if index < 0 || lo >= len(ids) {
		log.Debug().Int("total", len(ids)).Msg("page past end")
		return page, nil
	}
	hi := min(lo+grid.PageSize, len(ids))
	pageIDs := ids[lo:hi]

	members := make([]grid.Member, len(pageIDs))
	var roles map[string]string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	g.Go(func() error {
		r, err := l.dir.Roles(gctx, group)
		if err != nil {
			log.Warn().Err(err).Msg("reading member roles")
			return nil
		}
		roles = r
		return nil
	})
	for i, id := range pageIDs {
		g.Go(func() error {
			m, err := l.dir.Member(gctx, id)
			if err != nil {
				return err
			}
			members[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("loading page")
		return Page{}, err
	}

	page.Members = members
	if roles != nil {
		page.Memberships = make(map[string]grid.Membership, len(pageIDs))
		for _, id := range pageIDs {
			page.Memberships[id] = grid.Membership{UserID: id, GroupID: group, Roles: roles[id]}
		}
	}
	log.Debug().Int("members", len(members)).Int("total", len(ids)).Msg("page loaded")
	return page, nil
}
