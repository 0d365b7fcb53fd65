package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chupakbra/pxve-members/internal/config"
	"github.com/chupakbra/pxve-members/internal/grid"
	"github.com/chupakbra/pxve-members/internal/roster"
)

// pageLoader is the part of roster.Loader the projection needs.
type pageLoader interface {
	LoadPage(ctx context.Context, group string, index int) (roster.Page, error)
}

// maxPrefetch bounds follow-up loads requested by the grid for one page.
const maxPrefetch = 8

// projectPage loads every page up to page, since the grid slices the
// concatenated records, and returns the grid view of page. Further loads the
// grid asks for are served until it is satisfied.
func projectPage(ctx context.Context, loader pageLoader, group string, page int) (grid.View, error) {
	log := config.GetLogger().With().Str("group", group).Int("page", page).Logger()
	store := roster.NewStore(group)

	load := func(i int) (bool, error) {
		p, err := loader.LoadPage(ctx, group, i)
		if err != nil {
			return false, fmt.Errorf("loading page %d of %q: %w", i+1, group, err)
		}
		store, _ = store.Merge(p)
		return len(p.Members) > 0, nil
	}

	for i := 0; i <= page; i++ {
		more, err := load(i)
		if err != nil {
			return grid.View{}, err
		}
		if !more {
			break
		}
	}

	g, _ := grid.New().WithProps(store.Props(nil, nil))
	g, effects := g.Dispatch(grid.GoToPage{Page: page})
	for steps := 0; steps < maxPrefetch; steps++ {
		loaded := false
		for _, eff := range effects {
			lp, ok := eff.(grid.LoadPage)
			// Navigation loads were served above.
			if !ok || !lp.Prefetch || store.Loaded(lp.Page) {
				continue
			}
			log.Debug().Int("prefetch", lp.Page).Msg("loading requested page")
			if _, err := load(lp.Page); err != nil {
				return grid.View{}, err
			}
			loaded = true
		}
		if !loaded {
			break
		}
		g, effects = g.WithProps(store.Props(nil, nil))
	}
	return g.View(), nil
}

type memberOut struct {
	UserID  string `json:"userid"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Enabled bool   `json:"enabled"`
	Roles   string `json:"roles"`
}

type membersPageOut struct {
	Group   string      `json:"group"`
	Page    int         `json:"page"`
	Start   int         `json:"start"`
	End     int         `json:"end"`
	Total   int         `json:"total"`
	HasNext bool        `json:"has_next"`
	Members []memberOut `json:"members"`
}

func writeMembers(cmd *cobra.Command, group string, view grid.View) error {
	out := membersPageOut{
		Group:   group,
		Page:    view.Page + 1,
		Start:   view.StartCount,
		End:     view.EndCount,
		Total:   view.Total,
		HasNext: view.HasNext,
		Members: make([]memberOut, 0, len(view.Rows)),
	}
	for _, r := range view.Rows {
		out.Members = append(out.Members, memberOut{
			UserID:  r.ID,
			Name:    r.Name,
			Email:   r.Member.Email,
			Enabled: r.Member.Enabled,
			Roles:   r.Membership.Roles,
		})
	}

	if flagOutput == "json" {
		return jsonOut(cmd, out)
	}

	if len(out.Members) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%sNo members on page %d of group %q.%s\n", colorGold, out.Page, group, colorReset)
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERID\tNAME\tEMAIL\tENABLED\tROLE")
	for _, m := range out.Members {
		enabled := "yes"
		if !m.Enabled {
			enabled = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.UserID, m.Name, dash(m.Email), enabled, dash(m.Roles))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d–%d of %d", out.Start, out.End, out.Total)
	if out.HasNext {
		fmt.Fprintf(cmd.OutOrStdout(), "  (next: --page %d)", out.Page+1)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
