package router

import (
	"context"
	"fmt"

	"github.com/mizutama/kotoba/internal/kotoba/intent"
	"github.com/mizutama/kotoba/internal/kotoba/profile"
	"github.com/mizutama/kotoba/internal/kotoba/response"
)

// DataSource supplies the read-only forge data behind the query intents.
// The real implementation wraps the forge API client outside this module;
// StaticDataSource is the development stand-in.
type DataSource interface {
	PRSummary(ctx context.Context, repo string, number int) (string, error)
	PRStatus(ctx context.Context, repo string, number int) (string, error)
	Inbox(ctx context.Context, user string) ([]profile.InboxItem, error)
}

// StaticDataSource serves deterministic sample data so the router and REPL
// work end to end without a forge connection.
type StaticDataSource struct {
	Summaries map[int]string
	Statuses  map[int]string
	Items     []profile.InboxItem
}

// NewStaticDataSource returns a data source with a small fixed data set.
func NewStaticDataSource() *StaticDataSource {
	return &StaticDataSource{
		Summaries: map[int]string{},
		Statuses:  map[int]string{},
		Items: []profile.InboxItem{
			{Title: "CI failing on main", Repo: "current", Number: 98, Labels: []string{"bug"}},
			{Title: "Review requested: refactor config loader", Repo: "current", Number: 101, ReviewRequested: true},
			{Title: "Weekly dependency report", Repo: "current"},
		},
	}
}

func (d *StaticDataSource) PRSummary(_ context.Context, repo string, number int) (string, error) {
	if s, ok := d.Summaries[number]; ok {
		return s, nil
	}
	return fmt.Sprintf("PR %d in %s refactors the config loader. Tests pass. Two files changed. No review comments yet.", number, repo), nil
}

func (d *StaticDataSource) PRStatus(_ context.Context, repo string, number int) (string, error) {
	if s, ok := d.Statuses[number]; ok {
		return s, nil
	}
	return fmt.Sprintf("PR %d in %s: checks green, one approval, no conflicts.", number, repo), nil
}

func (d *StaticDataSource) Inbox(context.Context, string) ([]profile.InboxItem, error) {
	return d.Items, nil
}

// handlePR serves the read-only pull request queries. Gated pr.* actions
// never reach here; dispatch sends them down the confirmation paths.
func (r *Router) handlePR(ctx context.Context, cfg profile.Config, in intent.Intent) (*response.Response, error) {
	number, ok := in.IntEntity("pr_number")
	if !ok {
		return response.Error(in, `Tell me which pull request, like "summarize pr 123".`), nil
	}
	repo := repoOf(in)

	switch in.Name {
	case intent.PRSummarize:
		text, err := r.data.PRSummary(ctx, repo, number)
		if err != nil {
			return nil, err
		}
		summary := cfg.TruncateSummary(text)
		card := response.Card{
			Title:    fmt.Sprintf("PR %d", number),
			Subtitle: repo,
			Lines:    []string{summary},
		}
		return response.OK(in, summary, card), nil

	case intent.PRStatus:
		text, err := r.data.PRStatus(ctx, repo, number)
		if err != nil {
			return nil, err
		}
		card := response.Card{
			Title:    fmt.Sprintf("PR %d status", number),
			Subtitle: repo,
			Lines:    []string{text},
		}
		return response.OK(in, text, card), nil
	}

	return r.handleUnknown(in), nil
}

// handleInbox lists the user's notifications, filtered and capped by the
// active profile.
func (r *Router) handleInbox(ctx context.Context, cfg profile.Config, req Request) (*response.Response, error) {
	in := req.Intent

	items, err := r.data.Inbox(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	items = cfg.FilterInbox(items)
	if len(items) == 0 {
		return response.OK(in, "Inbox zero. Nothing needs your attention."), nil
	}

	cards := make([]response.Card, 0, len(items))
	for _, it := range items {
		card := response.Card{
			Title:    it.Title,
			DeepLink: it.DeepLink,
		}
		if it.Number > 0 {
			card.Subtitle = fmt.Sprintf("%s#%d", it.Repo, it.Number)
		} else if it.Repo != "" {
			card.Subtitle = it.Repo
		}
		cards = append(cards, card)
	}

	spoken := fmt.Sprintf("You have %d inbox items. First: %s.", len(items), items[0].Title)
	if len(items) == 1 {
		spoken = fmt.Sprintf("One inbox item: %s.", items[0].Title)
	}
	return response.OK(in, spoken, cards...), nil
}

// handleUnknown answers utterances no rule matched with corrective
// guidance instead of raw diagnostics.
func (r *Router) handleUnknown(in intent.Intent) *response.Response {
	return response.Error(in, UnknownIntentText)
}
