package profile

import "strings"

// InboxItem is one notification-style entry as supplied by the transport's
// data source (review requests, CI results, issue activity).
type InboxItem struct {
	Title           string   `json:"title"`
	Repo            string   `json:"repo"`
	Number          int      `json:"number,omitempty"`
	ReviewRequested bool     `json:"review_requested,omitempty"`
	Assigned        bool     `json:"assigned,omitempty"`
	Labels          []string `json:"labels,omitempty"`
	DeepLink        string   `json:"deep_link,omitempty"`
}

// Actionable reports whether the item demands action from the user: a
// review/assignee flag, a failing/failed title, or a bug/security label.
func (it InboxItem) Actionable() bool {
	if it.ReviewRequested || it.Assigned {
		return true
	}
	title := strings.ToLower(it.Title)
	if strings.Contains(title, "failing") || strings.Contains(title, "failed") {
		return true
	}
	for _, l := range it.Labels {
		switch strings.ToLower(l) {
		case "bug", "security":
			return true
		}
	}
	return false
}

// FilterInbox caps items at the profile's inbox limit. For the focused
// profile, actionable items are surfaced first and informational items only
// fill whatever slots remain; each group preserves its relative order.
// Every other profile takes the first N items as given.
func (c Config) FilterInbox(items []InboxItem) []InboxItem {
	limit := c.MaxInboxItems
	if limit <= 0 || len(items) == 0 {
		return nil
	}

	if c.Profile != Focused {
		if len(items) > limit {
			items = items[:limit]
		}
		return items
	}

	var actionable, informational []InboxItem
	for _, it := range items {
		if it.Actionable() {
			actionable = append(actionable, it)
		} else {
			informational = append(informational, it)
		}
	}

	out := actionable
	if len(out) > limit {
		return out[:limit]
	}
	if room := limit - len(out); room > 0 {
		if room > len(informational) {
			room = len(informational)
		}
		out = append(out, informational[:room]...)
	}
	return out
}
