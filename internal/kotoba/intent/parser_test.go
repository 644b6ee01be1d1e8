package intent_test

import (
	"reflect"
	"testing"

	"github.com/mizutama/kotoba/internal/kotoba/intent"
)

func TestParse_SummarizePR(t *testing.T) {
	p := intent.NewParser()

	got := p.Parse("summarize pr 123")

	if got.Name != intent.PRSummarize {
		t.Errorf("name: got %q, want %q", got.Name, intent.PRSummarize)
	}
	if got.Confidence != 1.0 {
		t.Errorf("confidence: got %v, want 1.0", got.Confidence)
	}
	if n, ok := got.IntEntity("pr_number"); !ok || n != 123 {
		t.Errorf("pr_number: got %v (present=%v), want 123", n, ok)
	}
}

func TestParse_FirstMatchPrecedence(t *testing.T) {
	p := intent.NewParser()

	// The "on PR N" form must win over the general delegation catch-all.
	got := p.Parse("ask agent to fix the lint errors on pr 42")
	if got.Name != intent.AgentDelegate {
		t.Fatalf("name: got %q, want %q", got.Name, intent.AgentDelegate)
	}
	if task := got.StringEntity("task"); task != "fix the lint errors" {
		t.Errorf("task: got %q", task)
	}
	if n, ok := got.IntEntity("pr_number"); !ok || n != 42 {
		t.Errorf("pr_number: got %v (present=%v), want 42", n, ok)
	}

	// Without a PR reference the catch-all applies and keeps the full task.
	got = p.Parse("ask agent to clean up the changelog")
	if got.Name != intent.AgentDelegate {
		t.Fatalf("name: got %q, want %q", got.Name, intent.AgentDelegate)
	}
	if task := got.StringEntity("task"); task != "clean up the changelog" {
		t.Errorf("task: got %q", task)
	}
	if _, ok := got.IntEntity("pr_number"); ok {
		t.Error("pr_number should be absent")
	}
}

func TestParse_SquashBeforeMerge(t *testing.T) {
	p := intent.NewParser()

	got := p.Parse("squash and merge pr 7")
	if got.Name != intent.PRMerge {
		t.Fatalf("name: got %q, want %q", got.Name, intent.PRMerge)
	}
	if m := got.StringEntity("merge_method"); m != "squash" {
		t.Errorf("merge_method: got %q, want squash", m)
	}

	got = p.Parse("merge pull request #7")
	if m := got.StringEntity("merge_method"); m != "merge" {
		t.Errorf("merge_method: got %q, want merge", m)
	}
}

func TestParse_ReviewerListSplitting(t *testing.T) {
	p := intent.NewParser()

	cases := []struct {
		text string
		want []string
	}{
		{"request review from alice on pr 5", []string{"alice"}},
		{"request review from alice, bob on pr 5", []string{"alice", "bob"}},
		{"ask for a review from alice and bob on pull request 5", []string{"alice", "bob"}},
		{"request review from @alice @bob on pr 5", []string{"alice", "bob"}},
	}
	for _, tc := range cases {
		got := p.Parse(tc.text)
		if got.Name != intent.PRRequestReview {
			t.Errorf("%q: name %q, want %q", tc.text, got.Name, intent.PRRequestReview)
			continue
		}
		if !reflect.DeepEqual(got.ListEntity("reviewers"), tc.want) {
			t.Errorf("%q: reviewers %v, want %v", tc.text, got.ListEntity("reviewers"), tc.want)
		}
	}
}

func TestParse_ConfidenceHeuristic(t *testing.T) {
	p := intent.NewParser()

	anchored := p.Parse("merge pr 9")
	if anchored.Confidence != intent.AnchoredConfidence {
		t.Errorf("anchored: got %v, want %v", anchored.Confidence, intent.AnchoredConfidence)
	}

	partial := p.Parse("hey, could you merge pr 9")
	if partial.Name != intent.PRMerge {
		t.Fatalf("partial: name %q, want %q", partial.Name, intent.PRMerge)
	}
	if partial.Confidence != intent.PartialConfidence {
		t.Errorf("partial: got %v, want %v", partial.Confidence, intent.PartialConfidence)
	}
}

func TestParse_NumericEntityDroppedNotFailed(t *testing.T) {
	p := intent.NewParser()

	// "rerun checks" without a PR number still matches; the optional
	// numeric group is simply omitted.
	got := p.Parse("rerun the checks")
	if got.Name != intent.PRRerunChecks {
		t.Fatalf("name: got %q, want %q", got.Name, intent.PRRerunChecks)
	}
	if _, ok := got.IntEntity("pr_number"); ok {
		t.Error("pr_number should be absent")
	}
}

func TestParse_Unknown(t *testing.T) {
	p := intent.NewParser()

	got := p.Parse("order me a pizza")
	if got.Name != intent.Unknown {
		t.Fatalf("name: got %q, want unknown", got.Name)
	}
	if got.Confidence != 0.0 {
		t.Errorf("confidence: got %v, want 0", got.Confidence)
	}
	if text := got.StringEntity("text"); text != "order me a pizza" {
		t.Errorf("text entity: got %q", text)
	}
}

func TestParse_SystemIntents(t *testing.T) {
	p := intent.NewParser()

	cases := []struct {
		text string
		name string
	}{
		{"repeat", intent.Repeat},
		{"Repeat that", intent.Repeat},
		{"next", intent.Next},
		{"next one", intent.Next},
		{"confirm", intent.Confirm},
		{"yes, do it", intent.Confirm},
		{"cancel", intent.Cancel},
		{"never mind", intent.Cancel},
		{"set profile to workout", intent.SetProfile},
		{"switch to kitchen mode", intent.SetProfile},
		{"debug transcript", intent.DebugTranscript},
	}
	for _, tc := range cases {
		if got := p.Parse(tc.text); got.Name != tc.name {
			t.Errorf("%q: got %q, want %q", tc.text, got.Name, tc.name)
		}
	}
}

func TestParse_ConfirmWithToken(t *testing.T) {
	p := intent.NewParser()

	got := p.Parse("confirm Zm9vYmFyYmF6")
	if got.Name != intent.Confirm {
		t.Fatalf("name: got %q, want %q", got.Name, intent.Confirm)
	}
	if tok := got.StringEntity("token"); tok != "Zm9vYmFyYmF6" {
		t.Errorf("token: got %q", tok)
	}
}
