package service

import (
	"context"
	"errors"
	"testing"

	"qbank-service/internal/repository"
)

func newBrowseFixture(t *testing.T) (*fixture, *BrowseService) {
	f := newFixture(t)
	access := NewAccessService(f.qbank, nopLogger())
	return f, NewBrowseService(f.qbank, f.study, access, nopLogger())
}

func TestTopicRating(t *testing.T) {
	testCases := []struct {
		count int
		want  float64
	}{
		{0, 3.8},
		{4, 3.8},
		{5, 4.0},
		{14, 4.0},
		{15, 4.2},
		{29, 4.2},
		{30, 4.5},
		{49, 4.5},
		{50, 4.8},
		{120, 4.8},
	}
	for _, tc := range testCases {
		if got := topicRating(tc.count); got != tc.want {
			t.Errorf("topicRating(%d) = %v, want %v", tc.count, got, tc.want)
		}
	}
}

func TestHomeGroupsByProfYear(t *testing.T) {
	f, svc := newBrowseFixture(t)
	ctx := context.Background()

	f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "Q1", 0)
	f.seedQuestion(t, "Anatomy", "Intro", "General Anatomy", "Q2", 0)
	f.seedQuestion(t, "Pathology", "General", "Cell Injury", "Q3", 1)

	userID := f.seedUser(t, "home@example.com")
	study := NewStudyService(f.study, f.qbank, nopLogger())
	if _, err := study.MarkTopicComplete(ctx, userID, "Anatomy", "Basic Anatomy"); err != nil {
		t.Fatalf("mark complete: %v", err)
	}

	groups, err := svc.Home(ctx, userID)
	if err != nil {
		t.Fatalf("home: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2 (1st and 2nd Prof)", len(groups))
	}
	if groups[0].Year != "1st Prof" || groups[1].Year != "2nd Prof" {
		t.Errorf("years = %q, %q", groups[0].Year, groups[1].Year)
	}

	anat := groups[0].Subjects[0]
	if anat.Subject != "Anatomy" || anat.TotalTopics != 2 || anat.CompletedTopics != 1 {
		t.Errorf("anatomy progress = %+v, want 2 topics / 1 completed", anat)
	}
}

func TestListChaptersAndTopicsLockState(t *testing.T) {
	f, svc := newBrowseFixture(t)
	ctx := context.Background()

	f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "Q1", 0)
	f.seedQuestion(t, "Anatomy", "Upper Limb", "Shoulder", "Q2", 1)

	anon, err := svc.ListChaptersAndTopics(ctx, "Anatomy", 0, false)
	if err != nil {
		t.Fatalf("anonymous list: %v", err)
	}
	locked := make(map[string]bool)
	for _, ch := range anon {
		for _, topic := range ch.Topics {
			locked[topic.Name] = topic.Locked
		}
	}
	if locked["Basic Anatomy"] {
		t.Error("free topic locked for anonymous user")
	}
	if !locked["Shoulder"] {
		t.Error("gated topic not locked for anonymous user")
	}

	userID := f.seedUser(t, "list@example.com")
	loggedIn, err := svc.ListChaptersAndTopics(ctx, "Anatomy", userID, true)
	if err != nil {
		t.Fatalf("logged-in list: %v", err)
	}
	for _, ch := range loggedIn {
		for _, topic := range ch.Topics {
			if topic.Locked {
				t.Errorf("topic %q locked for logged-in user", topic.Name)
			}
		}
	}
}

func TestGetNextTopic(t *testing.T) {
	f, svc := newBrowseFixture(t)
	ctx := context.Background()

	f.seedQuestion(t, "Anatomy", "Intro", "Abdomen", "Q1", 0)
	f.seedQuestion(t, "Anatomy", "Intro", "Head and Neck", "Q2", 0)
	f.seedQuestion(t, "Anatomy", "Intro", "Thorax", "Q3", 0)

	testCases := []struct {
		current string
		want    string
	}{
		{"Abdomen", "Head and Neck"},
		{"Head and Neck", "Thorax"},
		{"Thorax", ""},
		{"Unknown", ""},
	}
	for _, tc := range testCases {
		got, err := svc.GetNextTopic(ctx, "Anatomy", tc.current)
		if err != nil {
			t.Fatalf("next after %q: %v", tc.current, err)
		}
		if got != tc.want {
			t.Errorf("next after %q = %q, want %q", tc.current, got, tc.want)
		}
	}
}

func TestShowQuestionNavigation(t *testing.T) {
	f, svc := newBrowseFixture(t)
	ctx := context.Background()

	q1 := f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "first", 0)
	q2 := f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "second", 0)
	q3 := f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "third", 0)
	f.seedQuestion(t, "Anatomy", "Intro", "General Anatomy", "other", 0)

	first, err := svc.ShowQuestion(ctx, "Anatomy", "Basic Anatomy", q1, 0, false)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.Index != 1 || first.Total != 3 || first.PrevID != nil {
		t.Errorf("first page = index %d total %d prev %v", first.Index, first.Total, first.PrevID)
	}
	if first.NextID == nil || *first.NextID != q2 {
		t.Errorf("first.NextID = %v, want %d", first.NextID, q2)
	}
	if first.Question.Answer != "" {
		t.Error("answer leaked on question view")
	}

	last, err := svc.ShowQuestion(ctx, "Anatomy", "Basic Anatomy", q3, 0, true)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if !last.IsLast || last.NextID != nil {
		t.Errorf("last page = isLast %v next %v", last.IsLast, last.NextID)
	}
	if last.NextTopic != "General Anatomy" {
		t.Errorf("next topic = %q, want General Anatomy", last.NextTopic)
	}
	if last.Question.Answer == "" {
		t.Error("answer view missing answer text")
	}

	if _, err := svc.ShowQuestion(ctx, "Anatomy", "Basic Anatomy", 9999, 0, false); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown question err = %v, want ErrNotFound", err)
	}
}

func TestFirstQuestionID(t *testing.T) {
	f, svc := newBrowseFixture(t)
	ctx := context.Background()

	q1 := f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "first", 0)
	f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "second", 0)

	got, err := svc.FirstQuestionID(ctx, "Anatomy", "Basic Anatomy")
	if err != nil {
		t.Fatalf("first question: %v", err)
	}
	if got != q1 {
		t.Errorf("first question = %d, want %d", got, q1)
	}

	if _, err := svc.FirstQuestionID(ctx, "Anatomy", "Empty Topic"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("empty topic err = %v, want ErrNotFound", err)
	}
}
