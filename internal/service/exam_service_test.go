package service

import (
	"context"
	"errors"
	"testing"
)

func TestSequentialTestScenario(t *testing.T) {
	// Three questions: answer Q1 correctly, skip Q2, answer Q3 wrong.
	f := newFixture(t)
	svc := NewExamService(f.exam, nopLogger())
	ctx := context.Background()
	sitting := "7"

	testID, _ := f.seedSequentialTest(t, "midterm", []string{"A", "B", "C"})

	page, err := svc.Start(ctx, sitting, testID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if page.Number != 1 || page.Total != 3 {
		t.Fatalf("start page = %d/%d, want 1/3", page.Number, page.Total)
	}

	nav, err := svc.Navigate(ctx, sitting, testID, 1, "next", "A")
	if err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if nav.NextQuestion != 2 {
		t.Errorf("after q1 next = %d, want 2", nav.NextQuestion)
	}

	nav, err = svc.Navigate(ctx, sitting, testID, 2, "skip", "")
	if err != nil {
		t.Fatalf("skip q2: %v", err)
	}
	if nav.NextQuestion != 3 {
		t.Errorf("after skip next = %d, want 3", nav.NextQuestion)
	}

	if _, err := svc.Navigate(ctx, sitting, testID, 3, "next", "B"); err != nil {
		t.Fatalf("answer q3: %v", err)
	}

	score, err := svc.Submit(ctx, sitting, testID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if score.Total != 3 || score.Correct != 1 || score.Wrong != 1 || score.Unanswered != 1 {
		t.Errorf("score = total %d correct %d wrong %d unanswered %d, want 3/1/1/1",
			score.Total, score.Correct, score.Wrong, score.Unanswered)
	}

	// Submission clears the attempt state.
	var count int
	if err := f.userDB.QueryRow(`SELECT COUNT(*) FROM test_attempts`).Scan(&count); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 0 {
		t.Errorf("attempt rows after submit = %d, want 0", count)
	}
}

func TestNavigateTransitions(t *testing.T) {
	f := newFixture(t)
	svc := NewExamService(f.exam, nopLogger())
	ctx := context.Background()

	testID, qids := f.seedSequentialTest(t, "transitions", []string{"A", "B", "C"})

	testCases := []struct {
		name     string
		qnum     int
		action   string
		selected string
		wantNext int
		wantErr  error
	}{
		{"next without selection rejects", 1, "next", "", 0, ErrNoOptionSelected},
		{"skip advances", 1, "skip", "", 2, nil},
		{"skip clamps at last", 3, "skip", "", 3, nil},
		{"previous clamps at first", 1, "previous", "", 1, nil},
		{"previous records selection", 2, "previous", "D", 1, nil},
		{"answer advances", 2, "next", "B", 3, nil},
		{"out of range low", 0, "next", "A", 0, ErrQuestionOutOfRange},
		{"out of range high", 4, "next", "A", 0, ErrQuestionOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sitting := "sitting-" + tc.name
			if _, err := svc.Start(ctx, sitting, testID); err != nil {
				t.Fatalf("start: %v", err)
			}
			nav, err := svc.Navigate(ctx, sitting, testID, tc.qnum, tc.action, tc.selected)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("navigate: %v", err)
			}
			if nav.NextQuestion != tc.wantNext {
				t.Errorf("next = %d, want %d", nav.NextQuestion, tc.wantNext)
			}
		})
	}

	// Skip after answering removes the recorded answer.
	sitting := "skip-clears"
	if _, err := svc.Start(ctx, sitting, testID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Navigate(ctx, sitting, testID, 1, "next", "A"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := svc.Navigate(ctx, sitting, testID, 1, "skip", ""); err != nil {
		t.Fatalf("skip: %v", err)
	}
	state, err := f.exam.LoadAttempt(ctx, sitting, testID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if _, answered := state.Answers[qids[0]]; answered {
		t.Error("skip did not clear the prior answer")
	}
	if !state.Skipped[qids[0]] {
		t.Error("question not recorded as skipped")
	}
}

func TestToggleMark(t *testing.T) {
	f := newFixture(t)
	svc := NewExamService(f.exam, nopLogger())
	ctx := context.Background()
	sitting := "9"

	testID, _ := f.seedSequentialTest(t, "marking", []string{"A", "B"})
	if _, err := svc.Start(ctx, sitting, testID); err != nil {
		t.Fatalf("start: %v", err)
	}

	marked, err := svc.ToggleMark(ctx, sitting, testID, 1)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !marked {
		t.Error("first toggle should mark")
	}
	marked, err = svc.ToggleMark(ctx, sitting, testID, 1)
	if err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if marked {
		t.Error("second toggle should unmark")
	}
}

func TestStartResetsState(t *testing.T) {
	f := newFixture(t)
	svc := NewExamService(f.exam, nopLogger())
	ctx := context.Background()
	sitting := "11"

	testID, _ := f.seedSequentialTest(t, "restart", []string{"A", "B"})
	if _, err := svc.Start(ctx, sitting, testID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Navigate(ctx, sitting, testID, 1, "next", "A"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	page, err := svc.Start(ctx, sitting, testID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if page.Number != 1 || page.Answered != 0 || page.Selected != "" {
		t.Errorf("restart did not reset state: page %d, answered %d, selected %q",
			page.Number, page.Answered, page.Selected)
	}
}

func TestSubmitGradesCaseInsensitively(t *testing.T) {
	f := newFixture(t)
	svc := NewExamService(f.exam, nopLogger())
	ctx := context.Background()
	sitting := "13"

	testID, _ := f.seedSequentialTest(t, "case", []string{"a"})
	if _, err := svc.Start(ctx, sitting, testID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Navigate(ctx, sitting, testID, 1, "next", "A"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	score, err := svc.Submit(ctx, sitting, testID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if score.Correct != 1 {
		t.Errorf("correct = %d, want 1 (case-insensitive match)", score.Correct)
	}
}

func TestReviewLatestAttemptOnly(t *testing.T) {
	f := newFixture(t)
	svc := NewExamService(f.exam, nopLogger())
	ctx := context.Background()
	sitting := "17"

	testID, _ := f.seedSequentialTest(t, "review", []string{"A", "B"})

	// Attempt 1: both wrong. Attempt 2: first right, second wrong.
	runs := [][]string{{"C", "C"}, {"A", "C"}}
	for _, answers := range runs {
		if _, err := svc.Start(ctx, sitting, testID); err != nil {
			t.Fatalf("start: %v", err)
		}
		for i, ans := range answers {
			if _, err := svc.Navigate(ctx, sitting, testID, i+1, "next", ans); err != nil {
				t.Fatalf("answer: %v", err)
			}
		}
		if _, err := svc.Submit(ctx, sitting, testID); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	entries, correct, incorrect, err := svc.Review(ctx, sitting, testID, "all")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (latest attempt only)", len(entries))
	}
	if correct != 1 || incorrect != 1 {
		t.Errorf("counts = %d correct %d incorrect, want 1/1", correct, incorrect)
	}

	wrongOnly, _, _, err := svc.Review(ctx, sitting, testID, "incorrect")
	if err != nil {
		t.Fatalf("review incorrect: %v", err)
	}
	if len(wrongOnly) != 1 {
		t.Fatalf("incorrect entries = %d, want 1", len(wrongOnly))
	}

	page, err := svc.ReviewQuestion(ctx, sitting, testID, "incorrect", 1)
	if err != nil {
		t.Fatalf("review question: %v", err)
	}
	if page.Total != 1 || page.HasPrev || page.HasNext {
		t.Errorf("pagination = total %d prev %v next %v", page.Total, page.HasPrev, page.HasNext)
	}

	if _, err := svc.ReviewQuestion(ctx, sitting, testID, "incorrect", 2); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Errorf("out-of-range review index err = %v, want ErrQuestionOutOfRange", err)
	}
	if _, _, _, err := svc.Review(ctx, sitting, testID, "bogus"); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("bogus filter err = %v, want ErrInvalidFilter", err)
	}
}

func TestAttemptNumbering(t *testing.T) {
	f := newFixture(t)
	svc := NewExamService(f.exam, nopLogger())
	ctx := context.Background()
	sitting := "19"

	testID, _ := f.seedSequentialTest(t, "attempts", []string{"A"})
	for want := 1; want <= 2; want++ {
		if _, err := svc.Start(ctx, sitting, testID); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := svc.Navigate(ctx, sitting, testID, 1, "next", "A"); err != nil {
			t.Fatalf("answer: %v", err)
		}
		score, err := svc.Submit(ctx, sitting, testID)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if score.Attempt != want {
			t.Errorf("attempt = %d, want %d", score.Attempt, want)
		}
	}

	var rows int
	if err := f.userDB.QueryRow(`SELECT COUNT(*) FROM user_responses`).Scan(&rows); err != nil {
		t.Fatalf("count responses: %v", err)
	}
	if rows != 2 {
		t.Errorf("response rows = %d, want 2 (append-only)", rows)
	}
}
