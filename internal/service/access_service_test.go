package service

import (
	"context"
	"path/filepath"
	"testing"

	"qbank-service/internal/db"
)

func TestIsTopicLoginRequiredFailsClosed(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.qbank, nopLogger())
	ctx := context.Background()

	// No row at all for this topic.
	if !svc.IsTopicLoginRequired(ctx, "Anatomy", "Nonexistent Topic") {
		t.Error("unknown topic should require login")
	}

	f.seedQuestion(t, "Anatomy", "Upper Limb", "Shoulder", "Q1", 1)
	if !svc.IsTopicLoginRequired(ctx, "Anatomy", "Shoulder") {
		t.Error("premium topic should require login")
	}

	f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "Q2", 0)
	if svc.IsTopicLoginRequired(ctx, "Anatomy", "Basic Anatomy") {
		t.Error("free topic should not require login")
	}
}

func TestSetTopicPremium(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.qbank, nopLogger())
	ctx := context.Background()

	f.seedQuestion(t, "Physiology", "CVS", "Cardiovascular System", "Q1", 1)
	f.seedQuestion(t, "Physiology", "CVS", "Cardiovascular System", "Q2", 1)

	if err := svc.SetTopicPremium(ctx, "Physiology", "Cardiovascular System", false); err != nil {
		t.Fatalf("set premium: %v", err)
	}
	if svc.IsTopicLoginRequired(ctx, "Physiology", "Cardiovascular System") {
		t.Error("topic still gated after clearing premium")
	}

	if err := svc.SetTopicPremium(ctx, "Physiology", "Cardiovascular System", true); err != nil {
		t.Fatalf("restore premium: %v", err)
	}
	if !svc.IsTopicLoginRequired(ctx, "Physiology", "Cardiovascular System") {
		t.Error("topic not gated after restoring premium")
	}
}

func TestSetupFreeContent(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.qbank, nopLogger())
	ctx := context.Background()

	// Seed one allow-listed topic as gated and one regular topic as free,
	// then verify the pass flips both to their intended state.
	f.seedQuestion(t, "Anatomy", "Intro", "Basic Anatomy", "Q1", 1)
	f.seedQuestion(t, "Anatomy", "Upper Limb", "Shoulder", "Q2", 0)
	f.seedQuestion(t, "Biochemistry", "Metabolism", "Carbohydrates", "Q3", 1)

	if err := svc.SetupFreeContent(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}

	freeCases := []struct{ subject, topic string }{
		{"Anatomy", "Basic Anatomy"},
		{"Biochemistry", "Carbohydrates"},
	}
	for _, tc := range freeCases {
		if svc.IsTopicLoginRequired(ctx, tc.subject, tc.topic) {
			t.Errorf("%s / %s should be free after setup", tc.subject, tc.topic)
		}
	}
	if !svc.IsTopicLoginRequired(ctx, "Anatomy", "Shoulder") {
		t.Error("non-listed topic should be gated after setup")
	}
}

func TestSetupFreeContentResetsAllQbankDatabases(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.qbank, nopLogger())
	ctx := context.Background()

	// A second question bank whose subjects appear nowhere in the
	// allow-list. Its previously-freed rows must still be reset.
	conn, err := db.OpenWithSchema(filepath.Join(f.dir, "4th_year.db"), db.QbankSchema)
	if err != nil {
		t.Fatalf("create 4th_year.db: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Exec(
		`INSERT INTO qbank (subject, chapter, topic, question, answer, premium)
		 VALUES ('Medicine', 'Cardiology', 'Heart Failure', 'Q', 'A', 0)`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.registry.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := svc.SetupFreeContent(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}

	var premium int
	if err := conn.QueryRow(
		`SELECT premium FROM qbank WHERE subject = 'Medicine'`).Scan(&premium); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if premium != 1 {
		t.Errorf("Medicine premium = %d after setup, want 1", premium)
	}
}
