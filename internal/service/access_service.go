package service

import (
	"context"

	"qbank-service/internal/db"
	"qbank-service/internal/logger"
	"qbank-service/internal/repository"
)

// freeTopics is the allow-list applied by SetupFreeContent. Everything
// outside this list requires login.
var freeTopics = []struct {
	Subject string
	Topic   string
}{
	{"Anatomy", "Basic Anatomy"},
	{"Anatomy", "General Anatomy"},
	{"Physiology", "Basic Physiology"},
	{"Physiology", "Cardiovascular System"},
	{"Biochemistry", "Carbohydrates"},
	{"Biochemistry", "Proteins"},
	{"Pathology", "General Pathology"},
	{"Pathology", "Cell Injury"},
	{"Pharmacology", "General Pharmacology"},
	{"Pharmacology", "Basic Pharmacokinetics"},
}

type AccessService struct {
	Qbank *repository.QbankRepository
	log   *logger.Logger
}

func NewAccessService(qbank *repository.QbankRepository, log *logger.Logger) *AccessService {
	return &AccessService{Qbank: qbank, log: log.With("service", "access")}
}

// IsTopicLoginRequired decides whether a topic is gated. A topic with no
// matching row, or any read error, requires login.
func (s *AccessService) IsTopicLoginRequired(ctx context.Context, subject, topic string) bool {
	dbName := s.Qbank.FindSubjectDatabase(ctx, subject)
	premium, found, err := s.Qbank.TopicPremium(ctx, dbName, subject, topic)
	if err != nil {
		s.log.Warn("gate check failed, treating topic as gated",
			"subject", subject, "topic", topic, "error", err)
		return true
	}
	if !found {
		return true
	}
	return premium
}

// SetTopicPremium flags all rows of a (subject, topic).
func (s *AccessService) SetTopicPremium(ctx context.Context, subject, topic string, premium bool) error {
	dbName := s.Qbank.FindSubjectDatabase(ctx, subject)
	return s.Qbank.SetTopicPremium(ctx, dbName, subject, topic, premium)
}

// SetupFreeContent marks every row of every question bank premium,
// then clears the flag for the allow-list.
func (s *AccessService) SetupFreeContent(ctx context.Context) error {
	for _, dbName := range s.Qbank.Registry.Databases(db.CategoryQbank) {
		if err := s.Qbank.SetAllPremium(ctx, dbName); err != nil {
			return err
		}
	}
	for _, ft := range freeTopics {
		dbName := s.Qbank.FindSubjectDatabase(ctx, ft.Subject)
		if err := s.Qbank.SetTopicPremium(ctx, dbName, ft.Subject, ft.Topic, false); err != nil {
			return err
		}
	}
	s.log.Info("free content allow-list applied", "topics", len(freeTopics))
	return nil
}
