package sqlite

import (
	"context"
	"encoding/json"

	"quiz-attempt-service/internal/domain"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuizStore keeps quiz documents in SQLite. It satisfies the quiz loader used by the caches.
type QuizStore struct {
	db *gorm.DB
}

func NewQuizStore(db *gorm.DB) *QuizStore {
	return &QuizStore{db: db}
}

func (s *QuizStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var m quizModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, errors.Wrap(err, "load quiz")
	}
	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(m.Data), &quiz); err != nil {
		return domain.Quiz{}, errors.Wrap(err, "unmarshal quiz")
	}
	quiz.ID = m.ID
	quiz.Status = domain.QuizStatus(m.Status)
	return quiz, nil
}

// PutQuiz inserts or replaces a quiz document.
func (s *QuizStore) PutQuiz(ctx context.Context, quiz domain.Quiz) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return errors.Wrap(err, "marshal quiz")
	}
	m := quizModel{ID: quiz.ID, Title: quiz.Title, Status: string(quiz.Status), Data: string(raw)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "status", "data", "updated_at"}),
	}).Create(&m).Error
	return errors.Wrapf(err, "put quiz %s", quiz.ID)
}
