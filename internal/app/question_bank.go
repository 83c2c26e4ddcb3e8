package app

import (
	"context"

	"quiz-attempt-service/internal/domain"
)

// QuestionBank answers sequencing lookups over a quiz's ordered questions.
type QuestionBank struct {
	quizzes QuizRepository
}

func NewQuestionBank(quizzes QuizRepository) *QuestionBank {
	return &QuestionBank{quizzes: quizzes}
}

// Quiz returns the full quiz with every question stamped with its quiz ID.
func (b *QuestionBank) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := b.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	// copy so cached quizzes are never mutated
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	for i := range questions {
		if questions[i].QuizID == "" {
			questions[i].QuizID = quiz.ID
		}
	}
	quiz.Questions = questions
	return quiz, nil
}

// FirstQuestion returns the first question of the quiz, or nil for an empty quiz.
func (b *QuestionBank) FirstQuestion(ctx context.Context, quizID string) (*domain.Question, error) {
	quiz, err := b.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return firstQuestion(quiz), nil
}

// NextQuestion returns the question strictly following afterQuestionID, or nil when exhausted.
func (b *QuestionBank) NextQuestion(ctx context.Context, quizID, afterQuestionID string) (*domain.Question, error) {
	quiz, err := b.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return nextQuestion(quiz, afterQuestionID)
}

// Question resolves a question that must belong to the quiz.
func (b *QuestionBank) Question(ctx context.Context, quizID, questionID string) (domain.Question, error) {
	quiz, err := b.Quiz(ctx, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	return findQuestion(quiz, questionID)
}

func firstQuestion(quiz domain.Quiz) *domain.Question {
	if len(quiz.Questions) == 0 {
		return nil
	}
	q := quiz.Questions[0]
	return &q
}

func nextQuestion(quiz domain.Quiz, afterQuestionID string) (*domain.Question, error) {
	for i := range quiz.Questions {
		if quiz.Questions[i].ID != afterQuestionID {
			continue
		}
		if i+1 >= len(quiz.Questions) {
			return nil, nil
		}
		q := quiz.Questions[i+1]
		return &q, nil
	}
	return nil, domain.ErrQuestionNotFound
}

func findQuestion(quiz domain.Quiz, questionID string) (domain.Question, error) {
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}
