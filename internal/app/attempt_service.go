package app

import (
	"context"
	"errors"

	"quiz-attempt-service/internal/domain"

	"github.com/golang/glog"
)

// AttemptService contains the quiz attempt use cases.
type AttemptService struct {
	store Store
	bank  *QuestionBank
	locks Locker
}

func NewAttemptService(store Store, quizzes QuizRepository, locks Locker) *AttemptService {
	return &AttemptService{store: store, bank: NewQuestionBank(quizzes), locks: locks}
}

// StartAttempt charges the entry fee and opens the user's single attempt on a quiz.
// Calling it again while the attempt is open resumes it without charging.
func (s *AttemptService) StartAttempt(ctx context.Context, userID, quizID string) (domain.StartResult, error) {
	if userID == "" || quizID == "" {
		return domain.StartResult{}, domain.ErrInvalidInput
	}

	quiz, err := s.bank.Quiz(ctx, quizID)
	if err != nil {
		return domain.StartResult{}, err
	}

	release, err := s.locks.Acquire(ctx, lockKey(userID, quizID))
	if err != nil {
		return domain.StartResult{}, err
	}
	defer release()

	var (
		attempt domain.Attempt
		resumed bool
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		existing, err := tx.Attempts().FindAny(ctx, userID, quizID)
		switch {
		case err == nil && !existing.Completed:
			attempt, resumed = existing, true
			return nil
		case err == nil:
			return domain.ErrAlreadyAttempted
		case !errors.Is(err, domain.ErrAttemptNotFound):
			return err
		}
		if quiz.Status != domain.QuizApproved {
			return domain.ErrQuizNotAvailable
		}

		// Insert first: a concurrent start blocks on the unique (user, quiz) index and fails
		// there instead of on the balance the winner just spent.
		if attempt, err = tx.Attempts().Create(ctx, userID, quizID); err != nil {
			return err
		}
		if quiz.EntryFee.IsPositive() {
			if _, err := tx.Wallets().Debit(ctx, userID, quiz.EntryFee, "Entry fee for quiz: "+quiz.Title); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, domain.ErrAlreadyAttempted) {
		// Lost the unique (user, quiz) race to a concurrent start; the debit went down with the tx.
		existing, findErr := s.store.Attempts().FindAny(ctx, userID, quizID)
		if findErr == nil && !existing.Completed {
			attempt, resumed, err = existing, true, nil
		}
	}
	if err != nil {
		return domain.StartResult{}, err
	}

	question := firstQuestion(quiz)
	if resumed {
		glog.V(2).Infof("resuming attempt %s for user %s on quiz %s", attempt.ID, userID, quizID)
		if question, err = s.resumePoint(ctx, quiz, attempt.ID); err != nil {
			return domain.StartResult{}, err
		}
	} else {
		glog.V(2).Infof("started attempt %s for user %s on quiz %s (fee %s)", attempt.ID, userID, quizID, quiz.EntryFee)
	}

	result := domain.StartResult{AttemptID: attempt.ID, Resumed: resumed}
	if question != nil {
		result.Question = question.View()
	}
	return result, nil
}

// SubmitAnswer grades and records one answer, completing the attempt after the final question.
// Re-submitting an answered question replays the stored outcome instead of failing.
func (s *AttemptService) SubmitAnswer(ctx context.Context, userID, quizID string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	if userID == "" || quizID == "" || submission.QuestionID == "" ||
		submission.TimeTaken < 0 || submission.TimeTaken > domain.MaxTimeTaken {
		return domain.AnswerResult{}, domain.ErrInvalidInput
	}

	quiz, err := s.bank.Quiz(ctx, quizID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	release, err := s.locks.Acquire(ctx, lockKey(userID, quizID))
	if err != nil {
		return domain.AnswerResult{}, err
	}
	defer release()

	var result domain.AnswerResult
	for try := 0; try < 2; try++ {
		err = s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
			var err error
			result, err = s.recordAnswer(ctx, tx, quiz, userID, submission)
			return err
		})
		// A duplicate insert means another writer got there first; the next pass replays it.
		if !errors.Is(err, domain.ErrDuplicateResponse) {
			break
		}
	}
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if result.Completed && !result.Replayed {
		glog.V(2).Infof("user %s completed quiz %s", userID, quizID)
	}
	return result, nil
}

func (s *AttemptService) recordAnswer(ctx context.Context, tx Store, quiz domain.Quiz, userID string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	attempt, err := tx.Attempts().FindOpen(ctx, userID, quiz.ID)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		return s.replayCompleted(ctx, tx, quiz, userID, submission.QuestionID)
	}
	if err != nil {
		return domain.AnswerResult{}, err
	}

	question, err := findQuestion(quiz, submission.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	next, err := nextQuestion(quiz, question.ID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	var isCorrect, replayed bool
	prev, err := tx.Responses().Get(ctx, attempt.ID, question.ID)
	switch {
	case err == nil:
		isCorrect, replayed = prev.IsCorrect, true
		glog.V(2).Infof("replaying answer to %s in attempt %s", question.ID, attempt.ID)
	case errors.Is(err, domain.ErrResponseNotFound):
		isCorrect = question.Grade(submission.SelectedOptionID)
		_, err = tx.Responses().Append(ctx, domain.Response{
			AttemptID:        attempt.ID,
			QuestionID:       question.ID,
			SelectedOptionID: submission.SelectedOptionID,
			IsCorrect:        isCorrect,
			TimeTaken:        submission.TimeTaken,
		})
		if err != nil {
			return domain.AnswerResult{}, err
		}
	default:
		return domain.AnswerResult{}, err
	}

	if next == nil {
		if _, err := tx.Attempts().MarkComplete(ctx, attempt.ID); err != nil {
			return domain.AnswerResult{}, err
		}
	}
	result := answerResult(question.ID, isCorrect, next)
	result.Replayed = replayed
	return result, nil
}

// replayCompleted serves a retried answer whose original submission already closed the attempt.
func (s *AttemptService) replayCompleted(ctx context.Context, tx Store, quiz domain.Quiz, userID, questionID string) (domain.AnswerResult, error) {
	attempt, err := tx.Attempts().FindAny(ctx, userID, quiz.ID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if !attempt.Completed {
		return domain.AnswerResult{}, domain.ErrAttemptNotFound
	}
	prev, err := tx.Responses().Get(ctx, attempt.ID, questionID)
	if errors.Is(err, domain.ErrResponseNotFound) {
		return domain.AnswerResult{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if _, err := findQuestion(quiz, questionID); err != nil {
		return domain.AnswerResult{}, domain.ErrAttemptNotFound
	}
	// The attempt is closed, so there is nothing left to answer.
	result := answerResult(questionID, prev.IsCorrect, nil)
	result.Replayed = true
	return result, nil
}

// NextQuestion returns the question after lastQuestionID (the first one when empty) for an open attempt.
func (s *AttemptService) NextQuestion(ctx context.Context, userID, quizID, lastQuestionID string) (*domain.QuestionView, error) {
	if userID == "" || quizID == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.store.Attempts().FindOpen(ctx, userID, quizID); err != nil {
		return nil, err
	}
	quiz, err := s.bank.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	next := firstQuestion(quiz)
	if lastQuestionID != "" {
		if next, err = nextQuestion(quiz, lastQuestionID); err != nil {
			return nil, err
		}
	}
	if next == nil {
		return nil, nil
	}
	return next.View(), nil
}

// CompleteAttempt finalizes the attempt. Completing an already completed attempt returns it unchanged.
func (s *AttemptService) CompleteAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	if userID == "" || quizID == "" {
		return domain.Attempt{}, domain.ErrInvalidInput
	}

	var attempt domain.Attempt
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		var err error
		attempt, err = tx.Attempts().FindAny(ctx, userID, quizID)
		if err != nil || attempt.Completed {
			return err
		}
		attempt, err = tx.Attempts().MarkComplete(ctx, attempt.ID)
		return err
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

// BuildResult joins every quiz question with the attempt's responses, in question order.
// Unanswered questions are reported as incorrect with zero time.
func (s *AttemptService) BuildResult(ctx context.Context, userID, quizID string) (domain.Result, error) {
	if userID == "" || quizID == "" {
		return domain.Result{}, domain.ErrInvalidInput
	}

	attempt, err := s.store.Attempts().FindAny(ctx, userID, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	quiz, err := s.bank.Quiz(ctx, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	responses, err := s.store.Responses().ListForAttempt(ctx, attempt.ID)
	if err != nil {
		return domain.Result{}, err
	}

	byQuestion := make(map[string]domain.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	result := domain.Result{
		AttemptID: attempt.ID,
		QuizID:    quiz.ID,
		Completed: attempt.Completed,
		Total:     len(quiz.Questions),
		Items:     make([]domain.ResultItem, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		item := domain.ResultItem{
			QuestionID:        q.ID,
			QuestionText:      q.Text,
			CorrectOptionText: q.OptionText(q.CorrectOptionID),
		}
		if r, ok := byQuestion[q.ID]; ok {
			if r.SelectedOptionID != nil {
				item.SelectedOptionText = q.OptionText(*r.SelectedOptionID)
			}
			item.IsCorrect = r.IsCorrect
			item.TimeTaken = r.TimeTaken
		}
		if item.IsCorrect {
			result.Correct++
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// resumePoint is the first question of the quiz the attempt has not answered yet.
func (s *AttemptService) resumePoint(ctx context.Context, quiz domain.Quiz, attemptID string) (*domain.Question, error) {
	responses, err := s.store.Responses().ListForAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	answered := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		answered[r.QuestionID] = struct{}{}
	}
	for i := range quiz.Questions {
		if _, ok := answered[quiz.Questions[i].ID]; !ok {
			q := quiz.Questions[i]
			return &q, nil
		}
	}
	return nil, nil
}

func answerResult(questionID string, isCorrect bool, next *domain.Question) domain.AnswerResult {
	result := domain.AnswerResult{
		QuestionID: questionID,
		IsCorrect:  isCorrect,
		Completed:  next == nil,
	}
	if next != nil {
		result.NextQuestion = next.View()
	}
	return result
}

func lockKey(userID, quizID string) string {
	return "attempt:" + userID + ":" + quizID
}
