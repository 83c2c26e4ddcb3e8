package seed

import (
	"context"
	"os"
	"strconv"
	"strings"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const defaultTimeLimit = 10

// File is a seed document: quizzes in authoring form plus wallet deposits.
type File struct {
	Quizzes []QuizSpec   `yaml:"quizzes"`
	Wallets []WalletSpec `yaml:"wallets"`
}

type QuizSpec struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	EntryFee    float64        `yaml:"entryFee"`
	Status      string         `yaml:"status"`
	CreatedBy   string         `yaml:"createdBy"`
	Questions   []QuestionSpec `yaml:"questions"`
}

type QuestionSpec struct {
	ID                 string   `yaml:"id"`
	QuestionText       string   `yaml:"questionText"`
	Options            []string `yaml:"options"`
	CorrectOptionIndex int      `yaml:"correctOptionIndex"`
	TimeLimit          int      `yaml:"timeLimit"`
}

type WalletSpec struct {
	UserID      string  `yaml:"userId"`
	Amount      float64 `yaml:"amount"`
	Description string  `yaml:"description"`
}

// QuizWriter stores quiz documents.
type QuizWriter interface {
	PutQuiz(ctx context.Context, quiz domain.Quiz) error
}

// Summary reports what Apply wrote.
type Summary struct {
	Quizzes  int
	Deposits int
}

// Load reads and validates a seed file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "read seed %s", path)
	}
	return Parse(data)
}

// Parse validates a YAML seed document against the authoring schema and decodes it.
func Parse(data []byte) (File, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return File{}, errors.Wrap(err, "parse seed yaml")
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	res, err := gojsonschema.Validate(gojsonschema.NewStringLoader(fileSchema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return File{}, errors.Wrap(err, "validate seed")
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return File{}, errors.Wrap(domain.ErrInvalidInput, strings.Join(msgs, "; "))
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, errors.Wrap(err, "decode seed")
	}
	for qi, q := range f.Quizzes {
		for i, question := range q.Questions {
			if question.CorrectOptionIndex >= len(question.Options) {
				return File{}, errors.Wrapf(domain.ErrInvalidInput,
					"quizzes[%d].questions[%d]: correctOptionIndex %d out of range", qi, i, question.CorrectOptionIndex)
			}
		}
	}
	return f, nil
}

// Quiz converts the authoring form into the stored quiz. IDs left blank are derived from the
// title and positions, so re-importing a file updates the same quiz.
func (q QuizSpec) Quiz() domain.Quiz {
	quizID := q.ID
	if quizID == "" {
		quizID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("quiz:"+q.Title)).String()
	}
	status := domain.QuizStatus(q.Status)
	if status == "" {
		status = domain.QuizApproved
	}
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte("quiz:"+quizID))

	quiz := domain.Quiz{
		ID:          quizID,
		Title:       q.Title,
		Description: q.Description,
		EntryFee:    decimal.NewFromFloat(q.EntryFee),
		Status:      status,
		CreatedBy:   q.CreatedBy,
		Questions:   make([]domain.Question, 0, len(q.Questions)),
	}
	for i, qs := range q.Questions {
		questionID := qs.ID
		if questionID == "" {
			questionID = uuid.NewSHA1(ns, []byte("question:"+strconv.Itoa(i))).String()
		}
		timeLimit := qs.TimeLimit
		if timeLimit == 0 {
			timeLimit = defaultTimeLimit
		}
		question := domain.Question{
			ID:        questionID,
			QuizID:    quizID,
			Text:      qs.QuestionText,
			Options:   make([]domain.Option, 0, len(qs.Options)),
			TimeLimit: timeLimit,
		}
		for j, text := range qs.Options {
			optionID := uuid.NewSHA1(ns, []byte(questionID+":option:"+strconv.Itoa(j))).String()
			question.Options = append(question.Options, domain.Option{ID: optionID, Text: text})
			if j == qs.CorrectOptionIndex {
				question.CorrectOptionID = optionID
			}
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

// Apply writes every quiz and credits every wallet deposit.
func Apply(ctx context.Context, f File, quizzes QuizWriter, ledger app.WalletLedger) (Summary, error) {
	var sum Summary
	for _, qs := range f.Quizzes {
		quiz := qs.Quiz()
		if err := quizzes.PutQuiz(ctx, quiz); err != nil {
			return sum, errors.Wrapf(err, "seed quiz %q", qs.Title)
		}
		glog.V(1).Infof("seeded quiz %s (%s) with %d questions", quiz.ID, quiz.Title, len(quiz.Questions))
		sum.Quizzes++
	}
	for _, w := range f.Wallets {
		desc := w.Description
		if desc == "" {
			desc = "Seed deposit"
		}
		if _, err := ledger.Credit(ctx, w.UserID, decimal.NewFromFloat(w.Amount), domain.TransactionDeposit, desc); err != nil {
			return sum, errors.Wrapf(err, "seed wallet %s", w.UserID)
		}
		sum.Deposits++
	}
	return sum, nil
}
