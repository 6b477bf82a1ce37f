package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// QuizOptionCount is the fixed number of options every quiz carries.
const QuizOptionCount = 3

// Quiz is the single multiple-choice question attached to an ad.
type Quiz struct {
	Question    string   `json:"question"     bson:"question"     validate:"required,max=500"`
	Options     []string `json:"options"      bson:"options"      validate:"len=3,dive,required,max=200"`
	AnswerIndex int      `json:"answer_index" bson:"answer_index" validate:"min=0,max=2"`
}

// QuizDraft is a quiz together with the language it was written in, as
// produced by the quiz generator or edited by the author.
type QuizDraft struct {
	Quiz
	Language string `json:"language" validate:"len=2,alpha,lowercase"`
}

var validate = validator.New()

// Normalized returns a copy with surrounding whitespace removed.
func (q Quiz) Normalized() Quiz {
	out := Quiz{
		Question:    strings.TrimSpace(q.Question),
		AnswerIndex: q.AnswerIndex,
	}
	if q.Options != nil {
		out.Options = make([]string, len(q.Options))
		for i, o := range q.Options {
			out.Options[i] = strings.TrimSpace(o)
		}
	}
	return out
}

// IsCorrect reports whether idx is the correct option.
func (q Quiz) IsCorrect(idx int) bool {
	return idx == q.AnswerIndex
}

// ValidateQuiz checks the quiz shape. Malformed quizzes are rejected, never coerced.
func ValidateQuiz(q Quiz) error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidQuiz, describe(err))
	}
	return nil
}

// ValidateDraft checks both the quiz and its language code.
func ValidateDraft(d QuizDraft) error {
	if err := ValidateQuiz(d.Quiz); err != nil {
		return err
	}
	if err := ValidateLanguage(d.Language); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	return nil
}

// ValidateLanguage accepts lower-case two-letter codes only.
func ValidateLanguage(lang string) error {
	if err := validate.Var(lang, "len=2,alpha,lowercase"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	return nil
}

// NormalizeLanguage reduces a locale tag such as "ja-JP" to its primary
// subtag in lower case. The result still has to pass ValidateLanguage.
func NormalizeLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_;,"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
