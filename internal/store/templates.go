package store

import (
	"context"
	"fmt"

	"github.com/unomed/psi-backend/internal/db"
)

// QuestionInput is one question definition in a template creation request.
type QuestionInput struct {
	Prompt   string
	Category string
	Weight   int16
}

// CreateTemplateParams creates a questionnaire template with its full
// question list.
type CreateTemplateParams struct {
	Name      string
	ScaleMax  int16
	Questions []QuestionInput
}

// TemplateWithQuestions is the result of CreateTemplate.
type TemplateWithQuestions struct {
	Template  db.QuestionnaireTemplate
	Questions []db.Question
}

// CreateTemplate atomically inserts the template and all of its questions.
// Question order is the request order; position is assigned here so callers
// never send it.
func (s *Store) CreateTemplate(ctx context.Context, p CreateTemplateParams) (TemplateWithQuestions, error) {
	var out TemplateWithQuestions

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		tpl, err := q.CreateTemplate(ctx, db.CreateTemplateParams{
			Name:     p.Name,
			ScaleMax: p.ScaleMax,
		})
		if err != nil {
			return fmt.Errorf("CreateTemplate: insert template: %w", err)
		}
		out.Template = tpl

		out.Questions = make([]db.Question, 0, len(p.Questions))
		for i, in := range p.Questions {
			qu, err := q.CreateQuestion(ctx, db.CreateQuestionParams{
				TemplateID: tpl.ID,
				Prompt:     in.Prompt,
				Category:   in.Category,
				Weight:     in.Weight,
				Position:   int16(i + 1),
			})
			if err != nil {
				return fmt.Errorf("CreateTemplate: insert question %d: %w", i+1, err)
			}
			out.Questions = append(out.Questions, qu)
		}
		return nil
	})
	if err != nil {
		return TemplateWithQuestions{}, err
	}
	return out, nil
}
