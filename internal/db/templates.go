package db

import (
	"context"

	"github.com/google/uuid"
)

const createTemplate = `
INSERT INTO questionnaire_templates (name, scale_max)
VALUES ($1, $2)
RETURNING id, name, scale_max, version, created_at
`

type CreateTemplateParams struct {
	Name     string
	ScaleMax int16
}

func (q *Queries) CreateTemplate(ctx context.Context, arg CreateTemplateParams) (QuestionnaireTemplate, error) {
	row := q.db.QueryRowContext(ctx, createTemplate, arg.Name, arg.ScaleMax)
	var t QuestionnaireTemplate
	err := row.Scan(&t.ID, &t.Name, &t.ScaleMax, &t.Version, &t.CreatedAt)
	return t, err
}

const getTemplateByID = `
SELECT id, name, scale_max, version, created_at
FROM questionnaire_templates
WHERE id = $1
`

func (q *Queries) GetTemplateByID(ctx context.Context, id uuid.UUID) (QuestionnaireTemplate, error) {
	row := q.db.QueryRowContext(ctx, getTemplateByID, id)
	var t QuestionnaireTemplate
	err := row.Scan(&t.ID, &t.Name, &t.ScaleMax, &t.Version, &t.CreatedAt)
	return t, err
}

const createQuestion = `
INSERT INTO questions (template_id, prompt, category, weight, position)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, template_id, prompt, category, weight, position
`

type CreateQuestionParams struct {
	TemplateID uuid.UUID
	Prompt     string
	Category   string
	Weight     int16
	Position   int16
}

func (q *Queries) CreateQuestion(ctx context.Context, arg CreateQuestionParams) (Question, error) {
	row := q.db.QueryRowContext(ctx, createQuestion,
		arg.TemplateID, arg.Prompt, arg.Category, arg.Weight, arg.Position)
	var qu Question
	err := row.Scan(&qu.ID, &qu.TemplateID, &qu.Prompt, &qu.Category, &qu.Weight, &qu.Position)
	return qu, err
}

const listQuestionsByTemplate = `
SELECT id, template_id, prompt, category, weight, position
FROM questions
WHERE template_id = $1
ORDER BY position
`

// ListQuestionsByTemplate returns the template's questions in declaration
// order. The aggregator's dominant-category tie-break depends on this order.
func (q *Queries) ListQuestionsByTemplate(ctx context.Context, templateID uuid.UUID) ([]Question, error) {
	rows, err := q.db.QueryContext(ctx, listQuestionsByTemplate, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Question
	for rows.Next() {
		var qu Question
		if err := rows.Scan(&qu.ID, &qu.TemplateID, &qu.Prompt, &qu.Category, &qu.Weight, &qu.Position); err != nil {
			return nil, err
		}
		items = append(items, qu)
	}
	return items, rows.Err()
}
