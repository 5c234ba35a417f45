package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/assemble"
	"github.com/sizieks/parsers/internal/extract"
	"github.com/sizieks/parsers/internal/schema"
	"github.com/sizieks/parsers/internal/view"
	"github.com/sizieks/parsers/internal/watch"
	"github.com/sizieks/parsers/pkg/models"
)

const (
	questionWidget = `[data-widget="webListQuestions"]`

	// loadMore drives the virtualized question list to completion; the
	// expander reveals a single question's answers.
	questionLoadMore = questionWidget + ` > :last-child button`
	answerExpander   = `.answers-expander button`
)

// QA materializes the question widget, expands each question's answers one
// at a time, and assembles the date-ordered question/answer records.
type QA struct {
	waitTimeout    time.Duration
	questionFields extract.FieldMap
	answerFields   extract.FieldMap
}

// NewQA creates the questions pipeline. waitTimeout bounds each
// materialization wait; zero keeps the watch default.
func NewQA(waitTimeout time.Duration) *QA {
	return &QA{
		waitTimeout: waitTimeout,
		questionFields: extract.FieldMap{
			"id":      {Extract: extract.Attr("data-question-id"), Required: true},
			"content": {Selector: ".question-text", Required: true},
			"date":    {Selector: ".question-date", Required: true, Normalize: extract.Date},
			"author":  {Selector: ".question-author", Required: true},
			"likes":   {Selector: ".question-likes", Required: true, Normalize: extract.Int},
		},
		answerFields: extract.FieldMap{
			"id":       {Extract: extract.Attr("data-answer-id"), Required: true},
			"author":   {Selector: ".answer-author", Required: true},
			"date":     {Selector: ".answer-date", Required: true, Normalize: extract.Date},
			"likes":    {Selector: ".answer-likes", Required: true, Normalize: extract.Int},
			"dislikes": {Selector: ".answer-dislikes", Required: true, Normalize: extract.Int},
			"content":  {Selector: ".answer-text", Required: true},
		},
	}
}

// Handler implements Pipeline.
func (p *QA) Handler() string { return "qa" }

// PageURL implements Pipeline.
func (p *QA) PageURL(unit models.UnitContext) string {
	return "https://www.ozon.ru/product/" + url.PathEscape(unit.SKU) + "/questions/"
}

// InputSchema implements Pipeline.
func (p *QA) InputSchema() *schema.Schema {
	return &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"sku": {Type: "string"},
		},
		Required: []string{"sku"},
	}
}

// OutputSchema implements Pipeline.
func (p *QA) OutputSchema() *schema.Schema {
	answer := &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"id":       {Type: "string"},
			"author":   {Type: "string"},
			"date":     {Type: "string"},
			"likes":    {Type: "integer"},
			"dislikes": {Type: "integer"},
			"content":  {Type: "string"},
		},
		Required: []string{"id", "author", "date", "likes", "dislikes", "content"},
	}
	question := &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"id":      {Type: "string"},
			"content": {Type: "string"},
			"date":    {Type: "string"},
			"author":  {Type: "string"},
			"likes":   {Type: "integer"},
			"answers": schema.Nullable(&schema.Schema{Type: "array", Items: answer}),
		},
		Required: []string{"id", "content", "date", "author", "likes", "answers"},
	}
	return &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"questions": schema.Nullable(&schema.Schema{Type: "array", Items: question}),
			"found":     {Type: "boolean"},
		},
		Required: []string{"questions", "found"},
	}
}

// qaResult is the handler's output document.
type qaResult struct {
	Questions []models.Question `json:"questions"`
	Found     bool              `json:"found"`
}

// Run implements Pipeline.
func (p *QA) Run(ctx context.Context, unit models.UnitContext, page Page) (*Result, error) {
	if err := CheckBlocked(page.Tree.Root()); err != nil {
		return nil, err
	}

	widget, err := watch.Materialize(ctx, page.Tree, watch.Spec{
		Root:    page.Tree.Subtree(questionWidget),
		Done:    questionsLoaded,
		Trigger: questionLoadMore,
		Timeout: p.waitTimeout,
	})
	if err != nil {
		return nil, classifyWait(err, "question list never settled")
	}
	if widget == nil {
		log.Info().Str("sku", unit.SKU).Msg("No questions on page")
		return &Result{Value: qaResult{Questions: nil, Found: false}}, nil
	}

	// Collect stable ids first: expanding answers re-renders the list and
	// would invalidate node handles held across iterations.
	var ids []string
	for _, q := range widget.QueryAll("[data-question-id]") {
		if id, ok := q.Attr("data-question-id"); ok {
			ids = append(ids, id)
		}
	}

	// Answers load strictly one question at a time.
	nodes := make([]view.Node, 0, len(ids))
	for _, id := range ids {
		node, err := p.expandAnswers(ctx, page.Tree, id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	questions, errs := assemble.Records(nodes, p.buildQuestion)
	for _, err := range errs {
		log.Warn().Err(err).Str("sku", unit.SKU).Msg("Question dropped")
	}
	assemble.SortByDate(questions, func(q models.Question) string { return q.Date })

	return &Result{Value: qaResult{Questions: questions, Found: len(questions) > 0}}, nil
}

// questionsLoaded is satisfied once the widget's trailing child is a real
// question: the list renders placeholders last while loading, so a
// question in final position means the list has fully materialized.
func questionsLoaded(root view.Node) view.Node {
	children := root.Children()
	if len(children) == 0 {
		return nil
	}
	if _, ok := children[len(children)-1].Attr("data-question-id"); ok {
		return root
	}
	return nil
}

// expandAnswers materializes one question's answers and returns a fresh
// handle to the question node.
func (p *QA) expandAnswers(ctx context.Context, tree view.Tree, id string) (view.Node, error) {
	selector := fmt.Sprintf(`[data-question-id=%q]`, id)
	question := tree.Subtree(selector)

	// Nothing to expand: the question keeps no collapsed answer block.
	if question.Query(answerExpander) == nil {
		return question, nil
	}

	node, err := watch.Materialize(ctx, tree, watch.Spec{
		Root: question,
		Done: func(root view.Node) view.Node {
			if root.Query("[data-answer-id]") != nil {
				return root
			}
			return nil
		},
		Trigger: selector + " " + answerExpander,
		Timeout: p.waitTimeout,
	})
	if err != nil {
		return nil, classifyWait(err, "answers never settled").WithDetail("question", id)
	}
	if node == nil {
		return question, nil
	}
	return node, nil
}

func (p *QA) buildQuestion(n view.Node) (models.Question, error) {
	rec, err := extract.Extract(n, p.questionFields)
	if err != nil {
		return models.Question{}, err
	}

	answers, errs := assemble.Records(n.QueryAll("[data-answer-id]"), p.buildAnswer)
	for _, err := range errs {
		log.Warn().Err(err).Str("question", asString(rec["id"])).Msg("Answer dropped")
	}
	assemble.SortByDate(answers, func(a models.Answer) string { return a.Date })
	if len(answers) == 0 {
		// nil, not an empty list: "no answers" is data, not absence of it.
		answers = nil
	}

	return models.Question{
		ID:      asString(rec["id"]),
		Content: asString(rec["content"]),
		Date:    asString(rec["date"]),
		Author:  asString(rec["author"]),
		Likes:   asInt(rec["likes"]),
		Answers: answers,
	}, nil
}

func (p *QA) buildAnswer(n view.Node) (models.Answer, error) {
	rec, err := extract.Extract(n, p.answerFields)
	if err != nil {
		return models.Answer{}, err
	}
	return models.Answer{
		ID:       asString(rec["id"]),
		Author:   asString(rec["author"]),
		Date:     asString(rec["date"]),
		Likes:    asInt(rec["likes"]),
		Dislikes: asInt(rec["dislikes"]),
		Content:  asString(rec["content"]),
	}, nil
}

func classifyWait(err error, message string) *Error {
	if errors.Is(err, watch.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeTimeout, message, err)
	}
	return NewError(CodeBrowser, message, err)
}
