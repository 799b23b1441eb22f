// Package model defines the problem document and its views.
package model

import "time"

// Difficulty grades a problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the fixed difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Tag is the topic a problem belongs to.
type Tag string

const (
	TagArray      Tag = "array"
	TagLinkedList Tag = "linkedList"
	TagGraph      Tag = "graph"
	TagDP         Tag = "dp"
)

// Valid reports whether t is one of the fixed tags.
func (t Tag) Valid() bool {
	switch t {
	case TagArray, TagLinkedList, TagGraph, TagDP:
		return true
	}
	return false
}

// VisibleTestCase is shown to users and used by Run and reference validation.
type VisibleTestCase struct {
	Input       string `bson:"input" json:"input"`
	Output      string `bson:"output" json:"output"`
	Explanation string `bson:"explanation" json:"explanation"`
}

// HiddenTestCase is used only by Submit.
type HiddenTestCase struct {
	Input  string `bson:"input" json:"input"`
	Output string `bson:"output" json:"output"`
}

// StartCode is the editor template for one language.
type StartCode struct {
	Language    string `bson:"language" json:"language"`
	InitialCode string `bson:"initial_code" json:"initial_code"`
}

// ReferenceSolution is an author solution that must pass every visible test case.
type ReferenceSolution struct {
	Language     string `bson:"language" json:"language"`
	CompleteCode string `bson:"complete_code" json:"complete_code"`
}

// Problem is the stored problem document.
type Problem struct {
	ID                string              `bson:"_id" json:"id"`
	Title             string              `bson:"title" json:"title"`
	Description       string              `bson:"description" json:"description"`
	Difficulty        Difficulty          `bson:"difficulty" json:"difficulty"`
	Tag               Tag                 `bson:"tag" json:"tag"`
	VisibleTestCases  []VisibleTestCase   `bson:"visible_test_cases" json:"visible_test_cases"`
	HiddenTestCases   []HiddenTestCase    `bson:"hidden_test_cases" json:"hidden_test_cases"`
	StartCode         []StartCode         `bson:"start_code" json:"start_code"`
	ReferenceSolution []ReferenceSolution `bson:"reference_solution" json:"reference_solution"`
	CreatorID         string              `bson:"creator_id" json:"creator_id"`
	CreatedAt         time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `bson:"updated_at" json:"updated_at"`
}

// Summary is the list view of a problem.
type Summary struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	Tag        Tag        `json:"tag"`
}

// PublicProblem is what non-admin callers see: everything except hidden test cases.
type PublicProblem struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Difficulty        Difficulty          `json:"difficulty"`
	Tag               Tag                 `json:"tag"`
	VisibleTestCases  []VisibleTestCase   `json:"visible_test_cases"`
	StartCode         []StartCode         `json:"start_code"`
	ReferenceSolution []ReferenceSolution `json:"reference_solution"`
}

// Summary returns the list view.
func (p *Problem) Summary() Summary {
	return Summary{ID: p.ID, Title: p.Title, Difficulty: p.Difficulty, Tag: p.Tag}
}

// Public returns the view without hidden test cases.
func (p *Problem) Public() PublicProblem {
	return PublicProblem{
		ID:                p.ID,
		Title:             p.Title,
		Description:       p.Description,
		Difficulty:        p.Difficulty,
		Tag:               p.Tag,
		VisibleTestCases:  p.VisibleTestCases,
		StartCode:         p.StartCode,
		ReferenceSolution: p.ReferenceSolution,
	}
}
