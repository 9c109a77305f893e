package types

import (
	"sort"
	"strings"
	"time"
)

// Difficulty is the enumerated difficulty level of a question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every valid difficulty in ascending order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the enumerated levels
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// OrDefault returns d, or DifficultyMedium when d is empty
func (d Difficulty) OrDefault() Difficulty {
	if d == "" {
		return DifficultyMedium
	}
	return d
}

// Category is a top-level grouping that owns zero or more questions.
//
// Questions is populated by the file backend and by the database backend's
// full listing; QuestionCount is always filled on reads.
type Category struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	QuestionCount int        `json:"questionCount,omitempty"`
	Questions     []Question `json:"questions"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Question is a content record owned by exactly one category
type Question struct {
	ID           string     `json:"id"`
	CategoryID   string     `json:"categoryId,omitempty"`
	CategoryName string     `json:"categoryName,omitempty"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Difficulty   Difficulty `json:"difficulty"`
	Tags         []string   `json:"tags"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt,omitzero"`
}

// NewCategory is the input for creating a category. ID is optional and is
// generated from Name when empty.
type NewCategory struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryUpdate carries the fields to change; nil fields are left as is.
type CategoryUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// NewQuestion is the input for creating a question. ID is optional and is
// generated from Title when empty. Difficulty defaults to medium.
type NewQuestion struct {
	ID         string     `json:"id,omitempty"`
	CategoryID string     `json:"categoryId"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

// QuestionUpdate carries the fields to change; nil fields are left as is.
// A non-nil Tags replaces the whole tag set. A non-nil CategoryID moves the
// question to that category.
type QuestionUpdate struct {
	CategoryID *string     `json:"categoryId,omitempty"`
	Title      *string     `json:"title,omitempty"`
	Content    *string     `json:"content,omitempty"`
	Difficulty *Difficulty `json:"difficulty,omitempty"`
	Tags       *[]string   `json:"tags,omitempty"`
}

// SearchFilters narrows a question search. Zero values mean "no filter".
// Tags matches questions carrying any of the listed tags.
type SearchFilters struct {
	CategoryID string
	Difficulty Difficulty
	Tags       []string
}

// NormalizeTags collapses duplicates, drops blank names and returns the set
// in ascending order. The result is never nil.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// HasAnyTag reports whether q carries at least one of tags
func (q *Question) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range q.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// MatchesText reports whether term occurs, case-insensitively, in the
// title, the content or any tag of q. An empty term matches everything.
func (q *Question) MatchesText(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(q.Title), term) ||
		strings.Contains(strings.ToLower(q.Content), term) {
		return true
	}
	for _, tag := range q.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of q
func (q Question) Clone() Question {
	q.Tags = append([]string(nil), q.Tags...)
	if q.Tags == nil {
		q.Tags = []string{}
	}
	return q
}

// Clone returns a deep copy of c, including its questions
func (c Category) Clone() Category {
	if c.Questions != nil {
		qs := make([]Question, len(c.Questions))
		for i, q := range c.Questions {
			qs[i] = q.Clone()
		}
		c.Questions = qs
	}
	return c
}

// CloneQuestions deep-copies a question slice
func CloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

// CloneCategories deep-copies a category slice
func CloneCategories(cs []Category) []Category {
	out := make([]Category, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}
