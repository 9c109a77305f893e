package types

import "time"

// Document is the full content tree in its persisted file layout. It is
// also the exchange format for export and import.
type Document struct {
	Categories []Category `json:"categories"`
}

// IsEmpty reports whether the document holds no categories
func (d *Document) IsEmpty() bool {
	return d == nil || len(d.Categories) == 0
}

// TagNames returns the deduplicated, sorted set of tags used by any
// question in the document
func (d *Document) TagNames() []string {
	var all []string
	for _, c := range d.Categories {
		for _, q := range c.Questions {
			all = append(all, q.Tags...)
		}
	}
	return NormalizeTags(all)
}

// QuestionCount returns the number of questions across all categories
func (d *Document) QuestionCount() int {
	n := 0
	for _, c := range d.Categories {
		n += len(c.Questions)
	}
	return n
}

// DifficultyDistribution counts questions per difficulty level
type DifficultyDistribution struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Add increments the bucket for d. Unknown levels are ignored.
func (dd *DifficultyDistribution) Add(d Difficulty) {
	switch d {
	case DifficultyEasy:
		dd.Easy++
	case DifficultyMedium:
		dd.Medium++
	case DifficultyHard:
		dd.Hard++
	}
}

// Statistics summarizes the content held by a backend
type Statistics struct {
	TotalCategories        int                    `json:"totalCategories"`
	TotalQuestions         int                    `json:"totalQuestions"`
	TotalTags              int                    `json:"totalTags"`
	DifficultyDistribution DifficultyDistribution `json:"difficultyDistribution"`
	LastUpdated            time.Time              `json:"lastUpdated"`
}

// Health status values
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// Health is the result of a backend health check. Statistics is set only
// when the backend is healthy.
type Health struct {
	Status       string      `json:"status"`
	Storage      string      `json:"storage"`
	DataPath     string      `json:"dataPath,omitempty"`
	CacheEnabled bool        `json:"cacheEnabled"`
	Error        string      `json:"error,omitempty"`
	Statistics   *Statistics `json:"statistics,omitempty"`
}

// Healthy reports whether the check succeeded
func (h *Health) Healthy() bool {
	return h != nil && h.Status == HealthHealthy
}

// Clone returns a deep copy of d
func (d *Document) Clone() *Document {
	if d == nil {
		return &Document{Categories: []Category{}}
	}
	return &Document{Categories: CloneCategories(d.Categories)}
}
