// Package types provides shared type definitions for the question bank.
//
// # Core Types
//
// Category groups questions under a name:
//
//	category := types.Category{
//	    ID:   "javascript-fundamentals",
//	    Name: "JavaScript Fundamentals",
//	}
//
// Question is a single interview question owned by one category:
//
//	question := types.Question{
//	    ID:         "closures",
//	    CategoryID: "javascript-fundamentals",
//	    Title:      "Closures",
//	    Content:    "Explain closures.",
//	    Difficulty: types.DifficultyMedium,
//	    Tags:       []string{"functions", "scope"},
//	}
//
// Document is the full content tree. It is the layout of the file backend
// and the format used by export and import.
//
// # Validation
//
// Records are checked against declarative rulesets before they are stored:
//
//	if err := types.ValidateQuestion(&question, false); err != nil {
//	    log.Fatal(err)
//	}
//
// Validation reports every violated rule at once, not just the first.
//
// # Errors
//
// Error carries a Kind that callers branch on. Sentinel values compare by
// kind, so errors.Is works on wrapped errors:
//
//	if errors.Is(err, types.ErrNotFound) {
//	    // ...
//	}
package types
