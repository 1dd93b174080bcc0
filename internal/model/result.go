package model

import "strconv"

// ExamResults is the backend's per-exam results payload.
type ExamResults struct {
	ExamID   string          `json:"exam_id"`
	Attempts []AttemptResult `json:"attempts"`
}

// AttemptResult is one graded attempt row.
type AttemptResult struct {
	AttemptID   int                `json:"attempt_id"`
	UserID      int                `json:"user_id"`
	Score       float64            `json:"score"`
	Total       float64            `json:"total"`
	Percent     float64            `json:"percent"`
	StartedAt   string             `json:"started_at"`
	SubmittedAt string             `json:"submitted_at"`
	Breakdown   []SubjectBreakdown `json:"breakdown,omitempty"`
}

// SubjectBreakdown is the per-subject slice of an attempt's score.
type SubjectBreakdown struct {
	Subject string  `json:"subject"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// Result is the admin view model: an attempt row joined with the cached
// student roster by user_id. StudentName falls back to "User <id>" when the
// roster has no match, as the dashboard did.
type Result struct {
	AttemptID   int
	StudentID   int
	StudentName string
	ExamID      string
	Score       float64
	Total       float64
	Percentage  float64
	StartedAt   string
	SubmittedAt string
	Breakdown   []SubjectBreakdown
}

// JoinResults merges attempt rows with the roster.
func JoinResults(examID string, attempts []AttemptResult, roster []Registration) []Result {
	byID := make(map[int]Registration, len(roster))
	for _, r := range roster {
		byID[r.UserID] = r
	}

	results := make([]Result, 0, len(attempts))
	for _, a := range attempts {
		name := "User " + strconv.Itoa(a.UserID)
		if s, ok := byID[a.UserID]; ok {
			name = s.Name
		}
		results = append(results, Result{
			AttemptID:   a.AttemptID,
			StudentID:   a.UserID,
			StudentName: name,
			ExamID:      examID,
			Score:       a.Score,
			Total:       a.Total,
			Percentage:  a.Percent,
			StartedAt:   a.StartedAt,
			SubmittedAt: a.SubmittedAt,
			Breakdown:   a.Breakdown,
		})
	}
	return results
}
