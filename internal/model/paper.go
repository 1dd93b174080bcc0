package model

// Attempt is one student's timed instance of an exam. It is created by the
// auto-start call and immutable afterwards; every piece of local state for the
// attempt is keyed by its ID.
type Attempt struct {
	AttemptID int    `json:"attempt_id"`
	ExamID    int    `json:"exam_id,omitempty"`
	EndsAt    string `json:"ends_at"`
}

// Valid reports whether the backend handed out a usable attempt.
// The start endpoint occasionally responds 200 with a zero attempt_id.
func (a Attempt) Valid() bool {
	return a.AttemptID > 0 && a.EndsAt != ""
}

// ExamPaper is the fetched question set for one attempt. Treated as read-only
// for the lifetime of the attempt and cached verbatim in the session store.
type ExamPaper struct {
	AttemptID int        `json:"attempt_id"`
	ExamID    int        `json:"exam_id"`
	Questions []Question `json:"questions"`
	EndsAt    string     `json:"ends_at"`
}

// Subjects returns the distinct subject names across the paper's questions in
// order of first appearance. This ordering drives section display and the
// aggregation order of the final submission.
func (p ExamPaper) Subjects() []string {
	seen := make(map[string]struct{}, 4)
	var subjects []string
	for _, q := range p.Questions {
		if _, ok := seen[q.Subject]; ok {
			continue
		}
		seen[q.Subject] = struct{}{}
		subjects = append(subjects, q.Subject)
	}
	return subjects
}

// QuestionsFor returns the subject's questions in paper order.
func (p ExamPaper) QuestionsFor(subject string) []Question {
	var qs []Question
	for _, q := range p.Questions {
		if q.Subject == subject {
			qs = append(qs, q)
		}
	}
	return qs
}

// Question is a single multiple-choice question within a subject section.
type Question struct {
	QuestionID int      `json:"question_id"`
	Subject    string   `json:"subject"`
	Text       string   `json:"text"`
	ImageURL   *string  `json:"image_url,omitempty"`
	Options    []Option `json:"options"`
}

// Option is one selectable choice of a question.
type Option struct {
	ID       int     `json:"id"`
	Text     string  `json:"text"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Answer pairs a question with the option the student chose. At most one per
// question; backed by the backend's submit payload shape.
type Answer struct {
	QuestionID     int `json:"question_id"`
	ChosenOptionID int `json:"chosen_option_id"`
}

// SubjectAnswers maps a subject name to its finalized, ordered answer list.
// A subject's list is written exactly once (overwrite on re-return, never
// append) when its in-exam flow reports completion.
type SubjectAnswers map[string][]Answer
