package domain

type Homework struct {
	ID          string  `db:"id" json:"id"`
	TutorID     string  `db:"tutor_id" json:"tutorId"`
	StudentID   string  `db:"student_id" json:"studentId"`
	Title       string  `db:"title" json:"title"`
	Description string  `db:"description" json:"description"`
	DueDate     *string `db:"due_date" json:"dueDate,omitempty"`
	CreatedAt   string  `db:"created_at" json:"createdAt"`
	UpdatedAt   *string `db:"updated_at" json:"updatedAt,omitempty"`
}

type Submission struct {
	ID          string  `db:"id" json:"id"`
	HomeworkID  string  `db:"homework_id" json:"homeworkId"`
	StudentID   string  `db:"student_id" json:"studentId"`
	Content     string  `db:"content" json:"content"`
	Grade       *string `db:"grade" json:"grade,omitempty"`
	Feedback    *string `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt string  `db:"submitted_at" json:"submittedAt"`
	UpdatedAt   *string `db:"updated_at" json:"updatedAt,omitempty"`
}

func (s *Submission) Graded() bool { return s.Grade != nil && *s.Grade != "" }

type SubmissionFile struct {
	ID           string `db:"id" json:"id"`
	SubmissionID string `db:"submission_id" json:"submissionId"`
	Filename     string `db:"filename" json:"filename"`
	StoredName   string `db:"stored_name" json:"-"`
	ContentType  string `db:"content_type" json:"contentType"`
	Size         int64  `db:"size" json:"size"`
	CreatedAt    string `db:"created_at" json:"createdAt"`
}
