package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"lukamath/internal/domain"
)

const submissionCols = `id,homework_id,student_id,content,grade,feedback,submitted_at,updated_at`

type SubmissionRepo struct{ db *sqlx.DB }

func NewSubmissionRepo(db *sqlx.DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

func (r *SubmissionRepo) Create(ctx context.Context, s *domain.Submission) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO submissions(id, homework_id, student_id, content, submitted_at)
	  VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, s.ID, s.HomeworkID, s.StudentID, s.Content)
	return err
}

func (r *SubmissionRepo) Get(ctx context.Context, id string) (*domain.Submission, error) {
	var s domain.Submission
	if err := r.db.GetContext(ctx, &s, `SELECT `+submissionCols+` FROM submissions WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ByHomeworkAndStudent finds the single submission a student may hold per homework.
func (r *SubmissionRepo) ByHomeworkAndStudent(ctx context.Context, homeworkID, studentID string) (*domain.Submission, error) {
	var s domain.Submission
	if err := r.db.GetContext(ctx, &s, `
		SELECT `+submissionCols+` FROM submissions WHERE homework_id=? AND student_id=?`,
		homeworkID, studentID); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// UpdateContent only touches ungraded rows; a graded or missing row reports
// ErrNotFound.
func (r *SubmissionRepo) UpdateContent(ctx context.Context, id, content string) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE submissions SET content=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=? AND (grade IS NULL OR grade='')
	`, content, id)
	return affected(res, err)
}

func (r *SubmissionRepo) Grade(ctx context.Context, id, grade, feedback string) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE submissions SET grade=?, feedback=?, updated_at=CURRENT_TIMESTAMP WHERE id=?
	`, grade, feedback, id)
	return affected(res, err)
}

func (r *SubmissionRepo) ListByHomework(ctx context.Context, homeworkID string) ([]domain.Submission, error) {
	out := []domain.Submission{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+submissionCols+` FROM submissions WHERE homework_id=?
		ORDER BY datetime(submitted_at), id`, homeworkID)
	return out, err
}

func (r *SubmissionRepo) AddFile(ctx context.Context, f *domain.SubmissionFile) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO submission_files(id, submission_id, filename, stored_name, content_type, size, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, f.ID, f.SubmissionID, f.Filename, f.StoredName, f.ContentType, f.Size)
	return err
}

func (r *SubmissionRepo) File(ctx context.Context, submissionID, fileID string) (*domain.SubmissionFile, error) {
	var f domain.SubmissionFile
	if err := r.db.GetContext(ctx, &f, `
		SELECT id,submission_id,filename,stored_name,content_type,size,created_at
		FROM submission_files WHERE id=? AND submission_id=?`, fileID, submissionID); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (r *SubmissionRepo) Files(ctx context.Context, submissionID string) ([]domain.SubmissionFile, error) {
	out := []domain.SubmissionFile{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id,submission_id,filename,stored_name,content_type,size,created_at
		FROM submission_files WHERE submission_id=? ORDER BY datetime(created_at), id`, submissionID)
	return out, err
}
