package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"lukamath/internal/domain"
)

const homeworkCols = `id,tutor_id,student_id,title,description,due_date,created_at,updated_at`

type HomeworkRepo struct{ db *sqlx.DB }

func NewHomeworkRepo(db *sqlx.DB) *HomeworkRepo { return &HomeworkRepo{db: db} }

func (r *HomeworkRepo) Create(ctx context.Context, h *domain.Homework) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO homework(id, tutor_id, student_id, title, description, due_date, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, h.ID, h.TutorID, h.StudentID, h.Title, h.Description, h.DueDate)
	return err
}

func (r *HomeworkRepo) Get(ctx context.Context, id string) (*domain.Homework, error) {
	var h domain.Homework
	if err := r.db.GetContext(ctx, &h, `SELECT `+homeworkCols+` FROM homework WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// Update rewrites the editable fields. Ownership columns never change.
func (r *HomeworkRepo) Update(ctx context.Context, h *domain.Homework) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE homework SET title=?, description=?, due_date=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=?
	`, h.Title, h.Description, h.DueDate, h.ID)
	return affected(res, err)
}

func (r *HomeworkRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM homework WHERE id=?`, id)
	return affected(res, err)
}

func (r *HomeworkRepo) ListByTutor(ctx context.Context, tutorID string) ([]domain.Homework, error) {
	out := []domain.Homework{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+homeworkCols+` FROM homework WHERE tutor_id=?
		ORDER BY datetime(created_at) DESC, id`, tutorID)
	return out, err
}

func (r *HomeworkRepo) ListByStudent(ctx context.Context, studentID string) ([]domain.Homework, error) {
	out := []domain.Homework{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+homeworkCols+` FROM homework WHERE student_id=?
		ORDER BY datetime(created_at) DESC, id`, studentID)
	return out, err
}

func (r *HomeworkRepo) ListAll(ctx context.Context, limit int) ([]domain.Homework, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Homework{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+homeworkCols+` FROM homework
		ORDER BY datetime(created_at) DESC, id LIMIT ?`, limit)
	return out, err
}
