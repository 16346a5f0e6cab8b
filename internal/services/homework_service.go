package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
	"lukamath/internal/repos"
	"lukamath/internal/token"
	"lukamath/internal/validate"
)

const (
	maxDescription = 5000
	maxContent     = 20000
	maxFeedback    = 2000
)

// HomeworkService applies the role and ownership rules for homework and
// submissions. Every mutating method loads its target, authorizes the actor,
// and only then writes.
type HomeworkService struct {
	Users       *repos.UserRepo
	Homework    *repos.HomeworkRepo
	Submissions *repos.SubmissionRepo
	Files       *FileStore
}

func NewHomeworkService(users *repos.UserRepo, hw *repos.HomeworkRepo, subs *repos.SubmissionRepo, files *FileStore) *HomeworkService {
	return &HomeworkService{Users: users, Homework: hw, Submissions: subs, Files: files}
}

type HomeworkInput struct {
	StudentID   string `json:"studentId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
}

type SubmissionView struct {
	domain.Submission
	Files []domain.SubmissionFile `json:"files"`
}

func isAdmin(a token.Identity) bool { return a.Role == domain.RoleAdmin }

// canView: the authoring tutor, the addressed student, or an admin.
func canView(a token.Identity, h *domain.Homework) bool {
	return isAdmin(a) ||
		(a.Role == domain.RoleTutor && h.TutorID == a.Subject) ||
		(a.Role == domain.RoleStudent && h.StudentID == a.Subject)
}

// canManage: the authoring tutor or an admin.
func canManage(a token.Identity, h *domain.Homework) bool {
	return isAdmin(a) || (a.Role == domain.RoleTutor && h.TutorID == a.Subject)
}

func (s *HomeworkService) List(ctx context.Context, a token.Identity) ([]domain.Homework, error) {
	var (
		out []domain.Homework
		err error
	)
	switch a.Role {
	case domain.RoleAdmin:
		out, err = s.Homework.ListAll(ctx, 500)
	case domain.RoleTutor:
		out, err = s.Homework.ListByTutor(ctx, a.Subject)
	case domain.RoleStudent:
		out, err = s.Homework.ListByStudent(ctx, a.Subject)
	default:
		return nil, apperr.Forbid("unknown role")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ServerError, "could not list homework", err)
	}
	return out, nil
}

func (s *HomeworkService) Create(ctx context.Context, a token.Identity, in HomeworkInput) (*domain.Homework, error) {
	if a.Role != domain.RoleTutor && !isAdmin(a) {
		return nil, apperr.Forbid("only tutors can assign homework")
	}
	h, err := homeworkFields(in)
	if err != nil {
		return nil, err
	}
	studentID, ok := validate.ID(in.StudentID)
	if !ok {
		return nil, apperr.Validation("studentId is required")
	}
	student, err := s.Users.ByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apperr.Validation("studentId does not match a student")
		}
		return nil, apperr.Wrap(apperr.ServerError, "could not create homework", err)
	}
	if student.Role != domain.RoleStudent {
		return nil, apperr.Validation("studentId does not match a student")
	}

	h.ID = uuid.NewString()
	h.TutorID = a.Subject
	h.StudentID = student.ID
	if err := s.Homework.Create(ctx, h); err != nil {
		return nil, apperr.Wrap(apperr.ServerError, "could not create homework", err)
	}
	return s.Homework.Get(ctx, h.ID)
}

func (s *HomeworkService) Get(ctx context.Context, a token.Identity, id string) (*domain.Homework, error) {
	h, err := s.loadHomework(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(a, h) {
		return nil, apperr.Forbid("not your homework")
	}
	return h, nil
}

func (s *HomeworkService) Update(ctx context.Context, a token.Identity, id string, in HomeworkInput) (*domain.Homework, error) {
	cur, err := s.loadHomework(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(a, cur) {
		return nil, apperr.Forbid("only the authoring tutor can edit this homework")
	}
	upd, err := homeworkFields(in)
	if err != nil {
		return nil, err
	}
	upd.ID = cur.ID
	if err := s.Homework.Update(ctx, upd); err != nil {
		return nil, s.mapErr(err, "homework", "could not update homework")
	}
	return s.Homework.Get(ctx, id)
}

func (s *HomeworkService) Delete(ctx context.Context, a token.Identity, id string) error {
	cur, err := s.loadHomework(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(a, cur) {
		return apperr.Forbid("only the authoring tutor can delete this homework")
	}
	if err := s.Homework.Delete(ctx, id); err != nil {
		return s.mapErr(err, "homework", "could not delete homework")
	}
	return nil
}

// ListSubmissions gives tutors and admins every submission; a student sees
// only their own.
func (s *HomeworkService) ListSubmissions(ctx context.Context, a token.Identity, homeworkID string) ([]SubmissionView, error) {
	h, err := s.loadHomework(ctx, homeworkID)
	if err != nil {
		return nil, err
	}
	if !canView(a, h) {
		return nil, apperr.Forbid("not your homework")
	}
	subs, err := s.Submissions.ListByHomework(ctx, homeworkID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServerError, "could not list submissions", err)
	}
	out := make([]SubmissionView, 0, len(subs))
	for _, sub := range subs {
		if a.Role == domain.RoleStudent && sub.StudentID != a.Subject {
			continue
		}
		files, err := s.Submissions.Files(ctx, sub.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.ServerError, "could not list submissions", err)
		}
		out = append(out, SubmissionView{Submission: sub, Files: files})
	}
	return out, nil
}

// Submit creates the actor's submission. The owner is always the verified
// subject.
func (s *HomeworkService) Submit(ctx context.Context, a token.Identity, homeworkID, content string) (*domain.Submission, error) {
	h, err := s.loadHomework(ctx, homeworkID)
	if err != nil {
		return nil, err
	}
	if a.Role != domain.RoleStudent || h.StudentID != a.Subject {
		return nil, apperr.Forbid("this homework is not addressed to you")
	}
	body, ok := validate.Text(content, maxContent)
	if !ok {
		return nil, apperr.Validation("content is too long")
	}
	if _, err := s.Submissions.ByHomeworkAndStudent(ctx, homeworkID, a.Subject); err == nil {
		return nil, apperr.Validation("already submitted; update the existing submission")
	} else if !errors.Is(err, repos.ErrNotFound) {
		return nil, apperr.Wrap(apperr.ServerError, "could not submit", err)
	}

	sub := &domain.Submission{
		ID:         uuid.NewString(),
		HomeworkID: homeworkID,
		StudentID:  a.Subject,
		Content:    body,
	}
	if err := s.Submissions.Create(ctx, sub); err != nil {
		return nil, apperr.Wrap(apperr.ServerError, "could not submit", err)
	}
	return s.Submissions.Get(ctx, sub.ID)
}

func (s *HomeworkService) UpdateSubmission(ctx context.Context, a token.Identity, id, content string) (*domain.Submission, error) {
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Role != domain.RoleStudent || sub.StudentID != a.Subject {
		return nil, apperr.Forbid("not your submission")
	}
	if sub.Graded() {
		return nil, apperr.Validation("submission already graded")
	}
	body, ok := validate.Text(content, maxContent)
	if !ok {
		return nil, apperr.Validation("content is too long")
	}
	if err := s.Submissions.UpdateContent(ctx, id, body); err != nil {
		if !errors.Is(err, repos.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ServerError, "could not update submission", err)
		}
		// graded (or deleted) between the check above and the write
		if _, gerr := s.Submissions.Get(ctx, id); gerr == nil {
			return nil, apperr.Validation("submission already graded")
		}
		return nil, apperr.E(apperr.NotFound, "submission not found")
	}
	return s.Submissions.Get(ctx, id)
}

func (s *HomeworkService) Grade(ctx context.Context, a token.Identity, id, grade, feedback string) (*domain.Submission, error) {
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	h, err := s.loadHomework(ctx, sub.HomeworkID)
	if err != nil {
		return nil, err
	}
	if !canManage(a, h) {
		return nil, apperr.Forbid("only the authoring tutor can grade")
	}
	g, ok := validate.Grade(grade)
	if !ok {
		return nil, apperr.Validation("grade must be 1-10 characters")
	}
	fb, ok := validate.Text(feedback, maxFeedback)
	if !ok {
		return nil, apperr.Validation("feedback is too long")
	}
	if err := s.Submissions.Grade(ctx, id, g, fb); err != nil {
		return nil, s.mapErr(err, "submission", "could not grade submission")
	}
	return s.Submissions.Get(ctx, id)
}

// AttachFile stores an upload against the actor's own, ungraded submission.
func (s *HomeworkService) AttachFile(ctx context.Context, a token.Identity, id, filename, contentType string, r io.Reader) (*domain.SubmissionFile, error) {
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Role != domain.RoleStudent || sub.StudentID != a.Subject {
		return nil, apperr.Forbid("not your submission")
	}
	if sub.Graded() {
		return nil, apperr.Validation("submission already graded")
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) || len(name) > 255 {
		return nil, apperr.Validation("file name is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	stored, size, err := s.Files.Save(r)
	switch {
	case errors.Is(err, errTooLarge):
		return nil, apperr.Validation("file too large")
	case errors.Is(err, errNoUploadDir):
		return nil, apperr.Wrap(apperr.ServerError, "uploads are unavailable", err)
	case err != nil:
		return nil, apperr.Wrap(apperr.ServerError, "could not store file", err)
	}

	f := &domain.SubmissionFile{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		Filename:     name,
		StoredName:   stored,
		ContentType:  contentType,
		Size:         size,
	}
	if err := s.Submissions.AddFile(ctx, f); err != nil {
		s.Files.Remove(stored)
		return nil, apperr.Wrap(apperr.ServerError, "could not store file", err)
	}
	return s.Submissions.File(ctx, sub.ID, f.ID)
}

// File resolves an attachment for download: the submitting student, the
// authoring tutor, or an admin.
func (s *HomeworkService) File(ctx context.Context, a token.Identity, submissionID, fileID string) (*domain.SubmissionFile, string, error) {
	sub, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return nil, "", err
	}
	h, err := s.loadHomework(ctx, sub.HomeworkID)
	if err != nil {
		return nil, "", err
	}
	owner := a.Role == domain.RoleStudent && sub.StudentID == a.Subject
	if !owner && !canManage(a, h) {
		return nil, "", apperr.Forbid("not your submission")
	}
	f, err := s.Submissions.File(ctx, submissionID, fileID)
	if err != nil {
		return nil, "", s.mapErr(err, "file", "could not load file")
	}
	path, err := s.Files.Path(f.StoredName)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.NotFound, "file not found", err)
	}
	return f, path, nil
}

func (s *HomeworkService) loadHomework(ctx context.Context, id string) (*domain.Homework, error) {
	if _, ok := validate.ID(id); !ok {
		return nil, apperr.E(apperr.NotFound, "homework not found")
	}
	h, err := s.Homework.Get(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "homework", "could not load homework")
	}
	return h, nil
}

func (s *HomeworkService) loadSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	if _, ok := validate.ID(id); !ok {
		return nil, apperr.E(apperr.NotFound, "submission not found")
	}
	sub, err := s.Submissions.Get(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "submission", "could not load submission")
	}
	return sub, nil
}

func (s *HomeworkService) mapErr(err error, what, msg string) error {
	if errors.Is(err, repos.ErrNotFound) {
		return apperr.E(apperr.NotFound, what+" not found")
	}
	return apperr.Wrap(apperr.ServerError, msg, err)
}

func homeworkFields(in HomeworkInput) (*domain.Homework, error) {
	title, ok := validate.Title(in.Title)
	if !ok {
		return nil, apperr.Validation("title must be 1-120 characters")
	}
	desc, ok := validate.Text(in.Description, maxDescription)
	if !ok {
		return nil, apperr.Validation("description is too long")
	}
	due, ok := validate.Date(in.DueDate)
	if !ok {
		return nil, apperr.Validation("dueDate must be YYYY-MM-DD")
	}
	return &domain.Homework{Title: title, Description: desc, DueDate: due}, nil
}
