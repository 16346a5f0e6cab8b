package handlers

import (
	"github.com/jmoiron/sqlx"

	"lukamath/internal/config"
	"lukamath/internal/metrics"
	"lukamath/internal/repos"
	"lukamath/internal/services"
	"lukamath/internal/token"
)

type Deps struct {
	Tokens  *token.Manager
	Metrics *metrics.Metrics

	AuthHandler       *AuthHandler
	ProfileHandler    *ProfileHandler
	HomeworkHandler   *HomeworkHandler
	SubmissionHandler *SubmissionHandler
	AdminHandler      *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, m *metrics.Metrics) *Deps {
	userRepo := repos.NewUserRepo(db)
	hwRepo := repos.NewHomeworkRepo(db)
	subRepo := repos.NewSubmissionRepo(db)

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := services.NewAuthService(userRepo, tokens, cfg.BcryptCost)
	userSvc := services.NewUserService(userRepo, cfg.BcryptCost)
	files := &services.FileStore{Dir: cfg.UploadDir, Max: int64(cfg.MaxUploadBytes)}
	hwSvc := services.NewHomeworkService(userRepo, hwRepo, subRepo, files)

	return &Deps{
		Tokens:            tokens,
		Metrics:           m,
		AuthHandler:       &AuthHandler{Auth: authSvc, Metrics: m},
		ProfileHandler:    &ProfileHandler{Users: userSvc},
		HomeworkHandler:   &HomeworkHandler{Homework: hwSvc},
		SubmissionHandler: &SubmissionHandler{Homework: hwSvc},
		AdminHandler:      &AdminHandler{Users: userSvc},
	}
}
