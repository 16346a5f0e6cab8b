package repos

import (
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	applog "lukamath/internal/log"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Passw0rd!"

// Seed ensures the demo accounts and one demo homework exist (idempotent).
func Seed(db *sqlx.DB, cost int) error {
	type u struct {
		ID, Email, First, Last, Role, Hash string
	}
	mk := func(id, email, first, last, role string) (u, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
		return u{ID: id, Email: email, First: first, Last: last, Role: role, Hash: string(h)}, err
	}
	specs := [][5]string{
		{"u-demo", "demo@lukamath.com", "Demo", "Student", "student"},
		{"u-maria", "maria@lukamath.com", "Maria", "Lopez", "student"},
		{"u-luka", "luka@lukamath.com", "Luka", "Tutor", "tutor"},
		{"u-nina", "nina@lukamath.com", "Nina", "Tutor", "tutor"},
		{"u-admin", "admin@lukamath.com", "Admin", "", "admin"},
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, s := range specs {
		x, err := mk(s[0], s[1], s[2], s[3], s[4])
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,first_name,last_name,password_hash,role,verified)
			VALUES(?,?,?,?,?,?,1)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.First, x.Last, x.Hash, x.Role); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO homework(id,tutor_id,student_id,title,description,due_date)
		SELECT 'hw-demo-1','u-luka','u-demo','Fractions warm-up','Simplify the ten fractions on the sheet.','2030-01-15'
		WHERE NOT EXISTS (SELECT 1 FROM homework WHERE id='hw-demo-1')
	`); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	applog.L().Info("seed.ready")
	return nil
}
