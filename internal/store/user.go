package store

import (
	"database/sql"
	"fmt"
	"strings"

	"taskbeacon/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var pairingCode, hardwareID sql.NullString
	err := scanner.Scan(&u.ID, &u.Username, &u.Password, &pairingCode, &hardwareID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.PairingCode = pairingCode.String
	u.HardwareID = hardwareID.String
	return &u, nil
}

const userCols = `id, username, password, pairing_code, hardware_id, created_at`

// ErrUsernameTaken is returned when a create or rename collides with an
// existing username.
var ErrUsernameTaken = fmt.Errorf("username already exists")

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *UserStore) Create(username, hashedPassword string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (username, password) VALUES (?, ?)`,
		username, hashedPassword,
	)
	if isUniqueViolation(err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// GetByPairingCode resolves the user a hardware pairing code belongs to.
func (s *UserStore) GetByPairingCode(code string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE pairing_code = ?`, code)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by pairing code: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdateUsername(id int64, username string) error {
	_, err := s.db.Exec(`UPDATE users SET username = ? WHERE id = ?`, username, id)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}

func (s *UserStore) UpdatePassword(id int64, hashedPassword string) error {
	_, err := s.db.Exec(`UPDATE users SET password = ? WHERE id = ?`, hashedPassword, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetPairingCode replaces the user's pairing code. The unique index on
// pairing_code doubles as the global code registry.
func (s *UserStore) SetPairingCode(id int64, code string) error {
	_, err := s.db.Exec(`UPDATE users SET pairing_code = ? WHERE id = ?`, code, id)
	if err != nil {
		return fmt.Errorf("set pairing code: %w", err)
	}
	return nil
}

func (s *UserStore) SetHardwareID(id int64, hardwareID string) error {
	_, err := s.db.Exec(`UPDATE users SET hardware_id = ? WHERE id = ?`, hardwareID, id)
	if err != nil {
		return fmt.Errorf("set hardware id: %w", err)
	}
	return nil
}
