package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var errDuplicateEmail = errors.New("a user with this email address already exists")

const queryTimeout = 5 * time.Second

// taskFilters narrows and orders a user's task listing. sortColumn is
// expected to be pre-validated against the handler's whitelist before
// it reaches the query builder.
type taskFilters struct {
	completed  *bool
	sortColumn string
	sortDesc   bool
	limit      int
	skip       int
}

type store interface {
	insertUser(u *user) error
	getUserByEmail(email string) (*user, error)
	getUserByID(id int) (*user, error)
	updateUser(u *user) error
	deleteUser(u *user) error

	insertToken(userID int, token string) error
	tokenExists(userID int, token string) (bool, error)
	deleteToken(userID int, token string) error
	deleteAllTokens(userID int) error

	setAvatar(userID int, avatar []byte) error
	clearAvatar(userID int) error
	getAvatar(userID int) ([]byte, error)

	insertTask(t *task) error
	getTask(id, userID int) (*task, error)
	getTasks(userID int, f taskFilters) ([]task, error)
	updateTask(t *task) error
	deleteTask(id, userID int) (*task, error)
}

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConnections)
	db.SetMaxIdleConns(cfg.db.maxIdleConnections)
	db.SetConnMaxIdleTime(cfg.db.maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

type postgresStorage struct {
	db *sql.DB
}

func newStorage(db *sql.DB) *postgresStorage {
	return &postgresStorage{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *postgresStorage) insertUser(u *user) error {
	query := `INSERT INTO users (name, email, age, password_hash)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, created_at, version`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, u.Name, u.Email, u.Age, u.PasswordHash)
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Version)
	if isUniqueViolation(err) {
		return errDuplicateEmail
	}
	return err
}

func (s *postgresStorage) getUserByEmail(email string) (*user, error) {
	query := `SELECT id, created_at, name, email, age, password_hash, version
			  FROM users
			  WHERE email = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, email)
	var u user
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Email, &u.Age, &u.PasswordHash, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *postgresStorage) getUserByID(id int) (*user, error) {
	query := `SELECT id, created_at, name, email, age, password_hash, version
			  FROM users
			  WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, id)
	var u user
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Email, &u.Age, &u.PasswordHash, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *postgresStorage) updateUser(u *user) error {
	query := `UPDATE users SET name = $1, email = $2, age = $3, password_hash = $4, version = version + 1
			  WHERE id = $5 AND version = $6
			  RETURNING version`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, u.Name, u.Email, u.Age, u.PasswordHash, u.ID, u.Version)
	err := row.Scan(&u.Version)
	if isUniqueViolation(err) {
		return errDuplicateEmail
	}
	return err
}

// deleteUser relies on ON DELETE CASCADE foreign keys to drop the
// user's tasks and tokens in the same statement.
func (s *postgresStorage) deleteUser(u *user) error {
	query := `DELETE FROM users
			  WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, u.ID)
	return err
}

func (s *postgresStorage) insertToken(userID int, token string) error {
	query := `INSERT INTO tokens (user_id, token)
			  VALUES ($1, $2)`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, userID, token)
	return err
}

func (s *postgresStorage) tokenExists(userID int, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM tokens WHERE user_id = $1 AND token = $2)`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx, query, userID, token).Scan(&exists)
	return exists, err
}

func (s *postgresStorage) deleteToken(userID int, token string) error {
	query := `DELETE FROM tokens
			  WHERE user_id = $1 AND token = $2`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, userID, token)
	return err
}

func (s *postgresStorage) deleteAllTokens(userID int) error {
	query := `DELETE FROM tokens
			  WHERE user_id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, userID)
	return err
}

func (s *postgresStorage) setAvatar(userID int, avatar []byte) error {
	query := `UPDATE users SET avatar = $1
			  WHERE id = $2`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, avatar, userID)
	return err
}

func (s *postgresStorage) clearAvatar(userID int) error {
	query := `UPDATE users SET avatar = NULL
			  WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query, userID)
	return err
}

// getAvatar returns nil bytes when the user is absent or has no
// avatar stored. Both collapse to a 404 at the handler.
func (s *postgresStorage) getAvatar(userID int) ([]byte, error) {
	query := `SELECT avatar FROM users
			  WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var avatar []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&avatar)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return avatar, nil
}

func (s *postgresStorage) insertTask(t *task) error {
	query := `INSERT INTO tasks (user_id, description, is_completed)
			  VALUES ($1, $2, $3)
			  RETURNING id, created_at, version`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, t.UserID, t.Description, t.IsCompleted)
	return row.Scan(&t.ID, &t.CreatedAt, &t.Version)
}

func (s *postgresStorage) getTask(id, userID int) (*task, error) {
	query := `SELECT id, created_at, user_id, description, is_completed, version
			  FROM tasks
			  WHERE id = $1 AND user_id = $2`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, id, userID)
	var t task
	err := row.Scan(&t.ID, &t.CreatedAt, &t.UserID, &t.Description, &t.IsCompleted, &t.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &t, nil
}

func (s *postgresStorage) getTasks(userID int, f taskFilters) ([]task, error) {
	query := `SELECT id, created_at, user_id, description, is_completed, version
			  FROM tasks
			  WHERE user_id = $1`
	args := []any{userID}

	if f.completed != nil {
		args = append(args, *f.completed)
		query += fmt.Sprintf(" AND is_completed = $%d", len(args))
	}
	if f.sortColumn != "" {
		direction := "ASC"
		if f.sortDesc {
			direction = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s, id ASC", f.sortColumn, direction)
	} else {
		query += " ORDER BY id ASC"
	}
	if f.limit > 0 {
		args = append(args, f.limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.skip > 0 {
		args = append(args, f.skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task{}
	for rows.Next() {
		var t task
		err := rows.Scan(&t.ID, &t.CreatedAt, &t.UserID, &t.Description, &t.IsCompleted, &t.Version)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *postgresStorage) updateTask(t *task) error {
	query := `UPDATE tasks SET description = $1, is_completed = $2, version = version + 1
			  WHERE id = $3 AND user_id = $4 AND version = $5
			  RETURNING version`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, t.Description, t.IsCompleted, t.ID, t.UserID, t.Version)
	return row.Scan(&t.Version)
}

func (s *postgresStorage) deleteTask(id, userID int) (*task, error) {
	query := `DELETE FROM tasks
			  WHERE id = $1 AND user_id = $2
			  RETURNING id, created_at, user_id, description, is_completed, version`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, id, userID)
	var t task
	err := row.Scan(&t.ID, &t.CreatedAt, &t.UserID, &t.Description, &t.IsCompleted, &t.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &t, nil
}
