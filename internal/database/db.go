// Package database provides database connection management, migrations, and
// data access methods for the certM3 application. All cross-entity invariants
// (uniqueness, protected-group checks, cascading revocation, the single-use
// challenge transition) are enforced here with transactional atomicity.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SamCN2/certm3/internal/config"
	"github.com/SamCN2/certm3/internal/database/models"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// Database represents the database connection and operations
type Database struct {
	db     *sql.DB
	dbType string
}

// New creates a new database connection
func New(cfg *config.Config) (*Database, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "sqlite":
		db, err = sql.Open("sqlite3", cfg.Database.SQLite.Path+"?_foreign_keys=on")
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite only allows one writer at a time
		db.SetMaxOpenConns(1)
	case "postgres":
		db, err = sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		dbType: cfg.Database.Type,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the database connection is alive
func (d *Database) Ping() error {
	return d.db.Ping()
}

// DB returns the underlying database connection for direct queries
func (d *Database) DB() *sql.DB {
	return d.db
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	var migrationFiles []string
	if d.dbType == "postgres" {
		migrationFiles = []string{
			"migrations/000001_init_schema.postgres.up.sql",
		}
	} else {
		migrationFiles = []string{
			"migrations/000001_init_schema.up.sql",
		}
	}

	for _, migrationFile := range migrationFiles {
		content, err := migrationsFS.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migrationFile, err)
		}

		// Remove comments and split into statements
		var statements []string
		var currentStmt strings.Builder
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "--") || line == "" {
				continue
			}

			currentStmt.WriteString(line)
			currentStmt.WriteString("\n")

			if strings.HasSuffix(line, ";") {
				stmt := strings.TrimSpace(currentStmt.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				currentStmt.Reset()
			}
		}

		for _, stmt := range statements {
			if _, err := d.db.Exec(stmt); err != nil {
				if !strings.Contains(err.Error(), "already exists") {
					return fmt.Errorf("migration %s failed: %w\nStatement: %s", migrationFile, err, stmt)
				}
			}
		}
	}

	return nil
}

// isUniqueViolation reports whether the error comes from a uniqueness
// constraint in either supported dialect.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// Request operations

// CreateRequest inserts a new identity-claim request. The count gives a
// clean duplicate answer on the common path; the partial unique index on
// pending usernames is what actually holds under concurrent creates, since
// at READ COMMITTED two transactions can both see count=0.
func (d *Database) CreateRequest(req *models.Request) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	countQuery := `SELECT COUNT(*) FROM requests WHERE username = ? AND status = ?`
	if d.dbType == "postgres" {
		countQuery = `SELECT COUNT(*) FROM requests WHERE username = $1 AND status = $2`
	}

	var count int
	if err := tx.QueryRow(countQuery, req.Username, models.RequestStatusPending).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicate
	}

	insertQuery := `INSERT INTO requests
	          (id, username, display_name, email, status, challenge, created_at, updated_at, created_by, updated_by)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		insertQuery = `INSERT INTO requests
		         (id, username, display_name, email, status, challenge, created_at, updated_at, created_by, updated_by)
		         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	}

	if _, err := tx.Exec(insertQuery,
		req.ID, req.Username, req.DisplayName, req.Email, req.Status, req.Challenge,
		req.CreatedAt, req.UpdatedAt, req.CreatedBy, req.UpdatedBy,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	return tx.Commit()
}

const requestColumns = `id, username, display_name, email, status, challenge, created_at, updated_at, created_by, updated_by`

func scanRequest(row interface{ Scan(...interface{}) error }) (*models.Request, error) {
	var req models.Request
	err := row.Scan(
		&req.ID, &req.Username, &req.DisplayName, &req.Email, &req.Status, &req.Challenge,
		&req.CreatedAt, &req.UpdatedAt, &req.CreatedBy, &req.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequest retrieves a request by ID
func (d *Database) GetRequest(id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	}
	return scanRequest(d.db.QueryRow(query, id))
}

// SearchRequests retrieves requests matching the exact-match filter.
// Empty filter fields are ignored. Results are bounded by limit.
func (d *Database) SearchRequests(username, email, status string, limit int) ([]*models.Request, error) {
	conds := []string{}
	args := []interface{}{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		if d.dbType == "postgres" {
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)+1))
		} else {
			conds = append(conds, col+" = ?")
		}
		args = append(args, val)
	}
	add("username", username)
	add("email", email)
	add("status", status)

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// TransitionRequest moves a request from pending to the given terminal
// status. The WHERE clause makes the transition compare-and-swap: of two
// concurrent callers exactly one observes true.
func (d *Database) TransitionRequest(id, toStatus, updatedBy string, now time.Time) (bool, error) {
	query := `UPDATE requests SET status = ?, updated_at = ?, updated_by = ? WHERE id = ? AND status = ?`
	if d.dbType == "postgres" {
		query = `UPDATE requests SET status = $1, updated_at = $2, updated_by = $3 WHERE id = $4 AND status = $5`
	}

	res, err := d.db.Exec(query, toStatus, now, updatedBy, id, models.RequestStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// User operations

const userColumns = `id, username, email, display_name, status, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.Status,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user. Username and email uniqueness is enforced
// by the store's unique indexes; violations surface as ErrDuplicate.
func (d *Database) CreateUser(user *models.User) error {
	query := `INSERT INTO users (id, username, email, display_name, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO users (id, username, email, display_name, status, created_at, updated_at)
		         VALUES ($1, $2, $3, $4, $5, $6, $7)`
	}

	_, err := d.db.Exec(query,
		user.ID, user.Username, user.Email, user.DisplayName, user.Status,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetUser retrieves a user by ID
func (d *Database) GetUser(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	}
	return scanUser(d.db.QueryRow(query, id))
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	}
	return scanUser(d.db.QueryRow(query, username))
}

// FindUsers retrieves users matching the exact-match filter.
func (d *Database) FindUsers(username, email, status string, limit int) ([]*models.User, error) {
	conds := []string{}
	args := []interface{}{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		if d.dbType == "postgres" {
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)+1))
		} else {
			conds = append(conds, col+" = ?")
		}
		args = append(args, val)
	}
	add("username", username)
	add("email", email)
	add("status", status)

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeactivateUserCascade flips an active user to inactive and revokes every
// one of their active certificates in the same transaction. Returns the
// number of certificates revoked, or sql.ErrNoRows if the user does not
// exist. An already inactive user yields (0, nil) with no changes.
func (d *Database) DeactivateUserCascade(userID, actor, reason string, now time.Time) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	existsQuery := `SELECT COUNT(*) FROM users WHERE id = ?`
	if d.dbType == "postgres" {
		existsQuery = `SELECT COUNT(*) FROM users WHERE id = $1`
	}
	var count int
	if err := tx.QueryRow(existsQuery, userID).Scan(&count); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, sql.ErrNoRows
	}

	userQuery := `UPDATE users SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	if d.dbType == "postgres" {
		userQuery = `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	}
	res, err := tx.Exec(userQuery, models.UserStatusInactive, now, userID, models.UserStatusActive)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Already inactive; nothing to cascade.
		return 0, tx.Commit()
	}

	certQuery := `UPDATE certificates
	          SET status = ?, revoked_at = ?, revoked_by = ?, revocation_reason = ?, updated_at = ?
	          WHERE user_id = ? AND status = ?`
	if d.dbType == "postgres" {
		certQuery = `UPDATE certificates
		         SET status = $1, revoked_at = $2, revoked_by = $3, revocation_reason = $4, updated_at = $5
		         WHERE user_id = $6 AND status = $7`
	}
	res, err = tx.Exec(certQuery,
		models.CertStatusRevoked, now, actor, reason, now,
		userID, models.CertStatusActive,
	)
	if err != nil {
		return 0, err
	}
	revoked, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(revoked), tx.Commit()
}

// Group operations

const groupColumns = `name, display_name, description, status, created_at, updated_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*models.Group, error) {
	var group models.Group
	err := row.Scan(
		&group.Name, &group.DisplayName, &group.Description, &group.Status,
		&group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateGroup inserts a new group
func (d *Database) CreateGroup(group *models.Group) error {
	query := `INSERT INTO groups (name, display_name, description, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO groups (name, display_name, description, status, created_at, updated_at)
		         VALUES ($1, $2, $3, $4, $5, $6)`
	}

	_, err := d.db.Exec(query,
		group.Name, group.DisplayName, group.Description, group.Status,
		group.CreatedAt, group.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetGroup retrieves a group by name
func (d *Database) GetGroup(name string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE name = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + groupColumns + ` FROM groups WHERE name = $1`
	}
	return scanGroup(d.db.QueryRow(query, name))
}

// ListGroups retrieves all groups
func (d *Database) ListGroups() ([]*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups ORDER BY name`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// UpdateGroup updates a group's display name and description
func (d *Database) UpdateGroup(name, displayName, description string, now time.Time) error {
	query := `UPDATE groups SET display_name = ?, description = ?, updated_at = ? WHERE name = ?`
	if d.dbType == "postgres" {
		query = `UPDATE groups SET display_name = $1, description = $2, updated_at = $3 WHERE name = $4`
	}

	res, err := d.db.Exec(query, displayName, description, now, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetGroupStatus updates a group's status
func (d *Database) SetGroupStatus(name, status string, now time.Time) error {
	query := `UPDATE groups SET status = ?, updated_at = ? WHERE name = ?`
	if d.dbType == "postgres" {
		query = `UPDATE groups SET status = $1, updated_at = $2 WHERE name = $3`
	}

	res, err := d.db.Exec(query, status, now, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Membership operations

// AddMembership inserts a membership row if it does not already exist.
// Returns true if a row was inserted, false if the membership was already
// present. The insert-or-ignore form keeps concurrent adds idempotent.
func (d *Database) AddMembership(m *models.Membership) (bool, error) {
	query := `INSERT OR IGNORE INTO memberships (user_id, group_name, created_at, created_by)
	          VALUES (?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO memberships (user_id, group_name, created_at, created_by)
		         VALUES ($1, $2, $3, $4)
		         ON CONFLICT (user_id, group_name) DO NOTHING`
	}

	res, err := d.db.Exec(query, m.UserID, m.GroupName, m.CreatedAt, m.CreatedBy)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetGroupMembers resolves a group's membership rows to user records
func (d *Database) GetGroupMembers(groupName string) ([]*models.User, error) {
	query := `SELECT u.id, u.username, u.email, u.display_name, u.status, u.created_at, u.updated_at
	          FROM users u JOIN memberships m ON m.user_id = u.id
	          WHERE m.group_name = ? ORDER BY u.username`
	if d.dbType == "postgres" {
		query = `SELECT u.id, u.username, u.email, u.display_name, u.status, u.created_at, u.updated_at
		         FROM users u JOIN memberships m ON m.user_id = u.id
		         WHERE m.group_name = $1 ORDER BY u.username`
	}

	rows, err := d.db.Query(query, groupName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetUserGroups returns the names of active groups the user belongs to
func (d *Database) GetUserGroups(userID string) ([]string, error) {
	query := `SELECT g.name FROM groups g JOIN memberships m ON m.group_name = g.name
	          WHERE m.user_id = ? AND g.status = ? ORDER BY g.name`
	if d.dbType == "postgres" {
		query = `SELECT g.name FROM groups g JOIN memberships m ON m.group_name = g.name
		         WHERE m.user_id = $1 AND g.status = $2 ORDER BY g.name`
	}

	rows, err := d.db.Query(query, userID, models.GroupStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Certificate operations

const certColumns = `serial_number, code_version, username, user_id, common_name, email, fingerprint,
	not_before, not_after, status, revoked_at, revoked_by, revocation_reason, created_at, updated_at`

func scanCertificate(row interface{ Scan(...interface{}) error }) (*models.Certificate, error) {
	var cert models.Certificate
	err := row.Scan(
		&cert.SerialNumber, &cert.CodeVersion, &cert.Username, &cert.UserID,
		&cert.CommonName, &cert.Email, &cert.Fingerprint,
		&cert.NotBefore, &cert.NotAfter, &cert.Status,
		&cert.RevokedAt, &cert.RevokedBy, &cert.RevocationReason,
		&cert.CreatedAt, &cert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// CreateCertificate inserts a new certificate record. Serial number and
// fingerprint uniqueness is enforced by the store's constraints; violations
// surface as ErrDuplicate.
func (d *Database) CreateCertificate(cert *models.Certificate) error {
	query := `INSERT INTO certificates
	          (serial_number, code_version, username, user_id, common_name, email, fingerprint,
	           not_before, not_after, status, revoked_at, revoked_by, revocation_reason, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO certificates
		         (serial_number, code_version, username, user_id, common_name, email, fingerprint,
		          not_before, not_after, status, revoked_at, revoked_by, revocation_reason, created_at, updated_at)
		         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	}

	_, err := d.db.Exec(query,
		cert.SerialNumber, cert.CodeVersion, cert.Username, cert.UserID,
		cert.CommonName, cert.Email, cert.Fingerprint,
		cert.NotBefore, cert.NotAfter, cert.Status,
		cert.RevokedAt, cert.RevokedBy, cert.RevocationReason,
		cert.CreatedAt, cert.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetCertificate retrieves a certificate by serial number
func (d *Database) GetCertificate(serialNumber string) (*models.Certificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE serial_number = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + certColumns + ` FROM certificates WHERE serial_number = $1`
	}
	return scanCertificate(d.db.QueryRow(query, serialNumber))
}

// FindCertificates retrieves certificates matching the exact-match filter.
func (d *Database) FindCertificates(username, status string, limit int) ([]*models.Certificate, error) {
	conds := []string{}
	args := []interface{}{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		if d.dbType == "postgres" {
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)+1))
		} else {
			conds = append(conds, col+" = ?")
		}
		args = append(args, val)
	}
	add("username", username)
	add("status", status)

	query := `SELECT ` + certColumns + ` FROM certificates`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var certs []*models.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

// UpdateCertificateMetadata updates mutable metadata on a non-revoked
// certificate. Revoked certificates are immutable; the WHERE clause makes
// the update a no-op for them, surfaced as (false, nil).
func (d *Database) UpdateCertificateMetadata(serialNumber, codeVersion string, now time.Time) (bool, error) {
	query := `UPDATE certificates SET code_version = ?, updated_at = ? WHERE serial_number = ? AND status != ?`
	if d.dbType == "postgres" {
		query = `UPDATE certificates SET code_version = $1, updated_at = $2 WHERE serial_number = $3 AND status != $4`
	}

	res, err := d.db.Exec(query, codeVersion, now, serialNumber, models.CertStatusRevoked)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeCertificate marks an active certificate revoked, stamping the
// revocation fields exactly once. Returns false when the certificate was
// not active (already revoked), without touching the row.
func (d *Database) RevokeCertificate(serialNumber, revokedBy, reason string, now time.Time) (bool, error) {
	query := `UPDATE certificates
	          SET status = ?, revoked_at = ?, revoked_by = ?, revocation_reason = ?, updated_at = ?
	          WHERE serial_number = ? AND status = ?`
	if d.dbType == "postgres" {
		query = `UPDATE certificates
		         SET status = $1, revoked_at = $2, revoked_by = $3, revocation_reason = $4, updated_at = $5
		         WHERE serial_number = $6 AND status = $7`
	}

	res, err := d.db.Exec(query,
		models.CertStatusRevoked, now, revokedBy, reason, now,
		serialNumber, models.CertStatusActive,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Operator operations

// CreateOperator inserts a new operator account
func (d *Database) CreateOperator(op *models.Operator) error {
	query := `INSERT INTO operators (id, username, password_hash, role, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO operators (id, username, password_hash, role, created_at)
		         VALUES ($1, $2, $3, $4, $5)`
	}

	_, err := d.db.Exec(query, op.ID, op.Username, op.PasswordHash, op.Role, op.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetOperatorByUsername retrieves an operator by username
func (d *Database) GetOperatorByUsername(username string) (*models.Operator, error) {
	query := `SELECT id, username, password_hash, role, created_at FROM operators WHERE username = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, username, password_hash, role, created_at FROM operators WHERE username = $1`
	}

	var op models.Operator
	err := d.db.QueryRow(query, username).Scan(
		&op.ID, &op.Username, &op.PasswordHash, &op.Role, &op.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// CountOperators returns the number of operator accounts
func (d *Database) CountOperators() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM operators`).Scan(&count)
	return count, err
}
