package sqlxrepos

import (
	"context"
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

// courseRolesColumn stores a user's course memberships as JSONB.
type courseRolesColumn []user.CourseMembership

func (c courseRolesColumn) Value() (driver.Value, error) {
	if c == nil {
		c = courseRolesColumn{}
	}
	return jsonValue(c)
}

func (c *courseRolesColumn) Scan(src interface{}) error {
	return jsonScan(src, c)
}

type userRow struct {
	ID           string            `db:"id"`
	Name         string            `db:"name"`
	Username     string            `db:"username"`
	Email        string            `db:"email"`
	IsActive     bool              `db:"is_active"`
	IsSuperadmin bool              `db:"is_superadmin"`
	OrgAdminOf   pq.StringArray    `db:"org_admin_of"`
	CourseRoles  courseRolesColumn `db:"course_roles"`
	PasswordHash []byte            `db:"password_hash"`
	CreatedAt    time.Time         `db:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at"`
	LastLogin    null.Time         `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsSuperadmin: usr.IsSuperadmin,
		OrgAdminOf:   usr.OrgAdminOf,
		CourseRoles:  usr.CourseRoles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
	if usr.IsActive != nil {
		row.IsActive = *usr.IsActive
	}
	return row
}

func (row userRow) toUser() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username,
		Email:        row.Email,
		IsSuperadmin: row.IsSuperadmin,
		OrgAdminOf:   row.OrgAdminOf,
		CourseRoles:  row.CourseRoles,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
	usr.SetActive(row.IsActive)
	return usr
}

func (repo *userRepository) queryRows(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]user.User, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	var userRows []userRow
	if err = sqlx.StructScan(rows, &userRows); err != nil {
		return nil, errors.Wrap(err, "scanning users")
	}

	users := make([]user.User, len(userRows))
	for i, row := range userRows {
		users[i] = row.toUser()
	}
	return users, nil
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	q := `SELECT EXISTS (SELECT 1 FROM users WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}

	if len(excludedUsers) > 0 {
		ids := make([]string, len(excludedUsers))
		for i, usr := range excludedUsers {
			ids[i] = usr.ID
		}
		q += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	q += `)`

	q, args, err := in(q, args...)
	if err != nil {
		return err
	}

	var exists bool
	if err = executor(repo.db, exec).QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if exists {
		return user.ErrUserExists
	}
	return nil
}

const insertUserSQL = `
INSERT INTO users (id, name, username, email, is_active, is_superadmin, org_admin_of, course_roles, password_hash, created_at, updated_at, last_login)
VALUES (:id, :name, :username, :email, :is_active, :is_superadmin, :org_admin_of, :course_roles, :password_hash, :created_at, :updated_at, :last_login)`

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	q, args, err := named(insertUserSQL, newUserRow(usr))
	if err != nil {
		return user.User{}, err
	}
	if _, err = executor(repo.db, exec).ExecContext(ctx, q, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	q := `SELECT * FROM users`
	var (
		where []string
		args  []interface{}
	)

	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			where = append(where, `(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`)
			search := "%" + filter.Search + "%"
			args = append(args, search, search, search)
		}
		if filter.IsStaff != nil {
			// staff capability is resolved in SQL the same way User.IsStaff does it
			cond := `(is_superadmin OR cardinality(org_admin_of) > 0 OR course_roles @> '[{"role": "owner"}]' OR course_roles @> '[{"role": "co_lecturer"}]' OR course_roles @> '[{"role": "ta"}]')`
			if !*filter.IsStaff {
				cond = `NOT ` + cond
			}
			where = append(where, cond)
		}
		if filter.IsActive != nil {
			where = append(where, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			where = append(where, `created_at >= ?`)
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where = append(where, `created_at <= ?`)
			args = append(args, filter.CreatedTo.UTC())
		}
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}

	order := []string{"created_at ASC", "id ASC"}
	if len(ordering) > 0 {
		order = make([]string, len(ordering))
		for i, ord := range ordering {
			order[i] = ord.String()
		}
	}
	q += ` ORDER BY ` + strings.Join(order, ", ")

	return repo.queryRows(ctx, executor(repo.db, exec), rebind(q), args...)
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		q    string
		args []interface{}
	)
	switch {
	case filter.ID != "":
		q = `SELECT * FROM users WHERE id = ?`
		args = []interface{}{filter.ID}
	case filter.Username != "":
		q = `SELECT * FROM users WHERE username = ?`
		args = []interface{}{filter.Username}
	case filter.Email != "":
		q = `SELECT * FROM users WHERE email = ?`
		args = []interface{}{filter.Email}
	case len(filter.UsernameOrEmail) == 2:
		q = `SELECT * FROM users WHERE username = ? OR email = ?`
		args = []interface{}{filter.UsernameOrEmail[0], filter.UsernameOrEmail[1]}
	default:
		return user.User{}, user.ErrNotFound
	}

	users, err := repo.queryRows(ctx, executor(repo.db, exec), rebind(q+` LIMIT 1`), args...)
	if err != nil {
		return user.User{}, err
	}
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	// only save set fields
	sets := []string{"is_superadmin = :is_superadmin"}
	if usr.Name != "" {
		sets = append(sets, "name = :name")
	}
	if usr.Username != "" {
		sets = append(sets, "username = :username")
	}
	if usr.Email != "" {
		sets = append(sets, "email = :email")
	}
	if usr.IsActive != nil {
		sets = append(sets, "is_active = :is_active")
	}
	if usr.OrgAdminOf != nil {
		sets = append(sets, "org_admin_of = :org_admin_of")
	}
	if usr.CourseRoles != nil {
		sets = append(sets, "course_roles = :course_roles")
	}
	if usr.PasswordHash != nil {
		sets = append(sets, "password_hash = :password_hash")
	}
	if !usr.LastLogin.IsZero() {
		sets = append(sets, "last_login = :last_login")
	}
	if !usr.UpdatedAt.IsZero() {
		sets = append(sets, "updated_at = :updated_at")
	}

	q := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = :id RETURNING *`
	q, args, err := named(q, newUserRow(usr))
	if err != nil {
		return user.User{}, err
	}

	users, err := repo.queryRows(ctx, executor(repo.db, exec), q, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID != "" {
		updated, err := repo.UpdateUser(ctx, usr, exec...)
		if err == nil {
			return updated, nil
		}
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
	}
	return repo.CreateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q, args, err := in(`DELETE FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return 0, err
	}

	res, err := executor(repo.db, exec).ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(n), nil
}
