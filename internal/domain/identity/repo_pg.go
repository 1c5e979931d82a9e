package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const userCols = `id, email, password_hash, first_name, last_name, role,
	avatar_url, email_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.AvatarURL, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO app_user (id, email, password_hash, first_name, last_name, role, avatar_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.AvatarURL).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *repoPG) CreateDoctorProfile(ctx context.Context, p *DoctorProfile) error {
	if p.ApprovalStatus == "" {
		p.ApprovalStatus = ApprovalPending
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_profile (user_id, specialty, bio, license_number, approval_status)
		VALUES ($1,$2,$3,$4,$5)`,
		p.UserID, p.Specialty, p.Bio, p.LicenseNumber, p.ApprovalStatus)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM app_user WHERE id = $1`, id)
	return err
}

func (r *repoPG) getProfile(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	var p DoctorProfile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, specialty, bio, license_number, approval_status
		FROM doctor_profile WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Specialty, &p.Bio, &p.LicenseNumber, &p.ApprovalStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) withProfile(ctx context.Context, u *User, err error) (*UserWithProfile, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := &UserWithProfile{User: *u}
	if u.Role == "doctor" {
		p, err := r.getProfile(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		out.Profile = p
	}
	return out, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*UserWithProfile, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
	return r.withProfile(ctx, u, err)
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*UserWithProfile, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE lower(email) = lower($1)`, email))
	return r.withProfile(ctx, u, err)
}

func (r *repoPG) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE app_user SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			avatar_url = COALESCE($4, avatar_url),
			updated_at = NOW()
		WHERE id = $1`,
		id, upd.FirstName, upd.LastName, upd.AvatarURL)
	return err
}

func (r *repoPG) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE app_user SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) SetApprovalStatus(ctx context.Context, userID uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE doctor_profile SET approval_status = $2 WHERE user_id = $1`, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListDoctors(ctx context.Context, approvalStatus string, limit, offset int) ([]*UserWithProfile, int, error) {
	where := `FROM app_user u JOIN doctor_profile p ON p.user_id = u.id`
	args := []interface{}{}
	if approvalStatus != "" {
		where += ` WHERE p.approval_status = $1`
		args = append(args, approvalStatus)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role,
		u.avatar_url, u.email_verified, u.created_at, u.updated_at,
		p.user_id, p.specialty, p.bio, p.license_number, p.approval_status ` + where +
		` ORDER BY u.created_at DESC`
	if approvalStatus != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*UserWithProfile
	for rows.Next() {
		var u UserWithProfile
		var p DoctorProfile
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.Role, &u.AvatarURL, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt,
			&p.UserID, &p.Specialty, &p.Bio, &p.LicenseNumber, &p.ApprovalStatus); err != nil {
			return nil, 0, err
		}
		u.Profile = &p
		items = append(items, &u)
	}
	return items, total, rows.Err()
}
