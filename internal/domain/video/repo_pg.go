package video

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const videoSelect = `
	SELECT v.id, v.doctor_id, v.title, v.description, v.video_key, v.thumbnail_key,
		v.view_count, v.created_at, v.updated_at,
		(SELECT COUNT(*) FROM video_like l WHERE l.video_id = v.id) AS like_count,
		EXISTS (SELECT 1 FROM video_like l WHERE l.video_id = v.id AND l.user_id = $1) AS liked
	FROM video v`

func scanVideo(row pgx.Row) (*Video, error) {
	var v Video
	err := row.Scan(&v.ID, &v.DoctorID, &v.Title, &v.Description, &v.VideoKey,
		&v.ThumbnailKey, &v.ViewCount, &v.CreatedAt, &v.UpdatedAt, &v.LikeCount, &v.Liked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repoPG) Create(ctx context.Context, v *Video) error {
	v.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO video (id, doctor_id, title, description, video_key, thumbnail_key)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		v.ID, v.DoctorID, v.Title, v.Description, v.VideoKey, v.ThumbnailKey).
		Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id, viewerID uuid.UUID) (*Video, error) {
	return scanVideo(r.pool.QueryRow(ctx, videoSelect+` WHERE v.id = $2`, viewerID, id))
}

func (r *repoPG) UpdateMeta(ctx context.Context, id uuid.UUID, title, description *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE video SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			updated_at = NOW()
		WHERE id = $1`, id, title, description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM video WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, viewerID uuid.UUID, doctorID *uuid.UUID, limit, offset int) ([]*Video, int, error) {
	countQ := `SELECT COUNT(*) FROM video`
	listQ := videoSelect
	countArgs := []interface{}{}
	listArgs := []interface{}{viewerID}
	if doctorID != nil {
		countQ += ` WHERE doctor_id = $1`
		countArgs = append(countArgs, *doctorID)
		listQ += ` WHERE v.doctor_id = $2 ORDER BY v.created_at DESC LIMIT $3 OFFSET $4`
		listArgs = append(listArgs, *doctorID, limit, offset)
	} else {
		listQ += ` ORDER BY v.created_at DESC LIMIT $2 OFFSET $3`
		listArgs = append(listArgs, limit, offset)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, listQ, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *repoPG) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE video SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}

func (r *repoPG) ToggleLike(ctx context.Context, id, viewerID uuid.UUID) (bool, int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM video_like WHERE video_id = $1 AND user_id = $2`, id, viewerID)
	if err != nil {
		return false, 0, err
	}
	liked := false
	if tag.RowsAffected() == 0 {
		if _, err := r.pool.Exec(ctx,
			`INSERT INTO video_like (video_id, user_id) VALUES ($1,$2)`, id, viewerID); err != nil {
			return false, 0, err
		}
		liked = true
	}

	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM video_like WHERE video_id = $1`, id).Scan(&count); err != nil {
		return liked, 0, err
	}
	return liked, count, nil
}
