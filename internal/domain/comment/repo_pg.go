package comment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const commentSelect = `
	SELECT c.id, c.video_id, c.author_id, u.first_name || ' ' || u.last_name AS author_name,
		c.body, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM comment_like l WHERE l.comment_id = c.id) AS like_count,
		EXISTS (SELECT 1 FROM comment_like l WHERE l.comment_id = c.id AND l.user_id = $1) AS liked
	FROM comment c
	JOIN app_user u ON u.id = c.author_id`

func scanComment(row pgx.Row) (*Comment, error) {
	var cm Comment
	err := row.Scan(&cm.ID, &cm.VideoID, &cm.AuthorID, &cm.AuthorName,
		&cm.Body, &cm.CreatedAt, &cm.UpdatedAt, &cm.LikeCount, &cm.Liked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

func (r *repoPG) Create(ctx context.Context, cm *Comment) error {
	cm.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO comment (id, video_id, author_id, body)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		cm.ID, cm.VideoID, cm.AuthorID, cm.Body).
		Scan(&cm.CreatedAt, &cm.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id, viewerID uuid.UUID) (*Comment, error) {
	return scanComment(r.pool.QueryRow(ctx, commentSelect+` WHERE c.id = $2`, viewerID, id))
}

func (r *repoPG) UpdateBody(ctx context.Context, id uuid.UUID, body string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE comment SET body = $2, updated_at = NOW() WHERE id = $1`, id, body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByVideo(ctx context.Context, videoID, viewerID uuid.UUID, limit, offset int) ([]*Comment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM comment WHERE video_id = $1`, videoID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, commentSelect+`
		WHERE c.video_id = $2
		ORDER BY c.created_at DESC
		LIMIT $3 OFFSET $4`, viewerID, videoID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Comment
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cm)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ToggleLike(ctx context.Context, id, viewerID uuid.UUID) (bool, int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM comment_like WHERE comment_id = $1 AND user_id = $2`, id, viewerID)
	if err != nil {
		return false, 0, err
	}
	liked := false
	if tag.RowsAffected() == 0 {
		if _, err := r.pool.Exec(ctx,
			`INSERT INTO comment_like (comment_id, user_id) VALUES ($1,$2)`, id, viewerID); err != nil {
			return false, 0, err
		}
		liked = true
	}

	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM comment_like WHERE comment_id = $1`, id).Scan(&count); err != nil {
		return liked, 0, err
	}
	return liked, count, nil
}
