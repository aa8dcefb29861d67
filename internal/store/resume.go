package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/resumedrop/apiserver/types"
)

// ResumeRepository handles persistence for resume records.
type ResumeRepository struct {
	db *sql.DB
}

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

func (r *ResumeRepository) Create(ctx context.Context, resume types.Resume) (types.Resume, error) {
	resume.UploadDate = time.Now()

	const query = `
		INSERT INTO resumes (user_id, name, submission_date, file_path, file_name, upload_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		resume.UserID,
		resume.Name,
		resume.SubmissionDate,
		resume.FilePath,
		resume.FileName,
		resume.UploadDate,
	).Scan(&resume.ID); err != nil {
		return types.Resume{}, err
	}
	return resume, nil
}

// ListByUser returns the user's resumes, newest upload first. The
// user_id predicate is always bound; there is no unscoped listing.
func (r *ResumeRepository) ListByUser(ctx context.Context, userID int) ([]types.Resume, error) {
	const query = `
		SELECT id, user_id, name, submission_date, file_path, file_name, upload_date
		FROM resumes
		WHERE user_id = $1
		ORDER BY upload_date DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resumes := make([]types.Resume, 0)
	for rows.Next() {
		var resume types.Resume
		if err := rows.Scan(
			&resume.ID,
			&resume.UserID,
			&resume.Name,
			&resume.SubmissionDate,
			&resume.FilePath,
			&resume.FileName,
			&resume.UploadDate,
		); err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resumes, nil
}
