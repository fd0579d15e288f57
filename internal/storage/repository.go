package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"insightstream/internal/constants"
	"insightstream/pkg/errors"
	"insightstream/pkg/metrics"
	"insightstream/pkg/models"
)

// ListFilter narrows feedback queries. Zero values mean "no filter".
type ListFilter struct {
	Category       string
	Sentiment      string
	SourcePlatform string
	Limit          int
	Offset         int
}

type Repository interface {
	Upsert(ctx context.Context, record *models.EnrichedRecord) error
	GetByMessageID(ctx context.Context, messageID string) (*models.EnrichedRecord, error)
	List(ctx context.Context, filter ListFilter) ([]models.EnrichedRecord, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// Upsert writes one enriched record keyed on message_id. Re-delivery of the
// same record overwrites the previous row, which makes duplicate processing
// harmless.
func (r *PostgresRepository) Upsert(ctx context.Context, record *models.EnrichedRecord) error {
	start := time.Now()

	authorInfo, err := json.Marshal(record.AuthorInfo)
	if err != nil {
		return errors.ErrValidation.WithMessage("failed to marshal author_info").WithCause(err)
	}
	rawMetadata, err := json.Marshal(record.RawMetadata)
	if err != nil {
		return errors.ErrValidation.WithMessage("failed to marshal raw_metadata").WithCause(err)
	}
	competitors, err := json.Marshal(record.DetectedCompetitors)
	if err != nil {
		return errors.ErrValidation.WithMessage("failed to marshal detected_competitors").WithCause(err)
	}

	query := `
		INSERT INTO enriched_feedback (
			message_id, source_platform, timestamp_utc, text_content,
			author_info, original_url, raw_metadata, sentiment,
			category, detected_competitors, auto_reply_text, processing_timestamp_utc
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		) ON CONFLICT (message_id) DO UPDATE SET
			source_platform = EXCLUDED.source_platform,
			timestamp_utc = EXCLUDED.timestamp_utc,
			text_content = EXCLUDED.text_content,
			author_info = EXCLUDED.author_info,
			original_url = EXCLUDED.original_url,
			raw_metadata = EXCLUDED.raw_metadata,
			sentiment = EXCLUDED.sentiment,
			category = EXCLUDED.category,
			detected_competitors = EXCLUDED.detected_competitors,
			auto_reply_text = EXCLUDED.auto_reply_text,
			processing_timestamp_utc = EXCLUDED.processing_timestamp_utc,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query,
		record.MessageID,
		record.SourcePlatform,
		record.TimestampUTC,
		record.TextContent,
		authorInfo,
		record.OriginalURL,
		rawMetadata,
		string(record.Sentiment),
		string(record.Category),
		competitors,
		record.AutoReplyText,
		record.ProcessingTimestampUTC,
	)
	if err != nil {
		metrics.StorageUpsertsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to upsert feedback: %w", err)
	}

	metrics.StorageUpsertsTotal.WithLabelValues("success").Inc()
	metrics.ObserveStorageQueryDuration(time.Since(start), "upsert")
	return nil
}

const selectColumns = `
	message_id, source_platform, timestamp_utc, text_content,
	author_info, original_url, raw_metadata, sentiment,
	category, detected_competitors, auto_reply_text, processing_timestamp_utc
`

func (r *PostgresRepository) GetByMessageID(ctx context.Context, messageID string) (*models.EnrichedRecord, error) {
	start := time.Now()

	query := `SELECT ` + selectColumns + ` FROM enriched_feedback WHERE message_id = $1`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, messageID))
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithMessage(fmt.Sprintf("feedback not found: %s", messageID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}

	metrics.ObserveStorageQueryDuration(time.Since(start), "get")
	return record, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]models.EnrichedRecord, error) {
	start := time.Now()

	query := `SELECT ` + selectColumns + ` FROM enriched_feedback WHERE 1=1`
	args := []interface{}{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Sentiment != "" {
		args = append(args, filter.Sentiment)
		query += fmt.Sprintf(" AND sentiment = $%d", len(args))
	}
	if filter.SourcePlatform != "" {
		args = append(args, filter.SourcePlatform)
		query += fmt.Sprintf(" AND source_platform = $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY processing_timestamp_utc DESC LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var records []models.EnrichedRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	metrics.ObserveStorageQueryDuration(time.Since(start), "list")
	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.EnrichedRecord, error) {
	var (
		record      models.EnrichedRecord
		authorInfo  []byte
		rawMetadata []byte
		competitors []byte
		autoReply   sql.NullString
	)

	if err := row.Scan(
		&record.MessageID,
		&record.SourcePlatform,
		&record.TimestampUTC,
		&record.TextContent,
		&authorInfo,
		&record.OriginalURL,
		&rawMetadata,
		&record.Sentiment,
		&record.Category,
		&competitors,
		&autoReply,
		&record.ProcessingTimestampUTC,
	); err != nil {
		return nil, err
	}

	if len(authorInfo) > 0 {
		if err := json.Unmarshal(authorInfo, &record.AuthorInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal author_info: %w", err)
		}
	}
	if len(rawMetadata) > 0 {
		if err := json.Unmarshal(rawMetadata, &record.RawMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal raw_metadata: %w", err)
		}
	}
	record.DetectedCompetitors = []string{}
	if len(competitors) > 0 {
		if err := json.Unmarshal(competitors, &record.DetectedCompetitors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal detected_competitors: %w", err)
		}
	}
	if autoReply.Valid {
		record.AutoReplyText = &autoReply.String
	}

	return &record, nil
}
