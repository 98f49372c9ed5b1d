package postgres

import (
	"context"

	"medivault/internal/domain/documents"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentsRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentsRepo(pool *pgxpool.Pool) *DocumentsRepo {
	return &DocumentsRepo{pool: pool}
}

const documentColumns = `
	id, patient_id, uploaded_by,
	file_name, file_path, file_type, document_type, description, hospital_name,
	date_of_document, tags,
	active, trashed, trashed_at, trashed_by,
	created_at, updated_at`

func (r *DocumentsRepo) Create(ctx context.Context, d documents.Document) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		d.ID, d.PatientID, d.UploadedBy,
		d.FileName, d.FilePath, d.FileType, d.DocumentType, d.Description, d.HospitalName,
		d.DateOfDocument, tagsOrEmpty(d.Tags),
		d.Active, d.Trashed, d.TrashedAt, d.TrashedBy,
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentsRepo) Update(ctx context.Context, d documents.Document) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET file_name = $2, file_path = $3, file_type = $4, document_type = $5,
		    description = $6, hospital_name = $7, date_of_document = $8, tags = $9,
		    active = $10, trashed = $11, trashed_at = $12, trashed_by = $13,
		    updated_at = $14
		WHERE id = $1
	`,
		d.ID, d.FileName, d.FilePath, d.FileType, d.DocumentType,
		d.Description, d.HospitalName, d.DateOfDocument, tagsOrEmpty(d.Tags),
		d.Active, d.Trashed, d.TrashedAt, d.TrashedBy,
		d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return documents.ErrNotFound
	}
	return nil
}

func (r *DocumentsRepo) GetByID(ctx context.Context, id string) (documents.Document, error) {
	d, err := scanDocument(r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = $1
	`, id))
	if isNoRows(err) {
		return documents.Document{}, documents.ErrNotFound
	}
	return d, err
}

func (r *DocumentsRepo) ListByPatient(ctx context.Context, patientID string, trashed bool) ([]documents.Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE patient_id = $1 AND trashed = $2
		ORDER BY created_at DESC
	`, patientID, trashed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]documents.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (documents.Document, error) {
	var d documents.Document
	err := row.Scan(
		&d.ID, &d.PatientID, &d.UploadedBy,
		&d.FileName, &d.FilePath, &d.FileType, &d.DocumentType, &d.Description, &d.HospitalName,
		&d.DateOfDocument, &d.Tags,
		&d.Active, &d.Trashed, &d.TrashedAt, &d.TrashedBy,
		&d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

// la columna es NOT NULL: nil iría como NULL
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
