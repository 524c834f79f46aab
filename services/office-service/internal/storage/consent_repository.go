package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/libs/db"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
)

type ConsentRepository struct {
	pool *db.Pool
}

func NewConsentRepository(pool *db.Pool) *ConsentRepository {
	return &ConsentRepository{pool: pool}
}

// PublishDocument creates the next version of the consent text. Published
// versions are never updated; the version number is assigned inside the
// insert so concurrent publishes cannot collide.
func (r *ConsentRepository) PublishDocument(ctx context.Context, title, body string) (model.ConsentDocument, error) {
	doc := model.ConsentDocument{
		ID:       uuid.NewString(),
		Title:    title,
		Body:     body,
		Checksum: model.ConsentChecksum(body),
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO consent_documents (id, version, title, body, checksum)
		VALUES ($1, (SELECT COALESCE(MAX(version), 0) + 1 FROM consent_documents), $2, $3, $4)
		RETURNING version, published_at
	`, doc.ID, doc.Title, doc.Body, doc.Checksum).Scan(&doc.Version, &doc.PublishedAt)
	if err != nil {
		return model.ConsentDocument{}, err
	}
	return doc, nil
}

func scanConsentDocument(row pgx.Row) (model.ConsentDocument, error) {
	var doc model.ConsentDocument
	err := row.Scan(&doc.ID, &doc.Version, &doc.Title, &doc.Body, &doc.Checksum, &doc.PublishedAt)
	return doc, err
}

// Current returns the latest published version; new signatures always
// reference this one.
func (r *ConsentRepository) Current(ctx context.Context) (model.ConsentDocument, error) {
	return scanConsentDocument(r.pool.QueryRow(ctx, `
		SELECT id::text, version, title, body, checksum, published_at
		FROM consent_documents
		ORDER BY version DESC
		LIMIT 1
	`))
}

func (r *ConsentRepository) ListDocuments(ctx context.Context) ([]model.ConsentDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, version, title, body, checksum, published_at
		FROM consent_documents
		ORDER BY version DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.ConsentDocument
	for rows.Next() {
		doc, err := scanConsentDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return docs, nil
}

// RecordSignature ties a customer to one immutable document version. A
// customer signs a given version at most once.
func (r *ConsentRepository) RecordSignature(ctx context.Context, sig model.ConsentSignature) (model.ConsentSignature, error) {
	sig.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO consent_signatures (id, customer_id, document_id, signature_image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, document_id) DO UPDATE SET id = consent_signatures.id
		RETURNING id::text, signed_at
	`, sig.ID, sig.CustomerID, sig.DocumentID, sig.SignatureImage).Scan(&sig.ID, &sig.SignedAt)
	if err != nil {
		return model.ConsentSignature{}, err
	}
	return sig, nil
}

// CustomerStatus reports whether the customer has signed the latest
// published version. This is the one place the GDPR lookup joins tables.
func (r *ConsentRepository) CustomerStatus(ctx context.Context, customerID string) (signedVersion int, currentVersion int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			COALESCE((
				SELECT MAX(d.version)
				FROM consent_signatures s
				JOIN consent_documents d ON d.id = s.document_id
				WHERE s.customer_id = $1
			), 0),
			COALESCE((SELECT MAX(version) FROM consent_documents), 0)
	`, customerID).Scan(&signedVersion, &currentVersion)
	return signedVersion, currentVersion, err
}
