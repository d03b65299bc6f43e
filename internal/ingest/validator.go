package ingest

import (
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
)

// Validator applies the acceptance gate to raw documents. Rejections are
// expected during a normal run and are skipped by callers, not treated as
// failures.
type Validator struct {
	MinTokenCount int
}

// Validate returns ErrDocumentRejected when the document is too short to
// index. Short files are typically corrupt downloads or boilerplate-only
// texts.
func (v Validator) Validate(doc RawDocument) error {
	if doc.TokenCount < v.MinTokenCount {
		return apperrors.Newf(
			apperrors.ErrDocumentRejected, 422,
			"document %d has %d tokens, need at least %d",
			doc.ExternalID, doc.TokenCount, v.MinTokenCount,
		)
	}
	return nil
}
