package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
)

const (
	evidenceKeyPrefix = "form-submitted-"
	evidenceValue     = "true"
)

// Evidence records which roll numbers already submitted on this profile.
// It survives logouts.
type Evidence struct {
	kv core.LocalStorage
}

func NewEvidence(kv core.LocalStorage) *Evidence {
	return &Evidence{kv: kv}
}

func EvidenceKey(rollNumber string) string {
	return evidenceKeyPrefix + rollNumber
}

func (e *Evidence) IsSubmitted(ctx context.Context, rollNumber string) (bool, error) {
	val, err := e.kv.Get(ctx, EvidenceKey(rollNumber))
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "reading submission evidence")
	}
	return val == evidenceValue, nil
}

func (e *Evidence) MarkSubmitted(ctx context.Context, rollNumber string) error {
	if err := e.kv.Set(ctx, EvidenceKey(rollNumber), evidenceValue); err != nil {
		return errors.Wrap(err, "writing submission evidence")
	}
	return nil
}

// Clear forgets a submission, e.g. one whose session could not be saved.
func (e *Evidence) Clear(ctx context.Context, rollNumber string) error {
	if err := e.kv.Delete(ctx, EvidenceKey(rollNumber)); err != nil && errors.Cause(err) != core.ErrKeyNotFound {
		return errors.Wrap(err, "clearing submission evidence")
	}
	return nil
}
