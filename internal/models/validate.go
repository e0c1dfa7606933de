package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator instances cache struct metadata and are safe
// for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation over any record. Every record is
// validated on construction and again on reload from disk.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ValidateUnified enforces the payload invariant on top of tag validation:
// exactly one typed payload is populated and it matches the evidence type.
func ValidateUnified(u *UnifiedAnalysis) error {
	if err := Validate(u); err != nil {
		return err
	}
	populated := 0
	if u.Document != nil {
		populated++
	}
	if u.Image != nil {
		populated++
	}
	if u.Email != nil {
		populated++
	}
	if populated != 1 {
		return fmt.Errorf("unified analysis %s: exactly one typed payload required, got %d", ShortSHA(u.SHA256), populated)
	}
	switch u.EvidenceType {
	case EvidenceDocument:
		if u.Document == nil {
			return fmt.Errorf("unified analysis %s: evidence_type document but document payload is nil", ShortSHA(u.SHA256))
		}
	case EvidenceImage:
		if u.Image == nil {
			return fmt.Errorf("unified analysis %s: evidence_type image but image payload is nil", ShortSHA(u.SHA256))
		}
	case EvidenceEmail:
		if u.Email == nil {
			return fmt.Errorf("unified analysis %s: evidence_type email but email payload is nil", ShortSHA(u.SHA256))
		}
	default:
		return fmt.Errorf("unified analysis %s: evidence type %q is not analyzable", ShortSHA(u.SHA256), u.EvidenceType)
	}
	return nil
}

// ValidateCustodyAppend checks that next extends prev without shortening or
// reordering it.
func ValidateCustodyAppend(prev, next *CustodyChain) error {
	if len(next.Events) < len(prev.Events) {
		return fmt.Errorf("custody chain for %s shortened: %d -> %d events", ShortSHA(prev.SHA256), len(prev.Events), len(next.Events))
	}
	for i := range prev.Events {
		if !prev.Events[i].TS.Equal(next.Events[i].TS) || prev.Events[i].Action != next.Events[i].Action {
			return fmt.Errorf("custody chain for %s reordered at event %d", ShortSHA(prev.SHA256), i)
		}
	}
	return nil
}

// ShortSHA truncates a SHA-256 to 8 hex characters for display.
func ShortSHA(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
