// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on internal/validation/validator.go's singleton validator
// idiom (sync.Once-built *validator.Validate, struct tags drive the rules).
// The HTTP-error-translation layer that package also provides has no
// equivalent here: this pipeline never serves a response to translate a
// validation failure into (spec.md Non-goals exclude any HTTP surface), so
// only the bare validate-and-collect-reasons half is reused.

package extract

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	eventValidator     *validator.Validate
	eventValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	eventValidatorOnce.Do(func() {
		eventValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return eventValidator
}

// ValidationFailure pairs a discarded RawEvent with the reason it failed
// validation, so the caller can log it per spec.md §4.F.3 step 6 ("discard
// invalid entries with a logged reason").
type ValidationFailure struct {
	Event  RawEvent
	Reason string
}

// ValidateRawEvents splits candidates into the ones that satisfy spec.md
// §4.F.4's schema (non-empty SourceIDs after UUID translation, event_name,
// event_description, category_tags, ConfidenceScore in [0,1]) and the ones
// that don't. SourceIDs emptiness is checked here on the model's raw IDs;
// the stricter "maps to a known post UUID" check happens once the batch's
// UUID map is available, in persist.go.
func ValidateRawEvents(events []RawEvent) (valid []RawEvent, failures []ValidationFailure) {
	v := getValidator()
	for _, e := range events {
		if len(e.SourceIDs) == 0 {
			failures = append(failures, ValidationFailure{Event: e, Reason: "source_ids is empty"})
			continue
		}
		if err := v.Struct(e); err != nil {
			failures = append(failures, ValidationFailure{Event: e, Reason: describeValidationError(err)})
			continue
		}
		valid = append(valid, e)
	}
	return valid, failures
}

func describeValidationError(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		reasons = append(reasons, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(reasons, "; ")
}
