package txn

import (
	"context"
	"errors"
	"fmt"

	"github.com/emsuite/authcore/internal/common"
)

// Rule is one validation check against an entity. Dependent rules run only
// when their parent passed. A failing critical rule stops the remaining
// rules; a failing non-critical rule is recorded and checking continues.
// Rules may read from repositories but must never touch an open transaction.
type Rule[T any] struct {
	Name      string
	Critical  bool
	Check     func(ctx context.Context, entity T) error
	Dependent []Rule[T]
}

// ValidationResult aggregates rule failures for one entity or one batch.
// It is successful iff no errors were collected.
type ValidationResult struct {
	entity string
	errs   []error
}

// NewValidationResult builds an empty (passing) result for the named entity.
func NewValidationResult(entity string) *ValidationResult {
	return &ValidationResult{entity: entity}
}

// Successful reports whether all checked rules passed.
func (v *ValidationResult) Successful() bool { return len(v.errs) == 0 }

// Errors returns the collected rule failures.
func (v *ValidationResult) Errors() []error { return v.errs }

// Add records a rule failure.
func (v *ValidationResult) Add(err error) { v.errs = append(v.errs, err) }

// Err flattens the collected failures into one error joined under
// common.ErrValidation, so callers can match both the category and the
// individual sentinel causes with errors.Is. Returns nil when successful.
func (v *ValidationResult) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	joined := append([]error{common.ErrValidation}, v.errs...)
	return fmt.Errorf("%s: %w", v.entity, errors.Join(joined...))
}

// Validate runs the ordered rules against the entity and aggregates failures.
func Validate[T any](ctx context.Context, entityName string, entity T, rules []Rule[T]) *ValidationResult {
	result := NewValidationResult(entityName)
	for _, rule := range rules {
		if !checkRule(ctx, entity, result, rule) {
			break
		}
	}
	return result
}

// ValidateAll validates every entity in the batch against the same rules,
// never failing fast: the result names each invalid entity so a caller sees
// all defects in one round trip.
func ValidateAll[T any](ctx context.Context, entityName string, entities []T, rules []Rule[T]) *ValidationResult {
	result := NewValidationResult(entityName)
	for i, entity := range entities {
		one := Validate(ctx, entityName, entity, rules)
		for _, err := range one.errs {
			result.Add(fmt.Errorf("%s: %w", entityIdent(entity, i), err))
		}
	}
	return result
}

// checkRule evaluates one rule and, on success, its dependents. It returns
// false when the chain must stop (a critical failure at any depth).
func checkRule[T any](ctx context.Context, entity T, result *ValidationResult, rule Rule[T]) bool {
	if err := rule.Check(ctx, entity); err != nil {
		result.Add(fmt.Errorf("%s: %w", rule.Name, err))
		return !rule.Critical
	}

	for _, dep := range rule.Dependent {
		if !checkRule(ctx, entity, result, dep) {
			return false
		}
	}
	return true
}

// entityIdent labels a batch member for error messages: its String() form
// when available, otherwise its 1-based position.
func entityIdent(entity any, i int) string {
	if s, ok := entity.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("entity #%d", i+1)
}
