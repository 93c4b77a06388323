package validator

import (
	"context"

	"labsight/internal/domain"
	"labsight/internal/validator/report"
)

// Validator is the interface for a single built-in validation rule.
type Validator interface {
	Validate(ctx context.Context, data *domain.ReportExtraction) []report.Result
	RuleKey() string
	RuleName() string
	RuleType() domain.ValidationRuleType
	Severity() domain.ValidationSeverity
}
