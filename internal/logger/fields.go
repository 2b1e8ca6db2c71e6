package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldStage    = "stage"
	FieldJobID    = "job_id"
	FieldCompany  = "company"
	FieldTitle    = "title"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace
// and omitting entries with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// JobFields identifies a job in log entries.
func JobFields(job *jobs.Job) []zap.Field {
	if job == nil {
		return nil
	}
	return StringFields(
		StringField{Key: FieldJobID, Value: job.ID},
		StringField{Key: FieldCompany, Value: job.Company},
		StringField{Key: FieldTitle, Value: job.Title},
	)
}

// ForStage names the pipeline stage on every entry.
func ForStage(logger *zap.Logger, stage string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldStage, Value: stage})...)
}
