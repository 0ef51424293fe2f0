package database

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	callbackBeforeName = "otel:before"
	callbackAfterName  = "otel:after"
	spanInstanceKey    = "otel:span"
)

var tracer = otel.Tracer("github.com/mikepea/foodgram/database")

// RegisterTracing adds GORM callbacks that wrap every statement in a client span
func RegisterTracing(db *gorm.DB) error {
	system := db.Dialector.Name()
	cb := db.Callback()

	type hook struct {
		before    func(string, func(*gorm.DB)) error
		after     func(string, func(*gorm.DB)) error
		operation string
	}
	hooks := []hook{
		{cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "gorm:create"},
		{cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "gorm:query"},
		{cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "gorm:update"},
		{cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "gorm:delete"},
		{cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "gorm:row"},
		{cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "gorm:raw"},
	}

	for _, h := range hooks {
		if err := h.before(callbackBeforeName, startSpan(h.operation, system)); err != nil {
			return err
		}
		if err := h.after(callbackAfterName, endSpan); err != nil {
			return err
		}
	}
	return nil
}

func startSpan(operation, system string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		ctx, span := tracer.Start(ctx, operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("db.system", system)),
		)
		db.Statement.Context = ctx
		db.InstanceSet(spanInstanceKey, span)
	}
}

func endSpan(db *gorm.DB) {
	v, ok := db.InstanceGet(spanInstanceKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if sql := db.Statement.SQL.String(); sql != "" {
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}
