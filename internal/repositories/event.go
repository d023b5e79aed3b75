package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"kiddeo/internal/filter"
	"kiddeo/internal/models"
)

const eventColumns = `id, title, description, city, category, status, start_date, end_date,
	age_from, age_to, age_groups, is_paid, tickets, view_count, is_popular, is_promoted,
	priority, vendor_id, image_url, created_at, updated_at`

// eventFieldColumns whitelists the columns predicates may reference.
var eventFieldColumns = map[filter.Field]string{
	filter.FieldID:          "id",
	filter.FieldTitle:       "title",
	filter.FieldDescription: "description",
	filter.FieldCity:        "city",
	filter.FieldCategory:    "category",
	filter.FieldStatus:      "status",
	filter.FieldStartDate:   "start_date",
	filter.FieldEndDate:     "end_date",
	filter.FieldAgeFrom:     "age_from",
	filter.FieldAgeTo:       "age_to",
	filter.FieldAgeGroups:   "age_groups",
	filter.FieldIsPaid:      "is_paid",
	filter.FieldTickets:     "tickets",
	filter.FieldViewCount:   "view_count",
	filter.FieldIsPopular:   "is_popular",
	filter.FieldIsPromoted:  "is_promoted",
	filter.FieldPriority:    "priority",
}

// EventRepository is the Postgres event store.
type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create validates and inserts an event
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO events (title, description, city, category, status, start_date, end_date,
			age_from, age_to, age_groups, is_paid, tickets, view_count, is_popular, is_promoted,
			priority, vendor_id, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
		RETURNING id, created_at, updated_at`

	now := time.Now().UTC()
	err := r.db.QueryRowxContext(ctx, query,
		e.Title, e.Description, e.City, e.Category, e.Status, e.StartDate, e.EndDate,
		e.AgeFrom, e.AgeTo, e.AgeGroups, e.IsPaid, e.Tickets, e.ViewCount, e.IsPopular, e.IsPromoted,
		e.Priority, e.VendorID, e.ImageURL, now,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	var e models.Event
	err := r.db.GetContext(ctx, &e, "SELECT "+eventColumns+" FROM events WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

func (r *EventRepository) FindMany(ctx context.Context, p filter.Predicate, order []filter.OrderBy, page filter.Pagination) ([]*models.Event, error) {
	qb := newQueryBuilder()
	query, err := qb.selectEvents(p, order, page)
	if err != nil {
		return nil, err
	}

	events := []*models.Event{}
	if err := r.db.SelectContext(ctx, &events, query, qb.args...); err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) Count(ctx context.Context, p filter.Predicate) (int, error) {
	qb := newQueryBuilder()
	where, err := qb.where(p)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM events WHERE "+where, qb.args...); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *EventRepository) FindFirst(ctx context.Context, p filter.Predicate, order []filter.OrderBy) (*models.Event, error) {
	events, err := r.FindMany(ctx, p, order, filter.Pagination{Take: 1})
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// queryBuilder compiles predicates into a WHERE clause with positional args.
type queryBuilder struct {
	args     []interface{}
	argIndex int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{argIndex: 1}
}

func (qb *queryBuilder) arg(v interface{}) string {
	qb.args = append(qb.args, v)
	placeholder := fmt.Sprintf("$%d", qb.argIndex)
	qb.argIndex++
	return placeholder
}

func (qb *queryBuilder) selectEvents(p filter.Predicate, order []filter.OrderBy, page filter.Pagination) (string, error) {
	where, err := qb.where(p)
	if err != nil {
		return "", err
	}
	query := "SELECT " + eventColumns + " FROM events WHERE " + where

	orderBy, err := orderClause(order)
	if err != nil {
		return "", err
	}
	query += orderBy

	if page.Take > 0 {
		query += " LIMIT " + qb.arg(page.Take)
	}
	if page.Skip > 0 {
		query += " OFFSET " + qb.arg(page.Skip)
	}
	return query, nil
}

func (qb *queryBuilder) where(p filter.Predicate) (string, error) {
	switch p := p.(type) {
	case nil:
		return "TRUE", nil
	case filter.And:
		return qb.join(p, " AND ", "TRUE")
	case filter.Or:
		return qb.join(p, " OR ", "FALSE")
	case filter.Compare:
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		switch p.Op {
		case filter.OpEq, filter.OpNe, filter.OpLt, filter.OpLte, filter.OpGt, filter.OpGte:
		default:
			return "", fmt.Errorf("unsupported operator %q", p.Op)
		}
		return fmt.Sprintf("%s %s %s", col, p.Op, qb.arg(p.Value)), nil
	case filter.Contains:
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		op := "LIKE"
		if p.Fold {
			op = "ILIKE"
		}
		return fmt.Sprintf("%s %s %s", col, op, qb.arg("%"+escapeLike(p.Substr)+"%")), nil
	case filter.In:
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		if len(p.Values) == 0 {
			return "FALSE", nil
		}
		return fmt.Sprintf("%s = ANY(%s)", col, qb.arg(pq.Array(p.Values))), nil
	case filter.IsNull:
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		return col + " IS NULL", nil
	case filter.Nothing:
		return "FALSE", nil
	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

func (qb *queryBuilder) join(children []filter.Predicate, sep, empty string) (string, error) {
	if len(children) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		clause, err := qb.where(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func orderClause(order []filter.OrderBy) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(order))
	for _, o := range order {
		col, err := column(o.Field)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		nulls := "NULLS FIRST"
		if o.NullsLast {
			nulls = "NULLS LAST"
		}
		keys = append(keys, fmt.Sprintf("%s %s %s", col, dir, nulls))
	}
	return " ORDER BY " + strings.Join(keys, ", "), nil
}

func column(f filter.Field) (string, error) {
	col, ok := eventFieldColumns[f]
	if !ok {
		return "", fmt.Errorf("unknown event field %q", f)
	}
	return col, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
