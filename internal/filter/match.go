package filter

import (
	"strings"
	"time"

	"kiddeo/internal/models"
)

// Match evaluates p against e in memory with the same semantics stores use.
func Match(p Predicate, e *models.Event) bool {
	switch p := p.(type) {
	case nil:
		return true
	case And:
		for _, child := range p {
			if !Match(child, e) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range p {
			if Match(child, e) {
				return true
			}
		}
		return false
	case Compare:
		v, ok := fieldValue(e, p.Field)
		if !ok {
			return false
		}
		c, ok := compareValues(v, p.Value)
		if !ok {
			return false
		}
		return opHolds(p.Op, c)
	case Contains:
		v, ok := fieldValue(e, p.Field)
		if !ok {
			return false
		}
		s, isString := v.(string)
		if !isString {
			return false
		}
		if p.Fold {
			return strings.Contains(strings.ToLower(s), strings.ToLower(p.Substr))
		}
		return strings.Contains(s, p.Substr)
	case In:
		v, ok := fieldValue(e, p.Field)
		if !ok {
			return false
		}
		s, isString := v.(string)
		if !isString {
			return false
		}
		for _, want := range p.Values {
			if s == want {
				return true
			}
		}
		return false
	case IsNull:
		_, ok := fieldValue(e, p.Field)
		return !ok
	case Nothing:
		return false
	default:
		return false
	}
}

// CompareEvents orders a and b by the given keys. It returns -1, 0 or 1.
func CompareEvents(a, b *models.Event, order []OrderBy) int {
	for _, key := range order {
		av, aok := fieldValue(a, key.Field)
		bv, bok := fieldValue(b, key.Field)
		switch {
		case !aok && !bok:
			continue
		case !aok || !bok:
			// nulls sort first unless NullsLast, independent of direction
			nullFirst := !key.NullsLast
			if !aok == nullFirst {
				return -1
			}
			return 1
		}
		c, ok := compareValues(av, bv)
		if !ok || c == 0 {
			continue
		}
		if key.Desc {
			return -c
		}
		return c
	}
	return 0
}

// fieldValue returns the field's value and false when it is null.
func fieldValue(e *models.Event, f Field) (any, bool) {
	switch f {
	case FieldID:
		return e.ID, true
	case FieldTitle:
		return e.Title, true
	case FieldDescription:
		return e.Description, true
	case FieldCity:
		return e.City, true
	case FieldCategory:
		return e.Category, true
	case FieldStatus:
		return string(e.Status), true
	case FieldStartDate:
		return e.StartDate, true
	case FieldEndDate:
		return e.EndDate, true
	case FieldAgeFrom:
		return derefInt(e.AgeFrom)
	case FieldAgeTo:
		return derefInt(e.AgeTo)
	case FieldAgeGroups:
		return e.AgeGroups, true
	case FieldIsPaid:
		if e.IsPaid == nil {
			return nil, false
		}
		return *e.IsPaid, true
	case FieldTickets:
		if e.Tickets == nil {
			return nil, false
		}
		return *e.Tickets, true
	case FieldViewCount:
		return e.ViewCount, true
	case FieldIsPopular:
		return e.IsPopular, true
	case FieldIsPromoted:
		return e.IsPromoted, true
	case FieldPriority:
		return derefInt(e.Priority)
	default:
		return nil, false
	}
}

func derefInt(v *int) (any, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

// compareValues returns the sign of a-b for values of the same kind.
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		if !ok {
			return 0, false
		}
		return cmpOrdered(av, bv), true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	default:
		return 0, false
	}
}

func cmpOrdered(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func opHolds(op Op, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	default:
		return false
	}
}
