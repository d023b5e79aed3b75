package filter

import (
	"strings"
	"time"

	"kiddeo/internal/models"
)

const endOfDay = 24*time.Hour - time.Millisecond

// BuildBasePredicate builds the store predicate for a city and criteria.
// Price buckets and quick filters are not part of it; Search applies them.
func (e *Engine) BuildBasePredicate(city string, criteria models.FilterCriteria) Predicate {
	return e.buildPredicate(city, criteria, nil)
}

func (e *Engine) buildPredicate(city string, criteria models.FilterCriteria, extraAges []models.Range) Predicate {
	p := And{
		Compare{Field: FieldStatus, Op: OpEq, Value: string(models.StatusActive)},
		Compare{Field: FieldCity, Op: OpEq, Value: e.catalog.CityName(city)},
	}

	if q := strings.TrimSpace(criteria.Query); q != "" {
		p = append(p, Or{
			Contains{Field: FieldTitle, Substr: q, Fold: true},
			Contains{Field: FieldDescription, Substr: q, Fold: true},
		})
	}

	p = append(p, e.datePredicate(criteria.DateFrom, criteria.DateTo)...)

	// Direct age bounds apply to the event's lower age only.
	if criteria.AgeMin != nil {
		p = append(p, Compare{Field: FieldAgeFrom, Op: OpGte, Value: *criteria.AgeMin})
	}
	if criteria.AgeMax != nil {
		p = append(p, Compare{Field: FieldAgeFrom, Op: OpLte, Value: *criteria.AgeMax})
	}

	if criteria.FreeOnly {
		p = append(p, e.freePredicate())
	}

	if e.cfg.CategoryPushdown && len(criteria.Categories) > 0 {
		p = append(p, In{Field: FieldCategory, Values: append([]string(nil), criteria.Categories...)})
	}

	ages := append(e.ExpandAgeBuckets(criteria.AgeBuckets), extraAges...)
	if len(ages) > 0 {
		anyAge := make(Or, 0, len(ages))
		for _, r := range ages {
			anyAge = append(anyAge, AgeRangeToPredicate(r))
		}
		p = append(p, anyAge)
	}

	return p
}

func (e *Engine) datePredicate(from, to *time.Time) []Predicate {
	switch {
	case from != nil && to != nil:
		start, end := *from, *to
		if e.cfg.DatePolicy == DatePolicyStrictDay {
			start = dayStart(start)
			end = dayStart(end).Add(endOfDay)
		}
		return []Predicate{
			Compare{Field: FieldStartDate, Op: OpLte, Value: end},
			Compare{Field: FieldEndDate, Op: OpGte, Value: start},
		}
	case from != nil:
		return []Predicate{Compare{Field: FieldEndDate, Op: OpGte, Value: *from}}
	case to != nil:
		return []Predicate{Compare{Field: FieldStartDate, Op: OpLte, Value: *to}}
	default:
		return []Predicate{Compare{Field: FieldEndDate, Op: OpGte, Value: e.cfg.Now()}}
	}
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *Engine) freePredicate() Predicate {
	free := Or{Compare{Field: FieldIsPaid, Op: OpEq, Value: false}}
	if !e.cfg.FreeTicketFallback {
		return free
	}
	return append(free,
		IsNull{Field: FieldTickets},
		Compare{Field: FieldTickets, Op: OpEq, Value: ""},
		Compare{Field: FieldTickets, Op: OpEq, Value: "[]"},
		Contains{Field: FieldTickets, Substr: `"price":0,`},
		Contains{Field: FieldTickets, Substr: `"price":0}`},
		Contains{Field: FieldTickets, Substr: `"price": 0,`},
		Contains{Field: FieldTickets, Substr: `"price": 0}`},
		Contains{Field: FieldTickets, Substr: `"price":"0"`},
	)
}
