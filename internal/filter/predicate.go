package filter

// Field names an event attribute a predicate or ordering can refer to.
type Field string

const (
	FieldID          Field = "id"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCity        Field = "city"
	FieldCategory    Field = "category"
	FieldStatus      Field = "status"
	FieldStartDate   Field = "start_date"
	FieldEndDate     Field = "end_date"
	FieldAgeFrom     Field = "age_from"
	FieldAgeTo       Field = "age_to"
	FieldAgeGroups   Field = "age_groups"
	FieldIsPaid      Field = "is_paid"
	FieldTickets     Field = "tickets"
	FieldViewCount   Field = "view_count"
	FieldIsPopular   Field = "is_popular"
	FieldIsPromoted  Field = "is_promoted"
	FieldPriority    Field = "priority"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Predicate is an immutable boolean expression over an event. Stores either
// compile it (SQL) or evaluate it with Match. Comparisons against a null
// field are false, as in SQL.
type Predicate interface {
	predicate()
}

// And is true when every child is true. An empty And is true.
type And []Predicate

// Or is true when any child is true. An empty Or is false.
type Or []Predicate

// Compare tests Field Op Value. Value is a string, int, bool or time.Time.
type Compare struct {
	Field Field
	Op    Op
	Value any
}

// Contains is substring containment on a text field, optionally case-insensitive.
type Contains struct {
	Field  Field
	Substr string
	Fold   bool
}

// In is string equality against any of Values.
type In struct {
	Field  Field
	Values []string
}

// IsNull is true when the field holds no value.
type IsNull struct {
	Field Field
}

// Nothing matches no event.
type Nothing struct{}

func (And) predicate()      {}
func (Or) predicate()       {}
func (Compare) predicate()  {}
func (Contains) predicate() {}
func (In) predicate()       {}
func (IsNull) predicate()   {}
func (Nothing) predicate()  {}

// OrderBy is one sort key.
type OrderBy struct {
	Field     Field
	Desc      bool
	NullsLast bool
}

// RankingOrder is the listing order: sponsored first, then popularity, then
// chronology. The trailing id key makes the order total.
var RankingOrder = []OrderBy{
	{Field: FieldPriority, NullsLast: true},
	{Field: FieldIsPromoted, Desc: true},
	{Field: FieldIsPopular, Desc: true},
	{Field: FieldViewCount, Desc: true},
	{Field: FieldStartDate},
	{Field: FieldID},
}

// Pagination selects a window of results. Take 0 means no limit.
type Pagination struct {
	Skip int
	Take int
}
