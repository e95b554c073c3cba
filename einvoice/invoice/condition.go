package invoice

import (
	"strconv"
	"strings"
	"time"
)

// Condition boolean filter expression understood by the query endpoints,
// e.g. `buyerTin == "01234567" && (status == "ISSUED" || status == "APPROVED")`.
type Condition string

const timeLayout = "2006-01-02T15:04:05.000Z"

func Eq(field, value string) Condition {
	return Condition(field + " == " + strconv.Quote(value))
}

func Gte(field string, t time.Time) Condition {
	return Condition(field + " >= " + strconv.Quote(t.UTC().Format(timeLayout)))
}

func Lt(field string, t time.Time) Condition {
	return Condition(field + " < " + strconv.Quote(t.UTC().Format(timeLayout)))
}

// In field equal to any of values.
func In(field string, values ...string) Condition {
	parts := make([]Condition, 0, len(values))
	for _, v := range values {
		parts = append(parts, Eq(field, v))
	}
	return Or(parts...)
}

func And(c ...Condition) Condition {
	return join(" && ", c)
}

func Or(c ...Condition) Condition {
	if len(c) < 2 {
		return join(" || ", c)
	}
	return "(" + join(" || ", c) + ")"
}

func join(op string, c []Condition) Condition {
	s := make([]string, 0, len(c))
	for _, x := range c {
		if x != "" {
			s = append(s, string(x))
		}
	}
	return Condition(strings.Join(s, op))
}

// Party side of the document the taxpayer is on.
type Party string

const (
	Buyer    Party = "buyerTin"
	Supplier Party = "supplierTin"
)

var listedStatuses = []string{"ISSUED", "APPROVED"}

// windowCondition documents of tin on the given side issued in [since, until).
func windowCondition(side Party, tin string, since, until time.Time) Condition {
	return And(
		Eq(string(side), tin),
		Gte("issuedAt", since),
		Lt("issuedAt", until),
		In("status", listedStatuses...),
	)
}
