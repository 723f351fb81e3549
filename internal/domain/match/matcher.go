package match

import (
	"github.com/coreplane/activityd/internal/shared/types"
)

// Result is the tri-valued outcome of evaluating a clause.
type Result int

const (
	NotMatched Result = iota
	Matched
	NoProperty
)

// String returns the string representation of the result.
func (r Result) String() string {
	switch r {
	case Matched:
		return "matched"
	case NotMatched:
		return "notMatched"
	case NoProperty:
		return "noProperty"
	default:
		return "unknown"
	}
}

type mode int

const (
	andMode mode = iota
	orMode
)

// Matcher is a compiled where clause. The zero value is not usable; build
// one with New, which validates the clause grammar.
type Matcher struct {
	where interface{}
}

// New compiles a where clause, validating the grammar. Invalid clauses are
// reported as InvalidArg errors describing the offending construct.
func New(where interface{}) (*Matcher, error) {
	if err := validateClauses(where); err != nil {
		return nil, err
	}
	return &Matcher{where: where}, nil
}

// Clause returns the raw clause the matcher was compiled from.
func (m *Matcher) Clause() interface{} {
	return m.where
}

// Match reports whether the response satisfies the clause.
func (m *Matcher) Match(response interface{}) bool {
	return m.Evaluate(response) == Matched
}

// Evaluate returns the tri-valued result of the clause against response.
// Evaluation is pure: the same inputs always produce the same result.
func (m *Matcher) Evaluate(response interface{}) Result {
	return checkClause(m.where, response, andMode)
}

func validateKey(key interface{}) error {
	switch k := key.(type) {
	case string:
		return nil
	case []interface{}:
		for _, elem := range k {
			if _, ok := elem.(string); !ok {
				return types.InvalidArg("something other than a string found in the key array of property names")
			}
		}
		return nil
	default:
		return types.InvalidArg("property keys must be specified as a property name, or array of property names")
	}
}

func validateOp(op interface{}, val interface{}) error {
	opStr, ok := op.(string)
	if !ok {
		return types.InvalidArg("operation must be specified as a string property")
	}

	switch opStr {
	case "<", "<=", "=", "!=", ">=", ">":
		return nil
	case "where":
		return validateClauses(val)
	default:
		return types.InvalidArg("operation must be one of '<', '<=', '=', '>=', '>', '!=', and 'where'")
	}
}

func validateClause(clause map[string]interface{}) error {
	found := false

	if sub, ok := clause["and"]; ok {
		found = true
		if err := validateClauses(sub); err != nil {
			return err
		}
	}

	if sub, ok := clause["or"]; ok {
		if found {
			return types.InvalidArg("only one of \"and\", \"or\", or a comparison clause with \"prop\", \"op\", and \"val\" may be present in a clause")
		}
		found = true
		if err := validateClauses(sub); err != nil {
			return err
		}
	}

	prop, hasProp := clause["prop"]
	if !hasProp {
		if !found {
			return types.InvalidArg("each where clause must contain \"or\", \"and\", or a \"prop\"erty to compare against")
		}
		return nil
	}
	if found {
		return types.InvalidArg("only one of \"and\", \"or\", or a comparison clause with \"prop\", \"op\", and \"val\" may be present in a clause")
	}

	if err := validateKey(prop); err != nil {
		return err
	}

	val, hasVal := clause["val"]
	if !hasVal {
		return types.InvalidArg("each where clause must contain a value to test against")
	}

	op, hasOp := clause["op"]
	if !hasOp {
		return types.InvalidArg("each where clause must contain a test operation to perform")
	}

	return validateOp(op, val)
}

func validateClauses(where interface{}) error {
	switch w := where.(type) {
	case map[string]interface{}:
		return validateClause(w)
	case []interface{}:
		for _, elem := range w {
			clause, ok := elem.(map[string]interface{})
			if !ok {
				return types.InvalidArg("where statement array must consist of valid clauses")
			}
			if err := validateClause(clause); err != nil {
				return err
			}
		}
		return nil
	default:
		return types.InvalidArg("where statement should consist of a single clause or array of valid clauses")
	}
}

func checkClauses(clauses interface{}, response interface{}, m mode) Result {
	if clause, ok := clauses.(map[string]interface{}); ok {
		return checkClause(clause, response, m)
	}

	arr, ok := clauses.([]interface{})
	if !ok {
		return NotMatched
	}

	for _, clause := range arr {
		result := checkClause(clause, response, m)
		if m == andMode {
			if result != Matched {
				return NotMatched
			}
		} else {
			if result == Matched {
				return Matched
			}
		}
	}

	if m == andMode {
		return Matched
	}
	return NotMatched
}

func checkClause(clause interface{}, response interface{}, m mode) Result {
	if arr, ok := clause.([]interface{}); ok {
		return checkClauses(arr, response, m)
	}

	obj, ok := clause.(map[string]interface{})
	if !ok {
		return NotMatched
	}

	if sub, found := obj["and"]; found {
		return checkClause(sub, response, andMode)
	}
	if sub, found := obj["or"]; found {
		return checkClause(sub, response, orMode)
	}

	prop, found := obj["prop"]
	if !found {
		return NotMatched
	}
	op, found := obj["op"]
	if !found {
		return NotMatched
	}
	val, found := obj["val"]
	if !found {
		return NotMatched
	}

	return checkProperty(prop, response, op, val, m)
}

// checkPathInArray fans a partially-descended key path out over the
// elements of an array encountered mid-path. This recurses into arrays of
// arrays as well.
func checkPathInArray(keys []interface{}, elems []interface{}, op, val interface{}, m mode) Result {
	for _, elem := range elems {
		result := checkPath(keys, elem, op, val, m)
		if m == andMode {
			if result != Matched {
				return NotMatched
			}
		} else {
			if result == Matched {
				return Matched
			}
		}
	}

	if m == andMode {
		return Matched
	}
	return NotMatched
}

// checkPath descends the remaining key path into response and applies the
// comparison at the end of it.
func checkPath(keys []interface{}, response interface{}, op, val interface{}, m mode) Result {
	onion := response

	for i, key := range keys {
		switch layer := onion.(type) {
		case []interface{}:
			return checkPathInArray(keys[i:], layer, op, val, m)
		case map[string]interface{}:
			name, _ := key.(string)
			next, found := layer[name]
			if !found {
				return NoProperty
			}
			onion = next
		default:
			return NoProperty
		}
	}

	return checkMatch(onion, op, val)
}

func checkProperty(key interface{}, response interface{}, op, val interface{}, m mode) Result {
	switch k := key.(type) {
	case string:
		obj, ok := response.(map[string]interface{})
		if !ok {
			return NoProperty
		}
		propVal, found := obj[k]
		if !found {
			return NoProperty
		}
		return checkMatch(propVal, op, val)
	case []interface{}:
		return checkPath(k, response, op, val, m)
	default:
		return NotMatched
	}
}

func checkMatch(rhs interface{}, op, val interface{}) Result {
	opStr, ok := op.(string)
	if !ok {
		return NotMatched
	}

	var result bool
	switch opStr {
	case "=":
		result = equalValues(rhs, val)
	case "!=":
		result = !equalValues(rhs, val)
	case "<", "<=", ">=", ">":
		cmp, comparable := compareValues(rhs, val)
		if !comparable {
			return NotMatched
		}
		switch opStr {
		case "<":
			result = cmp < 0
		case "<=":
			result = cmp <= 0
		case ">=":
			result = cmp >= 0
		case ">":
			result = cmp > 0
		}
	case "where":
		return checkClause(val, rhs, andMode)
	default:
		return NotMatched
	}

	if result {
		return Matched
	}
	return NotMatched
}
