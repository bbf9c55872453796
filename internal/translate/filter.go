package translate

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// Predicate reports whether an item satisfies a compiled filter.
type Predicate func(item *stac.Item) bool

// CompileCQL2Filter compiles a CQL2-JSON filter expression into a Predicate.
// This implements a subset of CQL2 focused on property comparisons.
//
// Supported operators:
//   - "=" : equality comparison
//   - "<>" : inequality
//   - "in" : value in list
//   - "and" : logical AND
//   - "or" : logical OR
//   - "not" : negation
//
// The properties "id" and "collection" refer to the item's own fields; any
// other name is looked up in the item properties. A list-valued property
// (such as platforms) matches when any element matches.
func CompileCQL2Filter(filter any) (Predicate, error) {
	if filter == nil {
		return func(*stac.Item) bool { return true }, nil
	}

	filterMap, ok := filter.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: filter must be a JSON object", ErrUnsupportedFilter)
	}

	return compileExpression(filterMap)
}

// compileExpression compiles a single filter expression node.
func compileExpression(expr map[string]any) (Predicate, error) {
	opVal, ok := expr["op"]
	if !ok {
		return nil, fmt.Errorf("%w: missing 'op' field", ErrUnsupportedFilter)
	}

	op, ok := opVal.(string)
	if !ok {
		return nil, fmt.Errorf("%w: 'op' must be a string", ErrUnsupportedFilter)
	}

	argsVal, ok := expr["args"]
	if !ok {
		return nil, fmt.Errorf("%w: missing 'args' field", ErrUnsupportedFilter)
	}

	args, ok := argsVal.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: 'args' must be an array", ErrUnsupportedFilter)
	}

	switch strings.ToLower(op) {
	case "=", "eq":
		return compileComparison(args, false)
	case "<>", "ne":
		return compileComparison(args, true)
	case "in":
		return compileIn(args)
	case "and":
		return compileLogical(args, "and")
	case "or":
		return compileLogical(args, "or")
	case "not":
		return compileNot(args)
	default:
		return nil, fmt.Errorf("%w: operator '%s' not supported", ErrUnsupportedFilter, op)
	}
}

// compileComparison compiles [{"property": "name"}, value].
func compileComparison(args []any, negate bool) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: comparison requires exactly 2 arguments", ErrUnsupportedFilter)
	}

	propName, err := extractPropertyName(args[0])
	if err != nil {
		return nil, err
	}
	if err := checkScalar(args[1]); err != nil {
		return nil, err
	}
	want := args[1]

	return func(item *stac.Item) bool {
		return matchesValue(lookupProperty(item, propName), want) != negate
	}, nil
}

// compileIn compiles [{"property": "name"}, [value1, value2, ...]].
func compileIn(args []any) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: 'in' operator requires exactly 2 arguments", ErrUnsupportedFilter)
	}

	propName, err := extractPropertyName(args[0])
	if err != nil {
		return nil, err
	}

	valueList, ok := args[1].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: second argument of 'in' must be an array", ErrUnsupportedFilter)
	}
	for _, v := range valueList {
		if err := checkScalar(v); err != nil {
			return nil, err
		}
	}

	return func(item *stac.Item) bool {
		got := lookupProperty(item, propName)
		for _, want := range valueList {
			if matchesValue(got, want) {
				return true
			}
		}
		return false
	}, nil
}

func compileLogical(args []any, op string) (Predicate, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: '%s' operator requires at least one argument", ErrUnsupportedFilter, op)
	}

	preds := make([]Predicate, 0, len(args))
	for _, arg := range args {
		argMap, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: '%s' arguments must be filter expressions", ErrUnsupportedFilter, op)
		}
		p, err := compileExpression(argMap)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}

	if op == "and" {
		return func(item *stac.Item) bool {
			for _, p := range preds {
				if !p(item) {
					return false
				}
			}
			return true
		}, nil
	}

	return func(item *stac.Item) bool {
		for _, p := range preds {
			if p(item) {
				return true
			}
		}
		return false
	}, nil
}

func compileNot(args []any) (Predicate, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: 'not' operator requires exactly 1 argument", ErrUnsupportedFilter)
	}
	argMap, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: 'not' argument must be a filter expression", ErrUnsupportedFilter)
	}
	p, err := compileExpression(argMap)
	if err != nil {
		return nil, err
	}
	return func(item *stac.Item) bool { return !p(item) }, nil
}

// extractPropertyName extracts the property name from a property reference
// Expected format: {"property": "name"}
func extractPropertyName(arg any) (string, error) {
	propMap, ok := arg.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: property reference must be an object", ErrUnsupportedFilter)
	}

	propVal, ok := propMap["property"]
	if !ok {
		return "", fmt.Errorf("%w: missing 'property' field in property reference", ErrUnsupportedFilter)
	}

	propName, ok := propVal.(string)
	if !ok {
		return "", fmt.Errorf("%w: 'property' must be a string", ErrUnsupportedFilter)
	}

	return propName, nil
}

func checkScalar(v any) error {
	switch v.(type) {
	case string, float64, int, bool, nil:
		return nil
	default:
		return fmt.Errorf("%w: comparison value must be a string, number, boolean or null", ErrUnsupportedFilter)
	}
}

func lookupProperty(item *stac.Item, name string) any {
	switch name {
	case "id":
		return item.ID
	case "collection":
		return item.Collection
	default:
		return item.Properties[name]
	}
}

// matchesValue compares a property value against a filter literal.
func matchesValue(got, want any) bool {
	switch g := got.(type) {
	case []any:
		for _, e := range g {
			if matchesValue(e, want) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range g {
			if matchesValue(e, want) {
				return true
			}
		}
		return false
	}

	gn, gIsNum := toFloat(got)
	wn, wIsNum := toFloat(want)
	if gIsNum && wIsNum {
		return gn == wn
	}
	return got == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
