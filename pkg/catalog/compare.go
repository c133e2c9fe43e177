package catalog

import (
	"fmt"
	"strings"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/interpolate"
)

var compareOps = []string{"==", "!=", ">", ">=", "<", "<=", "contains"}

// compare evaluates left op right. Numbers compare numerically; anything
// else compares as text. Ordering operators need two numbers.
func compare(left any, op string, right any) (bool, error) {
	if op == "contains" {
		return strings.Contains(interpolate.Format(left), interpolate.Format(right)), nil
	}

	lf, lok := domain.ToFloat(left)
	rf, rok := domain.ToFloat(right)
	if lok && rok {
		switch op {
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		}
		return false, fmt.Errorf("unknown operator %q", op)
	}

	ls, rs := interpolate.Format(left), interpolate.Format(right)
	switch op {
	case "==":
		return ls == rs, nil
	case "!=":
		return ls != rs, nil
	case ">", ">=", "<", "<=":
		return false, fmt.Errorf("operator %s needs numbers, got %q and %q", op, ls, rs)
	}
	return false, fmt.Errorf("unknown operator %q", op)
}
