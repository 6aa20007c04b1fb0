package calc

import (
	"math"
	"strconv"
)

// ════════════════════════════════════════════════════════════════════
// Values
// ════════════════════════════════════════════════════════════════════

// value is the evaluator's internal result type: a scalar or a list of
// scalars (list/tuple literals feed the aggregate functions).
type value struct {
	scalar float64
	list   []float64
	isList bool
}

func scalarValue(f float64) value  { return value{scalar: f} }
func listValue(fs []float64) value { return value{list: fs, isList: true} }

// ════════════════════════════════════════════════════════════════════
// Whitelist
// ════════════════════════════════════════════════════════════════════

// constants are the only bare names that resolve.
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

type builtinFunc func(pos int, args []value) (value, error)

// builtins is the closed function whitelist. A call to anything outside
// this table fails — reserved dangerous names as DisallowedConstruct in
// the parser, everything else as UnknownFunction here.
var builtins = map[string]builtinFunc{
	"abs":   unaryFunc("abs", math.Abs),
	"sqrt":  unaryFunc("sqrt", math.Sqrt),
	"log":   unaryFunc("log", math.Log),
	"log10": unaryFunc("log10", math.Log10),
	"exp":   unaryFunc("exp", math.Exp),
	"sin":   unaryFunc("sin", math.Sin),
	"cos":   unaryFunc("cos", math.Cos),
	"tan":   unaryFunc("tan", math.Tan),
	"ceil":  unaryFunc("ceil", math.Ceil),
	"floor": unaryFunc("floor", math.Floor),
	"round": builtinRound,
	"min":   aggregateFunc("min", false, func(acc, x float64) float64 { return math.Min(acc, x) }),
	"max":   aggregateFunc("max", false, func(acc, x float64) float64 { return math.Max(acc, x) }),
	"sum":   aggregateFunc("sum", true, func(acc, x float64) float64 { return acc + x }),
}

func unaryFunc(name string, fn func(float64) float64) builtinFunc {
	return func(pos int, args []value) (value, error) {
		if len(args) != 1 || args[0].isList {
			return value{}, errorf(KindSyntax, pos, "%s expects exactly one numeric argument", name)
		}
		return scalarValue(fn(args[0].scalar)), nil
	}
}

// aggregateFunc folds over flattened arguments. allowEmpty controls whether
// zero values is acceptable (sum of nothing is 0; min/max of nothing is an
// error).
func aggregateFunc(name string, allowEmpty bool, fold func(acc, x float64) float64) builtinFunc {
	return func(pos int, args []value) (value, error) {
		xs := flatten(args)
		if len(xs) == 0 {
			if allowEmpty {
				return scalarValue(0), nil
			}
			return value{}, errorf(KindSyntax, pos, "%s expects at least one value", name)
		}
		acc := xs[0]
		for _, x := range xs[1:] {
			acc = fold(acc, x)
		}
		return scalarValue(acc), nil
	}
}

func flatten(args []value) []float64 {
	var xs []float64
	for _, a := range args {
		if a.isList {
			xs = append(xs, a.list...)
		} else {
			xs = append(xs, a.scalar)
		}
	}
	return xs
}

// builtinRound implements round(x) and round(x, ndigits) with
// round-half-to-even semantics.
func builtinRound(pos int, args []value) (value, error) {
	if len(args) < 1 || len(args) > 2 || args[0].isList {
		return value{}, errorf(KindSyntax, pos, "round expects round(x) or round(x, ndigits)")
	}
	x := args[0].scalar
	if len(args) == 1 {
		return scalarValue(math.RoundToEven(x)), nil
	}
	if args[1].isList {
		return value{}, errorf(KindSyntax, pos, "round ndigits must be a number")
	}
	n := int(args[1].scalar)
	scale := math.Pow(10, float64(n))
	return scalarValue(math.RoundToEven(x*scale) / scale), nil
}

// ════════════════════════════════════════════════════════════════════
// Evaluator — AST Walker
// ════════════════════════════════════════════════════════════════════

// Evaluate parses and evaluates a sandbox expression, returning the result
// formatted as a plain numeric string. All failures are *EvalError.
func Evaluate(expression string) (string, error) {
	node, err := ParseExpression(expression)
	if err != nil {
		return "", err
	}
	v, err := eval(node)
	if err != nil {
		return "", err
	}
	if v.isList {
		return "", errorf(KindSyntax, node.Pos(), "expression does not reduce to a single number")
	}
	return FormatResult(v.scalar), nil
}

// eval walks the AST. The switch is the whole set of node kinds the sandbox
// accepts; any other node fails closed as a disallowed construct.
func eval(node Node) (value, error) {
	switch n := node.(type) {
	case *NumberLiteral:
		return scalarValue(n.Value), nil

	case *NameRef:
		if c, ok := constants[n.Name]; ok {
			return scalarValue(c), nil
		}
		return value{}, errorf(KindUnknownName, n.Position, "unknown name %q", n.Name)

	case *CallExpr:
		return evalCall(n)

	case *ListLiteral:
		return evalList(n)

	case *BinaryExpr:
		return evalBinary(n)

	case *UnaryExpr:
		return evalUnary(n)

	default:
		return value{}, errorf(KindDisallowed, node.Pos(), "unsupported construct %T", node)
	}
}

func evalCall(n *CallExpr) (value, error) {
	fn, ok := builtins[n.Name]
	if !ok {
		return value{}, errorf(KindUnknownFunction, n.Position, "unknown function %q", n.Name)
	}
	args := make([]value, len(n.Args))
	for i, argNode := range n.Args {
		v, err := eval(argNode)
		if err != nil {
			return value{}, err
		}
		args[i] = v
	}
	return fn(n.Position, args)
}

func evalList(n *ListLiteral) (value, error) {
	xs := make([]float64, 0, len(n.Elems))
	for _, e := range n.Elems {
		v, err := eval(e)
		if err != nil {
			return value{}, err
		}
		if v.isList {
			return value{}, errorf(KindDisallowed, e.Pos(), "nested lists are not allowed")
		}
		xs = append(xs, v.scalar)
	}
	return listValue(xs), nil
}

func evalBinary(n *BinaryExpr) (value, error) {
	left, err := eval(n.Left)
	if err != nil {
		return value{}, err
	}
	right, err := eval(n.Right)
	if err != nil {
		return value{}, err
	}
	if left.isList || right.isList {
		return value{}, errorf(KindSyntax, n.Position, "operator %q requires numeric operands", n.Op)
	}
	a, b := left.scalar, right.scalar

	switch n.Op {
	case "+":
		return scalarValue(a + b), nil
	case "-":
		return scalarValue(a - b), nil
	case "*":
		return scalarValue(a * b), nil
	case "/":
		if b == 0 {
			return value{}, errorf(KindDivisionByZero, n.Position, "division by zero")
		}
		return scalarValue(a / b), nil
	case "//":
		if b == 0 {
			return value{}, errorf(KindDivisionByZero, n.Position, "floor division by zero")
		}
		return scalarValue(math.Floor(a / b)), nil
	case "%":
		if b == 0 {
			return value{}, errorf(KindDivisionByZero, n.Position, "modulo by zero")
		}
		// Remainder with the sign of the divisor, pairing with floor division.
		return scalarValue(a - math.Floor(a/b)*b), nil
	case "**":
		return scalarValue(math.Pow(a, b)), nil
	default:
		return value{}, errorf(KindDisallowed, n.Position, "unknown operator %q", n.Op)
	}
}

func evalUnary(n *UnaryExpr) (value, error) {
	v, err := eval(n.Operand)
	if err != nil {
		return value{}, err
	}
	if v.isList {
		return value{}, errorf(KindSyntax, n.Position, "unary %q requires a numeric operand", n.Op)
	}
	switch n.Op {
	case "-":
		return scalarValue(-v.scalar), nil
	case "+":
		return v, nil
	default:
		return value{}, errorf(KindDisallowed, n.Position, "unknown unary operator %q", n.Op)
	}
}

// ════════════════════════════════════════════════════════════════════
// Result Formatting
// ════════════════════════════════════════════════════════════════════

// FormatResult renders a numeric result: integral values without a decimal
// point, everything else with up to 10 significant digits, staying out of
// scientific notation for magnitudes seen in financial data.
func FormatResult(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	abs := math.Abs(f)
	if abs >= 1e-4 && abs < 1e15 {
		intDigits := 1
		if abs >= 1 {
			intDigits = int(math.Floor(math.Log10(abs))) + 1
		}
		decimals := 10 - intDigits
		if decimals < 0 {
			decimals = 0
		}
		s := strconv.FormatFloat(f, 'f', decimals, 64)
		return trimTrailingZeros(s)
	}
	return strconv.FormatFloat(f, 'g', 10, 64)
}

func trimTrailingZeros(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
