package calculator

// Operation is one of the four binary operations of the keypad.
// NoOperation marks the absence of a pending operation.
type Operation int

const (
	NoOperation Operation = iota
	Add
	Subtract
	Multiply
	Divide
)

// Symbol returns the keypad label of the operation.
func (o Operation) Symbol() string {
	switch o {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	default:
		return ""
	}
}

func (o Operation) String() string {
	switch o {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	case Multiply:
		return "multiply"
	case Divide:
		return "divide"
	default:
		return "none"
	}
}

// Calculate applies op to a and b. Division by zero yields NaN, which the
// display renders as "Error". Without an operation the second operand is
// returned unchanged.
func Calculate(a, b float64, op Operation) float64 {
	switch op {
	case Add:
		return a + b
	case Subtract:
		return a - b
	case Multiply:
		return a * b
	case Divide:
		if b == 0 {
			return nan()
		}
		return a / b
	default:
		return b
	}
}
