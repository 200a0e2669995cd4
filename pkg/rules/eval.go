package rules

// Eval avalia a condição contra o ambiente. Nunca falha: coerção impossível
// ou variável inexistente resultam em false.
func (e *Expression) Eval(vars Vars) bool {
	if e == nil || e.root == nil {
		return true
	}
	return e.root.eval(vars)
}

func (n *andNode) eval(vars Vars) bool {
	return n.left.eval(vars) && n.right.eval(vars)
}

func (n *orNode) eval(vars Vars) bool {
	return n.left.eval(vars) || n.right.eval(vars)
}

func (n *andNode) collect(names map[string]struct{}) {
	n.left.collect(names)
	n.right.collect(names)
}

func (n *orNode) collect(names map[string]struct{}) {
	n.left.collect(names)
	n.right.collect(names)
}

func (n *compareNode) collect(names map[string]struct{}) {
	names[n.ref] = struct{}{}
}

func (n *compareNode) eval(vars Vars) bool {
	return Compare(vars.Lookup(n.ref), n.op, n.literal)
}

// Compare aplica op entre o valor da variável e o literal.
//
// Variável inexistente é diferente de tudo: apenas "!=" é verdadeiro.
// Literais numéricos forçam a coerção numérica da variável; ordenação é
// sempre numérica. Literais string comparam o texto exato.
func Compare(v Value, op CompareOp, literal Value) bool {
	if v.IsMissing() {
		return op == OpNe
	}

	switch literal.Kind() {
	case KindString:
		if op == OpEq || op == OpNe {
			return (v.Text() == literal.Text()) == (op == OpEq)
		}
		return compareNumbers(v, op, literal)

	case KindNumber:
		return compareNumbers(v, op, literal)

	case KindBool:
		got, ok := v.AsBool()
		if !ok {
			return false
		}
		want, _ := literal.AsBool()
		switch op {
		case OpEq:
			return got == want
		case OpNe:
			return got != want
		}
		return false
	}
	return false
}

func compareNumbers(v Value, op CompareOp, literal Value) bool {
	a, ok := v.AsNumber()
	if !ok {
		return false
	}
	b, ok := literal.AsNumber()
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpGt:
		return a > b
	case OpLt:
		return a < b
	case OpGe:
		return a >= b
	case OpLe:
		return a <= b
	}
	return false
}
