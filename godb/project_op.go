package godb

// Project selects and reorders a subset of its child's fields by index,
// optionally suppressing duplicate output tuples (DISTINCT).
type Project struct {
	*baseOperator
	fields   []int
	child    Operator
	distinct bool
}

// NewProjectOp builds a projection of child onto fields (by index into
// the child's schema), naming the output columns names. It fails if
// fields and names differ in length.
func NewProjectOp(fields []int, names []string, distinct bool, child Operator) (*Project, error) {
	if len(fields) != len(names) {
		return nil, newErr(IllegalArgumentError, "project: %d fields but %d names", len(fields), len(names))
	}
	childDesc := child.GetTupleDesc()
	outFields := make([]FieldType, len(fields))
	for i, fi := range fields {
		outFields[i] = FieldType{Fname: names[i], Ftype: childDesc.Fields[fi].Ftype}
	}
	p := &Project{fields: fields, child: child, distinct: distinct}
	p.baseOperator = newBaseOperator(&TupleDesc{Fields: outFields}, []Operator{child}, p.start)
	return p, nil
}

func (p *Project) start(tid TransactionID) (func() (*Tuple, error), error) {
	if err := p.child.Open(tid); err != nil {
		return nil, err
	}
	outDesc := *p.GetTupleDesc()
	var seen map[string]struct{}
	if p.distinct {
		seen = make(map[string]struct{})
	}
	return func() (*Tuple, error) {
		for {
			has, err := p.child.HasNext()
			if err != nil || !has {
				return nil, err
			}
			t, err := p.child.Next()
			if err != nil {
				return nil, err
			}
			out := &Tuple{Desc: outDesc, Fields: make([]Field, len(p.fields))}
			for i, fi := range p.fields {
				out.Fields[i] = t.Fields[fi]
			}
			if p.distinct {
				key := out.PrettyPrintString(false)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			return out, nil
		}
	}, nil
}
