package mip

import "nyiyui.ca/railopt"

// VarKind names which of spec.md §4.9's variable families a Variable
// belongs to.
type VarKind int

const (
	EdgeUsed        VarKind = iota // x[tr,e]
	VelocityExt                    // y[tr,e,i,j]
	Order                          // order[tr1,tr2,e]
	OrderTTD                       // order_ttd[tr1,tr2,ttd]
	XTTD                           // x_ttd[tr,ttd]
	TFrontArrival                  // t_front_arrival[tr,e]
	TFrontDeparture                // t_front_departure[tr,e]
	TRearDeparture                 // t_rear_departure[tr,e]
	TTTDDeparture                  // t_ttd_departure[tr,ttd]
	Stop                           // stop[tr,stop_idx,vertex]
	EntryPos                       // e_lda[tr,e,t]
	ExitPos                        // e_mu[tr,e,t]
	LenIn                          // len_in[tr,e]
	LenOut                         // len_out[tr,e]
	XIn                            // x_in[tr,e,t]
	XOut                           // x_out[tr,e,t]
	XV                             // x_v[tr,v,t]
	BPos                           // b_pos[e,k]
	BFront                         // b_front[e,k,t]
	BRear                          // b_rear[e,k,t]
)

// Variable is one decision variable of the model: its kind (for grouping
// and debugging), whether it is binary or continuous, and its bounds.
type Variable struct {
	Kind   VarKind
	Binary bool
	Lower  float64
	Upper  float64
}

// Relation is the sense of a linear constraint.
type Relation int

const (
	LessEq Relation = iota
	GreaterEq
	Eq
)

// Term is one coefficient*variable summand of a linear expression.
type Term struct {
	Var   string
	Coeff float64
}

// Constraint is a named linear constraint: Σ Terms Relation RHS.
type Constraint struct {
	Name     string
	Terms    []Term
	Relation Relation
	RHS      float64
}

// Model accumulates the variables, objective and constraints of one MIP
// formulation. It never solves — spec.md's Non-goals exclude an in-process
// solve; an external solver consumes this structure.
type Model struct {
	Vars        map[string]Variable
	Objective   []Term
	Constraints []Constraint
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Vars: make(map[string]Variable)}
}

// AddVar registers a variable under key, failing with railopt.Duplicate if
// key is already used. The builders derive each key from a distinct index
// tuple, so a duplicate key indicates a builder bug.
func (m *Model) AddVar(key string, v Variable) error {
	const op = "mip.Model.AddVar"
	if _, ok := m.Vars[key]; ok {
		return railopt.Newf(railopt.Duplicate, op, "variable %q already exists", key)
	}
	m.Vars[key] = v
	return nil
}

// AddObjectiveTerm adds coeff*Vars[key] to the objective, failing with
// railopt.NotFound if key was never registered with AddVar.
func (m *Model) AddObjectiveTerm(key string, coeff float64) error {
	const op = "mip.Model.AddObjectiveTerm"
	if _, ok := m.Vars[key]; !ok {
		return railopt.Newf(railopt.NotFound, op, "variable %q not registered", key)
	}
	m.Objective = append(m.Objective, Term{Var: key, Coeff: coeff})
	return nil
}

// AddConstraint appends c, validating that every referenced variable
// exists.
func (m *Model) AddConstraint(c Constraint) error {
	const op = "mip.Model.AddConstraint"
	for _, t := range c.Terms {
		if _, ok := m.Vars[t.Var]; !ok {
			return railopt.Newf(railopt.NotFound, op, "constraint %q references unregistered variable %q", c.Name, t.Var)
		}
	}
	m.Constraints = append(m.Constraints, c)
	return nil
}
