package dp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/golearn-dp/agent/policy"
	env "github.com/samuelfneumann/golearn-dp/environment"
	"github.com/samuelfneumann/golearn-dp/utils/matutils"
)

// ActionValues returns the action values q(s, a) of every action in
// state s given the state value function v
func ActionValues(m env.Model, v *mat.VecDense, s int,
	discount float64) *mat.VecDense {
	values := v.RawVector()
	if values.Inc != 1 {
		values = mat.VecDenseCopyOf(v).RawVector()
	}

	q := mat.NewVecDense(m.ActionCount(), nil)
	for a := 0; a < m.ActionCount(); a++ {
		q.SetVec(a, backup(m.Transitions(s, a), values.Data, discount))
	}
	return q
}

// ExtractPolicy returns the policy which is greedy with respect to the
// state value function v. Ties are broken in favour of the action with
// the lowest index.
func ExtractPolicy(m env.Model, v *mat.VecDense,
	discount float64) policy.Deterministic {
	if v.Len() != m.StateCount() {
		panic(fmt.Sprintf("extractPolicy: value function has %d states, "+
			"model has %d", v.Len(), m.StateCount()))
	}

	p := policy.NewDeterministic(m.StateCount())
	for s := range p {
		p[s] = matutils.MaxVec(ActionValues(m, v, s, discount))
	}
	return p
}
