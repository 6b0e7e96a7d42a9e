package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// plain is θ -= α·g.
type plain struct{}

func (plain) Kind() Kind { return None }

func (plain) Step(params []Layer, grads []Grad, alpha float64) error {
	if err := checkCounts(params, grads); err != nil {
		return err
	}
	for i := range params {
		dw, db, err := oriented(params, grads, i)
		if err != nil {
			return err
		}
		descend(params[i].W, dw, alpha)
		descend(params[i].B, db, alpha)
	}
	return nil
}

// descend does theta -= alpha*step in place.
func descend(theta *mat.Dense, step mat.Matrix, alpha float64) {
	var scaled mat.Dense
	scaled.Scale(alpha, step)
	theta.Sub(theta, &scaled)
}

// decay does acc = beta*acc + (1-beta)*x in place.
func decay(acc *mat.Dense, x mat.Matrix, beta float64) {
	var fresh mat.Dense
	fresh.Scale(1-beta, x)
	acc.Scale(beta, acc)
	acc.Add(acc, &fresh)
}

func square(m mat.Matrix) *mat.Dense {
	var sq mat.Dense
	sq.MulElem(m, m)
	return &sq
}

// momentum keeps an exponential average of the gradient and steps along it.
type momentum struct {
	v state
}

func (*momentum) Kind() Kind { return Momentum }

func (o *momentum) Step(params []Layer, grads []Grad, alpha float64) error {
	if err := checkCounts(params, grads); err != nil {
		return err
	}
	if err := checkState(o.v, params); err != nil {
		return err
	}
	for i := range params {
		dw, db, err := oriented(params, grads, i)
		if err != nil {
			return err
		}
		decay(o.v.w[i], dw, Beta)
		decay(o.v.b[i], db, Beta)
		descend(params[i].W, o.v.w[i], alpha)
		descend(params[i].B, o.v.b[i], alpha)
	}
	return nil
}

// rmsProp divides the gradient by the root of an average of its square.
type rmsProp struct {
	s state
}

func (*rmsProp) Kind() Kind { return RMSProp }

func (o *rmsProp) Step(params []Layer, grads []Grad, alpha float64) error {
	if err := checkCounts(params, grads); err != nil {
		return err
	}
	if err := checkState(o.s, params); err != nil {
		return err
	}
	for i := range params {
		dw, db, err := oriented(params, grads, i)
		if err != nil {
			return err
		}
		decay(o.s.w[i], square(dw), Beta)
		decay(o.s.b[i], square(db), Beta)
		descend(params[i].W, normalized(dw, o.s.w[i]), alpha)
		descend(params[i].B, normalized(db, o.s.b[i]), alpha)
	}
	return nil
}

// normalized returns g / sqrt(s + Epsilon).
func normalized(g, s mat.Matrix) *mat.Dense {
	r, c := g.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return v / math.Sqrt(s.At(i, j)+Epsilon)
	}, g)
	return out
}

// adam tracks first and second moments of the gradient.
type adam struct {
	beta1, beta2 float64
	m, v         state
}

func (*adam) Kind() Kind { return Adam }

func (o *adam) Step(params []Layer, grads []Grad, alpha float64) error {
	if err := checkCounts(params, grads); err != nil {
		return err
	}
	if err := checkState(o.m, params); err != nil {
		return err
	}
	for i := range params {
		dw, db, err := oriented(params, grads, i)
		if err != nil {
			return err
		}
		decay(o.m.w[i], dw, o.beta1)
		decay(o.v.w[i], square(dw), o.beta2)
		decay(o.m.b[i], db, o.beta1)
		decay(o.v.b[i], square(db), o.beta2)
		descend(params[i].W, moments(o.m.w[i], o.v.w[i]), alpha)
		descend(params[i].B, moments(o.m.b[i], o.v.b[i]), alpha)
	}
	return nil
}

// moments returns m / (sqrt(v) + Epsilon).
func moments(m, v mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, x float64) float64 {
		return x / (math.Sqrt(v.At(i, j)) + Epsilon)
	}, m)
	return out
}
