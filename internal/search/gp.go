package search

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateFit signals a numerically failed Gaussian-process fit
// (Cholesky factorization of the kernel matrix did not succeed). The
// Bayesian-optimization loop treats it as "stop early with what has
// been acquired", not as a fatal error.
var ErrDegenerateFit = errors.New("gp: kernel matrix factorization failed")

// Kernel is a positive-definite covariance function over designs.
type Kernel interface {
	Eval(a, b []float64) float64
}

// gpHyper carries the kernel hyperparameters across refits so each
// iteration warm-starts from the previous fitted state.
type gpHyper struct {
	Lengthscale float64
	Variance    float64
}

func defaultHyper() gpHyper {
	return gpHyper{Lengthscale: 0.2, Variance: 1.0}
}

// rbfKernel is the squared-exponential kernel over continuous inputs
// (assumed normalized to the unit cube).
type rbfKernel struct {
	hyper gpHyper
}

func (k rbfKernel) Eval(a, b []float64) float64 {
	var sq float64
	for d := range a {
		diff := a[d] - b[d]
		sq += diff * diff
	}
	ls := k.hyper.Lengthscale
	return k.hyper.Variance * math.Exp(-0.5*sq/(ls*ls))
}

// overlapKernel is a categorical covariance: similarity decays with
// the fraction of mismatched positions.
type overlapKernel struct {
	hyper gpHyper
}

func (k overlapKernel) Eval(a, b []float64) float64 {
	mismatch := 0
	for d := range a {
		if a[d] != b[d] {
			mismatch++
		}
	}
	frac := float64(mismatch) / float64(len(a))
	return k.hyper.Variance * math.Exp(-frac/k.hyper.Lengthscale)
}

// GP is an exact Gaussian-process regressor with fixed observation
// noise, fitted once over a training set.
type GP struct {
	kernel Kernel
	noise  float64
	x      [][]float64
	chol   mat.Cholesky
	alpha  *mat.VecDense
	logML  float64
}

// FitGP fits the GP on the training set. noise is the observation
// noise standard deviation. Returns ErrDegenerateFit when the kernel
// matrix cannot be factorized.
func FitGP(x [][]float64, y []float64, kernel Kernel, noise float64) (*GP, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("gp: training set has %d designs and %d scores", n, len(y))
	}

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := kernel.Eval(x[i], x[j])
			if i == j {
				v += noise*noise + 1e-8
			}
			k.SetSym(i, j, v)
		}
	}

	g := &GP{kernel: kernel, noise: noise, x: x}
	if ok := g.chol.Factorize(k); !ok {
		return nil, ErrDegenerateFit
	}

	yVec := mat.NewVecDense(n, append([]float64{}, y...))
	g.alpha = mat.NewVecDense(n, nil)
	if err := g.chol.SolveVecTo(g.alpha, yVec); err != nil {
		return nil, fmt.Errorf("gp: solving for alpha: %w", err)
	}

	g.logML = -0.5*mat.Dot(yVec, g.alpha) - 0.5*g.chol.LogDet() - float64(n)/2*math.Log(2*math.Pi)
	return g, nil
}

// Predict returns the posterior mean and variance at a query design.
func (g *GP) Predict(q []float64) (mean, variance float64) {
	n := len(g.x)
	kStar := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		kStar.SetVec(i, g.kernel.Eval(g.x[i], q))
	}

	mean = mat.Dot(kStar, g.alpha)

	v := mat.NewVecDense(n, nil)
	if err := g.chol.SolveVecTo(v, kStar); err != nil {
		return mean, 0
	}
	variance = g.kernel.Eval(q, q) - mat.Dot(kStar, v)
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// LogMarginalLikelihood returns the fit quality used for
// hyperparameter selection.
func (g *GP) LogMarginalLikelihood() float64 { return g.logML }

// fitWarmStarted refits the GP with a small hyperparameter search
// seeded from the previous iteration's fitted state: candidate
// lengthscales/variances around the incumbent, best log marginal
// likelihood wins.
func fitWarmStarted(x [][]float64, y []float64, categorical bool, prev gpHyper, noise float64) (*GP, gpHyper, error) {
	factors := []float64{0.5, 1, 2}

	var best *GP
	var bestHyper gpHyper
	for _, lf := range factors {
		for _, vf := range factors {
			h := gpHyper{
				Lengthscale: prev.Lengthscale * lf,
				Variance:    prev.Variance * vf,
			}
			var kernel Kernel
			if categorical {
				kernel = overlapKernel{hyper: h}
			} else {
				kernel = rbfKernel{hyper: h}
			}
			g, err := FitGP(x, y, kernel, noise)
			if err != nil {
				if errors.Is(err, ErrDegenerateFit) {
					continue
				}
				return nil, gpHyper{}, err
			}
			if best == nil || g.LogMarginalLikelihood() > best.LogMarginalLikelihood() {
				best = g
				bestHyper = h
			}
		}
	}
	if best == nil {
		return nil, gpHyper{}, ErrDegenerateFit
	}
	return best, bestHyper, nil
}
