package matcher

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Classifier fits a multinomial (softmax) logistic regression over the
// candidates and accepts the most probable identity when its probability
// reaches MinProbability. Weights start from the class centroids of the
// standardized samples, so an enrolled embedding is already separated from
// the rest before any gradient step. L2 pulls the weights toward that
// starting point, and training stops early once the gradient vanishes.
//
// The fitted model is reused while the candidate set is unchanged and
// refitted as soon as any identity or embedding differs.
type Classifier struct {
	MinProbability float64
	Epochs         int
	LearningRate   float64
	L2             float64

	mu    sync.Mutex
	model *softmaxModel
}

func (c *Classifier) Name() string { return "classifier" }

func (c *Classifier) Match(probe []float32, candidates []Candidate) (*Result, error) {
	if err := checkProbe(probe, candidates); err != nil {
		return nil, err
	}

	samples := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if len(cand.Embedding) == len(probe) {
			samples = append(samples, cand)
		}
	}

	model, err := c.fitted(samples)
	if err != nil {
		return nil, err
	}
	probs := model.predict(model.scaler.transform(probe))

	best := 0
	for k := 1; k < len(probs); k++ {
		if probs[k] > probs[best] {
			best = k
		}
	}

	if probs[best] < c.MinProbability {
		return nil, fmt.Errorf("%w: best probability %.4f", ErrLowConfidence, probs[best])
	}

	return &Result{
		IdentityID: model.classes[best],
		Confidence: probs[best],
		Strategy:   c.Name(),
	}, nil
}

// fitted returns the cached model for samples, training a new one when the
// candidate set changed since the last fit.
func (c *Classifier) fitted(samples []Candidate) (*softmaxModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model != nil && sameCandidates(c.model.samples, samples) {
		return c.model, nil
	}

	labels, classes := labelSamples(samples)
	if len(classes) < constants.MinClassifierIdentities {
		return nil, ErrInsufficientEnrollment
	}

	c.model = c.train(slices.Clone(samples), labels, classes)
	return c.model, nil
}

func sameCandidates(a, b []Candidate) bool {
	return slices.EqualFunc(a, b, func(x, y Candidate) bool {
		return x.IdentityID == y.IdentityID && slices.Equal(x.Embedding, y.Embedding)
	})
}

// labelSamples assigns class indexes in order of first appearance.
func labelSamples(samples []Candidate) ([]int, []int64) {
	index := make(map[int64]int)
	var classes []int64
	labels := make([]int, len(samples))
	for i, s := range samples {
		k, ok := index[s.IdentityID]
		if !ok {
			k = len(classes)
			index[s.IdentityID] = k
			classes = append(classes, s.IdentityID)
		}
		labels[i] = k
	}
	return labels, classes
}

type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(samples []Candidate) scaler {
	dim := len(samples[0].Embedding)
	s := scaler{mean: make([]float64, dim), std: make([]float64, dim)}
	n := float64(len(samples))

	for _, sample := range samples {
		for j, v := range sample.Embedding {
			s.mean[j] += float64(v)
		}
	}
	for j := range s.mean {
		s.mean[j] /= n
	}

	for _, sample := range samples {
		for j, v := range sample.Embedding {
			d := float64(v) - s.mean[j]
			s.std[j] += d * d
		}
	}
	for j := range s.std {
		s.std[j] = math.Sqrt(s.std[j] / n)
		if s.std[j] == 0 {
			s.std[j] = 1
		}
	}
	return s
}

func (s scaler) transform(v []float32) []float64 {
	out := make([]float64, len(v))
	for j, x := range v {
		out[j] = (float64(x) - s.mean[j]) / s.std[j]
	}
	return out
}

type softmaxModel struct {
	samples []Candidate // training set, compared on every call
	classes []int64
	scaler  scaler
	prior   [][]float64 // centroid weights the L2 penalty pulls toward
	weights [][]float64
	bias    []float64
	epochs  int // gradient steps taken before convergence
}

func (c *Classifier) train(samples []Candidate, labels []int, classes []int64) *softmaxModel {
	epochs := c.Epochs
	if epochs <= 0 {
		epochs = constants.DefaultClassifierEpochs
	}
	lr := c.LearningRate
	if lr <= 0 {
		lr = constants.DefaultClassifierLearningRate
	}

	numClasses := len(classes)
	m := &softmaxModel{
		samples: samples,
		classes: classes,
		scaler:  fitScaler(samples),
	}
	x := make([][]float64, len(samples))
	for i, s := range samples {
		x[i] = m.scaler.transform(s.Embedding)
	}
	dim := len(x[0])
	n := float64(len(x))

	// centroid start: logits equal -|x-mu_k|^2/2 up to a shared term
	counts := make([]float64, numClasses)
	m.prior = make([][]float64, numClasses)
	m.weights = make([][]float64, numClasses)
	m.bias = make([]float64, numClasses)
	for k := range numClasses {
		m.prior[k] = make([]float64, dim)
	}
	for i, xi := range x {
		k := labels[i]
		counts[k]++
		for j, v := range xi {
			m.prior[k][j] += v
		}
	}
	for k := range numClasses {
		for j := range m.prior[k] {
			m.prior[k][j] /= counts[k]
		}
		m.weights[k] = slices.Clone(m.prior[k])
		m.bias[k] = -dot(m.prior[k], m.prior[k]) / 2
	}

	gradW := make([][]float64, numClasses)
	for k := range gradW {
		gradW[k] = make([]float64, dim)
	}
	gradB := make([]float64, numClasses)

	for m.epochs < epochs {
		for k := range numClasses {
			clear(gradW[k])
		}
		clear(gradB)

		for i, xi := range x {
			probs := m.predict(xi)
			for k, p := range probs {
				diff := p
				if labels[i] == k {
					diff -= 1
				}
				if diff == 0 {
					continue
				}
				row := gradW[k]
				for j, v := range xi {
					row[j] += diff * v
				}
				gradB[k] += diff
			}
		}

		var largest float64
		for k := range numClasses {
			w, prior := m.weights[k], m.prior[k]
			for j := range w {
				gradW[k][j] = gradW[k][j]/n + c.L2*(w[j]-prior[j])
				largest = max(largest, math.Abs(gradW[k][j]))
			}
			gradB[k] /= n
			largest = max(largest, math.Abs(gradB[k]))
		}
		if largest < constants.ClassifierGradientTolerance {
			break
		}

		for k := range numClasses {
			w := m.weights[k]
			for j := range w {
				w[j] -= lr * gradW[k][j]
			}
			m.bias[k] -= lr * gradB[k]
		}
		m.epochs++
	}
	return m
}

// predict returns the softmax class probabilities for a standardized vector.
func (m *softmaxModel) predict(x []float64) []float64 {
	probs := make([]float64, len(m.weights))
	top := math.Inf(-1)
	for k, w := range m.weights {
		probs[k] = dot(w, x) + m.bias[k]
		top = max(top, probs[k])
	}
	var sum float64
	for k := range probs {
		probs[k] = math.Exp(probs[k] - top)
		sum += probs[k]
	}
	for k := range probs {
		probs[k] /= sum
	}
	return probs
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
