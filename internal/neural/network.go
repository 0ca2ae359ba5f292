package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
)

var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrNonFinite     = errors.New("non-finite value")
)

// Config describes a fresh network.
type Config struct {
	Inputs       int
	Outputs      int
	Hidden       []int
	LearningRate float64
	Momentum     float64
	Seed         int64
}

// Network is a fully connected regressor with ReLU hidden layers and a linear output.
// It is trained one sample at a time with SGD and momentum on squared error.
//
// Fields are exported so the whole network, velocities included, can be checkpointed.
type Network struct {
	Sizes   []int         `json:"sizes"`
	Weights [][][]float64 `json:"weights"` // [layer][in][out]
	Biases  [][]float64   `json:"biases"`

	VWeights [][][]float64 `json:"v_weights"`
	VBiases  [][]float64   `json:"v_biases"`

	LearningRate float64 `json:"learning_rate"`
	Momentum     float64 `json:"momentum"`
}

func NewNetwork(conf Config) *Network {
	rng := rand.New(rand.NewSource(conf.Seed)) //nolint: gosec // weights init

	sizes := make([]int, 0, len(conf.Hidden)+2)
	sizes = append(sizes, conf.Inputs)
	sizes = append(sizes, conf.Hidden...)
	sizes = append(sizes, conf.Outputs)

	n := &Network{
		Sizes:        sizes,
		LearningRate: conf.LearningRate,
		Momentum:     conf.Momentum,
	}

	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]

		// He initialization
		scale := math.Sqrt(2.0 / float64(in))

		weights := make([][]float64, in)
		velocity := make([][]float64, in)
		for i := range weights {
			weights[i] = make([]float64, out)
			velocity[i] = make([]float64, out)
			for j := range weights[i] {
				weights[i][j] = (rng.Float64()*2 - 1) * scale
			}
		}

		n.Weights = append(n.Weights, weights)
		n.VWeights = append(n.VWeights, velocity)
		n.Biases = append(n.Biases, make([]float64, out))
		n.VBiases = append(n.VBiases, make([]float64, out))
	}

	return n
}

func (that *Network) inputs() int {
	return that.Sizes[0]
}

func (that *Network) outputs() int {
	return that.Sizes[len(that.Sizes)-1]
}

// Predict runs the forward pass.
func (that *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != that.inputs() {
		return nil, fmt.Errorf("%w: %w: input has %d values, want %d",
			apperror.ErrNumericOp, ErrShapeMismatch, len(input), that.inputs())
	}

	activations := that.forward(input)
	output := activations[len(activations)-1]

	if err := checkFinite(output); err != nil {
		return nil, err
	}

	return output, nil
}

// Fit performs one optimization step toward target.
func (that *Network) Fit(input, target []float64) error {
	if len(input) != that.inputs() {
		return fmt.Errorf("%w: %w: input has %d values, want %d",
			apperror.ErrNumericOp, ErrShapeMismatch, len(input), that.inputs())
	}

	if len(target) != that.outputs() {
		return fmt.Errorf("%w: %w: target has %d values, want %d",
			apperror.ErrNumericOp, ErrShapeMismatch, len(target), that.outputs())
	}

	if err := checkFinite(target); err != nil {
		return err
	}

	activations := that.forward(input)
	last := len(that.Weights) - 1

	output := activations[last+1]
	delta := make([]float64, len(output))
	for j := range output {
		delta[j] = target[j] - output[j]
	}

	for l := last; l >= 0; l-- {
		prev := activations[l]

		// error of the previous layer has to be taken before the weights move
		var prevDelta []float64
		if l > 0 {
			prevDelta = make([]float64, len(prev))
			for i := range prev {
				if prev[i] <= 0 {
					continue // ReLU derivative
				}
				for j, d := range delta {
					prevDelta[i] += d * that.Weights[l][i][j]
				}
			}
		}

		for i := range prev {
			for j, d := range delta {
				that.VWeights[l][i][j] = that.Momentum*that.VWeights[l][i][j] + that.LearningRate*d*prev[i]
				that.Weights[l][i][j] += that.VWeights[l][i][j]
			}
		}

		for j, d := range delta {
			that.VBiases[l][j] = that.Momentum*that.VBiases[l][j] + that.LearningRate*d
			that.Biases[l][j] += that.VBiases[l][j]
		}

		delta = prevDelta
	}

	return nil
}

// Validate checks that a decoded network is internally consistent.
func (that *Network) Validate() error {
	if len(that.Sizes) < 2 {
		return fmt.Errorf("%w: network needs at least 2 layer sizes, got %d", ErrShapeMismatch, len(that.Sizes))
	}

	layers := len(that.Sizes) - 1
	if len(that.Weights) != layers || len(that.Biases) != layers ||
		len(that.VWeights) != layers || len(that.VBiases) != layers {
		return fmt.Errorf("%w: expected %d layers", ErrShapeMismatch, layers)
	}

	for l := 0; l < layers; l++ {
		in, out := that.Sizes[l], that.Sizes[l+1]
		if len(that.Weights[l]) != in || len(that.VWeights[l]) != in {
			return fmt.Errorf("%w: layer %d has wrong input size", ErrShapeMismatch, l)
		}
		for i := 0; i < in; i++ {
			if len(that.Weights[l][i]) != out || len(that.VWeights[l][i]) != out {
				return fmt.Errorf("%w: layer %d has wrong output size", ErrShapeMismatch, l)
			}
		}
		if len(that.Biases[l]) != out || len(that.VBiases[l]) != out {
			return fmt.Errorf("%w: layer %d has wrong bias size", ErrShapeMismatch, l)
		}
	}

	return nil
}

func (that *Network) forward(input []float64) [][]float64 {
	activations := make([][]float64, 0, len(that.Sizes))
	activations = append(activations, input)

	current := input
	for l, weights := range that.Weights {
		next := make([]float64, that.Sizes[l+1])
		copy(next, that.Biases[l])

		for i, a := range current {
			if a == 0 {
				continue
			}
			for j, w := range weights[i] {
				next[j] += a * w
			}
		}

		if l < len(that.Weights)-1 {
			for j := range next {
				next[j] = relu(next[j])
			}
		}

		activations = append(activations, next)
		current = next
	}

	return activations
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %w at index %d", apperror.ErrNumericOp, ErrNonFinite, i)
		}
	}

	return nil
}
