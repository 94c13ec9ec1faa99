package network

import "math"

// Activation is the logistic sigmoid.
func Activation(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Link is a directed edge between two neurons of the arena.
type Link struct {
	In      int
	Out     int
	Weight  float64
	Pending float64
	Signal  float64
}

// WeightedSignal returns the contribution of the link to its output neuron.
func (l *Link) WeightedSignal() float64 {
	return l.Signal * l.Weight
}

// setNewWeight stages a gradient descent step. Weight is left untouched.
func (l *Link) setNewWeight(gradient, rate float64) {
	l.Pending = l.Weight - rate*gradient
}

func (l *Link) commitWeight() {
	l.Weight = l.Pending
}

// Neuron holds indices into the link arena. Bias neurons emit a constant 1.0.
type Neuron struct {
	In   []int
	Out  []int
	Bias bool
}

const biasSignal = 1.0

// graph is the arena owning every neuron and link of a network.
type graph struct {
	neurons []Neuron
	links   []Link
}

func (g *graph) addNeuron(bias bool) int {
	g.neurons = append(g.neurons, Neuron{Bias: bias})
	return len(g.neurons) - 1
}

func (g *graph) connect(in, out int, weight float64) {
	g.links = append(g.links, Link{In: in, Out: out, Weight: weight, Pending: weight})
	idx := len(g.links) - 1
	g.neurons[in].Out = append(g.neurons[in].Out, idx)
	g.neurons[out].In = append(g.neurons[out].In, idx)
}

func (g *graph) outputSignal(n int) float64 {
	neuron := &g.neurons[n]
	if neuron.Bias {
		return biasSignal
	}
	sum := 0.0
	for _, li := range neuron.In {
		sum += g.links[li].WeightedSignal()
	}
	return Activation(sum)
}

// passSignal writes s onto every outgoing link of n.
func (g *graph) passSignal(n int, s float64) {
	for _, li := range g.neurons[n].Out {
		g.links[li].Signal = s
	}
}

// translateSignal computes n's output and forwards it downstream.
func (g *graph) translateSignal(n int) float64 {
	s := g.outputSignal(n)
	g.passSignal(n, s)
	return s
}
