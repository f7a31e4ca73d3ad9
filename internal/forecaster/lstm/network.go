package lstm

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// param is one trainable weight matrix (biases are 1×n) together with its
// accumulated gradient and Adam moment estimates.
type param struct {
	name string
	w    *mat.Dense
	grad *mat.Dense
	m    *mat.Dense
	v    *mat.Dense
}

func newParam(name string, rows, cols int, init func() float64) *param {
	data := make([]float64, rows*cols)
	if init != nil {
		for i := range data {
			data[i] = init()
		}
	}
	return &param{
		name: name,
		w:    mat.NewDense(rows, cols, data),
		grad: mat.NewDense(rows, cols, nil),
		m:    mat.NewDense(rows, cols, nil),
		v:    mat.NewDense(rows, cols, nil),
	}
}

func (p *param) zeroGrad() {
	p.grad.Zero()
}

// glorot returns a Glorot-normal initializer for the given fan-in/fan-out.
func glorot(rng *rand.Rand, fanIn, fanOut int) func() float64 {
	scale := math.Sqrt(2.0 / float64(fanIn+fanOut))
	return func() float64 { return rng.NormFloat64() * scale }
}

// adamOptimizer implements the Adam update rule over a parameter set.
type adamOptimizer struct {
	learningRate float64
	beta1        float64
	beta2        float64
	epsilon      float64
	step         int
}

func newAdamOptimizer(learningRate float64) *adamOptimizer {
	return &adamOptimizer{
		learningRate: learningRate,
		beta1:        0.9,
		beta2:        0.999,
		epsilon:      1e-8,
	}
}

// update applies one Adam step. Accumulated gradients are scaled by
// gradScale (1/batch size) and clipped by global norm before the update.
func (o *adamOptimizer) update(params []*param, gradScale, clipNorm float64) {
	sumSq := 0.0
	for _, p := range params {
		rows, cols := p.grad.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.grad.At(i, j) * gradScale
				p.grad.Set(i, j, g)
				sumSq += g * g
			}
		}
	}
	clip := 1.0
	if norm := math.Sqrt(sumSq); clipNorm > 0 && norm > clipNorm {
		clip = clipNorm / norm
	}

	o.step++
	c1 := 1 - math.Pow(o.beta1, float64(o.step))
	c2 := 1 - math.Pow(o.beta2, float64(o.step))

	for _, p := range params {
		rows, cols := p.grad.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.grad.At(i, j) * clip
				m := o.beta1*p.m.At(i, j) + (1-o.beta1)*g
				v := o.beta2*p.v.At(i, j) + (1-o.beta2)*g*g
				p.m.Set(i, j, m)
				p.v.Set(i, j, v)
				p.w.Set(i, j, p.w.At(i, j)-o.learningRate*(m/c1)/(math.Sqrt(v/c2)+o.epsilon))
			}
		}
	}
}

// stepCache holds everything the backward pass needs for one timestep.
type stepCache struct {
	x, hPrev, cPrev         []float64
	i, f, o, g, c, tanhC, h []float64
}

// lstmLayer is a single LSTM layer with standard input/forget/output/cell
// gates, processing a full sequence per forward call.
type lstmLayer struct {
	inputSize  int
	hiddenSize int

	wi, wf, wo, wg *param // hidden × input
	ui, uf, uo, ug *param // hidden × hidden
	bi, bf, bo, bg *param // 1 × hidden

	cache []stepCache
}

func newLSTMLayer(name string, inputSize, hiddenSize int, rng *rand.Rand) *lstmLayer {
	wInit := glorot(rng, inputSize, hiddenSize)
	uInit := glorot(rng, hiddenSize, hiddenSize)

	layer := &lstmLayer{
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		wi:         newParam(name+".wi", hiddenSize, inputSize, wInit),
		wf:         newParam(name+".wf", hiddenSize, inputSize, wInit),
		wo:         newParam(name+".wo", hiddenSize, inputSize, wInit),
		wg:         newParam(name+".wg", hiddenSize, inputSize, wInit),
		ui:         newParam(name+".ui", hiddenSize, hiddenSize, uInit),
		uf:         newParam(name+".uf", hiddenSize, hiddenSize, uInit),
		uo:         newParam(name+".uo", hiddenSize, hiddenSize, uInit),
		ug:         newParam(name+".ug", hiddenSize, hiddenSize, uInit),
		bi:         newParam(name+".bi", 1, hiddenSize, nil),
		bf:         newParam(name+".bf", 1, hiddenSize, nil),
		bo:         newParam(name+".bo", 1, hiddenSize, nil),
		bg:         newParam(name+".bg", 1, hiddenSize, nil),
	}

	// Forget-gate bias starts at one so early training retains state.
	for j := 0; j < hiddenSize; j++ {
		layer.bf.w.Set(0, j, 1.0)
	}
	return layer
}

func (l *lstmLayer) params() []*param {
	return []*param{l.wi, l.wf, l.wo, l.wg, l.ui, l.uf, l.uo, l.ug, l.bi, l.bf, l.bo, l.bg}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// forward runs the layer over the whole sequence, caching activations for
// backpropagation, and returns the hidden state at every timestep.
func (l *lstmLayer) forward(seq [][]float64) [][]float64 {
	steps := len(seq)
	l.cache = make([]stepCache, steps)
	hs := make([][]float64, steps)

	h := make([]float64, l.hiddenSize)
	c := make([]float64, l.hiddenSize)

	for t := 0; t < steps; t++ {
		x := seq[t]
		sc := stepCache{
			x:     x,
			hPrev: h,
			cPrev: c,
			i:     make([]float64, l.hiddenSize),
			f:     make([]float64, l.hiddenSize),
			o:     make([]float64, l.hiddenSize),
			g:     make([]float64, l.hiddenSize),
			c:     make([]float64, l.hiddenSize),
			tanhC: make([]float64, l.hiddenSize),
			h:     make([]float64, l.hiddenSize),
		}

		for j := 0; j < l.hiddenSize; j++ {
			ai := l.bi.w.At(0, j)
			af := l.bf.w.At(0, j)
			ao := l.bo.w.At(0, j)
			ag := l.bg.w.At(0, j)
			for k := 0; k < l.inputSize; k++ {
				ai += l.wi.w.At(j, k) * x[k]
				af += l.wf.w.At(j, k) * x[k]
				ao += l.wo.w.At(j, k) * x[k]
				ag += l.wg.w.At(j, k) * x[k]
			}
			for k := 0; k < l.hiddenSize; k++ {
				ai += l.ui.w.At(j, k) * h[k]
				af += l.uf.w.At(j, k) * h[k]
				ao += l.uo.w.At(j, k) * h[k]
				ag += l.ug.w.At(j, k) * h[k]
			}
			sc.i[j] = sigmoid(ai)
			sc.f[j] = sigmoid(af)
			sc.o[j] = sigmoid(ao)
			sc.g[j] = math.Tanh(ag)
			sc.c[j] = sc.f[j]*c[j] + sc.i[j]*sc.g[j]
			sc.tanhC[j] = math.Tanh(sc.c[j])
			sc.h[j] = sc.o[j] * sc.tanhC[j]
		}

		h = sc.h
		c = sc.c
		l.cache[t] = sc
		hs[t] = sc.h
	}
	return hs
}

// backward propagates per-timestep hidden-state gradients through the
// cached sequence, accumulating parameter gradients, and returns the
// gradient with respect to each timestep's input.
func (l *lstmLayer) backward(dh [][]float64) [][]float64 {
	steps := len(l.cache)
	dx := make([][]float64, steps)

	dhNext := make([]float64, l.hiddenSize)
	dcNext := make([]float64, l.hiddenSize)

	for t := steps - 1; t >= 0; t-- {
		sc := l.cache[t]

		diP := make([]float64, l.hiddenSize)
		dfP := make([]float64, l.hiddenSize)
		doP := make([]float64, l.hiddenSize)
		dgP := make([]float64, l.hiddenSize)
		dcPrev := make([]float64, l.hiddenSize)

		for j := 0; j < l.hiddenSize; j++ {
			dhj := dhNext[j]
			if dh[t] != nil {
				dhj += dh[t][j]
			}

			do := dhj * sc.tanhC[j]
			dc := dhj*sc.o[j]*(1-sc.tanhC[j]*sc.tanhC[j]) + dcNext[j]

			di := dc * sc.g[j]
			dg := dc * sc.i[j]
			df := dc * sc.cPrev[j]
			dcPrev[j] = dc * sc.f[j]

			diP[j] = di * sc.i[j] * (1 - sc.i[j])
			dfP[j] = df * sc.f[j] * (1 - sc.f[j])
			doP[j] = do * sc.o[j] * (1 - sc.o[j])
			dgP[j] = dg * (1 - sc.g[j]*sc.g[j])
		}

		dxT := make([]float64, l.inputSize)
		dhPrev := make([]float64, l.hiddenSize)

		for j := 0; j < l.hiddenSize; j++ {
			for k := 0; k < l.inputSize; k++ {
				l.wi.grad.Set(j, k, l.wi.grad.At(j, k)+diP[j]*sc.x[k])
				l.wf.grad.Set(j, k, l.wf.grad.At(j, k)+dfP[j]*sc.x[k])
				l.wo.grad.Set(j, k, l.wo.grad.At(j, k)+doP[j]*sc.x[k])
				l.wg.grad.Set(j, k, l.wg.grad.At(j, k)+dgP[j]*sc.x[k])

				dxT[k] += l.wi.w.At(j, k)*diP[j] + l.wf.w.At(j, k)*dfP[j] +
					l.wo.w.At(j, k)*doP[j] + l.wg.w.At(j, k)*dgP[j]
			}
			for k := 0; k < l.hiddenSize; k++ {
				l.ui.grad.Set(j, k, l.ui.grad.At(j, k)+diP[j]*sc.hPrev[k])
				l.uf.grad.Set(j, k, l.uf.grad.At(j, k)+dfP[j]*sc.hPrev[k])
				l.uo.grad.Set(j, k, l.uo.grad.At(j, k)+doP[j]*sc.hPrev[k])
				l.ug.grad.Set(j, k, l.ug.grad.At(j, k)+dgP[j]*sc.hPrev[k])

				dhPrev[k] += l.ui.w.At(j, k)*diP[j] + l.uf.w.At(j, k)*dfP[j] +
					l.uo.w.At(j, k)*doP[j] + l.ug.w.At(j, k)*dgP[j]
			}
			l.bi.grad.Set(0, j, l.bi.grad.At(0, j)+diP[j])
			l.bf.grad.Set(0, j, l.bf.grad.At(0, j)+dfP[j])
			l.bo.grad.Set(0, j, l.bo.grad.At(0, j)+doP[j])
			l.bg.grad.Set(0, j, l.bg.grad.At(0, j)+dgP[j])
		}

		dx[t] = dxT
		dhNext = dhPrev
		dcNext = dcPrev
	}
	return dx
}

// denseLayer is a fully connected layer with optional ReLU activation.
type denseLayer struct {
	inputSize  int
	outputSize int
	relu       bool

	w *param // output × input
	b *param // 1 × output

	x []float64
	z []float64
}

func newDenseLayer(name string, inputSize, outputSize int, relu bool, rng *rand.Rand) *denseLayer {
	return &denseLayer{
		inputSize:  inputSize,
		outputSize: outputSize,
		relu:       relu,
		w:          newParam(name+".w", outputSize, inputSize, glorot(rng, inputSize, outputSize)),
		b:          newParam(name+".b", 1, outputSize, nil),
	}
}

func (d *denseLayer) params() []*param {
	return []*param{d.w, d.b}
}

func (d *denseLayer) forward(x []float64) []float64 {
	d.x = x
	d.z = make([]float64, d.outputSize)
	out := make([]float64, d.outputSize)

	for j := 0; j < d.outputSize; j++ {
		z := d.b.w.At(0, j)
		for k := 0; k < d.inputSize; k++ {
			z += d.w.w.At(j, k) * x[k]
		}
		d.z[j] = z
		if d.relu && z < 0 {
			out[j] = 0
		} else {
			out[j] = z
		}
	}
	return out
}

func (d *denseLayer) backward(dy []float64) []float64 {
	dx := make([]float64, d.inputSize)
	for j := 0; j < d.outputSize; j++ {
		dz := dy[j]
		if d.relu && d.z[j] < 0 {
			dz = 0
		}
		for k := 0; k < d.inputSize; k++ {
			d.w.grad.Set(j, k, d.w.grad.At(j, k)+dz*d.x[k])
			dx[k] += d.w.w.At(j, k) * dz
		}
		d.b.grad.Set(0, j, d.b.grad.At(0, j)+dz)
	}
	return dx
}

// network is the full sequence model: two stacked LSTM layers with dropout
// regularization between them, then dense layers reducing to one scalar.
type network struct {
	lookback int
	dropout  float64

	l1  *lstmLayer
	l2  *lstmLayer
	fc1 *denseLayer
	fc2 *denseLayer
}

func newNetwork(lookback, units int, dropout float64, rng *rand.Rand) *network {
	h1 := units
	h2 := units / 2
	if h2 < 1 {
		h2 = 1
	}
	d := units / 4
	if d < 1 {
		d = 1
	}
	return &network{
		lookback: lookback,
		dropout:  dropout,
		l1:       newLSTMLayer("l1", 1, h1, rng),
		l2:       newLSTMLayer("l2", h1, h2, rng),
		fc1:      newDenseLayer("fc1", h2, d, true, rng),
		fc2:      newDenseLayer("fc2", d, 1, false, rng),
	}
}

func (n *network) params() []*param {
	params := n.l1.params()
	params = append(params, n.l2.params()...)
	params = append(params, n.fc1.params()...)
	params = append(params, n.fc2.params()...)
	return params
}

// predict runs a clean forward pass (no dropout) over one scaled window.
func (n *network) predict(window []float64) float64 {
	seq := make([][]float64, len(window))
	for t, v := range window {
		seq[t] = []float64{v}
	}
	h1 := n.l1.forward(seq)
	h2 := n.l2.forward(h1)
	a1 := n.fc1.forward(h2[len(h2)-1])
	return n.fc2.forward(a1)[0]
}

// trainStep runs forward and backward for one (window, target) pair with
// inverted dropout, accumulating gradients, and returns the squared error.
func (n *network) trainStep(window []float64, target float64, rng *rand.Rand) float64 {
	seq := make([][]float64, len(window))
	for t, v := range window {
		seq[t] = []float64{v}
	}

	h1 := n.l1.forward(seq)

	mask1 := make([][]float64, len(h1))
	h1d := make([][]float64, len(h1))
	for t := range h1 {
		mask1[t] = dropoutMask(len(h1[t]), n.dropout, rng)
		h1d[t] = applyMask(h1[t], mask1[t])
	}

	h2 := n.l2.forward(h1d)
	last := h2[len(h2)-1]

	mask2 := dropoutMask(len(last), n.dropout, rng)
	h2d := applyMask(last, mask2)

	a1 := n.fc1.forward(h2d)
	yhat := n.fc2.forward(a1)[0]

	residual := yhat - target
	loss := residual * residual

	da1 := n.fc2.backward([]float64{2 * residual})
	dh2d := n.fc1.backward(da1)

	dh2 := make([][]float64, len(h2))
	dh2[len(h2)-1] = applyMask(dh2d, mask2)

	dh1d := n.l2.backward(dh2)
	dh1 := make([][]float64, len(dh1d))
	for t := range dh1d {
		dh1[t] = applyMask(dh1d[t], mask1[t])
	}
	n.l1.backward(dh1)

	return loss
}

func dropoutMask(n int, rate float64, rng *rand.Rand) []float64 {
	mask := make([]float64, n)
	if rate <= 0 {
		for i := range mask {
			mask[i] = 1
		}
		return mask
	}
	keep := 1 - rate
	for i := range mask {
		if rng.Float64() < keep {
			mask[i] = 1 / keep
		}
	}
	return mask
}

func applyMask(v, mask []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * mask[i]
	}
	return out
}
