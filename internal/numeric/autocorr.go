package numeric

// Autocorrelation-time estimation for MCMC chains, following Sokal's
// automatic windowing: tau(M) = 1 + 2*sum_{t=1..M} rho(t), with the window M
// the smallest lag satisfying M >= c*tau(M).

// autocorrWindowFactor is the usual windowing constant c.
const autocorrWindowFactor = 5.

// chainLengthFactor is the minimum chain length, in units of tau, for the
// estimate to be considered reliable.
const chainLengthFactor = 50.

// AutocorrTime estimates the integrated autocorrelation time of one scalar
// chain. The returned ok is false when the chain is too short for the
// estimate to be trusted; the value is still returned so callers can log it.
func AutocorrTime(chain []float64) (tau float64, ok bool) {
	n := len(chain)
	if n < 2 {
		return 0, false
	}

	mean := Mean(chain)
	centered := make([]float64, n)
	for i, v := range chain {
		centered[i] = v - mean
	}

	var variance float64
	for _, v := range centered {
		variance += v * v
	}
	if variance == 0 {
		return 0, false
	}

	tau = 1.
	for lag := 1; lag < n; lag++ {
		var acf float64
		for i := 0; i+lag < n; i++ {
			acf += centered[i] * centered[i+lag]
		}
		tau += 2. * acf / variance

		if float64(lag) >= autocorrWindowFactor*tau {
			break
		}
	}

	if tau < 1. {
		tau = 1.
	}

	return tau, float64(n) >= chainLengthFactor*tau
}

// AutocorrTimes estimates the integrated autocorrelation time per parameter
// for a chain of shape (walkers, steps, params): the per-walker estimates
// are computed on the walker-averaged chain, as emcee does. ok is false when
// any parameter's chain is too short.
func AutocorrTimes(samples []float64, walkers, steps, params int) (taus []float64, ok bool) {
	taus = make([]float64, params)
	ok = true

	for p := 0; p < params; p++ {
		avg := make([]float64, steps)
		for t := 0; t < steps; t++ {
			var sum float64
			for w := 0; w < walkers; w++ {
				sum += samples[(w*steps+t)*params+p]
			}
			avg[t] = sum / float64(walkers)
		}

		tau, good := AutocorrTime(avg)
		taus[p] = tau
		if !good {
			ok = false
		}
	}

	return taus, ok
}
