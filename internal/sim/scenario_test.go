package sim

import (
	"context"
	"math"
	"testing"

	"github.com/onsi/gomega"

	"github.com/hemolab/pulsim/internal/cycle"
	"github.com/hemolab/pulsim/internal/models"
)

// cycleMean averages one state entry over cardiac cycle c (1-based),
// assuming every step was recorded and stepsPerCycle steps per cycle.
func cycleMean(res *Result, dof, c, stepsPerCycle int) float64 {
	lo := (c-1)*stepsPerCycle + 1 // skip the initial row
	hi := c * stepsPerCycle
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += res.States[i][dof]
	}
	return sum / float64(stepsPerCycle)
}

func dofIndex(t *testing.T, names []string, name string) int {
	t.Helper()
	for i, n := range names {
		if n == name {
			return i
		}
	}
	t.Fatalf("no dof named %q", name)
	return -1
}

func totalVolume(aux []float64) float64 {
	sum := 0.0
	for i := 0; i < 8; i++ {
		sum += aux[i]
	}
	return sum
}

func TestBaselineHeartCycleReachesPeriodicState(t *testing.T) {
	g := gomega.NewWithT(t)

	m, err := models.NewSyspul(models.DefaultSyspulParams())
	g.Expect(err).NotTo(gomega.HaveOccurred())

	tCycl := m.CycleLength()
	cfg := DefaultConfig()
	cfg.Dt = tCycl / 100
	cfg.NumSteps = 60 * 100
	cfg.Theta = 0.5
	cfg.InitialBE = true
	cfg.Cycle.Eps = 2e-8

	sm, err := New(m, cfg)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	res, err := sm.Run(context.Background(), models.DefaultSyspulInit())
	g.Expect(err).NotTo(gomega.HaveOccurred())

	g.Expect(res.Periodic).To(gomega.BeTrue(), "baseline run must reach a periodic state")
	g.Expect(res.CycleError).To(gomega.BeNumerically("<=", 2e-8))
	g.Expect(res.Cycles).To(gomega.BeNumerically("<=", 60))
	g.Expect(res.Cycles).To(gomega.BeNumerically(">=", 3))

	// Monotone counter property.
	want := int(math.Floor(float64(res.StepsTaken)*cfg.Dt/tCycl+1e-9)) + 1
	g.Expect(res.Cycles).To(gomega.Equal(want))

	// Sanity on the waveform: systemic arterial pressure stays within
	// a physiological band (kPa).
	iArt := dofIndex(t, m.Names(), "p_ar_sys")
	for _, s := range res.States {
		g.Expect(s[iArt]).To(gomega.BeNumerically(">", 0))
		g.Expect(s[iArt]).To(gomega.BeNumerically("<", 50))
	}
}

func TestBleedScenario(t *testing.T) {
	g := gomega.NewWithT(t)

	p := models.DefaultSyspulParams()
	p.VolumeLoss = 300e3 // mm^3, drawn over the window below
	p.BleedDuration = 6.0
	m, err := models.NewSyspul(p)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	tCycl := m.CycleLength()
	const stepsPerCycle = 100
	cfg := DefaultConfig()
	cfg.Dt = tCycl / stepsPerCycle
	cfg.NumSteps = 30 * stepsPerCycle
	cfg.Cycle = cycle.Config{
		Eps:               1e-30, // never terminate early
		Check:             cycle.CheckAllVar,
		PerturbType:       "bleed",
		PerturbFactor:     1.49,
		PerturbAfterCycle: 6,
	}

	sm, err := New(m, cfg)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	res, err := sm.Run(context.Background(), models.DefaultSyspulInit())
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(res.StepsTaken).To(gomega.Equal(cfg.NumSteps))

	// The perturbation fires at t=6; the volume-loss window spans
	// cycles 7 through 12. After the resistance/elastance step change
	// settles, the continuing hemorrhage drags arterial pressure down
	// cycle over cycle.
	iArt := dofIndex(t, m.Names(), "p_ar_sys")
	map9 := cycleMean(res, iArt, 9, stepsPerCycle)
	map10 := cycleMean(res, iArt, 10, stepsPerCycle)
	map11 := cycleMean(res, iArt, 11, stepsPerCycle)
	g.Expect(map10).To(gomega.BeNumerically("<", map9))
	g.Expect(map11).To(gomega.BeNumerically("<", map10))

	// After the window closes at t=12 the loop relaxes toward a new
	// equilibrium at the reduced blood volume. The large venous
	// compliance stretches that relaxation over many cycles, so cycles
	// 14-15 are still settling; the per-cycle change must have decayed
	// well below that early-relaxation rate by the end of the run.
	map14 := cycleMean(res, iArt, 14, stepsPerCycle)
	map15 := cycleMean(res, iArt, 15, stepsPerCycle)
	map29 := cycleMean(res, iArt, 29, stepsPerCycle)
	map30 := cycleMean(res, iArt, 30, stepsPerCycle)
	g.Expect(math.Abs(map30 - map29)).To(gomega.BeNumerically("<", 0.5*math.Abs(map15-map14)))

	// Total injected volume loss over the window matches the
	// configured constant to within integration error.
	rowAt := func(tm float64) int {
		return int(math.Round(tm / cfg.Dt))
	}
	vBefore := totalVolume(res.Aux[rowAt(6.0)])
	vAfter := totalVolume(res.Aux[rowAt(12.0)])
	g.Expect(vBefore - vAfter).To(gomega.BeNumerically("~", p.VolumeLoss, 0.01*p.VolumeLoss))
}
