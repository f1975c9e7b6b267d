package analyzer_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cardiosim/internal/analyzer"
	"github.com/san-kum/cardiosim/internal/models"
	"github.com/san-kum/cardiosim/internal/sim"
)

const tol = 1e-6

var _ = Describe("analyzers on a synthetic train", func() {
	var w train
	const n = 6500

	BeforeEach(func() {
		w = train{
			dt:      0.1,
			onsets:  []float64{10, 310, 510},
			plateau: []float64{100, 100, 50},
		}
	})

	Describe("APD", func() {
		It("measures each beat at a fixed threshold", func() {
			a := analyzer.NewAPD("V", -60)
			play(a, w, n)

			beats := a.Beats()
			Expect(beats).To(HaveLen(3))
			Expect(beats[0].Activation).To(BeNumerically("~", 10.4, tol))
			Expect(beats[0].Repolarization).To(BeNumerically("~", 120, tol))
			Expect(beats[1].APD()).To(BeNumerically("~", 109.6, tol))
			Expect(beats[2].APD()).To(BeNumerically("~", 59.6, tol))
			Expect(beats[2].Onset).To(BeNumerically("~", 510, tol))

			r := a.Report()
			Expect(r["beat_0"]).To(BeNumerically("~", 109.6, tol))
			Expect(r["last"]).To(BeNumerically("~", 59.6, tol))
		})

		It("measures fractional repolarization from the beat's resting level", func() {
			a := analyzer.NewAPDPercent("V", -60, 0.9)
			play(a, w, n)

			b, ok := a.Beat(0)
			Expect(ok).To(BeTrue())
			Expect(b.Rest).To(BeNumerically("~", -80, tol))
			Expect(b.Peak).To(BeNumerically("~", 20, tol))
			Expect(b.APD()).To(BeNumerically("~", 110.6, tol))
		})

		It("leaves a beat that never repolarizes as NaN", func() {
			a := analyzer.NewAPD("V", -60)
			play(a, w, 5300)

			b, ok := a.Beat(2)
			Expect(ok).To(BeTrue())
			Expect(b.Activation).To(BeNumerically("~", 510.4, tol))
			Expect(math.IsNaN(b.APD())).To(BeTrue())
		})

		It("clears previous measurements on reset", func() {
			a := analyzer.NewAPD("V", -60)
			play(a, w, n)
			play(a, w, 200)
			Expect(a.Beats()).To(HaveLen(1))
		})

		It("rejects an unknown variable", func() {
			a := analyzer.NewAPD("Vm", -60)
			err := a.Reset(sim.NewFrame(sim.NewState(waveLayout)))
			Expect(err).To(MatchError(sim.ErrUnknownVariable))
		})
	})

	Describe("Restitution", func() {
		It("reports S1 APD, DI and S2 APD", func() {
			r := analyzer.NewRestitution("V", -60)
			play(r, w, n)

			p := r.Point()
			Expect(p.Coupling).To(BeNumerically("~", 200, tol))
			Expect(p.S1APD).To(BeNumerically("~", 109.6, tol))
			Expect(p.DI).To(BeNumerically("~", 90.4, tol))
			Expect(p.S2APD).To(BeNumerically("~", 59.6, tol))
			Expect(r.Report()).To(HaveKeyWithValue("di", BeNumerically("~", 90.4, tol)))
		})

		It("reports NaN when the S2 beat was never reached", func() {
			r := analyzer.NewRestitution("V", -60)
			play(r, w, 4000)
			Expect(math.IsNaN(r.Point().S2APD)).To(BeTrue())
			Expect(math.IsNaN(r.Point().DI)).To(BeTrue())
		})
	})

	Describe("a premature beat inside the previous action potential", func() {
		BeforeEach(func() {
			// S2 arrives at 400 during the plateau of the beat at 310, which
			// repolarizes at 420. Its upstroke follows at 430.
			w.onsets = []float64{10, 310, 400}
			w.latency = []float64{0, 0, 30}
		})

		It("finishes measuring the earlier beat", func() {
			a := analyzer.NewAPD("V", -60)
			play(a, w, n)

			beats := a.Beats()
			Expect(beats).To(HaveLen(3))
			Expect(beats[1].Repolarization).To(BeNumerically("~", 420, tol))
			Expect(beats[1].APD()).To(BeNumerically("~", 109.6, tol))
			Expect(beats[2].Onset).To(BeNumerically("~", 400, tol))
			Expect(beats[2].Activation).To(BeNumerically("~", 430.4, tol))
			Expect(beats[2].APD()).To(BeNumerically("~", 59.6, tol))
		})

		It("takes the premature beat's rest level after the earlier beat", func() {
			a := analyzer.NewAPDPercent("V", -60, 0.9)
			play(a, w, n)

			b, ok := a.Beat(2)
			Expect(ok).To(BeTrue())
			Expect(b.Rest).To(BeNumerically("~", -80, tol))
			Expect(b.APD()).To(BeNumerically("~", 60.6, tol))
		})

		It("reports a finite restitution point", func() {
			r := analyzer.NewRestitution("V", -60)
			play(r, w, n)

			p := r.Point()
			Expect(p.Coupling).To(BeNumerically("~", 90, tol))
			Expect(p.S1APD).To(BeNumerically("~", 109.6, tol))
			Expect(p.DI).To(BeNumerically("~", 10.4, tol))
			Expect(p.S2APD).To(BeNumerically("~", 59.6, tol))
		})

		It("leaves an unanswered premature beat unmeasured", func() {
			w.latency = []float64{0, 0, 1000}
			r := analyzer.NewRestitution("V", -60)
			play(r, w, n)

			p := r.Point()
			Expect(p.S1APD).To(BeNumerically("~", 109.6, tol))
			Expect(math.IsNaN(p.S2APD)).To(BeTrue())
			Expect(math.IsNaN(p.DI)).To(BeTrue())
		})
	})

	Describe("Upstroke", func() {
		It("finds the steepest rise per beat", func() {
			u := analyzer.NewUpstroke("V")
			play(u, w, n)

			for beat := 0; beat < 3; beat++ {
				rate, at, ok := u.Max(beat)
				Expect(ok).To(BeTrue())
				Expect(rate).To(BeNumerically("~", 50, tol))
				Expect(at).To(BeNumerically(">", w.onsets[beat]))
			}
			Expect(u.Report()["max"]).To(BeNumerically("~", 50, tol))
		})
	})

	Describe("Extrema", func() {
		It("tracks range and times", func() {
			e := analyzer.NewExtrema("V", "x")
			play(e, w, n)

			v, ok := e.Of("V")
			Expect(ok).To(BeTrue())
			Expect(v.Min).To(Equal(-80.0))
			Expect(v.Max).To(Equal(20.0))
			Expect(v.TMax).To(BeNumerically("~", 12, tol))

			x, _ := e.Of("x")
			Expect(x.Max).To(Equal(float64(n - 1)))
			Expect(e.Report()).To(HaveKey("x.tmax"))
		})
	})

	Describe("Trace", func() {
		It("records the initial point and every step", func() {
			tr := analyzer.NewTrace("V")
			play(tr, w, n)

			Expect(tr.Len()).To(Equal(n + 1))
			Expect(tr.Columns()).To(Equal([]string{"V"}))
			Expect(tr.Times()[0]).To(Equal(0.0))
			Expect(tr.Series("V")[0]).To(Equal(-80.0))
			Expect(tr.Series("x")).To(BeNil())
		})

		It("records every variable when none are named", func() {
			tr := analyzer.NewTrace()
			play(tr, w, 10)
			Expect(tr.Columns()).To(Equal([]string{"V", "x"}))
		})
	})

	Describe("Snapshot", func() {
		It("captures requested times and the final state", func() {
			s := analyzer.NewSnapshot(200, 100)
			play(s, w, n)

			states, times := s.Taken()
			Expect(states).To(HaveLen(2))
			Expect(times[0]).To(BeNumerically("~", 100, tol))
			Expect(states[1].At(1)).To(BeNumerically("~", 1999, 0.5))
			Expect(s.Final().At(1)).To(Equal(float64(n - 1)))
		})
	})
})

var _ = Describe("analyzers in a Beeler-Reuter run", func() {
	It("measures a restitution point over the final two beats", func() {
		m := models.NewBeelerReuter()
		info := m.Info()

		s := sim.New(m)
		s.AddAnalyzer(analyzer.NewRestitution(info.Voltage, info.Threshold), sim.FinalBeats(2))
		s.AddAnalyzer(analyzer.NewTrace(info.Voltage), sim.Every(100))

		res, err := s.Run(context.Background(), m.Defaults())
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Values["restitution.coupling"]).To(BeNumerically("~", 500, 1e-6))
		Expect(res.Values["restitution.s1_apd"]).To(BeNumerically(">", 150))
		Expect(res.Values["restitution.s1_apd"]).To(BeNumerically("<", 450))
		Expect(res.Values["restitution.di"]).To(BeNumerically(">", 0))
		Expect(res.Values["restitution.s2_apd"]).To(BeNumerically(">", 50))
		Expect(res.Values["trace.points"]).To(Equal(float64((res.Iterations-1)/100 + 2)))
	})

	It("keeps extrema inside the observed window", func() {
		m := models.NewBeelerReuter()
		info := m.Info()

		s := sim.New(m)
		s.AddAnalyzer(analyzer.NewExtrema(info.Voltage), sim.FinalBeats(1))

		res, err := s.Run(context.Background(), m.Defaults())
		Expect(err).NotTo(HaveOccurred())

		// S2 onset is 10 + 1000 + 500.
		Expect(res.Values["extrema.V.tmin"]).To(BeNumerically(">=", 1510))
		Expect(res.Values["extrema.V.tmax"]).To(BeNumerically(">=", 1510))
		Expect(res.Values["extrema.V.max"]).To(BeNumerically(">", 0))
	})

	It("measures the last S1 beat when S2 lands on its plateau", func() {
		m := models.NewBeelerReuter()
		info := m.Info()

		s := sim.New(m)
		s.AddAnalyzer(analyzer.NewRestitution(info.Voltage, info.Threshold), sim.FinalBeats(2))

		p := m.Defaults()
		p["s2"] = 250
		res, err := s.Run(context.Background(), p)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Values["restitution.coupling"]).To(BeNumerically("~", 250, 1e-6))
		Expect(res.Values["restitution.s1_apd"]).To(BeNumerically(">", 250))
		Expect(res.Values["restitution.s1_apd"]).To(BeNumerically("<", 450))
	})
})
