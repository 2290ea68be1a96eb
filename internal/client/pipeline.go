// Package client implements the client-side three-world prediction
// pipeline (§4.4): the Template world tracks the server's authoritative
// state, the Prediction world runs ahead under local input, and
// ClientMain renders from the predicted state.
package client

import (
	"time"

	"github.com/andersfylling/predictsim/internal/clockest"
	"github.com/andersfylling/predictsim/internal/extract"
	"github.com/andersfylling/predictsim/internal/simulation"
)

// PredictionState is the Prediction world's state machine (§4.4): it
// never reaches a terminal state, only oscillates between Idle and
// Running for the lifetime of the client.
type PredictionState int

const (
	PredictionIdle PredictionState = iota
	PredictionRunning
)

func (s PredictionState) String() string {
	if s == PredictionRunning {
		return "running"
	}
	return "idle"
}

// Rates holds the per-frame tick-budget multipliers that let Template and
// Prediction catch up faster than real time (§6 prediction_rates).
type Rates struct {
	Template   float64
	Prediction float64
}

// Budget holds the accumulated (possibly fractional) tick allowance for
// Template and Prediction, credited each frame with Rates x
// ticks-queued-to-ClientMain and debited by the ticks actually run
// (§3 PredictionRates / PredictionBudget).
type Budget struct {
	Template   float64
	Prediction float64
}

// predictionUpdateHandle lets the Pipeline drive every registered
// PredictionUpdates[T] without needing to know T (see predictionupdates.go).
type predictionUpdateHandle interface {
	drainReconciled(before simulation.Tick)
	seedPrediction()
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	PredictionInterval time.Duration
	Rates              Rates
	SampleBufferSize   int
	ExtractConfig      extract.Config
	EstimatorBlend     float64 // 0 disables blending (strict monotonic assignment)
}

// Pipeline wires the three client-side simulation instances together and
// runs the per-frame sequence of §4.4(1-6).
type Pipeline struct {
	Template   *simulation.Instance
	Prediction *simulation.Instance
	Main       *simulation.Instance

	estimator          *clockest.Estimator
	predictionInterval time.Duration
	rates              Rates
	budget             Budget
	extractConfig      extract.Config

	state             PredictionState
	lastPredictedTick simulation.Tick
	latestServerTick  simulation.Tick

	pendingReset   bool
	pendingResetAt simulation.Tick

	predictionUpdateTypes []predictionUpdateHandle
}

// NewPipeline creates a three-world pipeline. step is the scheme's fixed
// tick interval, shared by all three worlds (I6).
func NewPipeline(step time.Duration, cfg PipelineConfig) *Pipeline {
	if cfg.SampleBufferSize <= 0 {
		cfg.SampleBufferSize = clockest.DefaultSampleBufferSize
	}

	est := clockest.New(step, cfg.SampleBufferSize)
	est.SetBlend(cfg.EstimatorBlend)

	return &Pipeline{
		Template:           simulation.NewInstance(simulation.RoleClientTemplate, step, nil),
		Prediction:         simulation.NewInstance(simulation.RoleClientPrediction, step, nil),
		Main:               simulation.NewInstance(simulation.RoleClientMain, step, nil),
		estimator:          est,
		predictionInterval: cfg.PredictionInterval,
		rates:              cfg.Rates,
		extractConfig:      cfg.ExtractConfig,
	}
}

// RunStartup runs SimulationPreStartup/Startup/PostStartup on all three
// worlds, once, before the first Frame.
func (p *Pipeline) RunStartup() {
	p.Template.RunStartup()
	p.Prediction.RunStartup()
	p.Main.RunStartup()
}

// registerPredictionUpdates is called by RegisterPredictionUpdates in
// predictionupdates.go.
func (p *Pipeline) registerPredictionUpdates(h predictionUpdateHandle) {
	p.predictionUpdateTypes = append(p.predictionUpdateTypes, h)
}

// OnResetClientSimulation records a pending reset to be applied at the
// start of the next Frame (§4.4 step 1, §7 "reset received mid-frame").
func (p *Pipeline) OnResetClientSimulation(tick simulation.Tick) {
	p.pendingReset = true
	p.pendingResetAt = tick
}

// OnUpdateServerTick feeds a received UpdateServerTick into the estimator
// and advances the Template world's target to at least this tick.
func (p *Pipeline) OnUpdateServerTick(now time.Time, tick simulation.Tick) {
	p.estimator.Push(now, tick)
	if tick > p.latestServerTick {
		p.latestServerTick = tick
	}
	if target := p.Template.Time.TargetTick(); tick > target {
		p.Template.Time.QueueTicks(uint32(tick - target))
	}
}

// Frame runs one client frame: the per-frame sequence of §4.4(1-6).
func (p *Pipeline) Frame(now time.Time) {
	p.observeReset(now)

	target := p.estimator.ClientMainTarget(now, p.predictionInterval)
	p.queueTicks(target)

	p.runTemplate()
	p.transitionPrediction()
	p.drainReconciledPredictionUpdates()
}

// observeReset applies a pending reset, if any (§4.4 step 1).
func (p *Pipeline) observeReset(now time.Time) {
	if !p.pendingReset {
		return
	}
	p.pendingReset = false
	r := p.pendingResetAt

	p.Template.Reset(r)
	p.Prediction.Reset(r)

	step := p.Template.Time.StepInterval()
	var aheadTicks simulation.Tick
	if step > 0 {
		aheadTicks = simulation.Tick(p.predictionInterval / step)
	}
	p.Main.Time.Reset(r + aheadTicks)

	p.estimator.Reset(now, r)
	p.state = PredictionIdle
	p.budget = Budget{}
	p.lastPredictedTick = r
	p.latestServerTick = r
}

// queueTicks advances ClientMain's target tick to whatever whole Δ's fit
// under targetElapsed, crediting Template and Prediction budgets for each
// newly queued tick (§4.4 step 3).
func (p *Pipeline) queueTicks(targetElapsed time.Duration) {
	before := p.Main.Time.TargetTick()
	p.Main.Time.SetTargetElapsed(targetElapsed)
	after := p.Main.Time.TargetTick()

	if after <= before {
		return
	}
	n := float64(after - before)
	p.budget.Template += n * p.rates.Template
	p.budget.Prediction += n * p.rates.Prediction

	// ClientMain advances its own frame-time clock; it runs no speculative
	// logic of its own, only keeps current_tick tracking target_tick.
	p.Main.TickNow(uint32(after - before))
}

// runTemplate drains min(desired, budget.template) ticks of Template,
// whose own target is latest_server_tick_seen (§4.4 step 4).
func (p *Pipeline) runTemplate() {
	desired := p.Template.Time.TicksOutstanding()
	budget := budgetTicks(p.budget.Template)
	n := min(desired, budget)

	ran := p.Template.TickNow(n)
	p.budget.Template -= float64(ran)
}

// transitionPrediction implements the Idle/Running state machine of
// §4.4 step 5.
func (p *Pipeline) transitionPrediction() {
	switch p.state {
	case PredictionIdle:
		if p.Template.Time.CurrentTick() == p.lastPredictedTick {
			return
		}

		extract.Run(p.Prediction, p.Template, p.extractConfig)
		p.Prediction.Time.ClearTarget()
		for _, h := range p.predictionUpdateTypes {
			h.seedPrediction()
		}

		p.lastPredictedTick = p.Template.Time.CurrentTick()
		p.state = PredictionRunning

	case PredictionRunning:
		var desired uint32
		if main, pred := p.Main.Time.CurrentTick(), p.Prediction.Time.CurrentTick(); main > pred {
			desired = uint32(main - pred)
		}

		budget := budgetTicks(p.budget.Prediction)
		n := min(desired, budget)

		p.Prediction.Time.QueueTicks(n)
		ran := p.Prediction.TickNow(n)
		p.budget.Prediction -= float64(ran)

		if p.Prediction.Time.CurrentTick() >= p.Main.Time.CurrentTick() {
			extract.Run(p.Main, p.Prediction, p.extractConfig)
			p.state = PredictionIdle
		}
	}
}

// drainReconciledPredictionUpdates removes PredictionUpdates[T] entries
// whose tick is now reflected in Template (§4.4 step 6).
func (p *Pipeline) drainReconciledPredictionUpdates() {
	for _, h := range p.predictionUpdateTypes {
		h.drainReconciled(p.lastPredictedTick)
	}
}

// State returns the Prediction world's current state-machine state.
func (p *Pipeline) State() PredictionState { return p.state }

// LastPredictedTick returns the tick Template was at when Prediction most
// recently restarted from it.
func (p *Pipeline) LastPredictedTick() simulation.Tick { return p.lastPredictedTick }

func budgetTicks(f float64) uint32 {
	if f <= 0 {
		return 0
	}
	return uint32(f)
}
