package checkout

import "time"

type Step string

const (
	StepAddItems     Step = "add_items"
	StepStockCheck   Step = "stock_check"
	StepConfirm      Step = "confirm"
	StepStockConsume Step = "stock_consume"
	StepPointAccrual Step = "point_accrual"
	StepPay          Step = "pay"
)

type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeSkipped         Outcome = "skipped"
	OutcomeTransportFailed Outcome = "transport_failed"
	OutcomeLogicalFailure  Outcome = "logical_failure"
)

// StepReport is the outcome of one saga step. Optional steps report failures here instead of returning them.
type StepReport struct {
	Step    Step
	Outcome Outcome
	Error   string
	Latency time.Duration
}

func (r StepReport) Failed() bool {
	return r.Outcome == OutcomeTransportFailed || r.Outcome == OutcomeLogicalFailure
}
