package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tokensale/internal/config"
	"github.com/roach88/tokensale/internal/engine"
	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/store"
	"github.com/roach88/tokensale/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against a real engine persisting to a private
// in-memory store, with deterministic tx tokens.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	params engine.Params
	names  *names
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Build engine params from the scenario config
//  2. Create a fresh in-memory store and record the config
//  3. Start the engine with the store as its commit writer
//  4. Execute setup steps (must succeed, not traced)
//  5. Execute steps, tracing ops and events and checking expect clauses
//  6. Stop the engine, wait for every commit to persist
//  7. Evaluate assertions against the trace and the store
//
// A returned error means the scenario could not be executed at all;
// expectation and assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	cfg := config.Default()
	if scenario.Config != nil {
		cfg = scenario.Config.WithDefaults()
	}
	params, err := cfg.Params()
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}
	body, err := cfg.Marshal()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	if err := st.WriteConfig(ctx, body); err != nil {
		return nil, err
	}

	eng, err := engine.New(params,
		engine.WithWriter(st),
		engine.WithTxTokens(testutil.NewSequentialTokens("tx")),
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		engine: eng,
		params: params,
		names:  newNames(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	if _, err := h.names.account(cfg.Owner); err != nil {
		return nil, fmt.Errorf("scenario config: owner: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()

	result := NewResult()
	execErr := h.executeSetup(scenario.Setup)
	if execErr == nil {
		execErr = h.executeSteps(scenario.Steps, result)
	}

	eng.Stop()
	if err := <-done; err != nil {
		return nil, fmt.Errorf("engine run: %w", err)
	}
	if execErr != nil {
		return nil, execErr
	}
	if err := eng.LastError(); err != nil {
		return nil, fmt.Errorf("engine persistence: %w", err)
	}

	actx := &AssertionContext{
		Store:  st,
		Ctx:    ctx,
		Params: params,
		Engine: eng,
		names:  h.names,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeSetup runs all setup steps. Any rejection aborts the scenario.
func (h *Harness) executeSetup(setup []Step) error {
	for i, step := range setup {
		c, err := h.execute(step)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
		if step.Expect != nil && step.Expect.Events != nil {
			if msg := compareKinds(c, step.Expect.Events); msg != "" {
				return fmt.Errorf("setup step %d (%s): %s", i, step.Op, msg)
			}
		}
		h.logger.Info("setup step completed", "step", i, "op", step.Op, "events", len(c.Events))
	}
	return nil
}

// executeSteps runs the traced steps and validates their expect clauses.
// Engine rejections are outcomes to compare, not failures; any other error
// (a malformed argument) aborts the scenario.
func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		c, err := h.execute(step)
		code := string(engine.CodeOf(err))
		if err != nil && code == "" {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}

		result.AddOpTrace(i, step.Op, step.From, step.Args, code)
		for _, ev := range c.Events {
			result.AddEventTrace(i, ev.Seq, string(ev.Kind), h.names.render(ev.Asset), h.names.renderPayload(ev.Payload))
		}

		want := ""
		if step.Expect != nil {
			want = step.Expect.Error
		}
		if code != want {
			result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s",
				i, step.Op, describeOutcome(want), describeOutcome(code)+errSuffix(err)))
		} else if step.Expect != nil && step.Expect.Events != nil {
			if msg := compareKinds(c, step.Expect.Events); msg != "" {
				result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Op, msg))
			}
		}

		h.logger.Info("step completed",
			"step", i,
			"op", step.Op,
			"code", code,
			"events", len(c.Events),
		)
	}
	return nil
}

// execute resolves a step's arguments and submits it to the engine.
func (h *Harness) execute(step Step) (ir.Commit, error) {
	from, err := h.names.account(step.From)
	if err != nil {
		return ir.Commit{}, fmt.Errorf("from: %w", err)
	}
	args := step.Args

	switch step.Op {
	case engine.OpCreate:
		fee := h.params.CreationFee
		if s, ok := args["fee"]; ok {
			if fee, err = ir.ParseUnits(s); err != nil {
				return ir.Commit{}, fmt.Errorf("fee: %w", err)
			}
		}
		c, err := h.engine.Create(from, args["name"], args["symbol"], fee)
		if err != nil {
			return c, err
		}
		alias := step.As
		if alias == "" {
			alias = args["symbol"]
		}
		if err := h.names.bindAsset(alias, c.Events[0].Asset); err != nil {
			return c, err
		}
		return c, nil

	case engine.OpBuy:
		asset, err := h.names.asset(args["asset"])
		if err != nil {
			return ir.Commit{}, fmt.Errorf("asset: %w", err)
		}
		amount, err := ir.ParseUnits(args["amount"])
		if err != nil {
			return ir.Commit{}, fmt.Errorf("amount: %w", err)
		}
		var paid ir.Amount
		if s := args["paid"]; s == "" || s == "quote" {
			if paid, err = h.engine.Quote(asset, amount); err != nil {
				return ir.Commit{}, err
			}
		} else if paid, err = ir.ParseUnits(s); err != nil {
			return ir.Commit{}, fmt.Errorf("paid: %w", err)
		}
		return h.engine.Buy(from, asset, amount, paid)

	case engine.OpDeposit:
		asset, err := h.names.asset(args["asset"])
		if err != nil {
			return ir.Commit{}, fmt.Errorf("asset: %w", err)
		}
		return h.engine.Deposit(from, asset)

	case engine.OpWithdraw:
		amount, err := ir.ParseUnits(args["amount"])
		if err != nil {
			return ir.Commit{}, fmt.Errorf("amount: %w", err)
		}
		return h.engine.Withdraw(from, amount)

	case engine.OpTransfer:
		asset, err := h.names.asset(args["asset"])
		if err != nil {
			return ir.Commit{}, fmt.Errorf("asset: %w", err)
		}
		to, err := h.names.account(args["to"])
		if err != nil {
			return ir.Commit{}, fmt.Errorf("to: %w", err)
		}
		amount, err := ir.ParseUnits(args["amount"])
		if err != nil {
			return ir.Commit{}, fmt.Errorf("amount: %w", err)
		}
		return h.engine.Transfer(from, asset, to, amount)

	case engine.OpTransferOwnership:
		to, err := h.names.account(args["to"])
		if err != nil {
			return ir.Commit{}, fmt.Errorf("to: %w", err)
		}
		return h.engine.TransferOwnership(from, to)
	}
	return ir.Commit{}, fmt.Errorf("unknown op %q", step.Op)
}

// compareKinds checks the event kinds of a commit against an expected list.
func compareKinds(c ir.Commit, want []string) string {
	got := make([]string, len(c.Events))
	for i, ev := range c.Events {
		got[i] = string(ev.Kind)
	}
	if len(got) != len(want) {
		return fmt.Sprintf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Sprintf("expected events %v, got %v", want, got)
		}
	}
	return ""
}

func describeOutcome(code string) string {
	if code == "" {
		return "success"
	}
	return "error " + code
}

func errSuffix(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf(" (%v)", err)
}
