package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/roach88/modelsync/internal/codec"
	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/journal"
	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
	"github.com/roach88/modelsync/internal/pipeline"
	"github.com/roach88/modelsync/internal/replicator"
	"github.com/roach88/modelsync/internal/testutil"
)

// Harness is the scenario execution engine. It owns the origin partition,
// the mirror it replicates to and the journal recording it.
type Harness struct {
	lang   *language.Language
	root   *model.Node
	nodes  map[string]*model.Node
	pipe   *pipeline.Pipeline
	origin *replicator.Replicator

	decoder    codec.Decoder
	mirror     *replicator.Replicator
	mirrorPipe *pipeline.Pipeline
	echoes     int

	journal  *journal.Journal
	recorder *journal.Recorder

	result *Result
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the language twice, once per side
//  2. Build the origin tree from the setup steps
//  3. Copy it to the mirror and journal its snapshot
//  4. Run the steps; each notification is encoded, decoded and applied
//  5. Replay the journal and check that all three trees agree
//  6. Evaluate the assertions
//
// The returned error reports a scenario that could not be executed; a
// scenario that ran but failed is reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	lang, err := language.LoadFile(scenario.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to load language: %w", err)
	}
	mirrorLang, err := language.LoadFile(scenario.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to load language: %w", err)
	}

	rootClassifier := lang.ClassifierNamed(scenario.Partition.Classifier)
	if rootClassifier == nil || !rootClassifier.Partition {
		return nil, fmt.Errorf("classifier %q is not a partition", scenario.Partition.Classifier)
	}
	root := model.NewNode(scenario.Partition.ID, rootClassifier)

	h := &Harness{
		lang:    lang,
		root:    root,
		nodes:   map[string]*model.Node{root.ID(): root},
		decoder: codec.Decoder{Language: mirrorLang},
		result:  NewResult(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for i, step := range scenario.Setup {
		if err := h.exec(step); err != nil {
			return nil, fmt.Errorf("failed to execute setup[%d] %s: %w", i, step.Op, err)
		}
	}

	mirrorRoot, err := h.decoder.DecodeTree(codec.Tree(root))
	if err != nil {
		return nil, fmt.Errorf("failed to copy partition: %w", err)
	}

	h.journal, err = journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer h.journal.Close()
	if _, err := h.journal.Begin(ctx, root); err != nil {
		return nil, fmt.Errorf("failed to journal partition: %w", err)
	}

	h.mirrorPipe = pipeline.New(pipeline.WithGenerator(testutil.NewSequenceGenerator("mirror")))
	h.mirror, err = replicator.New(mirrorLang, mirrorRoot, h.mirrorPipe,
		replicator.WithSender(replicator.SenderFunc(h.echo)))
	if err != nil {
		return nil, fmt.Errorf("failed to start mirror: %w", err)
	}

	h.pipe = pipeline.New(pipeline.WithGenerator(testutil.NewSequenceGenerator(scenario.causePrefix())))
	h.origin, err = replicator.New(lang, root, h.pipe,
		replicator.WithSender(replicator.SenderFunc(h.wire)))
	if err != nil {
		return nil, fmt.Errorf("failed to start origin: %w", err)
	}
	h.recorder = h.journal.Recorder(ctx, root.ID())
	h.pipe.Tap(h.recorder)

	h.executeSteps(scenario.Steps)
	h.converge(ctx, mirrorLang)

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, h.mirror) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// executeSteps runs the replicated steps. The first unexpected outcome
// fails the result and stops execution, since later steps would act on a
// state the scenario did not anticipate.
func (h *Harness) executeSteps(steps []Step) {
	for i, step := range steps {
		err := h.exec(step)
		h.logger.Debug("step executed",
			"index", i,
			"op", step.Op,
			"node", step.Node,
			"error", err,
		)
		if step.ExpectError != "" {
			if got := errorCode(err); got != step.ExpectError {
				h.result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %v", i, step.Op, step.ExpectError, err))
				return
			}
			continue
		}
		if err != nil {
			h.result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
			return
		}
	}
}

// wire carries one origin notification to the mirror through the codec.
func (h *Harness) wire(n model.Notification) error {
	body, err := codec.Encode(n)
	if err != nil {
		return err
	}
	data, err := ir.MarshalCanonical(body)
	if err != nil {
		return err
	}
	parts := model.Unwrap(n)
	kinds := make([]string, len(parts))
	for i, p := range parts {
		kinds[i] = p.Kind().String()
	}
	h.result.AddTrace(n.Kind().String(), kinds, body)

	decoded, err := h.decoder.Unmarshal(data)
	if err != nil {
		return err
	}
	return h.mirror.Apply(decoded)
}

// echo receives what the mirror forwards. Applied changes are suppressed
// on the mirror, so anything arriving here is an echo.
func (h *Harness) echo(n model.Notification) error {
	h.echoes++
	h.logger.Debug("mirror echoed notification",
		"kind", n.Kind().String(),
		"cause", string(n.Cause()),
	)
	return nil
}

// converge checks that the mirror and the journal replay equal the origin.
func (h *Harness) converge(ctx context.Context, replayLang *language.Language) {
	r := h.result
	r.Suppressed = int(promtest.ToFloat64(h.mirrorPipe.Metrics().Suppressed))
	r.Journaled = h.recorder.Appended()
	r.Origin = testutil.Dump(h.root)
	r.Mirror = testutil.Dump(h.mirror.Root())

	if err := h.origin.SendErr(); err != nil {
		r.AddError(fmt.Sprintf("sending to mirror failed: %v", err))
	}
	if err := h.mirror.Desynchronized(); err != nil {
		r.AddError(fmt.Sprintf("mirror desynchronized: %v", err))
	}
	if h.echoes > 0 {
		r.AddError(fmt.Sprintf("mirror echoed %d notification(s)", h.echoes))
	}
	if r.Mirror != r.Origin {
		r.AddError((&AssertionError{
			Type:     "convergence",
			Expected: r.Origin,
			Actual:   r.Mirror,
			Trace:    r.Trace,
		}).Error())
	}

	if err := h.recorder.Err(); err != nil {
		r.AddError(fmt.Sprintf("journal append failed: %v", err))
		return
	}
	replayed, err := h.journal.Replay(ctx, replayLang, h.root.ID())
	if err != nil {
		r.AddError(fmt.Sprintf("journal replay failed: %v", err))
		return
	}
	r.Replayed = testutil.Dump(replayed.Root())
	if r.Replayed != r.Origin {
		r.AddError((&AssertionError{
			Type:     "replay",
			Expected: r.Origin,
			Actual:   r.Replayed,
			Trace:    r.Trace,
		}).Error())
	}
}
