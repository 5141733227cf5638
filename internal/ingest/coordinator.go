// Package ingest implements the public write path: StoreUpdate, the sole
// entry point that classifies an update, deduplicates it, delegates
// verification, writes into Storage, and completes a slot once both
// halves are present.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/SEJeff/pyth-crosschain/internal/merkle"
	"github.com/SEJeff/pyth-crosschain/internal/store"
	"github.com/SEJeff/pyth-crosschain/internal/verifier"
	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
)

// ErrIntegrity signals a fatal data-integrity failure while completing a
// slot: a computed Merkle root disagreeing with the committed one, or a
// raw message that fails to decode. store_update propagates this to the
// caller; it is not a normal ignore.
var ErrIntegrity = errors.New("ingest: integrity failure")

// Update is one unit of work accepted by StoreUpdate: either raw VAA
// bytes or a decoded accumulator-message batch.
type Update interface {
	isUpdate()
}

// VAAUpdate carries raw, not-yet-parsed VAA bytes.
type VAAUpdate struct {
	Bytes []byte
}

func (VAAUpdate) isUpdate() {}

// AccumulatorMessagesUpdate carries an already-decoded batch.
type AccumulatorMessagesUpdate struct {
	Batch store.AccumulatorMessages
}

func (AccumulatorMessagesUpdate) isUpdate() {}

// slotEntry provides per-slot mutual exclusion so buildMessageStates
// runs at most once per slot regardless of arrival order. A coarse
// global lock would serialize unrelated slots under bursty arrival, so
// each slot gets its own.
type slotEntry struct {
	mu        sync.Mutex
	completed bool
}

// metrics groups the coordinator's Prometheus instrumentation.
type metrics struct {
	completions        prometheus.Counter
	integrityFailures  prometheus.Counter
	duplicateVAAs      prometheus.Counter
	nonApplicableVAAs  prometheus.Counter
	unverifiableVAAs   prometheus.Counter
	storeUpdateSeconds prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		completions: factory.NewCounter(prometheus.CounterOpts{
			Name: "oracled_slot_completions_total",
			Help: "Number of slots that reached the completed state.",
		}),
		integrityFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "oracled_integrity_failures_total",
			Help: "Number of store_update calls that failed with an integrity error.",
		}),
		duplicateVAAs: factory.NewCounter(prometheus.CounterOpts{
			Name: "oracled_duplicate_vaas_total",
			Help: "Number of VAAs ignored because their sequence was already observed.",
		}),
		nonApplicableVAAs: factory.NewCounter(prometheus.CounterOpts{
			Name: "oracled_non_applicable_vaas_total",
			Help: "Number of VAAs ignored because they targeted a foreign emitter.",
		}),
		unverifiableVAAs: factory.NewCounter(prometheus.CounterOpts{
			Name: "oracled_unverifiable_vaas_total",
			Help: "Number of VAAs dropped for failing guardian quorum or an unknown guardian set.",
		}),
		storeUpdateSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "oracled_store_update_seconds",
			Help:    "Latency of a single store_update call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Coordinator is the ingestion write path: it correlates VAAs with
// accumulator batches by slot and completes each slot exactly once.
type Coordinator struct {
	storage  *store.Storage
	verifier *verifier.Verifier
	observed *ObservedVAASeqs

	slotsMu sync.Mutex
	slots   map[store.Slot]*slotEntry

	lastCompletedMu sync.RWMutex
	lastCompletedAt time.Time

	completions chan struct{}

	logger  *zap.Logger
	metrics *metrics
}

// New builds a Coordinator wired to storage and verifier, publishing one
// completion signal per completed slot on a channel buffered to
// completionBufferSize.
func New(storage *store.Storage, v *verifier.Verifier, completionBufferSize int, logger *zap.Logger, reg prometheus.Registerer) *Coordinator {
	return &Coordinator{
		storage:     storage,
		verifier:    v,
		observed:    NewObservedVAASeqs(),
		slots:       make(map[store.Slot]*slotEntry),
		completions: make(chan struct{}, completionBufferSize),
		logger:      logger,
		metrics:     newMetrics(reg),
	}
}

// Completions returns the out-edge of unit-valued completion
// notifications, one per completed slot.
func (c *Coordinator) Completions() <-chan struct{} {
	return c.completions
}

// IsReady reports whether a slot has completed within the last threshold
// of monotonic time.
func (c *Coordinator) IsReady(threshold time.Duration) bool {
	c.lastCompletedMu.RLock()
	defer c.lastCompletedMu.RUnlock()
	if c.lastCompletedAt.IsZero() {
		return false
	}
	return time.Since(c.lastCompletedAt) < threshold
}

// slotEntryWindow bounds how far behind the newest slot per-slot entries
// are kept. Entries that far back can no longer complete anyway, since
// their partial state has been evicted from Storage.
const slotEntryWindow = 8192

func (c *Coordinator) entryFor(slot store.Slot) *slotEntry {
	c.slotsMu.Lock()
	defer c.slotsMu.Unlock()
	e, ok := c.slots[slot]
	if !ok {
		e = &slotEntry{}
		c.slots[slot] = e
	}
	if len(c.slots) > slotEntryWindow {
		for s := range c.slots {
			if s+slotEntryWindow < slot {
				delete(c.slots, s)
			}
		}
	}
	return e
}

// StoreUpdate is the coordinator's single public write operation.
func (c *Coordinator) StoreUpdate(ctx context.Context, update Update) error {
	start := time.Now()
	defer func() { c.metrics.storeUpdateSeconds.Observe(time.Since(start).Seconds()) }()

	var slot store.Slot
	switch u := update.(type) {
	case VAAUpdate:
		s, applicable, err := c.ingestVAA(u.Bytes)
		if err != nil {
			return err
		}
		if !applicable {
			return nil
		}
		slot = s
	case AccumulatorMessagesUpdate:
		c.storage.StoreAccumulatorMessages(u.Batch)
		slot = u.Batch.Slot
	default:
		return fmt.Errorf("ingest: unknown update type %T", update)
	}

	return c.tryComplete(ctx, slot)
}

// ingestVAA implements step 1's VAA branch: a peek for emitter/dedup,
// full verification, sequence bookkeeping, and payload decode. It
// returns the slot the VAA targets and whether the VAA was applicable
// (false means silently ignored).
func (c *Coordinator) ingestVAA(raw []byte) (store.Slot, bool, error) {
	peeked, err := verifier.PeekEmitter(raw)
	if err != nil {
		c.logger.Info("dropping unparseable VAA", zap.Error(err))
		return 0, false, nil
	}

	if !c.verifier.Applicable(peeked) {
		c.metrics.nonApplicableVAAs.Inc()
		return 0, false, nil
	}

	if c.observed.Contains(peeked.Sequence) {
		c.metrics.duplicateVAAs.Inc()
		return 0, false, nil
	}

	parsed, err := c.verifier.Verify(raw)
	if err != nil {
		if errors.Is(err, verifier.ErrNonApplicable) {
			c.metrics.nonApplicableVAAs.Inc()
			return 0, false, nil
		}
		c.metrics.unverifiableVAAs.Inc()
		c.logger.Info("dropping unverifiable VAA",
			zap.Error(err),
			zap.Uint64("sequence", peeked.Sequence),
			zap.String("emitterAddress", hexutil.Encode(peeked.EmitterAddress.Bytes())),
		)
		return 0, false, nil
	}

	c.observed.Insert(parsed.Sequence)

	root, err := vaa.ParseWormholeMerkleRoot(parsed.Payload)
	if err != nil {
		c.logger.Info("dropping VAA with unparseable payload", zap.Error(err))
		return 0, false, nil
	}

	// The raw bytes are kept verbatim so update-data blobs can re-emit
	// exactly what the guardians signed.
	c.storage.StoreWormholeMerkleState(store.WormholeMerkleState{Root: root, VAABytes: raw})
	return store.Slot(root.Slot), true, nil
}

// tryComplete implements steps 2-7: read back both halves, and if both
// are present, build message states exactly once for this slot.
func (c *Coordinator) tryComplete(ctx context.Context, slot store.Slot) error {
	entry := c.entryFor(slot)

	entry.mu.Lock()
	if entry.completed {
		entry.mu.Unlock()
		return nil
	}

	root, haveRoot := c.storage.FetchWormholeMerkleState(slot)
	batch, haveMsgs := c.storage.FetchAccumulatorMessages(slot)
	if !haveRoot || !haveMsgs {
		entry.mu.Unlock()
		return nil
	}

	states, err := buildMessageStates(slot, batch, root)
	if err != nil {
		entry.mu.Unlock()
		c.metrics.integrityFailures.Inc()
		return err
	}

	c.storage.StoreMessageStates(states)
	entry.completed = true
	entry.mu.Unlock()

	c.metrics.completions.Inc()
	c.setLastCompletedAt(time.Now())

	select {
	case c.completions <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildMessageStates verifies the stored root against the tree computed
// over the batch's raw messages and decodes each message into a
// MessageState. Any mismatch or decode failure is an Integrity error.
func buildMessageStates(slot store.Slot, batch store.AccumulatorMessages, root store.WormholeMerkleState) ([]store.MessageState, error) {
	tree, err := merkle.BuildAndCheck(batch.Messages, root.Root.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	now := time.Now().Unix()
	states := make([]store.MessageState, 0, len(batch.Messages))
	for i, raw := range batch.Messages {
		msg, err := vaa.ParseMessage(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode message %d: %v", ErrIntegrity, i, err)
		}

		// Every message in the batch counts toward the committed root and
		// must decode cleanly, but only PriceFeedMessage carries the
		// feed_id the per-feed history is keyed by; other variants are
		// proof-checked above and then dropped rather than indexed.
		if msg.PriceFeed == nil {
			continue
		}

		proof, ok := tree.Proof(i)
		if !ok {
			return nil, fmt.Errorf("%w: missing proof for index %d", ErrIntegrity, i)
		}

		states = append(states, store.MessageState{
			Message:    msg,
			RawMessage: raw,
			Proof:      store.ProofSet{MerkleProof: proof},
			Slot:       slot,
			ReceivedAt: now,
		})
	}

	return states, nil
}

func (c *Coordinator) setLastCompletedAt(t time.Time) {
	c.lastCompletedMu.Lock()
	defer c.lastCompletedMu.Unlock()
	c.lastCompletedAt = t
}
