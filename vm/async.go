package vm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/crypto"
	"github.com/opaline-labs/mintchain/events"
	"github.com/opaline-labs/mintchain/token"
)

// Async system calls model the two-step nature of token-class issuance and
// role granting. A handler enqueues a Job during its own transaction; the
// sealer injects a resolution transaction in a later block that executes the
// system primitive and delivers the result to the registered callback. Both
// steps are individually atomic, so observers can see the intermediate
// (pending) state but never a torn one.

// Job kinds resolved by handleResolveAsync.
const (
	JobIssueClass = "issue_class"
	JobSetRole    = "set_role"
)

const (
	cellAsyncQueue     = "async:queue"
	cellAsyncJobPrefix = "async:job:"
)

// EscrowAddress holds the attached payment of queued jobs until resolution.
// Keeping the deposit out of the enqueueing contract's own account means the
// contract can sweep or spend its balance freely while a job is in flight.
var EscrowAddress = crypto.Hash([]byte("mintchain/async-escrow"))[:40]

// Job is a pending async system call persisted in state.
type Job struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Caller   string          `json:"caller"`   // original external caller
	Holder   string          `json:"holder"`   // account holding Payment until resolution
	Payment  *big.Int        `json:"payment"`  // consumed on success, returned on failure
	Callback string          `json:"callback"` // registered CallbackHandler name, may be empty
	Params   json.RawMessage `json:"params"`
}

// RoleParams are the parameters of a set_role job.
type RoleParams struct {
	ClassID string `json:"class_id"`
	Address string `json:"address"`
	Role    string `json:"role"`
}

// AsyncResult is what a CallbackHandler receives after resolution.
type AsyncResult struct {
	Ok              bool     `json:"ok"`
	ClassID         string   `json:"class_id,omitempty"`
	Err             string   `json:"err,omitempty"`
	ReturnedPayment *big.Int `json:"returned_payment,omitempty"`
}

// Enqueue persists job and appends it to the pending queue. The job ID is
// derived from the enqueueing transaction so it is deterministic across
// replays.
func Enqueue(ctx *Context, job *Job) (string, error) {
	job.ID = crypto.Hash([]byte(ctx.Tx.ID + "/" + job.Kind))[:16]

	if _, err := loadJob(ctx.State, job.ID); err == nil {
		return "", fmt.Errorf("async job %s already queued", job.ID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return "", err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if err := ctx.State.SetCell(cellAsyncJobPrefix+job.ID, data); err != nil {
		return "", err
	}

	ids, err := queueIDs(ctx.State)
	if err != nil {
		return "", err
	}
	ids = append(ids, job.ID)
	return job.ID, saveQueue(ctx.State, ids)
}

// PendingJobIDs returns the queued job IDs in enqueue order. The sealer uses
// this to inject one resolution transaction per job into the next block.
func PendingJobIDs(st core.State) ([]string, error) {
	return queueIDs(st)
}

func queueIDs(st core.State) ([]string, error) {
	data, err := st.GetCell(cellAsyncQueue)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func saveQueue(st core.State, ids []string) error {
	if len(ids) == 0 {
		return st.ClearCell(cellAsyncQueue)
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return st.SetCell(cellAsyncQueue, data)
}

func loadJob(st core.State, id string) (*Job, error) {
	data, err := st.GetCell(cellAsyncJobPrefix + id)
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func removeJob(st core.State, id string) error {
	if err := st.ClearCell(cellAsyncJobPrefix + id); err != nil {
		return err
	}
	ids, err := queueIDs(st)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, q := range ids {
		if q != id {
			kept = append(kept, q)
		}
	}
	return saveQueue(st, kept)
}

func init() {
	Register(core.TxResolveAsync, handleResolveAsync)
}

// handleResolveAsync executes the queued system primitive and delivers the
// result to the job's callback, all inside one transaction. Only the sealer
// may submit this transaction type.
func handleResolveAsync(ctx *Context, payload json.RawMessage) error {
	if ctx.Tx.From != core.SystemAddress {
		return errors.New("resolve_async is sealer-only")
	}
	var p core.ResolveAsyncPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	job, err := loadJob(ctx.State, p.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", p.JobID, err)
	}
	if err := removeJob(ctx.State, p.JobID); err != nil {
		return err
	}

	var res AsyncResult
	switch job.Kind {
	case JobIssueClass:
		res = resolveIssueClass(ctx, job)
	case JobSetRole:
		res = resolveSetRole(ctx, job)
	default:
		return fmt.Errorf("unknown async job kind %q", job.Kind)
	}

	if job.Callback != "" {
		cb, ok := globalRegistry.callback(job.Callback)
		if !ok {
			return fmt.Errorf("callback %q not registered", job.Callback)
		}
		if err := cb(ctx, job, res); err != nil {
			return fmt.Errorf("callback %q: %w", job.Callback, err)
		}
	}
	return nil
}

func resolveIssueClass(ctx *Context, job *Job) AsyncResult {
	var params token.IssueParams
	if err := json.Unmarshal(job.Params, &params); err != nil {
		return AsyncResult{Err: fmt.Sprintf("decode issue params: %v", err), ReturnedPayment: job.Payment}
	}
	classID, err := token.IssueClass(ctx.State, params, ctx.Tx.ID, job.Payment)
	if err != nil {
		if ctx.Emitter != nil {
			ctx.Emitter.Emit(events.Event{
				Type:        events.EventIssueFailed,
				TxID:        ctx.Tx.ID,
				BlockHeight: ctx.Block.Header.Height,
				Data:        map[string]any{"err": err.Error(), "caller": job.Caller},
			})
		}
		return AsyncResult{Err: err.Error(), ReturnedPayment: job.Payment}
	}
	// The issue cost is consumed by the system on success.
	if err := Burn(ctx.State, job.Holder, job.Payment); err != nil {
		return AsyncResult{Err: err.Error(), ReturnedPayment: job.Payment}
	}
	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventClassIssued,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data:        map[string]any{"class_id": classID, "owner": params.Owner},
		})
	}
	return AsyncResult{Ok: true, ClassID: classID}
}

func resolveSetRole(ctx *Context, job *Job) AsyncResult {
	var params RoleParams
	if err := json.Unmarshal(job.Params, &params); err != nil {
		return AsyncResult{Err: fmt.Sprintf("decode role params: %v", err)}
	}
	if err := token.SetRole(ctx.State, params.ClassID, params.Address, params.Role); err != nil {
		return AsyncResult{Err: err.Error()}
	}
	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventRolesGranted,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data:        map[string]any{"class_id": params.ClassID, "address": params.Address, "role": params.Role},
		})
	}
	return AsyncResult{Ok: true, ClassID: params.ClassID}
}
