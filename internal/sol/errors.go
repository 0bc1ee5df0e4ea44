package sol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	ErrTransactionTooLarge = errors.New("transaction exceeds size limit")
	ErrConfirmTimeout      = errors.New("timed out waiting for confirmation")
	ErrBlockhashExpired    = errors.New("blockhash expired before confirmation")
)

// TxError is the cluster's TransactionError value decoded from JSON, e.g.
// {"InstructionError":[0,{"Custom":6001}]} or "BlockhashNotFound".
type TxError struct {
	Kind             string
	InstructionIndex int     // -1 unless Kind is InstructionError
	Detail           string  // instruction error variant, "Custom" for program errors
	Custom           *uint32 // program-defined error code
}

func (e *TxError) String() string {
	if e.Kind != "InstructionError" {
		return e.Kind
	}
	if e.Custom != nil {
		return fmt.Sprintf("Error processing Instruction %d: custom program error: %#x", e.InstructionIndex, *e.Custom)
	}
	return fmt.Sprintf("Error processing Instruction %d: %s", e.InstructionIndex, e.Detail)
}

// ParseTxError decodes v, which may be an already decoded JSON value or raw
// JSON bytes. It reports false for null or unrecognised shapes.
func ParseTxError(v any) (*TxError, bool) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, false
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		raw = b
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}

	var kind string
	if err := json.Unmarshal(raw, &kind); err == nil {
		return &TxError{Kind: kind, InstructionIndex: -1}, true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || len(obj) != 1 {
		return nil, false
	}
	for k, body := range obj {
		if k != "InstructionError" {
			return &TxError{Kind: k, InstructionIndex: -1}, true
		}
		return parseInstructionError(body)
	}
	return nil, false
}

func parseInstructionError(body json.RawMessage) (*TxError, bool) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil || len(parts) != 2 {
		return nil, false
	}
	out := &TxError{Kind: "InstructionError"}
	if err := json.Unmarshal(parts[0], &out.InstructionIndex); err != nil {
		return nil, false
	}
	if err := json.Unmarshal(parts[1], &out.Detail); err == nil {
		return out, true
	}
	var detail map[string]json.RawMessage
	if err := json.Unmarshal(parts[1], &detail); err != nil || len(detail) != 1 {
		return nil, false
	}
	for k, v := range detail {
		out.Detail = k
		if k == "Custom" {
			var code uint32
			if err := json.Unmarshal(v, &code); err != nil {
				return nil, false
			}
			out.Custom = &code
		}
	}
	return out, true
}

// TransactionError is returned when the cluster rejects a transaction at
// preflight or it lands with an error. Signature is zero for preflight
// rejections.
type TransactionError struct {
	Signature solana.Signature
	Err       *TxError
	Logs      []string
	cause     error
}

func (e *TransactionError) Error() string {
	if e.Signature == (solana.Signature{}) {
		return fmt.Sprintf("transaction rejected: %s", e.Err)
	}
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.cause }

// CustomCode extracts the program error code from err, if any.
func CustomCode(err error) (uint32, bool) {
	var te *TransactionError
	if !errors.As(err, &te) || te.Err == nil || te.Err.Custom == nil {
		return 0, false
	}
	return *te.Err.Custom, true
}

type simulationData struct {
	Err  json.RawMessage `json:"err"`
	Logs []string        `json:"logs"`
}

// fromRPCError turns a preflight failure into a *TransactionError. Other
// errors are returned unchanged.
func fromRPCError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Data == nil {
		return err
	}
	b, mErr := json.Marshal(rpcErr.Data)
	if mErr != nil {
		return err
	}
	var sim simulationData
	if json.Unmarshal(b, &sim) != nil {
		return err
	}
	txErr, ok := ParseTxError(sim.Err)
	if !ok {
		return err
	}
	return &TransactionError{Err: txErr, Logs: sim.Logs, cause: err}
}
