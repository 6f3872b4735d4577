// Package chain is a small Starknet JSON-RPC client covering what account
// provisioning needs: class lookups, ERC-20 balance reads, DEPLOY_ACCOUNT
// fee estimation and submission, and receipt polling.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/okhaimie-dev/PallyApp/internal/starknet"
)

// JSON-RPC error codes defined by the Starknet API.
const (
	codeContractNotFound = 20
	codeTxnHashNotFound  = 29
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrTxnNotFound      = errors.New("transaction not found")
	ErrTxnReverted      = errors.New("transaction reverted")
)

const blockLatest = "latest"

// Execution and finality states reported in receipts.
const (
	ExecutionSucceeded = "SUCCEEDED"
	ExecutionReverted  = "REVERTED"
)

// Receipt is the subset of a transaction receipt the service inspects.
type Receipt struct {
	TransactionHash string `json:"transaction_hash"`
	ExecutionStatus string `json:"execution_status"`
	FinalityStatus  string `json:"finality_status"`
	RevertReason    string `json:"revert_reason,omitempty"`
}

type functionCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// Client talks to one Starknet node.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a node over HTTP(S) or WebSocket.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("can't dial starknet rpc %s: %w", url, err)
	}
	return &Client{rpc: c}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID returns the network identifier (SN_MAIN, SN_SEPOLIA, ...).
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var res string
	if err := c.rpc.CallContext(ctx, &res, "starknet_chainId"); err != nil {
		return nil, fmt.Errorf("starknet_chainId: %w", err)
	}
	return starknet.ParseFelt(res)
}

// ClassHashAt returns the class hash deployed at address, or
// ErrContractNotFound if nothing is deployed there.
func (c *Client) ClassHashAt(ctx context.Context, address *big.Int) (*big.Int, error) {
	var res string
	err := c.rpc.CallContext(ctx, &res, "starknet_getClassHashAt", blockLatest, Felt(address))
	if err != nil {
		return nil, mapError("starknet_getClassHashAt", err)
	}
	return starknet.ParseFelt(res)
}

// Call runs a read-only entry point at the latest block.
func (c *Client) Call(ctx context.Context, contract *big.Int, entryPoint string, calldata ...*big.Int) ([]*big.Int, error) {
	req := functionCall{
		ContractAddress:    Felt(contract),
		EntryPointSelector: Felt(starknet.Selector(entryPoint)),
		Calldata:           Felts(calldata),
	}

	var res []string
	if err := c.rpc.CallContext(ctx, &res, "starknet_call", req, blockLatest); err != nil {
		return nil, mapError("starknet_call", err)
	}

	out := make([]*big.Int, len(res))
	for i, s := range res {
		v, err := starknet.ParseFelt(s)
		if err != nil {
			return nil, fmt.Errorf("starknet_call result: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

// BalanceOf reads an ERC-20 balance as a u256 (low, high) pair.
func (c *Client) BalanceOf(ctx context.Context, token, account *big.Int) (*big.Int, error) {
	res, err := c.Call(ctx, token, "balanceOf", account)
	if err != nil {
		return nil, err
	}

	switch len(res) {
	case 1:
		return res[0], nil
	case 2:
		high := new(big.Int).Lsh(res[1], 128)
		return high.Add(high, res[0]), nil
	default:
		return nil, fmt.Errorf("balanceOf: unexpected result length %d", len(res))
	}
}

// TransactionReceipt returns the receipt or ErrTxnNotFound.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var res Receipt
	if err := c.rpc.CallContext(ctx, &res, "starknet_getTransactionReceipt", hash); err != nil {
		return nil, mapError("starknet_getTransactionReceipt", err)
	}
	return &res, nil
}

// WaitForTransaction polls until the transaction has a receipt or ctx ends.
// A reverted execution is reported as ErrTxnReverted.
func (c *Client) WaitForTransaction(ctx context.Context, hash string, interval time.Duration) (*Receipt, error) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		r, err := c.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && r.ExecutionStatus == ExecutionReverted:
			return r, fmt.Errorf("%w: %s", ErrTxnReverted, r.RevertReason)
		case err == nil:
			return r, nil
		case !errors.Is(err, ErrTxnNotFound):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func mapError(method string, err error) error {
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		switch rerr.ErrorCode() {
		case codeContractNotFound:
			return fmt.Errorf("%s: %w", method, ErrContractNotFound)
		case codeTxnHashNotFound:
			return fmt.Errorf("%s: %w", method, ErrTxnNotFound)
		}
	}
	return fmt.Errorf("%s: %w", method, err)
}

// Felt renders v in the RPC's canonical form: 0x without leading zeros.
func Felt(v *big.Int) string {
	return "0x" + v.Text(16)
}

// Felts renders a slice with Felt.
func Felts(vs []*big.Int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = Felt(v)
	}
	return out
}
