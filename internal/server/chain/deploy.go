package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/okhaimie-dev/PallyApp/internal/starknet"
)

const (
	txnVersion3 = "0x3"
	// 2^128 + 3, marks a v3 transaction that must never be executed
	queryVersion3 = "0x100000000000000000000000000000003"

	daModeL1 = "L1"

	simulationSkipValidate = "SKIP_VALIDATE"
)

var u128 = new(big.Int).Lsh(big.NewInt(1), 128)

// ResourceBound is the wire form of one v3 resource limit.
type ResourceBound struct {
	MaxAmount       string `json:"max_amount"`
	MaxPricePerUnit string `json:"max_price_per_unit"`
}

type ResourceBounds struct {
	L1Gas     ResourceBound `json:"l1_gas"`
	L2Gas     ResourceBound `json:"l2_gas"`
	L1DataGas ResourceBound `json:"l1_data_gas"`
}

// DeployAccountTxn is the wire form of a v3 DEPLOY_ACCOUNT.
type DeployAccountTxn struct {
	Type                      string         `json:"type"`
	Version                   string         `json:"version"`
	Signature                 []string       `json:"signature"`
	Nonce                     string         `json:"nonce"`
	ContractAddressSalt       string         `json:"contract_address_salt"`
	ConstructorCalldata       []string       `json:"constructor_calldata"`
	ClassHash                 string         `json:"class_hash"`
	ResourceBounds            ResourceBounds `json:"resource_bounds"`
	Tip                       string         `json:"tip"`
	PaymasterData             []string       `json:"paymaster_data"`
	NonceDataAvailabilityMode string         `json:"nonce_data_availability_mode"`
	FeeDataAvailabilityMode   string         `json:"fee_data_availability_mode"`
}

// DeployAccountResult is returned by starknet_addDeployAccountTransaction.
type DeployAccountResult struct {
	TransactionHash string `json:"transaction_hash"`
	ContractAddress string `json:"contract_address"`
}

// NewDeployAccountTxn renders tx for submission with its signature.
func NewDeployAccountTxn(tx *starknet.DeployAccountV3, sig *starknet.Signature) *DeployAccountTxn {
	w := newDeployAccountTxn(tx)
	w.Version = txnVersion3
	w.Signature = Felts([]*big.Int{sig.R, sig.S})
	return w
}

// NewDeployAccountQuery renders tx as an unsigned query-only transaction
// for fee estimation.
func NewDeployAccountQuery(tx *starknet.DeployAccountV3) *DeployAccountTxn {
	w := newDeployAccountTxn(tx)
	w.Version = queryVersion3
	w.Signature = []string{}
	return w
}

func newDeployAccountTxn(tx *starknet.DeployAccountV3) *DeployAccountTxn {
	return &DeployAccountTxn{
		Type:                "DEPLOY_ACCOUNT",
		Nonce:               Felt(tx.Nonce),
		ContractAddressSalt: Felt(tx.ContractAddressSalt),
		ConstructorCalldata: Felts(tx.ConstructorCalldata),
		ClassHash:           Felt(tx.ClassHash),
		ResourceBounds: ResourceBounds{
			L1Gas:     wireBound(tx.ResourceBounds.L1Gas),
			L2Gas:     wireBound(tx.ResourceBounds.L2Gas),
			L1DataGas: wireBound(tx.ResourceBounds.L1DataGas),
		},
		Tip:                       Felt(new(big.Int).SetUint64(tx.Tip)),
		PaymasterData:             []string{},
		NonceDataAvailabilityMode: daModeL1,
		FeeDataAvailabilityMode:   daModeL1,
	}
}

func wireBound(b starknet.ResourceBound) ResourceBound {
	price := b.MaxPricePerUnit
	if price == nil {
		price = new(big.Int)
	}
	return ResourceBound{
		MaxAmount:       Felt(new(big.Int).SetUint64(b.MaxAmount)),
		MaxPricePerUnit: Felt(price),
	}
}

// FeeEstimate is one entry of a starknet_estimateFee result.
type FeeEstimate struct {
	L1GasConsumed     string `json:"l1_gas_consumed"`
	L1GasPrice        string `json:"l1_gas_price"`
	L2GasConsumed     string `json:"l2_gas_consumed"`
	L2GasPrice        string `json:"l2_gas_price"`
	L1DataGasConsumed string `json:"l1_data_gas_consumed"`
	L1DataGasPrice    string `json:"l1_data_gas_price"`
	OverallFee        string `json:"overall_fee"`
	Unit              string `json:"unit"`
}

// ResourceBounds turns the estimate into transaction limits, raising both
// amounts and prices by headroomPct percent.
func (e *FeeEstimate) ResourceBounds(headroomPct int64) (starknet.ResourceBounds, error) {
	var (
		r   starknet.ResourceBounds
		err error
	)

	if r.L1Gas, err = bound(e.L1GasConsumed, e.L1GasPrice, headroomPct); err != nil {
		return r, fmt.Errorf("l1 gas: %w", err)
	}
	if r.L2Gas, err = bound(e.L2GasConsumed, e.L2GasPrice, headroomPct); err != nil {
		return r, fmt.Errorf("l2 gas: %w", err)
	}
	if r.L1DataGas, err = bound(e.L1DataGasConsumed, e.L1DataGasPrice, headroomPct); err != nil {
		return r, fmt.Errorf("l1 data gas: %w", err)
	}
	return r, nil
}

func bound(consumed, price string, headroomPct int64) (starknet.ResourceBound, error) {
	amount, err := parseQuantity(consumed)
	if err != nil {
		return starknet.ResourceBound{}, err
	}
	p, err := parseQuantity(price)
	if err != nil {
		return starknet.ResourceBound{}, err
	}

	amount = withHeadroom(amount, headroomPct)
	p = withHeadroom(p, headroomPct)

	if !amount.IsUint64() {
		return starknet.ResourceBound{}, fmt.Errorf("amount %s exceeds u64", consumed)
	}
	if p.Cmp(u128) >= 0 {
		return starknet.ResourceBound{}, fmt.Errorf("price %s exceeds u128", price)
	}
	return starknet.ResourceBound{MaxAmount: amount.Uint64(), MaxPricePerUnit: p}, nil
}

// parseQuantity accepts the hex quantities of the RPC; a missing field is zero.
func parseQuantity(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return starknet.ParseFelt(s)
}

func withHeadroom(v *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(100+pct))
	return out.Quo(out, big.NewInt(100))
}

// EstimateDeployAccountFee asks the node what tx would cost at the latest
// block. Validation is skipped so the query needs no signature.
func (c *Client) EstimateDeployAccountFee(ctx context.Context, tx *DeployAccountTxn) (*FeeEstimate, error) {
	var res []FeeEstimate
	err := c.rpc.CallContext(ctx, &res, "starknet_estimateFee",
		[]*DeployAccountTxn{tx}, []string{simulationSkipValidate}, blockLatest)
	if err != nil {
		return nil, mapError("starknet_estimateFee", err)
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("starknet_estimateFee: unexpected result length %d", len(res))
	}
	return &res[0], nil
}

// AddDeployAccountTransaction submits a signed DEPLOY_ACCOUNT.
func (c *Client) AddDeployAccountTransaction(ctx context.Context, tx *DeployAccountTxn) (*DeployAccountResult, error) {
	var res DeployAccountResult
	if err := c.rpc.CallContext(ctx, &res, "starknet_addDeployAccountTransaction", tx); err != nil {
		return nil, mapError("starknet_addDeployAccountTransaction", err)
	}
	return &res, nil
}
