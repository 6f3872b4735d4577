package starknet

import "math/big"

// Chain identifiers.
var (
	ChainIDMainnet = ShortString("SN_MAIN")
	ChainIDSepolia = ShortString("SN_SEPOLIA")
)

var deployAccountPrefix = ShortString("deploy_account")

// Resource names as they enter the fee part of a v3 transaction hash.
var (
	resourceL1Gas     = ShortString("L1_GAS")
	resourceL2Gas     = ShortString("L2_GAS")
	resourceL1DataGas = ShortString("L1_DATA")
)

// ResourceBound caps one resource: at most MaxAmount units at no more than
// MaxPricePerUnit (a u128) each.
type ResourceBound struct {
	MaxAmount       uint64
	MaxPricePerUnit *big.Int
}

// Max is the most the bound can cost.
func (b ResourceBound) Max() *big.Int {
	if b.MaxPricePerUnit == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(b.MaxAmount), b.MaxPricePerUnit)
}

func (b ResourceBound) encode(name *big.Int) *big.Int {
	v := new(big.Int).Lsh(name, 192)
	v.Or(v, new(big.Int).Lsh(new(big.Int).SetUint64(b.MaxAmount), 128))
	if b.MaxPricePerUnit != nil {
		v.Or(v, b.MaxPricePerUnit)
	}
	return v
}

// ResourceBounds are the v3 fee limits, paid in STRK.
type ResourceBounds struct {
	L1Gas     ResourceBound
	L2Gas     ResourceBound
	L1DataGas ResourceBound
}

// MaxFee is the most a transaction with these bounds can be charged,
// excluding tip.
func (r ResourceBounds) MaxFee() *big.Int {
	total := r.L1Gas.Max()
	total.Add(total, r.L2Gas.Max())
	return total.Add(total, r.L1DataGas.Max())
}

// DeployAccountV3 carries the fields of a version 3 DEPLOY_ACCOUNT
// transaction. Nonce and fee data availability are both L1 and the
// paymaster data is empty.
type DeployAccountV3 struct {
	ClassHash           *big.Int
	ContractAddressSalt *big.Int
	ConstructorCalldata []*big.Int
	Nonce               *big.Int
	Tip                 uint64
	ResourceBounds      ResourceBounds
}

// ContractAddress is the address the transaction deploys to.
func (tx *DeployAccountV3) ContractAddress() *big.Int {
	return ContractAddress(tx.ContractAddressSalt, tx.ClassHash, tx.ConstructorCalldata, new(big.Int))
}

// Hash computes the transaction hash signed by the account key.
func (tx *DeployAccountV3) Hash(chainID *big.Int) *big.Int {
	fees := PoseidonArray(
		new(big.Int).SetUint64(tx.Tip),
		tx.ResourceBounds.L1Gas.encode(resourceL1Gas),
		tx.ResourceBounds.L2Gas.encode(resourceL2Gas),
		tx.ResourceBounds.L1DataGas.encode(resourceL1DataGas),
	)

	return PoseidonArray(
		deployAccountPrefix,
		big.NewInt(3),
		tx.ContractAddress(),
		fees,
		PoseidonArray(), // paymaster data
		chainID,
		tx.Nonce,
		new(big.Int), // data availability modes, L1<<32 | L1
		PoseidonArray(tx.ConstructorCalldata...),
		tx.ClassHash,
		tx.ContractAddressSalt,
	)
}
