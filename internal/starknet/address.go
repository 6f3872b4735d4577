package starknet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

var (
	contractAddressPrefix = ShortString("STARKNET_CONTRACT_ADDRESS")

	// 2^251 - 256
	addressBound = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 251), big.NewInt(256))

	mask250 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))
)

// ContractAddress computes the address a contract gets when deployed with
// the given salt, class hash, constructor calldata and deployer.
func ContractAddress(salt, classHash *big.Int, calldata []*big.Int, deployer *big.Int) *big.Int {
	h := PedersenArray(
		contractAddressPrefix,
		deployer,
		salt,
		classHash,
		PedersenArray(calldata...),
	)
	return h.Mod(h, addressBound)
}

// AccountAddress is the counterfactual address of a single-signer account
// whose salt and only constructor argument are the public key, deployed by
// the zero address.
func AccountAddress(publicKey, classHash *big.Int) *big.Int {
	return ContractAddress(publicKey, classHash, []*big.Int{publicKey}, new(big.Int))
}

// Selector returns the entry point selector for a function name.
func Selector(name string) *big.Int {
	h := new(big.Int).SetBytes(crypto.Keccak256([]byte(name)))
	return h.And(h, mask250)
}
