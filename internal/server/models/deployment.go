package models

import "math/big"

// DeploymentStatus reports whether an account contract exists on chain.
type DeploymentStatus struct {
	AccountAddress string
	IsDeployed     bool
}

// DeploymentRequirements reports fee-token balance against the minimum
// needed to deploy. Amounts are in base units of the fee token named by Unit.
type DeploymentRequirements struct {
	AccountAddress  string
	Unit            string
	CurrentBalance  *big.Int
	MinimumRequired *big.Int
	CanDeploy       bool
}

// DeploymentResult is the outcome of a deploy attempt.
type DeploymentResult struct {
	Success         bool
	TransactionHash string
	AccountAddress  string
	Error           string
}

// DeploymentCost is the fee budget of a DEPLOY_ACCOUNT, in base units.
type DeploymentCost struct {
	MaxFee *big.Int
	Unit   string
}
