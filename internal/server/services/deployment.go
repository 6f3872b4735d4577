package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/server/chain"
	"github.com/okhaimie-dev/PallyApp/internal/server/keyderivation"
	"github.com/okhaimie-dev/PallyApp/internal/server/metrics"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/okhaimie-dev/PallyApp/internal/starknet"
)

// Fee token contracts on Starknet.
const (
	STRKTokenAddress = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
	ETHTokenAddress  = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
)

const (
	DefaultDeployWaitTimeout  = 5 * time.Minute
	DefaultDeployPollInterval = 5 * time.Second

	// added to both amounts and prices of the node's fee estimate
	feeHeadroomPct = 50

	// v3 transactions always pay fees in STRK
	txFeeUnit = "STRK"
)

// ChainClient is the node access the deployment service needs.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	ClassHashAt(ctx context.Context, address *big.Int) (*big.Int, error)
	BalanceOf(ctx context.Context, token, account *big.Int) (*big.Int, error)
	EstimateDeployAccountFee(ctx context.Context, tx *chain.DeployAccountTxn) (*chain.FeeEstimate, error)
	AddDeployAccountTransaction(ctx context.Context, tx *chain.DeployAccountTxn) (*chain.DeployAccountResult, error)
	WaitForTransaction(ctx context.Context, hash string, interval time.Duration) (*chain.Receipt, error)
}

// SecretLoader returns a stored wallet including its private key.
type SecretLoader interface {
	LoadSecret(ctx context.Context, email string) (*models.Wallet, error)
}

// DeploymentConfig configures the deployment service. FeeToken and FeeUnit
// describe the balance gate; an empty FeeUnit is derived from the token.
// MaxFee caps the STRK a deploy transaction may be charged.
type DeploymentConfig struct {
	ClassHash    string
	FeeToken     string
	FeeUnit      string
	MinBalance   *big.Int
	MaxFee       *big.Int
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// DeploymentService checks and performs account contract deployment.
type DeploymentService struct {
	chain   ChainClient
	wallets SecretLoader
	logger  logging.Logger

	classHash    *big.Int
	feeToken     *big.Int
	feeUnit      string
	minBalance   *big.Int
	maxFee       *big.Int
	waitTimeout  time.Duration
	pollInterval time.Duration
}

func NewDeploymentService(c ChainClient, wallets SecretLoader, cfg DeploymentConfig, logger logging.Logger) (*DeploymentService, error) {
	classHash, err := starknet.ParseFelt(orDefault(cfg.ClassHash, keyderivation.DefaultAccountClassHash))
	if err != nil {
		return nil, fmt.Errorf("account class hash: %w", err)
	}
	feeToken, err := starknet.ParseFelt(orDefault(cfg.FeeToken, STRKTokenAddress))
	if err != nil {
		return nil, fmt.Errorf("fee token: %w", err)
	}

	s := &DeploymentService{
		chain:        c,
		wallets:      wallets,
		logger:       logger.With("module", "deployment"),
		classHash:    classHash,
		feeToken:     feeToken,
		feeUnit:      orDefault(cfg.FeeUnit, tokenUnit(feeToken)),
		minBalance:   cfg.MinBalance,
		maxFee:       cfg.MaxFee,
		waitTimeout:  cfg.WaitTimeout,
		pollInterval: cfg.PollInterval,
	}
	if s.minBalance == nil {
		s.minBalance = mustAmount("0.5")
	}
	if s.maxFee == nil {
		s.maxFee = mustAmount("0.1")
	}
	if s.waitTimeout <= 0 {
		s.waitTimeout = DefaultDeployWaitTimeout
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultDeployPollInterval
	}
	return s, nil
}

// tokenUnit names the well-known fee tokens.
func tokenUnit(token *big.Int) string {
	switch starknet.FormatFelt(token) {
	case ETHTokenAddress:
		return "ETH"
	case STRKTokenAddress:
		return "STRK"
	}
	return starknet.FormatFelt(token)
}

// CheckStatus reports whether a contract is deployed at address. Lookup
// failures and a zero class hash read as not deployed.
func (s *DeploymentService) CheckStatus(ctx context.Context, address string) *models.DeploymentStatus {
	st := &models.DeploymentStatus{AccountAddress: address}

	addr, err := starknet.ParseFelt(address)
	if err != nil {
		return st
	}

	classHash, err := s.chain.ClassHashAt(ctx, addr)
	if err != nil {
		if !errors.Is(err, chain.ErrContractNotFound) {
			s.logger.Warn(ctx, "class hash lookup failed", "address", address, "error", err)
		}
		return st
	}

	st.IsDeployed = classHash.Sign() != 0
	return st
}

// CheckRequirements compares the fee-token balance of address with the
// deployment minimum. A failed read counts as a zero balance.
func (s *DeploymentService) CheckRequirements(ctx context.Context, address string) *models.DeploymentRequirements {
	req := &models.DeploymentRequirements{
		AccountAddress:  address,
		Unit:            s.feeUnit,
		CurrentBalance:  new(big.Int),
		MinimumRequired: new(big.Int).Set(s.minBalance),
	}

	addr, err := starknet.ParseFelt(address)
	if err != nil {
		return req
	}

	bal, err := s.chain.BalanceOf(ctx, s.feeToken, addr)
	if err != nil {
		s.logger.Warn(ctx, "balance read failed", "address", address, "error", err)
		return req
	}

	req.CurrentBalance = bal
	req.CanDeploy = bal.Cmp(s.minBalance) >= 0
	return req
}

// EstimateCost returns the fee budget of deploy transactions.
func (s *DeploymentService) EstimateCost() *models.DeploymentCost {
	return &models.DeploymentCost{MaxFee: new(big.Int).Set(s.maxFee), Unit: txFeeUnit}
}

// DeployForEmail deploys the stored wallet of email.
func (s *DeploymentService) DeployForEmail(ctx context.Context, email string) (*models.DeploymentResult, error) {
	w, err := s.wallets.LoadSecret(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.Deploy(ctx, w.PrivateKey, w.PublicKey, w.AccountAddress)
}

// Deploy signs and submits a v3 DEPLOY_ACCOUNT for the given keypair and
// waits for its receipt. Resource bounds come from the node's fee estimate
// and their total must fit the fee budget. Once submitted, the outcome is
// reported in the result; the wait is bounded by the configured timeout,
// not by ctx.
func (s *DeploymentService) Deploy(ctx context.Context, privateKey, publicKey, address string) (*models.DeploymentResult, error) {
	pk, err := starknet.ParseFelt(privateKey)
	if err != nil || !starknet.ValidPrivateKey(pk) {
		return nil, common.ErrInvalidPrivateKey
	}

	pub := starknet.StarkKey(pk)
	if starknet.FormatFelt(pub) != publicKey {
		return nil, fmt.Errorf("%w: public key does not match", common.ErrorValidation)
	}

	tx := &starknet.DeployAccountV3{
		ClassHash:           s.classHash,
		ContractAddressSalt: pub,
		ConstructorCalldata: []*big.Int{pub},
		Nonce:               new(big.Int),
	}
	if starknet.FormatFelt(tx.ContractAddress()) != address {
		return nil, fmt.Errorf("%w: account address does not match", common.ErrorValidation)
	}

	if s.CheckStatus(ctx, address).IsDeployed {
		metrics.Deployments.WithLabelValues("already_deployed").Inc()
		return nil, common.ErrAlreadyDeployed
	}

	req := s.CheckRequirements(ctx, address)
	if !req.CanDeploy {
		metrics.Deployments.WithLabelValues("insufficient_funds").Inc()
		return nil, fmt.Errorf("%w: balance %s %s, required %s %s", common.ErrInsufficientFunds,
			chain.FormatAmount(req.CurrentBalance, chain.TokenDecimals), s.feeUnit,
			chain.FormatAmount(req.MinimumRequired, chain.TokenDecimals), s.feeUnit)
	}

	chainID, err := s.chain.ChainID(ctx)
	if err != nil {
		metrics.Deployments.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", common.ErrChainSubmission, err)
	}

	est, err := s.chain.EstimateDeployAccountFee(ctx, chain.NewDeployAccountQuery(tx))
	if err != nil {
		metrics.Deployments.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: estimate fee: %w", common.ErrChainSubmission, err)
	}
	tx.ResourceBounds, err = est.ResourceBounds(feeHeadroomPct)
	if err != nil {
		metrics.Deployments.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: estimate fee: %w", common.ErrChainSubmission, err)
	}
	if fee := tx.ResourceBounds.MaxFee(); fee.Cmp(s.maxFee) > 0 {
		metrics.Deployments.WithLabelValues("fee_too_high").Inc()
		return nil, fmt.Errorf("%w: bounded fee %s %s, budget %s %s", common.ErrFeeTooHigh,
			chain.FormatAmount(fee, chain.TokenDecimals), txFeeUnit,
			chain.FormatAmount(s.maxFee, chain.TokenDecimals), txFeeUnit)
	}

	hash := tx.Hash(chainID)
	sig, err := starknet.Sign(pk, hash)
	if err != nil {
		return nil, fmt.Errorf("sign deploy transaction: %w", err)
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.waitTimeout)
	defer cancel()

	sub, err := s.chain.AddDeployAccountTransaction(wctx, chain.NewDeployAccountTxn(tx, sig))
	if err != nil {
		metrics.Deployments.WithLabelValues("failed").Inc()
		s.logger.Error(ctx, "deploy submission failed", "address", address, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrChainSubmission, err)
	}

	s.logger.Info(ctx, "deploy submitted", "address", address, "tx_hash", sub.TransactionHash)

	res := &models.DeploymentResult{TransactionHash: sub.TransactionHash, AccountAddress: address}

	if _, err := s.chain.WaitForTransaction(wctx, sub.TransactionHash, s.pollInterval); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = common.ErrTransactionTimeout
		}
		metrics.Deployments.WithLabelValues("failed").Inc()
		s.logger.Error(ctx, "deploy not confirmed", "address", address, "tx_hash", sub.TransactionHash, "error", err)
		res.Error = err.Error()
		return res, nil
	}

	metrics.Deployments.WithLabelValues("deployed").Inc()
	res.Success = true
	return res, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func mustAmount(s string) *big.Int {
	v, err := chain.ParseAmount(s, chain.TokenDecimals)
	if err != nil {
		panic(err)
	}
	return v
}
