package walletv1

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
)

// MaxStatsLimit caps GetWalletStatsRequest.Limit.
const MaxStatsLimit = 100

var (
	codePattern    = regexp.MustCompile(`^[0-9]{6}$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)
)

// NormalizeEmail trims and lower-cases an address so that the same mailbox
// always maps to the same wallet.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email *string) error {
	*email = NormalizeEmail(*email)
	if *email == "" {
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	addr, err := mail.ParseAddress(*email)
	if err != nil || addr.Address != *email {
		return fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	return nil
}

func validateSubject(subject string) error {
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("%w: subject is required", common.ErrorValidation)
	}
	return nil
}

func validateAddress(address *string) error {
	*address = strings.TrimSpace(*address)
	if !addressPattern.MatchString(*address) {
		return fmt.Errorf("%w: invalid account address", common.ErrorValidation)
	}
	return nil
}

type IssueChallengeRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
}

// Validate checks the request and normalizes Email in place.
func (r *IssueChallengeRequest) Validate() error {
	if err := validateEmail(&r.Email); err != nil {
		return err
	}
	return validateSubject(r.Subject)
}

// IssueChallengeResponse carries the code only when the server runs with
// code echo enabled for development.
type IssueChallengeResponse struct {
	Issued bool   `json:"issued"`
	Code   string `json:"code,omitempty"`
}

type VerifyChallengeRequest struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	Subject string `json:"subject"`
}

// Validate checks the request and normalizes Email in place.
func (r *VerifyChallengeRequest) Validate() error {
	if err := validateEmail(&r.Email); err != nil {
		return err
	}
	r.Code = strings.TrimSpace(r.Code)
	if !codePattern.MatchString(r.Code) {
		return fmt.Errorf("%w: code must be 6 digits", common.ErrorValidation)
	}
	return validateSubject(r.Subject)
}

type VerifyChallengeResponse struct {
	OK           bool      `json:"ok"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type GetOrCreateWalletRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
}

// Validate checks the request and normalizes Email in place.
func (r *GetOrCreateWalletRequest) Validate() error {
	if err := validateEmail(&r.Email); err != nil {
		return err
	}
	return validateSubject(r.Subject)
}

type GetOrCreateWalletResponse struct {
	Email          string `json:"email"`
	AccountAddress string `json:"account_address"`
	PublicKey      string `json:"public_key"`
	PrivateKey     string `json:"private_key"`
	IsNew          bool   `json:"is_new"`
}

type GetWalletInfoRequest struct {
	Email string `json:"email"`
}

// Validate checks the request and normalizes Email in place.
func (r *GetWalletInfoRequest) Validate() error {
	return validateEmail(&r.Email)
}

type WalletInfo struct {
	Email          string    `json:"email"`
	AccountAddress string    `json:"account_address"`
	PublicKey      string    `json:"public_key"`
	CreatedAt      time.Time `json:"created_at"`
}

type GetWalletInfoResponse struct {
	Wallet WalletInfo `json:"wallet"`
}

type CheckDeploymentStatusRequest struct {
	Address string `json:"address"`
}

func (r *CheckDeploymentStatusRequest) Validate() error {
	return validateAddress(&r.Address)
}

type CheckDeploymentStatusResponse struct {
	AccountAddress string `json:"account_address"`
	IsDeployed     bool   `json:"is_deployed"`
}

type CheckDeploymentRequirementsRequest struct {
	Address string `json:"address"`
}

func (r *CheckDeploymentRequirementsRequest) Validate() error {
	return validateAddress(&r.Address)
}

// CheckDeploymentRequirementsResponse reports amounts as decimal strings in
// whole tokens of Unit, e.g. "0.5" STRK.
type CheckDeploymentRequirementsResponse struct {
	AccountAddress  string `json:"account_address"`
	Unit            string `json:"unit"`
	CurrentBalance  string `json:"current_balance"`
	MinimumRequired string `json:"minimum_required"`
	CanDeploy       bool   `json:"can_deploy"`
}

type GetDeploymentCostRequest struct{}

func (r *GetDeploymentCostRequest) Validate() error {
	return nil
}

// GetDeploymentCostResponse reports MaxFee as a decimal string in whole
// tokens of Unit.
type GetDeploymentCostResponse struct {
	MaxFee string `json:"max_fee"`
	Unit   string `json:"unit"`
}

type DeployAccountRequest struct {
	Email string `json:"email"`
}

// Validate checks the request and normalizes Email in place.
func (r *DeployAccountRequest) Validate() error {
	return validateEmail(&r.Email)
}

type DeployAccountResponse struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	AccountAddress  string `json:"account_address"`
	Error           string `json:"error,omitempty"`
}

type GetWalletStatsRequest struct {
	Limit int `json:"limit"`
}

func (r *GetWalletStatsRequest) Validate() error {
	if r.Limit < 0 || r.Limit > MaxStatsLimit {
		return fmt.Errorf("%w: limit must be between 0 and %d", common.ErrorValidation, MaxStatsLimit)
	}
	return nil
}

type GetWalletStatsResponse struct {
	TotalWallets int64        `json:"total_wallets"`
	Recent       []WalletInfo `json:"recent"`
}

type VerifyWalletIntegrityRequest struct {
	Email string `json:"email"`
}

// Validate checks the request and normalizes Email in place.
func (r *VerifyWalletIntegrityRequest) Validate() error {
	return validateEmail(&r.Email)
}

type VerifyWalletIntegrityResponse struct {
	Email    string   `json:"email"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}
