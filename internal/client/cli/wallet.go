package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/client/client"
)

var errNotLoggedIn = errors.New("not logged in, use 'login' first")

// Wallet shows the signed-in user's wallet. The first call creates it.
func (a *App) Wallet(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	w, err := a.walletService.Open(ctx, a.session)
	if err != nil {
		return err
	}

	if w.IsNew {
		fmt.Fprintln(a.out, "New wallet created.")
	}
	fmt.Fprintf(a.out, "Email:       %s\n", w.Email)
	fmt.Fprintf(a.out, "Address:     %s\n", w.AccountAddress)
	fmt.Fprintf(a.out, "Public key:  %s\n", w.PublicKey)
	fmt.Fprintf(a.out, "Private key: %s\n", w.PrivateKey)
	fmt.Fprintln(a.out, "Keep the private key secret.")
	return nil
}

// Info shows the public part of the wallet.
func (a *App) Info(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	info, err := a.walletService.Info(ctx, a.email())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Email:      %s\n", info.Email)
	fmt.Fprintf(a.out, "Address:    %s\n", info.AccountAddress)
	fmt.Fprintf(a.out, "Public key: %s\n", info.PublicKey)
	fmt.Fprintf(a.out, "Created:    %s\n", info.CreatedAt.Local().Format(time.RFC3339))
	return nil
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// Status reports whether an account is deployed. Without an address the
// signed-in user's account is checked.
func (a *App) Status(ctx context.Context, args []string) error {
	st, err := a.walletService.Status(ctx, a.email(), optionalArg(args))
	if err != nil {
		return usageOr(err, "status <address>")
	}
	state := "not deployed"
	if st.IsDeployed {
		state = "deployed"
	}
	fmt.Fprintf(a.out, "%s: %s\n", st.AccountAddress, state)
	return nil
}

// Requirements shows the account balance against the deployment minimum.
func (a *App) Requirements(ctx context.Context, args []string) error {
	r, err := a.walletService.Requirements(ctx, a.email(), optionalArg(args))
	if err != nil {
		return usageOr(err, "requirements <address>")
	}
	fmt.Fprintf(a.out, "Address:  %s\n", r.AccountAddress)
	fmt.Fprintf(a.out, "Balance:  %s %s\n", r.CurrentBalance, r.Unit)
	fmt.Fprintf(a.out, "Required: %s %s\n", r.MinimumRequired, r.Unit)
	if r.CanDeploy {
		fmt.Fprintln(a.out, "Ready to deploy.")
	} else {
		fmt.Fprintln(a.out, "Fund the address before deploying.")
	}
	return nil
}

func (a *App) Cost(ctx context.Context) error {
	c, err := a.walletService.Cost(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Maximum deployment fee: %s %s\n", c.MaxFee, c.Unit)
	return nil
}

// Deploy submits the account deployment after a confirmation and waits for
// the result. This can take minutes.
func (a *App) Deploy(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	ok, err := Confirm(a.reader, "Deploy the account for "+a.email()+"?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	fmt.Fprintln(a.out, "Deploying, waiting for confirmation...")
	res, err := a.walletService.Deploy(ctx, a.email())
	if err != nil {
		return err
	}

	if !res.Success {
		fmt.Fprintf(a.out, "Deployment failed: %s\n", res.Error)
		if res.TransactionHash != "" {
			fmt.Fprintf(a.out, "Transaction: %s\n", res.TransactionHash)
		}
		return nil
	}
	fmt.Fprintf(a.out, "Deployed %s\n", res.AccountAddress)
	fmt.Fprintf(a.out, "Transaction: %s\n", res.TransactionHash)
	return nil
}

// Stats prints the wallet count and the most recent wallets. Operator only.
func (a *App) Stats(ctx context.Context, args []string) error {
	limit := 10
	if s := optionalArg(args); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("usage: stats [limit]: %w", err)
		}
		limit = n
	}

	st, err := a.walletService.Stats(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total wallets: %d\n", st.TotalWallets)
	for _, w := range st.Recent {
		fmt.Fprintf(a.out, "  %s  %s  %s\n", w.CreatedAt.Local().Format(time.DateTime), w.Email, w.AccountAddress)
	}
	return nil
}

// Integrity checks that a stored wallet decrypts and matches its address.
// Operator only.
func (a *App) Integrity(ctx context.Context, args []string) error {
	email := optionalArg(args)
	if email == "" {
		return errors.New("usage: integrity <email>")
	}
	rep, err := a.walletService.Integrity(ctx, email)
	if err != nil {
		return err
	}
	if rep.Valid {
		fmt.Fprintf(a.out, "%s: OK\n", rep.Email)
		return nil
	}
	fmt.Fprintf(a.out, "%s: FAILED\n", rep.Email)
	for _, p := range rep.Problems {
		fmt.Fprintf(a.out, "  - %s\n", p)
	}
	return nil
}

func usageOr(err error, usage string) error {
	if errors.Is(err, client.ErrLocalDataNotAvailable) {
		return errors.New("usage: " + usage)
	}
	return err
}
