package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/okhaimie-dev/PallyApp/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// Login asks for an email, requests a one-time code for it and reads the
// code back without echo. A wrong code can be re-entered while the server
// reports attempts left. On success the session is cached and the wallet is
// shown, being created on first login.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	pending, err := a.sessionService.RequestCode(ctx, email)
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}
	fmt.Fprintf(a.out, "A sign-in code was sent to %s\n", email)
	if pending.Code != "" {
		fmt.Fprintf(a.out, "Development code: %s\n", pending.Code)
	}

	for {
		code, err := getSecret(a.out, "Enter code")
		if err != nil {
			return err
		}

		sess, err := a.sessionService.CompleteLogin(ctx, pending, code)
		if err == nil {
			a.session = sess
			log.Printf("Login successful")
			return a.Wallet(ctx)
		}

		var ice *common.InvalidCodeError
		if errors.As(err, &ice) && ice.Remaining > 0 {
			fmt.Fprintf(a.out, "Wrong code, %d attempts left\n", ice.Remaining)
			continue
		}

		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}
}

// Logout clears the cached session. It returns any error from the
// SessionService cleanup.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sessionService.Logout(ctx); err != nil {
		return err
	}
	a.session = nil
	return nil
}
