package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Wallet(ctx context.Context) error
	Info(ctx context.Context) error
	Status(ctx context.Context, args []string) error
	Requirements(ctx context.Context, args []string) error
	Cost(ctx context.Context) error
	Deploy(ctx context.Context) error
	Stats(ctx context.Context, args []string) error
	Integrity(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the Pally CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user types
// "exit" or "quit".
//
// Commands
//
//	Always:
//	  - help                      show available commands
//	  - status [address]          is the account deployed
//	  - requirements [address]    balance needed before deploying
//	  - cost                      maximum deployment fee
//	  - stats [limit]             wallet count and latest wallets (operator)
//	  - integrity <email>         check a stored wallet (operator)
//	  - exit | quit               leave the program
//
//	Not logged in:
//	  - login                     request and enter a one-time code
//
//	Logged in:
//	  - wallet                    show (or create) the wallet
//	  - info                      public wallet info
//	  - deploy                    deploy the account contract
//	  - logout                    forget the session
//
// Errors returned by command handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pally %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: wallet, info, status, requirements, cost, deploy, stats, integrity, logout, exit")
			} else {
				printlnFn("Available commands: login, status, requirements, cost, stats, integrity, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "wallet":
			cmdErr = a.Wallet(ctx)

		case "info":
			cmdErr = a.Info(ctx)

		case "status":
			cmdErr = a.Status(ctx, args)

		case "requirements", "req":
			cmdErr = a.Requirements(ctx, args)

		case "cost":
			cmdErr = a.Cost(ctx)

		case "deploy":
			cmdErr = a.Deploy(ctx)

		case "stats":
			cmdErr = a.Stats(ctx, args)

		case "integrity":
			cmdErr = a.Integrity(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
