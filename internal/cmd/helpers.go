package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/chatcore/internal/account"
	"github.com/Iron-Ham/chatcore/internal/errors"
)

// withRuntime opens the runtime for the duration of fn.
func withRuntime(fn func(rt *runtime) error) (err error) {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(rt)
}

// addAccountFlag registers --account/-a. Zero means the selected account.
func addAccountFlag(cmd *cobra.Command, target *uint32) {
	cmd.Flags().Uint32VarP(target, "account", "a", 0, "account id (default: selected account)")
}

// account resolves id, or the selected account when id is zero. The caller
// closes the returned context.
func (rt *runtime) account(id uint32) (*account.Context, error) {
	if id != 0 {
		return rt.mgr.GetErr(id)
	}
	c := rt.mgr.GetSelected()
	if c.IsNull() {
		_ = c.Close()
		return nil, errors.NewAccountError("no account selected", errors.ErrAccountNotFound)
	}
	return c, nil
}

func parseID(arg, what string) (uint32, error) {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || n == 0 {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid %s id", what)).WithField(what).WithValue(arg)
	}
	return uint32(n), nil
}

// interruptContext is cmd's context canceled on SIGINT or SIGTERM.
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
