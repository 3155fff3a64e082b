package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mkwanja/internal/lock"
)

func newHashPINCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-pin [PIN]",
		Short: "Print a bcrypt hash for LOCK_PIN_HASH. Reads the PIN from stdin when not given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pin string
			if len(args) == 1 {
				pin = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read PIN: %w", err)
				}
				pin = strings.TrimSpace(line)
			}

			hash, err := lock.HashPIN(pin)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, hash)
			return nil
		},
	}
}
