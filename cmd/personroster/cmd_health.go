package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/personroster/internal/rules"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the store and ruleset are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			// Check the store
			st, err := newStore(ctx, logger)
			if err != nil {
				fmt.Printf("Store (%s): FAIL (%v)\n", cfg.Store.Backend, err)
				allOK = false
			} else {
				defer func() { _ = st.Close() }()
				if err := st.Setup(ctx); err != nil {
					fmt.Printf("Store (%s): FAIL (%v)\n", cfg.Store.Backend, err)
					allOK = false
				} else {
					fmt.Printf("Store (%s): OK\n", cfg.Store.Backend)
				}
			}

			// Check the ruleset
			rs, err := rules.Load(cfg.Rules.Path)
			if err != nil {
				fmt.Printf("Rules: FAIL (%v)\n", err)
				allOK = false
			} else {
				fmt.Printf("Rules: OK (%d protected, %d key figures, %d nickname groups)\n",
					len(rs.ProtectedNames), len(rs.KeyFigures), len(rs.Nicknames))
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}
