// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/saadrza/HPC-uni-tn-2025/collective"
	"github.com/saadrza/HPC-uni-tn-2025/distmm"
)

func newRunCmd() *cobra.Command {
	var f jobFlags
	var p int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all ranks as goroutines of this process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := f.context(cmd.Context())
			defer cancel()

			a, b, c := f.inputs()
			opts := f.options(cmd.ErrOrStderr())
			return collective.Run(ctx, p, func(ctx context.Context, comm collective.Communicator) error {
				report, err := distmm.Run(ctx, comm, opts, a, b, c)
				if err != nil {
					return err
				}
				if report != nil {
					_, err = report.WriteTo(cmd.OutOrStdout())
				}
				return err
			})
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&p, "p", "p", 4, "number of ranks P")
	return cmd
}
