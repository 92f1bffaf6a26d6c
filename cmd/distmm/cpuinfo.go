// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"

	"github.com/saadrza/HPC-uni-tn-2025/distmm"
)

func newCPUInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpuinfo",
		Short: "Print the CPU features and thread settings the kernel runs with",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printCPUInfo(cmd.OutOrStdout())
		},
	}
}

func printCPUInfo(w io.Writer) {
	fmt.Fprintf(w, "GOOS: %s\n", runtime.GOOS)
	fmt.Fprintf(w, "GOARCH: %s\n", runtime.GOARCH)
	fmt.Fprintf(w, "NumCPU: %d\n", runtime.NumCPU())
	fmt.Fprintf(w, "GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Fprintf(w, "Threads from environment: %d\n", distmm.ThreadsFromEnv())
	fmt.Fprintln(w)

	switch runtime.GOARCH {
	case "arm64":
		fmt.Fprintln(w, "=== golang.org/x/sys/cpu.ARM64 ===")
		fmt.Fprintf(w, "  HasASIMD:    %v (NEON baseline)\n", cpu.ARM64.HasASIMD)
		fmt.Fprintf(w, "  HasFP:       %v (Floating point)\n", cpu.ARM64.HasFP)
		fmt.Fprintf(w, "  HasSVE:      %v (Scalable Vector Extension)\n", cpu.ARM64.HasSVE)
		fmt.Fprintf(w, "  HasATOMICS:  %v (Large System Extensions)\n", cpu.ARM64.HasATOMICS)
	case "amd64":
		fmt.Fprintln(w, "=== golang.org/x/sys/cpu.X86 ===")
		fmt.Fprintf(w, "  HasAVX:     %v\n", cpu.X86.HasAVX)
		fmt.Fprintf(w, "  HasAVX2:    %v\n", cpu.X86.HasAVX2)
		fmt.Fprintf(w, "  HasAVX512F: %v\n", cpu.X86.HasAVX512F)
		fmt.Fprintf(w, "  HasFMA:     %v (not used: the kernel rounds every product)\n", cpu.X86.HasFMA)
		fmt.Fprintf(w, "  HasSSE2:    %v\n", cpu.X86.HasSSE2)
	}
}
