// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rsrc "github.com/lvrsrc/go-rsrc"
	"github.com/lvrsrc/go-rsrc/internal/container"
)

func main() {
	var opts container.Options

	root := &cobra.Command{
		Use:   "rsrctool",
		Short: "Inspect LabVIEW RSRC containers.",
	}
	root.PersistentFlags().CountVarP(&opts.Verbose, "verbose", "v", "increase print-map diagnostic detail")
	root.PersistentFlags().BoolVar(&opts.KeepNames, "keep-names", false, "preserve the name pool order verbatim even when it matches section order")

	root.AddCommand(
		listCmd(&opts),
		infoCmd(&opts),
		dumpCmd(&opts),
		extractCmd(&opts),
		createCmd(),
		passwordCmd(&opts),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func listCmd(opts *container.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "List the blocks in an RSRC container.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := rsrc.Open(args[0], *opts)
			if err != nil {
				return err
			}
			defer rf.Close()
			for _, b := range rf.List() {
				fmt.Printf("%s\t%d section(s)\n", b.Ident, b.Sections)
			}
			return nil
		},
	}
}

func infoCmd(opts *container.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print an RSRC container's file-level summary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := rsrc.Open(args[0], *opts)
			if err != nil {
				return err
			}
			defer rf.Close()
			s := rf.Info()
			fmt.Printf("type:      %s\n", string(s.Type[:]))
			fmt.Printf("extension: %s\n", s.Extension)
			fmt.Printf("version:   %s\n", s.Version)
			fmt.Printf("blocks:    %d\n", s.Blocks)
			if opts.Verbose > 0 {
				return rf.PrintMap(os.Stdout)
			}
			return nil
		},
	}
}

func dumpCmd(opts *container.Options) *cobra.Command {
	var xmlPath string
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Export a binary-faithful XML tree with BIN side files.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := rsrc.Open(args[0], *opts)
			if err != nil {
				return err
			}
			defer rf.Close()
			if xmlPath == "" {
				xmlPath = args[0] + ".xml"
			}
			return rf.ExportXML(xmlPath, rsrc.XMLDump)
		},
	}
	cmd.Flags().StringVarP(&xmlPath, "xml", "m", "", "output XML path (defaults to <file>.xml)")
	return cmd
}

func extractCmd(opts *container.Options) *cobra.Command {
	var xmlPath string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Export a parsed XML tree, inline where blocks support it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := rsrc.Open(args[0], *opts)
			if err != nil {
				return err
			}
			defer rf.Close()
			if xmlPath == "" {
				xmlPath = args[0] + ".xml"
			}
			return rf.ExportXML(xmlPath, rsrc.XMLExtract)
		},
	}
	cmd.Flags().StringVarP(&xmlPath, "xml", "m", "", "output XML path (defaults to <file>.xml)")
	return cmd
}

func createCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "create <xml>",
		Short: "Rebuild an RSRC file from an exported XML tree.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("create: --rsrc output path is required")
			}
			return rsrc.CreateFromXML(args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "rsrc", "i", "", "output RSRC path")
	return cmd
}

func passwordCmd(opts *container.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "password <file> <new-password>",
		Short: "Change the block-diagram password in place.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rf, err := rsrc.Open(args[0], *opts)
			if err != nil {
				return err
			}
			if err := rf.SetPassword(args[1]); err != nil {
				rf.Close()
				return err
			}
			// The source stays open for lazy section reads until every
			// block has been re-read, so write to a sibling and swap.
			tmp := args[0] + ".tmp"
			if err := rf.SaveFile(tmp); err != nil {
				rf.Close()
				os.Remove(tmp)
				return err
			}
			if err := rf.Close(); err != nil {
				return err
			}
			return os.Rename(tmp, args[0])
		},
	}
}
