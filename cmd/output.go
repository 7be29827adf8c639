// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"panelq/cli/internal/dispatch"
	"panelq/cli/internal/progress"
	"panelq/cli/internal/render"
	"panelq/cli/internal/result"
	"panelq/cli/internal/terminal"
)

// outputFlags are shared by commands that execute queries.
type outputFlags struct {
	json       bool
	markdown   bool
	noWeights  bool
	noMerge    bool
	noProgress bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the batch result as JSON")
	cmd.Flags().BoolVar(&o.markdown, "markdown", false, "Print the batch result as Markdown")
	cmd.Flags().BoolVar(&o.noWeights, "no-weights", false, "Skip weight column detection")
	cmd.Flags().BoolVar(&o.noMerge, "no-merge", false, "Keep raw NCCS/SEC segment values")
	cmd.Flags().BoolVar(&o.noProgress, "no-progress", false, "Do not show live progress")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
}

// apply turns off the features disabled on the command line. Switches already
// set by the batch file are kept when the matching flag is absent.
func (o *outputFlags) apply(req *dispatch.BatchRequest) {
	off := false
	if o.noWeights {
		req.ApplyWeights = &off
	}
	if o.noMerge {
		req.ApplySegmentMerge = &off
	}
}

// renderer returns a live progress renderer when output goes to an interactive
// terminal, otherwise nil.
func (o *outputFlags) renderer() *progress.Renderer {
	if o.json || o.markdown || o.noProgress || !terminal.IsInteractive(os.Stdout) {
		return nil
	}
	return progress.NewRenderer()
}

func (o *outputFlags) write(w io.Writer, b *result.BatchResult) error {
	switch {
	case o.json:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case o.markdown:
		_, err := fmt.Fprint(w, render.Markdown(b))
		return err
	default:
		return render.Terminal(w, b)
	}
}

// runBatch executes req with live progress and writes the result.
func runBatch(cmd *cobra.Command, tool string, o *outputFlags, req dispatch.BatchRequest) error {
	o.apply(&req)

	var observer progress.Observer
	r := o.renderer()
	if r != nil {
		observer = r
	}

	a, err := newApp(tool, observer)
	if err != nil {
		return err
	}
	defer a.Close()

	if r != nil {
		r.Start()
	}
	batch, err := a.dispatcher.ExecuteBatch(cmd.Context(), req)
	if r != nil {
		r.Stop()
	}
	if err != nil {
		return err
	}
	return o.write(cmd.OutOrStdout(), batch)
}
