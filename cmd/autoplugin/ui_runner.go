package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"autoplugin/internal/driver"
	"autoplugin/internal/pipeline"
	"autoplugin/internal/ui"
)

type passOutcome struct {
	result *driver.Result
	err    error
}

// runPassWithUI runs the pass in the background and renders its progress
// events until the pass closes the channel.
func runPassWithUI(cmd *cobra.Command, title string, setup *passSetup) (*driver.Result, error) {
	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ctx := cmd.Context()
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan passOutcome, 1)

	go func() {
		opts := setup.opts
		opts.Progress = pipeline.ChannelSink{Ch: events}
		res, err := driver.NewPass(setup.root, opts).Run(ctx)
		outcomeCh <- passOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, nil, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
