package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/photoaffix/pkg/affix"
	"github.com/matzehuels/photoaffix/pkg/errors"
)

// sizingDialog asks for an output size. It runs on its own goroutine.
type sizingDialog func(width, height int) (affix.SizeChoice, error)

// terminalView renders coordinator notifications on the terminal.
type terminalView struct {
	ctx    context.Context
	logger *log.Logger

	// answer delivers the sizing choice back to the coordinator.
	answer func(affix.SizeChoice)
	// dialog is nil in non-interactive mode; then auto is answered.
	dialog sizingDialog
	auto   affix.SizeChoice

	open   bool
	opener func(path string) error

	mu      sync.Mutex
	spinner *Spinner
	output  string
}

var (
	_ affix.View         = (*terminalView)(nil)
	_ affix.ProgressView = (*terminalView)(nil)
)

func (v *terminalView) ShowContentLoading(loading bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case loading && v.spinner == nil:
		v.spinner = newSpinner(v.ctx, "Working...")
		v.spinner.Start()
	case !loading && v.spinner != nil:
		v.spinner.Stop()
		v.spinner = nil
	}
}

func (v *terminalView) ShowProgress(done, total int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.spinner != nil {
		v.spinner.SetMessage(fmt.Sprintf("Composing %d/%d...", done, total))
	}
}

func (v *terminalView) LaunchViewer(path string) {
	v.mu.Lock()
	v.output = path
	v.mu.Unlock()

	printSuccess("Affixed")
	printFile(path)
	if !v.open {
		return
	}
	opener := v.opener
	if opener == nil {
		opener = openFile
	}
	if err := opener(path); err != nil {
		printWarning("Could not open viewer: %v", err)
	}
}

func (v *terminalView) LockOrientation()   { v.logger.Debug("layout locked") }
func (v *terminalView) UnlockOrientation() { v.logger.Debug("layout unlocked") }

func (v *terminalView) ShowErrorDialog(code errors.Code, message string) {
	printError("%s", message)
	printDetail("%s", code)
}

func (v *terminalView) ShowMemoryError() {
	printError("Not enough memory to finish composing")
	printDetail("Try fewer photos, a smaller --scale or a larger --memory")
}

func (v *terminalView) ShowImageSizingDialog(d affix.SizingDialog) {
	printInfo("Canvas %s", StyleNumber.Render(fmt.Sprintf("%d × %d", d.NaturalWidth, d.NaturalHeight)))
	if v.dialog == nil {
		go v.answer(d.Answer(v.auto))
		return
	}
	go func() {
		choice, err := v.dialog(d.NaturalWidth, d.NaturalHeight)
		switch {
		case stderrors.Is(err, errRearranged):
			v.logger.Debug("sizing dialog closed for a new layout", "dialog", d.ID)
			return
		case err != nil:
			v.logger.Warn("sizing dialog failed", "err", err)
			choice = affix.SizeChoice{Cancelled: true}
		}
		v.answer(d.Answer(choice))
	}()
}

// Output returns the path shown by the last LaunchViewer call.
func (v *terminalView) Output() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.output
}

// close stops a spinner left running by an interrupted request.
func (v *terminalView) close() {
	v.ShowContentLoading(false)
}
