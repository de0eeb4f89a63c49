package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"simscope.ai/internal/dashboard"
	"simscope.ai/internal/store"
)

// Run blocks in the bubbletea event loop until the user quits. Store slice
// changes are forwarded into the loop as StoreChangedMsg so the UI repaints
// without polling.
func Run(ctrl *dashboard.Controller) error {
	p := tea.NewProgram(New(ctrl), tea.WithAltScreen())

	st := ctrl.Store()
	slices := append([]store.Slice{}, store.DomainSlices...)
	slices = append(slices,
		store.SliceConnected, store.SliceLoading,
		store.SliceError, store.SliceSelectedAgent)

	var unsubs []func()
	for _, sl := range slices {
		sl := sl
		unsubs = append(unsubs, st.Subscribe(sl, func() {
			p.Send(StoreChangedMsg{Slice: sl})
		}))
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	_, err := p.Run()
	return err
}
