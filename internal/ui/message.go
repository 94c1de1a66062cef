package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/bookclub/internal/resource"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoaded MsgKind = iota
	MsgMutated
)

type loadedData struct {
	tab    int
	gen    uint64
	result resource.Result
	err    error
}

type mutatedData struct {
	tab int
	err error
}

// loadedMsg is the constructor for [MsgLoaded]
func loadedMsg(tab int, gen uint64, result resource.Result, err error) Msg {
	return Msg{kind: MsgLoaded, data: loadedData{tab, gen, result, err}}
}

// mutatedMsg is the constructor for [MsgMutated]
func mutatedMsg(tab int, err error) Msg {
	return Msg{kind: MsgMutated, data: mutatedData{tab, err}}
}
