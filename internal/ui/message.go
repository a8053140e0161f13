package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytloop/internal/engine"
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
	MsgEngineEvent MsgKind = iota
	MsgOpDone
	MsgLoginDone
)

// eventMsg is the constructor for [MsgEngineEvent]
func eventMsg(ev engine.Event) Msg {
	return Msg{kind: MsgEngineEvent, data: ev}
}

// opDoneMsg is the constructor for [MsgOpDone]
func opDoneMsg(err error) Msg {
	return Msg{kind: MsgOpDone, data: err}
}

// loginDoneMsg is the constructor for [MsgLoginDone]
func loginDoneMsg(err error) Msg {
	return Msg{kind: MsgLoginDone, data: err}
}

func (m Msg) err() error {
	err, _ := m.data.(error)
	return err
}
