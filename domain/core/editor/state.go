package editor

// State is where an editing session stands after handling an action
type State int

const (
	StateDefault State = iota
	StateShow
	StateSave
	StateSaveExit
	StatePreview
	StateExit
	StateError
	StateConfirmCorrect
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "DEFAULT"
	case StateShow:
		return "SHOW"
	case StateSave:
		return "SAVE"
	case StateSaveExit:
		return "SAVE_EXIT"
	case StatePreview:
		return "PREVIEW"
	case StateExit:
		return "EXIT"
	case StateError:
		return "ERROR"
	case StateConfirmCorrect:
		return "CONFIRM_CORRECT"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// MarshalText renders the state name in JSON views
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal states end the editing session
func (s State) Terminal() bool {
	return s == StateExit || s == StateSaveExit || s == StateClosed
}

// ResultState is the state an action leads to when it succeeds
func ResultState(a Action) State {
	switch a {
	case ActionDefault, ActionNew:
		return StateDefault
	case ActionShow, ActionChangeElement, ActionDeleteLocale, ActionCopyLocale,
		ActionAddElement, ActionRemoveElement, ActionElementUp, ActionElementDown,
		ActionCheck, ActionCorrectConfirmed:
		return StateShow
	case ActionSave, ActionSaveAction:
		return StateSave
	case ActionSaveExit:
		return StateSaveExit
	case ActionPreview:
		return StatePreview
	case ActionExit, ActionCleanup:
		return StateExit
	case ActionCloseBrowser:
		return StateClosed
	case ActionError:
		return StateError
	case ActionConfirmCorrect:
		return StateConfirmCorrect
	}
	return StateError
}
