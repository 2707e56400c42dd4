package onboarding

import (
	"errors"
	"strings"
)

const (
	CallbackPrefix     = "o:"
	MaxCallbackDataLen = 64
)

type CallbackActionKind string

const (
	ActionToggleSubject CallbackActionKind = "toggle_subject"
	ActionToggleLevel   CallbackActionKind = "toggle_level"
	ActionDone          CallbackActionKind = "done"
)

type CallbackAction struct {
	Kind CallbackActionKind
	Code string
}

var (
	errInvalidCallback = errors.New("invalid onboarding callback")
)

func BuildSubjectCallback(code string) string {
	return CallbackPrefix + "t:" + code
}

func BuildLevelCallback() string {
	return CallbackPrefix + "lvl"
}

func BuildDoneCallback() string {
	return CallbackPrefix + "done"
}

func ParseCallbackData(data string) (CallbackAction, error) {
	if data == "" || len(data) > MaxCallbackDataLen || !strings.HasPrefix(data, CallbackPrefix) {
		return CallbackAction{}, errInvalidCallback
	}

	payload := strings.TrimPrefix(data, CallbackPrefix)
	parts := strings.Split(payload, ":")

	switch {
	case len(parts) == 2 && parts[0] == "t" && IsSupportedSubject(parts[1]):
		return CallbackAction{Kind: ActionToggleSubject, Code: parts[1]}, nil
	case len(parts) == 1 && parts[0] == "lvl":
		return CallbackAction{Kind: ActionToggleLevel}, nil
	case len(parts) == 1 && parts[0] == "done":
		return CallbackAction{Kind: ActionDone}, nil
	default:
		return CallbackAction{}, errInvalidCallback
	}
}
