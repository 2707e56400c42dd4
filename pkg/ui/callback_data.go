package ui

import (
	"errors"
	"strconv"
	"strings"
)

const (
	CallbackPrefix        = "s:"
	SessionCallbackPrefix = "g:"
	ReviewCallbackPrefix  = "r:"
	MaxCallbackDataLen    = 64

	sessionTokenLen = 8
)

// Screen is a page of the settings menu.
type Screen string

const (
	ScreenHome     Screen = "home"
	ScreenTimezone Screen = "tz"
	ScreenReminder Screen = "remind"
	ScreenLevel    Screen = "level"
	ScreenClose    Screen = "close"
)

type Operation string

const (
	OpNone   Operation = ""
	OpInc    Operation = "+1"
	OpDec    Operation = "-1"
	OpSet    Operation = "set"
	OpToggle Operation = "toggle"
)

type Action struct {
	Screen Screen
	Op     Operation
	Value  int
}

// SessionOp is a button on a guided session screen.
type SessionOp string

const (
	SessionNext   SessionOp = "next"
	SessionToggle SessionOp = "view"
	SessionPause  SessionOp = "pause"
	SessionResume SessionOp = "resume"
	SessionReset  SessionOp = "reset"
	SessionFinish SessionOp = "finish"
	SessionCancel SessionOp = "cancel"
)

type SessionAction struct {
	Op    SessionOp
	Token string
}

// ReviewAction is a flashcard button: reveal the back or rate the card.
type ReviewAction struct {
	CardID uint
	Reveal bool
	Rating int
}

const reviewReveal = "show"

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidAction       = errors.New("invalid callback action")
	errInvalidOperation    = errors.New("invalid callback operation")
	errInvalidValue        = errors.New("invalid callback value")
	errCallbackDataTooLong = errors.New("callback data too long")
)

func BuildHomeCallback() (string, error) {
	return buildSimpleCallback(ScreenHome)
}

func BuildTimezoneCallback() (string, error) {
	return buildSimpleCallback(ScreenTimezone)
}

func BuildReminderCallback() (string, error) {
	return buildSimpleCallback(ScreenReminder)
}

func BuildCloseCallback() (string, error) {
	return buildSimpleCallback(ScreenClose)
}

func BuildLevelToggleCallback() (string, error) {
	return validateCallbackData(CallbackPrefix + string(ScreenLevel) + ":" + string(OpToggle))
}

func BuildTimezoneIncCallback() (string, error) {
	return buildAdjustCallback(ScreenTimezone, OpInc)
}

func BuildTimezoneDecCallback() (string, error) {
	return buildAdjustCallback(ScreenTimezone, OpDec)
}

func BuildTimezoneSetCallback(value int) (string, error) {
	return buildSetCallbackSigned(ScreenTimezone, value)
}

func BuildReminderIncCallback() (string, error) {
	return buildAdjustCallback(ScreenReminder, OpInc)
}

func BuildReminderDecCallback() (string, error) {
	return buildAdjustCallback(ScreenReminder, OpDec)
}

// BuildReminderSetCallback accepts -1 to turn reminders off.
func BuildReminderSetCallback(value int) (string, error) {
	return buildSetCallbackSigned(ScreenReminder, value)
}

func ParseCallbackData(data string) (Action, error) {
	if data == "" {
		return Action{}, errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return Action{}, errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, CallbackPrefix) {
		return Action{}, errInvalidPrefix
	}

	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[0] != "s" {
		return Action{}, errInvalidPrefix
	}

	switch len(parts) {
	case 2:
		return parseSimpleAction(parts[1])
	case 3:
		return parseAdjustAction(parts[1], parts[2])
	case 4:
		screen, err := parseScreen(parts[1])
		if err != nil {
			return Action{}, err
		}
		if Operation(parts[2]) != OpSet {
			return Action{}, errInvalidOperation
		}
		return parseSetActionSigned(screen, parts[3])
	default:
		return Action{}, errInvalidAction
	}
}

// SessionToken shortens a session id to fit callback data.
func SessionToken(sessionID string) string {
	token := strings.ReplaceAll(sessionID, "-", "")
	if len(token) > sessionTokenLen {
		token = token[:sessionTokenLen]
	}
	return token
}

func BuildSessionCallback(op SessionOp, sessionID string) (string, error) {
	if !validSessionOp(op) {
		return "", errInvalidOperation
	}
	token := SessionToken(sessionID)
	if token == "" {
		return "", errInvalidValue
	}
	return validateCallbackData(SessionCallbackPrefix + string(op) + ":" + token)
}

func ParseSessionCallback(data string) (SessionAction, error) {
	if len(data) > MaxCallbackDataLen {
		return SessionAction{}, errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, SessionCallbackPrefix) {
		return SessionAction{}, errInvalidPrefix
	}
	parts := strings.Split(strings.TrimPrefix(data, SessionCallbackPrefix), ":")
	if len(parts) != 2 || parts[1] == "" {
		return SessionAction{}, errInvalidAction
	}
	op := SessionOp(parts[0])
	if !validSessionOp(op) {
		return SessionAction{}, errInvalidOperation
	}
	return SessionAction{Op: op, Token: parts[1]}, nil
}

func BuildRevealCallback(cardID uint) (string, error) {
	if cardID == 0 {
		return "", errInvalidValue
	}
	return validateCallbackData(ReviewCallbackPrefix + strconv.FormatUint(uint64(cardID), 10) + ":" + reviewReveal)
}

func BuildRateCallback(cardID uint, rating int) (string, error) {
	if cardID == 0 || rating < 0 || rating > 5 {
		return "", errInvalidValue
	}
	return validateCallbackData(ReviewCallbackPrefix + strconv.FormatUint(uint64(cardID), 10) + ":" + strconv.Itoa(rating))
}

func ParseReviewCallback(data string) (ReviewAction, error) {
	if len(data) > MaxCallbackDataLen {
		return ReviewAction{}, errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, ReviewCallbackPrefix) {
		return ReviewAction{}, errInvalidPrefix
	}
	parts := strings.Split(strings.TrimPrefix(data, ReviewCallbackPrefix), ":")
	if len(parts) != 2 || !isASCIIUnsignedInt(parts[0]) {
		return ReviewAction{}, errInvalidAction
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		return ReviewAction{}, errInvalidValue
	}
	if parts[1] == reviewReveal {
		return ReviewAction{CardID: uint(id), Reveal: true}, nil
	}
	if len(parts[1]) != 1 || !isASCIIUnsignedInt(parts[1]) {
		return ReviewAction{}, errInvalidValue
	}
	rating := int(parts[1][0] - '0')
	if rating > 5 {
		return ReviewAction{}, errInvalidValue
	}
	return ReviewAction{CardID: uint(id), Rating: rating}, nil
}

func validSessionOp(op SessionOp) bool {
	switch op {
	case SessionNext, SessionToggle, SessionPause, SessionResume, SessionReset, SessionFinish, SessionCancel:
		return true
	default:
		return false
	}
}

func buildSimpleCallback(screen Screen) (string, error) {
	data := CallbackPrefix + string(screen)
	return validateCallbackData(data)
}

func buildAdjustCallback(screen Screen, op Operation) (string, error) {
	if screen != ScreenTimezone && screen != ScreenReminder {
		return "", errInvalidAction
	}
	if op != OpInc && op != OpDec {
		return "", errInvalidOperation
	}
	data := CallbackPrefix + string(screen) + ":" + string(op)
	return validateCallbackData(data)
}

func buildSetCallbackSigned(screen Screen, value int) (string, error) {
	if screen != ScreenTimezone && screen != ScreenReminder {
		return "", errInvalidAction
	}
	data := CallbackPrefix + string(screen) + ":" + string(OpSet) + ":" + strconv.Itoa(value)
	return validateCallbackData(data)
}

func validateCallbackData(data string) (string, error) {
	if data == "" {
		return "", errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func parseSimpleAction(screenPart string) (Action, error) {
	screen, err := parseScreen(screenPart)
	if err != nil {
		return Action{}, err
	}
	return Action{Screen: screen, Op: OpNone, Value: 0}, nil
}

func parseAdjustAction(screenPart, opPart string) (Action, error) {
	screen, err := parseScreen(screenPart)
	if err != nil {
		return Action{}, err
	}
	if screen == ScreenLevel {
		if Operation(opPart) != OpToggle {
			return Action{}, errInvalidOperation
		}
		return Action{Screen: screen, Op: OpToggle}, nil
	}
	if screen != ScreenTimezone && screen != ScreenReminder {
		return Action{}, errInvalidAction
	}
	switch Operation(opPart) {
	case OpInc:
		return Action{Screen: screen, Op: OpInc, Value: 1}, nil
	case OpDec:
		return Action{Screen: screen, Op: OpDec, Value: -1}, nil
	default:
		return Action{}, errInvalidOperation
	}
}

func parseSetActionSigned(screen Screen, valuePart string) (Action, error) {
	if screen != ScreenTimezone && screen != ScreenReminder {
		return Action{}, errInvalidAction
	}
	if !isASCIISignedInt(valuePart) {
		return Action{}, errInvalidValue
	}
	value, err := strconv.Atoi(valuePart)
	if err != nil {
		return Action{}, errInvalidValue
	}
	return Action{Screen: screen, Op: OpSet, Value: value}, nil
}

func parseScreen(screenPart string) (Screen, error) {
	switch Screen(screenPart) {
	case ScreenHome, ScreenTimezone, ScreenReminder, ScreenLevel, ScreenClose:
		return Screen(screenPart), nil
	default:
		return "", errInvalidAction
	}
}

func isASCIIUnsignedInt(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

func isASCIISignedInt(value string) bool {
	if value == "" {
		return false
	}
	start := 0
	if value[0] == '-' {
		if len(value) == 1 {
			return false
		}
		start = 1
	}
	return isASCIIUnsignedInt(value[start:])
}
