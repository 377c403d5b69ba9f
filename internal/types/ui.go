package types

import "unicode/utf8"

// MaxLogLineLen bounds the text of an add-log command.
const MaxLogLineLen = 95

type UICommandKind string

const (
	UIShowPrimary  UICommandKind = "show-primary"
	UIShowLog      UICommandKind = "show-log"
	UIAddLog       UICommandKind = "add-log"
	UIShowDegraded UICommandKind = "show-degraded"
	UIShowFault    UICommandKind = "show-fault"
)

// UICommand is a fire-and-forget command for the presentation layer.
type UICommand struct {
	Kind UICommandKind
	Text string // add-log only
}

func ShowPrimary() UICommand  { return UICommand{Kind: UIShowPrimary} }
func ShowLog() UICommand      { return UICommand{Kind: UIShowLog} }
func ShowDegraded() UICommand { return UICommand{Kind: UIShowDegraded} }
func ShowFault() UICommand    { return UICommand{Kind: UIShowFault} }

// AddLog builds an add-log command, truncating text to MaxLogLineLen bytes
// without splitting a rune.
func AddLog(text string) UICommand {
	if len(text) > MaxLogLineLen {
		cut := MaxLogLineLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return UICommand{Kind: UIAddLog, Text: text}
}
