// Package ui provides the Bubble Tea TUI for the decoder.
package ui

import (
	"github.com/abelbrown/decoder/internal/decode"
	"github.com/abelbrown/decoder/internal/store"
)

// DecodeDone is sent when a decode finishes.
type DecodeDone struct {
	Result decode.Result
}

// HistoryLoaded is sent when recent decodes are read from the store.
type HistoryLoaded struct {
	Logs []store.DecodeLog
	Err  error
}

// FeedbackSaved is sent when feedback on a decode has been stored.
type FeedbackSaved struct {
	ID   string
	Kind store.FeedbackKind
	Err  error
}

// LexiconReloaded is sent after the lexicon file is re-read.
type LexiconReloaded struct {
	Err error
}
