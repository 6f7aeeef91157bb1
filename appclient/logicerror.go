// Copyright (C) 2022-2023 Algorand, Inc.
// This file is part of beaker-go
//
// beaker-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// beaker-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with beaker-go.  If not, see <https://www.gnu.org/licenses/>.

package appclient

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/algorand-devrel/beaker-go/data/transactions/logic"
)

// logicErrRegex matches the error text algod produces when a program fails
// during evaluation, e.g.
//
//	transaction XQ2W...A4: logic eval error: assert failed pc=702. Details: pc=702, opcodes=...
var logicErrRegex = regexp.MustCompile(`transaction ([A-Z2-7]+): logic eval error: (.*?)\. Details: pc=([0-9]+)`)

// LogicErrorDetails are the fields recovered from an algod eval failure
// message.
type LogicErrorDetails struct {
	// TxID of the transaction whose program failed.
	TxID string

	// PC is the program counter at which evaluation failed.
	PC int

	// Msg is the evaluation error text, e.g. "assert failed pc=702".
	Msg string
}

// ParseLogicError extracts structured details from an algod error message.
// ok is false when the message is not a logic eval failure.
func ParseLogicError(msg string) (details LogicErrorDetails, ok bool) {
	matches := logicErrRegex.FindStringSubmatch(msg)
	if len(matches) != 4 {
		return LogicErrorDetails{}, false
	}
	pc, err := strconv.Atoi(matches[3])
	if err != nil {
		return LogicErrorDetails{}, false
	}
	return LogicErrorDetails{
		TxID: matches[1],
		Msg:  matches[2],
		PC:   pc,
	}, true
}

// LogicError is an algod eval failure resolved against the program source:
// the failing program counter mapped back through the assembly source map to
// a source line.
type LogicError struct {
	Details LogicErrorDetails

	// LineNo is the 1-based source line at which evaluation failed.
	LineNo int

	// Lines is a window of source lines around the failing one, for context.
	Lines []string

	// Err is the error as received from algod.
	Err error
}

// Error summarizes the failure with its resolved source location.
func (e *LogicError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "logic error in transaction %s: %s at line %d", e.Details.TxID, e.Details.Msg, e.LineNo)
	if len(e.Lines) > 0 {
		fmt.Fprintf(&b, "\n\n\t%s", strings.Join(e.Lines, "\n\t"))
	}
	return b.String()
}

// Unwrap returns the underlying algod error.
func (e *LogicError) Unwrap() error {
	return e.Err
}

// sourceWindow is how many lines before and after the failing line are kept
// for context.
const sourceWindow = 2

// MapLogicError resolves an algod error against the given program source and
// source map. When the error is not an eval failure, or the source or map is
// unavailable, or the failing pc has no mapping, the original error is
// returned untouched.
func MapLogicError(err error, source string, sourceMap *logic.SourceMap) error {
	if err == nil || source == "" || sourceMap == nil {
		return err
	}

	details, ok := ParseLogicError(err.Error())
	if !ok {
		return err
	}

	line, ok := sourceMap.LineForPC(details.PC)
	if !ok {
		return err
	}

	srcLines := strings.Split(source, "\n")
	if line >= len(srcLines) {
		return err
	}

	start := line - sourceWindow
	if start < 0 {
		start = 0
	}
	end := line + sourceWindow + 1
	if end > len(srcLines) {
		end = len(srcLines)
	}

	window := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		text := srcLines[i]
		if i == line {
			text += "\t\t<-- Error"
		}
		window = append(window, text)
	}

	return &LogicError{
		Details: details,
		LineNo:  line + 1,
		Lines:   window,
		Err:     err,
	}
}
