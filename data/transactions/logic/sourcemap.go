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

package logic

import (
	"bytes"
	"fmt"
	"strings"
)

// sourceMapVersion is currently 3.
// Refer to the full specs of sourcemap here: https://sourcemaps.info/spec.html
const sourceMapVersion = 3
const b64table string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// SourceMap contains details from the source to assembly process.
// Currently contains the map between TEAL source line to
// the assembled bytecode position.
type SourceMap struct {
	Version    int      `json:"version"`
	File       string   `json:"file,omitempty"`
	SourceRoot string   `json:"sourceRoot,omitempty"`
	Sources    []string `json:"sources"`
	Names      []string `json:"names"`
	// Mapping field is deprecated. Use `Mappings` field instead.
	Mapping  string `json:"mapping"`
	Mappings string `json:"mappings"`
}

// MakeSourceMap returns a struct containing details about
// the assembled file and encoded mappings to the source file.
func MakeSourceMap(sourceNames []string, offsetToLine map[int]int) SourceMap {
	maxPC := 0
	for pc := range offsetToLine {
		if pc > maxPC {
			maxPC = pc
		}
	}

	// Array where index is the PC and value is the line for `mappings` field.
	prevSourceLine := 0
	pcToLine := make([]string, maxPC+1)
	for pc := range pcToLine {
		if line, ok := offsetToLine[pc]; ok {
			pcToLine[pc] = MakeSourceMapLine(0, 0, line-prevSourceLine, 0)
			prevSourceLine = line
		} else {
			pcToLine[pc] = ""
		}
	}

	return SourceMap{
		Version: sourceMapVersion,
		Sources: sourceNames,
		Names:   []string{}, // TEAL code does not generate any names.
		// Mapping is deprecated, and only for backwards compatibility.
		Mapping:  strings.Join(pcToLine, ";"),
		Mappings: strings.Join(pcToLine, ";"),
	}
}

// PCToLine inverts the encoded mappings back into a map from assembled
// bytecode position to source line index (0-based). Positions with no
// mapping entry are absent from the result.
func (m SourceMap) PCToLine() (map[int]int, error) {
	mappings := m.Mappings
	if mappings == "" {
		mappings = m.Mapping
	}

	result := make(map[int]int)
	line := 0
	for pc, segment := range strings.Split(mappings, ";") {
		if segment == "" {
			continue
		}
		fields, err := vlqDecode(segment)
		if err != nil {
			return nil, fmt.Errorf("sourcemap entry at pc %d: %w", pc, err)
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("sourcemap entry at pc %d: %d fields", pc, len(fields))
		}
		// Field layout is (target column, source index, source line delta,
		// source column); only the line delta matters for TEAL maps.
		line += fields[2]
		result[pc] = line
	}
	return result, nil
}

// LineForPC resolves an assembled bytecode position to its source line index
// (0-based). ok is false when the map carries no entry for the position.
func (m SourceMap) LineForPC(pc int) (line int, ok bool) {
	pcToLine, err := m.PCToLine()
	if err != nil {
		return 0, false
	}
	line, ok = pcToLine[pc]
	return line, ok
}

// intToVLQ writes out value to bytes.Buffer
func intToVLQ(v int, buf *bytes.Buffer) {
	v <<= 1
	if v < 0 {
		v = -v
		v |= 1
	}
	for v >= 32 {
		buf.WriteByte(b64table[32|(v&31)])
		v >>= 5
	}
	buf.WriteByte(b64table[v])
}

// vlqDecode is the inverse of intToVLQ over a whole mapping segment.
func vlqDecode(segment string) ([]int, error) {
	var fields []int
	shift := uint(0)
	value := 0
	for i := 0; i < len(segment); i++ {
		digit := strings.IndexByte(b64table, segment[i])
		if digit < 0 {
			return nil, fmt.Errorf("invalid VLQ character %q", segment[i])
		}
		value |= (digit & 31) << shift
		if digit&32 != 0 {
			shift += 5
			continue
		}
		if value&1 != 0 {
			fields = append(fields, -(value >> 1))
		} else {
			fields = append(fields, value>>1)
		}
		shift = 0
		value = 0
	}
	if shift != 0 {
		return nil, fmt.Errorf("unterminated VLQ value in %q", segment)
	}
	return fields, nil
}

// MakeSourceMapLine creates source map mapping's line entry
func MakeSourceMapLine(tcol, sindex, sline, scol int) string {
	buf := bytes.NewBuffer(nil)
	intToVLQ(tcol, buf)
	intToVLQ(sindex, buf)
	intToVLQ(sline, buf)
	intToVLQ(scol, buf)
	return buf.String()
}
