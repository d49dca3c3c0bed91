// Package smaz implements a SMAZ-style short string compressor with
// pluggable codebooks.
package smaz

import (
	"errors"
	"fmt"
)

const (
	escapeOne  = 254 // next byte is a literal
	escapeMany = 255 // next byte N, then N+1 literals

	maxStems    = 254
	maxVerbatim = 255
)

// ErrCorrupt is returned when compressed input cannot be decoded.
var ErrCorrupt = errors.New("smaz: corrupt input")

type node struct {
	children map[byte]*node
	code     int
}

// Codebook is an immutable set of stems with its lookup trie.
type Codebook struct {
	stems [][]byte
	root  *node
}

// NewCodebook builds a codebook from at most 254 distinct non-empty stems.
// Stem i is encoded as byte i.
func NewCodebook(stems []string) (*Codebook, error) {
	if len(stems) > maxStems {
		return nil, fmt.Errorf("smaz: %d stems exceed the limit of %d", len(stems), maxStems)
	}
	cb := &Codebook{
		stems: make([][]byte, len(stems)),
		root:  &node{code: -1},
	}
	for i, s := range stems {
		if s == "" {
			return nil, fmt.Errorf("smaz: stem %d is empty", i)
		}
		cb.stems[i] = []byte(s)
		n := cb.root
		for _, b := range cb.stems[i] {
			child := n.children[b]
			if child == nil {
				if n.children == nil {
					n.children = make(map[byte]*node)
				}
				child = &node{code: -1}
				n.children[b] = child
			}
			n = child
		}
		if n.code >= 0 {
			return nil, fmt.Errorf("smaz: duplicate stem %q", s)
		}
		n.code = i
	}
	return cb, nil
}

// MustCodebook is NewCodebook that panics on error, for package-level tables.
func MustCodebook(stems []string) *Codebook {
	cb, err := NewCodebook(stems)
	if err != nil {
		panic(err)
	}
	return cb
}

// longest returns the code and length of the longest stem prefixing in.
func (c *Codebook) longest(in []byte) (code, length int) {
	code = -1
	n := c.root
	for i, b := range in {
		n = n.children[b]
		if n == nil {
			break
		}
		if n.code >= 0 {
			code, length = n.code, i+1
		}
	}
	return code, length
}

// Compress encodes in greedily, longest stem first.
func (c *Codebook) Compress(in []byte) []byte {
	return c.compress(in, false)
}

// CompressBacktrack is Compress with verbatim run merging: when a short run
// of codes sits between two verbatim runs and one larger verbatim run is
// cheaper, the encoder rewinds and emits the whole region verbatim.
func (c *Codebook) CompressBacktrack(in []byte) []byte {
	return c.compress(in, true)
}

// CompressString is a convenience wrapper for string input.
func (c *Codebook) CompressString(s string) []byte {
	return c.compress([]byte(s), true)
}

func (c *Codebook) compress(in []byte, backtrack bool) []byte {
	out := make([]byte, 0, len(in))

	// Last verbatim block written: input range and output offset.
	lastStart, lastEnd, lastOut := -1, -1, -1
	codesSince := 0

	flush := func(start, end int) {
		if start < 0 || start == end {
			return
		}
		if backtrack && lastStart >= 0 && end-lastStart <= maxVerbatim {
			merged := verbatimCost(end - lastStart)
			split := verbatimCost(lastEnd-lastStart) + codesSince + verbatimCost(end-start)
			if merged < split {
				out = out[:lastOut]
				start = lastStart
			}
		}
		lastStart, lastEnd, lastOut = start, end, len(out)
		out = appendVerbatim(out, in[start:end])
		codesSince = 0
	}

	pending := -1
	for i := 0; i < len(in); {
		code, n := c.longest(in[i:])
		if n > 0 {
			if pending >= 0 {
				flush(pending, i)
				pending = -1
			}
			out = append(out, byte(code))
			codesSince++
			i += n
			continue
		}
		if pending < 0 {
			pending = i
		}
		i++
		if i-pending == maxVerbatim {
			flush(pending, i)
			pending = -1
		}
	}
	if pending >= 0 {
		flush(pending, len(in))
	}

	if len(out) > worstCase(len(in)) {
		return appendVerbatim(make([]byte, 0, worstCase(len(in))), in)
	}
	return out
}

// verbatimCost is the encoded size of a single verbatim run of n bytes.
func verbatimCost(n int) int {
	if n == 1 {
		return 2
	}
	return n + 2
}

// worstCase is the size of in encoded entirely as verbatim runs.
func worstCase(n int) int {
	size := 0
	for n > 0 {
		chunk := min(n, maxVerbatim)
		size += verbatimCost(chunk)
		n -= chunk
	}
	return size
}

func appendVerbatim(out, lit []byte) []byte {
	for len(lit) > 0 {
		chunk := lit[:min(len(lit), maxVerbatim)]
		if len(chunk) == 1 {
			out = append(out, escapeOne, chunk[0])
		} else {
			out = append(out, escapeMany, byte(len(chunk)-1))
			out = append(out, chunk...)
		}
		lit = lit[len(chunk):]
	}
	return out
}

// Decompress decodes data produced by Compress with the same codebook.
func (c *Codebook) Decompress(in []byte) ([]byte, error) {
	out := make([]byte, 0, len(in)*3)
	for i := 0; i < len(in); {
		switch b := in[i]; {
		case b == escapeOne:
			if i+1 >= len(in) {
				return nil, ErrCorrupt
			}
			out = append(out, in[i+1])
			i += 2
		case b == escapeMany:
			if i+1 >= len(in) {
				return nil, ErrCorrupt
			}
			n := int(in[i+1]) + 1
			if i+2+n > len(in) {
				return nil, ErrCorrupt
			}
			out = append(out, in[i+2:i+2+n]...)
			i += 2 + n
		default:
			if int(b) >= len(c.stems) {
				return nil, ErrCorrupt
			}
			out = append(out, c.stems[b]...)
			i++
		}
	}
	return out, nil
}
