// Package splitter breaks text into chunks that each fit a token budget.
// Splitting prefers natural boundaries (blank lines, then line breaks, then
// whitespace) and only forces a cut inside a word when no boundary exists.
// Concatenating the chunk texts in order reproduces the input exactly.
package splitter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/halcyonlab/textran/internal/apperrors"
	"github.com/halcyonlab/textran/internal/token"
	"github.com/rivo/uniseg"
)

// Chunk is one budget-sized slice of the input text. ForcedCut marks chunks
// produced by a cut inside a word, where no whitespace boundary was available.
type Chunk struct {
	Text      string
	Tokens    int
	ForcedCut bool
}

type piece struct {
	text   string
	forced bool
}

// Split breaks text into chunks whose token counts (per count) do not exceed
// budget. Empty input yields no chunks. Split fails only when the budget is
// too small to hold a single grapheme cluster.
func Split(text string, budget int, count token.CountFunc) ([]Chunk, error) {
	if text == "" {
		return nil, nil
	}
	if budget < 1 {
		return nil, apperrors.Split(fmt.Errorf("chunk budget %d is not positive", budget))
	}
	s := &state{budget: budget, count: count}
	pieces, err := s.split(text, 0)
	if err != nil {
		return nil, err
	}
	return s.pack(pieces), nil
}

type state struct {
	budget int
	count  token.CountFunc
}

// segmenters are the boundary levels in preference order. Each returns the
// input cut into segments whose concatenation equals the input.
var segmenters = []func(string) []string{
	func(s string) []string { return strings.SplitAfter(s, "\n\n") },
	func(s string) []string { return strings.SplitAfter(s, "\n") },
	splitAfterSpaces,
}

func (s *state) split(text string, level int) ([]piece, error) {
	if text == "" {
		return nil, nil
	}
	if s.count(text) <= s.budget {
		return []piece{{text: text}}, nil
	}
	if level >= len(segmenters) {
		return s.forceCut(text)
	}
	segs := segmenters[level](text)
	if len(segs) == 1 {
		return s.split(text, level+1)
	}
	var pieces []piece
	for _, seg := range segs {
		ps, err := s.split(seg, level+1)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, ps...)
	}
	return pieces, nil
}

// forceCut slices text at grapheme cluster boundaries, packing as many
// clusters as fit the budget into each piece.
func (s *state) forceCut(text string) ([]piece, error) {
	var pieces []piece
	var cur strings.Builder
	state := -1
	rest := text
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.StepString(rest, state)
		if cur.Len() > 0 && s.count(cur.String()+cluster) > s.budget {
			pieces = append(pieces, piece{text: cur.String(), forced: true})
			cur.Reset()
		}
		if cur.Len() == 0 && s.count(cluster) > s.budget {
			return nil, apperrors.Split(fmt.Errorf(
				"budget %d cannot hold a single grapheme cluster", s.budget))
		}
		cur.WriteString(cluster)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, piece{text: cur.String(), forced: true})
	}
	return pieces, nil
}

// pack greedily merges adjacent pieces into chunks without exceeding the
// budget. Every piece is already within budget on its own.
func (s *state) pack(pieces []piece) []Chunk {
	var chunks []Chunk
	var cur strings.Builder
	forced := false

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		text := cur.String()
		chunks = append(chunks, Chunk{Text: text, Tokens: s.count(text), ForcedCut: forced})
		cur.Reset()
		forced = false
	}

	for _, p := range pieces {
		if cur.Len() > 0 && s.count(cur.String()+p.text) > s.budget {
			flush()
		}
		cur.WriteString(p.text)
		forced = forced || p.forced
	}
	flush()
	return chunks
}

// splitAfterSpaces cuts text after each maximal run of whitespace, so every
// segment except possibly the last ends in whitespace.
func splitAfterSpaces(text string) []string {
	var segs []string
	start := 0
	inSpace := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			segs = append(segs, text[start:i])
			start = i
			inSpace = false
		}
	}
	if start < len(text) {
		segs = append(segs, text[start:])
	}
	return segs
}
