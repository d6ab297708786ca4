// Package embeddingtest provides a deterministic, offline embedding function
// for tests that need a real chromem collection.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/philippgille/chromem-go"
)

const Dimension = 64

// Func hashes lowercase word tokens into a normalized bag-of-words vector.
// Texts sharing words get similar vectors. The first component is a constant
// bias so no vector is ever zero.
func Func() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		return Embed(text), nil
	}
}

func Embed(text string) []float32 {
	v := make([]float64, Dimension)
	v[0] = 0.1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[1+int(h.Sum32()%uint32(Dimension-1))]++
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float32, Dimension)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}
