// Package benchmark contains Go benchmarks for the tokenizer, similarity
// graph, centrality engine, and search resolver, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bibliograph/bibliograph/internal/corpus"
)

var sampleTexts = map[string]string{
	"short": "Call me Ishmael. Some years ago, never mind how long precisely.",
	"accented": `Élève naïve à la façade, Müller señor Gòdel crème brûlée entrée
        déjà-vu œuvre français für die Königin español München überzeugt`,
	"medium": `It was the best of times, it was the worst of times, it was the age
        of wisdom, it was the age of foolishness, it was the epoch of belief, it
        was the epoch of incredulity, it was the season of Light, it was the
        season of Darkness, it was the spring of hope, it was the winter of
        despair, we had everything before us, we had nothing before us, we were
        all going direct to Heaven, we were all going direct the other way.`,
	"long": strings.Repeat(`The whale-ship was the cradle of many a hardy mariner,
        and the nursery of much seafaring knowledge. Whaling voyages stretched
        across every ocean of the globe, and the men who sailed them learned
        navigation, gunnery, and the thousand small crafts of shipboard life.
        From the mast-head the lookout swept the horizon for the white plume of
        a spout, and at the cry the boats were lowered and the chase began. `, 20),
}

func BenchmarkNormalize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				_ = corpus.Normalize(text)
			}
		})
	}
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				_ = corpus.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeFiltered(b *testing.B) {
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for b.Loop() {
		_ = corpus.TokenizeFiltered(text)
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = corpus.Tokenize(text)
		}
	})
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{100, 1000, 10000, 100000}
	base := "the quick brown whale swims beneath the winter moon "
	for _, size := range sizes {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				_ = corpus.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenCount(b *testing.B) {
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for b.Loop() {
		_ = corpus.TokenCount(text)
	}
}
